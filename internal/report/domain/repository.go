package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, export *ReportExport) error
	FindByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*ReportExport, error)
	List(ctx context.Context, db *gorm.DB, companyID snowflake.ID, limit int) ([]ReportExport, error)
}

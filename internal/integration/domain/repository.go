package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, conn *Connection) error
	Update(ctx context.Context, db *gorm.DB, conn *Connection) error
	FindByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*Connection, error)
	List(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]Connection, error)
	ListEnabled(ctx context.Context, db *gorm.DB) ([]Connection, error)
	InsertRun(ctx context.Context, db *gorm.DB, run *SyncRun) error
	UpdateRun(ctx context.Context, db *gorm.DB, run *SyncRun) error
	ListRuns(ctx context.Context, db *gorm.DB, companyID, connectionID snowflake.ID, limit int) ([]SyncRun, error)
}

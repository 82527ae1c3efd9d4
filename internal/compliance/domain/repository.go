package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	CompanyID snowflake.ID
	Status    string
	Framework string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, doc *Document) error
	// UpdateReview writes the review only while the stored status still equals
	// fromStatus. It reports false when another review got there first.
	UpdateReview(ctx context.Context, db *gorm.DB, doc *Document, fromStatus string) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*Document, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Document, error)
	ListOverdue(ctx context.Context, db *gorm.DB, companyID snowflake.ID, now time.Time) ([]Document, error)
}

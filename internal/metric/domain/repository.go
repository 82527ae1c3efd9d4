package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	CompanyID     snowflake.ID
	Category      string
	MetricName    string
	SubmittedBy   string
	Source        string
	ReportingYear *int
	Cursor        *Cursor
	Limit         int
}

type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, record *MetricRecord) error
	FindByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*MetricRecord, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]MetricRecord, error)
	// ListForScoring returns every record of a company, optionally limited to
	// a reporting year, ordered oldest first.
	ListForScoring(ctx context.Context, db *gorm.DB, companyID snowflake.ID, year *int) ([]MetricRecord, error)
	// LatestValues returns the newest value per metric name.
	LatestValues(ctx context.Context, db *gorm.DB, companyID snowflake.ID, year *int) (map[string]float64, error)
}

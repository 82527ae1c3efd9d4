package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ReportExport records one archived ESG report.
type ReportExport struct {
	ID            snowflake.ID `json:"id" gorm:"primaryKey"`
	CompanyID     snowflake.ID `json:"company_id" gorm:"column:company_id;not null;index"`
	ReportingYear *int         `json:"reporting_year,omitempty" gorm:"column:reporting_year"`
	StorageKind   string       `json:"storage_kind" gorm:"column:storage_kind;type:text;not null"`
	StorageKey    string       `json:"storage_key" gorm:"column:storage_key;type:text;not null"`
	ContentHash   string       `json:"content_hash" gorm:"column:content_hash;type:text;not null"`
	SizeBytes     int64        `json:"size_bytes" gorm:"column:size_bytes;not null"`
	GeneratedBy   string       `json:"generated_by" gorm:"column:generated_by;type:text;not null"`
	CreatedAt     time.Time    `json:"created_at" gorm:"not null"`
}

// TableName sets the database table name.
func (ReportExport) TableName() string { return "report_exports" }

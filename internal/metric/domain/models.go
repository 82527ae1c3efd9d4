package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	CategoryEnvironmental = "environmental"
	CategorySocial        = "social"
	CategoryGovernance    = "governance"
)

const (
	SourceManual              = "manual"
	SourceERP                 = "erp"
	SourceHR                  = "hr"
	SourceEmissionsCalculator = "emissions_calculator"
)

// Categories lists the scoring categories in display order.
var Categories = []string{CategoryEnvironmental, CategorySocial, CategoryGovernance}

// MetricRecord is a single submitted ESG data point. Records are append-only.
type MetricRecord struct {
	ID            snowflake.ID `json:"id" yaml:"id" gorm:"primaryKey"`
	CompanyID     snowflake.ID `json:"company_id" yaml:"company_id" gorm:"column:company_id;not null;index:ix_esg_metrics_company_year,priority:1"`
	Category      string       `json:"category" yaml:"category" gorm:"type:text;not null"`
	MetricName    string       `json:"metric_name" yaml:"metric_name" gorm:"column:metric_name;type:text;not null"`
	Value         float64      `json:"value" yaml:"value" gorm:"not null"`
	Unit          string       `json:"unit" yaml:"unit" gorm:"type:text;not null"`
	Target        *float64     `json:"target,omitempty" yaml:"target,omitempty"`
	ReportingYear int          `json:"reporting_year" yaml:"reporting_year" gorm:"column:reporting_year;not null;index:ix_esg_metrics_company_year,priority:2"`
	FrameworkCode *string      `json:"framework_code,omitempty" yaml:"framework_code,omitempty" gorm:"column:framework_code;type:text"`
	Source        string       `json:"source" yaml:"source" gorm:"type:text;not null"`
	SubmittedBy   string       `json:"submitted_by" yaml:"submitted_by" gorm:"column:submitted_by;type:text;not null;index"`
	ContentHash   string       `json:"content_hash" yaml:"content_hash" gorm:"column:content_hash;type:text;not null"`
	RecordedAt    time.Time    `json:"recorded_at" yaml:"recorded_at" gorm:"column:recorded_at;not null"`
	CreatedAt     time.Time    `json:"created_at" yaml:"created_at" gorm:"not null"`
}

// TableName sets the database table name.
func (MetricRecord) TableName() string { return "esg_metrics" }

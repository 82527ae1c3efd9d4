package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ScoreSnapshot is one persisted score calculation. The newest snapshot by
// calculated_at is the company's current KPI set.
type ScoreSnapshot struct {
	ID                 snowflake.ID `json:"id" gorm:"primaryKey"`
	CompanyID          snowflake.ID `json:"company_id" gorm:"column:company_id;not null;index:ix_score_snapshots_company_calc,priority:1"`
	ReportingYear      *int         `json:"reporting_year,omitempty" gorm:"column:reporting_year"`
	EnvironmentalScore float64      `json:"environmental_score" gorm:"column:environmental_score;not null"`
	SocialScore        float64      `json:"social_score" gorm:"column:social_score;not null"`
	GovernanceScore    float64      `json:"governance_score" gorm:"column:governance_score;not null"`
	OverallScore       float64      `json:"overall_score" gorm:"column:overall_score;not null"`
	ComplianceRate     float64      `json:"compliance_rate" gorm:"column:compliance_rate;not null"`
	TotalEntries       int          `json:"total_entries" gorm:"column:total_entries;not null"`
	CalculatedAt       time.Time    `json:"calculated_at" gorm:"column:calculated_at;not null;index:ix_score_snapshots_company_calc,priority:2"`
}

// TableName sets the database table name.
func (ScoreSnapshot) TableName() string { return "score_snapshots" }

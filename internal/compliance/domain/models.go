package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusPendingReview = "Pending Review"
	StatusApproved      = "Approved"
	StatusRejected      = "Rejected"
)

// Document is a compliance artefact awaiting or having passed review.
type Document struct {
	ID         snowflake.ID `json:"id" yaml:"id" gorm:"primaryKey"`
	CompanyID  snowflake.ID `json:"company_id" yaml:"company_id" gorm:"column:company_id;not null;index"`
	Title      string       `json:"title" yaml:"title" gorm:"type:text;not null"`
	Framework  string       `json:"framework" yaml:"framework" gorm:"type:text;not null"`
	Category   string       `json:"category" yaml:"category" gorm:"type:text"`
	Status     string       `json:"status" yaml:"status" gorm:"type:text;not null"`
	DueDate    *time.Time   `json:"due_date,omitempty" yaml:"due_date,omitempty" gorm:"column:due_date"`
	ReviewNote *string      `json:"review_note,omitempty" yaml:"review_note,omitempty" gorm:"column:review_note;type:text"`
	ReviewedAt *time.Time   `json:"reviewed_at,omitempty" yaml:"reviewed_at,omitempty" gorm:"column:reviewed_at"`
	CreatedAt  time.Time    `json:"created_at" yaml:"created_at" gorm:"not null"`
	UpdatedAt  time.Time    `json:"updated_at" yaml:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (Document) TableName() string { return "compliance_documents" }

// CanTransition reports whether a document may move from one review status to
// another.
func CanTransition(from, to string) bool {
	switch from {
	case StatusPendingReview:
		return to == StatusApproved || to == StatusRejected
	case StatusRejected:
		return to == StatusPendingReview
	default:
		return false
	}
}

// Framework is a disclosure framework and the metrics it asks for.
type Framework struct {
	Code         string        `json:"code" yaml:"code"`
	Name         string        `json:"name" yaml:"name"`
	Description  string        `json:"description" yaml:"description"`
	Requirements []Requirement `json:"requirements" yaml:"requirements"`
}

type Requirement struct {
	ID       string   `json:"id" yaml:"id"`
	Title    string   `json:"title" yaml:"title"`
	Category string   `json:"category" yaml:"category"`
	Metrics  []string `json:"metrics" yaml:"metrics"`
	// Rule is an optional CEL expression over `metrics` (map of latest values)
	// and `year`.
	Rule string `json:"rule,omitempty" yaml:"rule,omitempty"`
}

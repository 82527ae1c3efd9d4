package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	GetByID(ctx context.Context, id string) (*Response, error)
	Review(ctx context.Context, id string, req ReviewRequest) (*Response, error)
	Overdue(ctx context.Context) ([]Response, error)
	// Documents returns the raw documents of the current company for scoring.
	Documents(ctx context.Context) ([]Document, error)

	Frameworks() []Framework
	Coverage(ctx context.Context, code string, year *int) (*CoverageResponse, error)
}

type CreateRequest struct {
	Title     string     `json:"title"`
	Framework string     `json:"framework"`
	Category  string     `json:"category"`
	DueDate   *time.Time `json:"due_date,omitempty"`
}

type ListRequest struct {
	Status    string
	Framework string
}

type ReviewRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

type Response struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Framework  string     `json:"framework"`
	Category   string     `json:"category"`
	Status     string     `json:"status"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	ReviewNote *string    `json:"review_note,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	Overdue    bool       `json:"overdue"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type CoverageResponse struct {
	Framework       string                `json:"framework"`
	ReportingYear   *int                  `json:"reporting_year,omitempty"`
	CoveragePercent float64               `json:"coverage_percent"`
	Requirements    []RequirementCoverage `json:"requirements"`
}

type RequirementCoverage struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Category       string   `json:"category"`
	CoveredMetrics []string `json:"covered_metrics"`
	MissingMetrics []string `json:"missing_metrics"`
	Covered        bool     `json:"covered"`
	// RulePassed is nil when the requirement has no rule or lacks data.
	RulePassed *bool  `json:"rule_passed,omitempty"`
	RuleError  string `json:"rule_error,omitempty"`
}

var (
	ErrInvalidCompany    = errors.New("invalid_company")
	ErrInvalidTitle      = errors.New("invalid_title")
	ErrInvalidFramework  = errors.New("invalid_framework")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidTransition = errors.New("invalid_status_transition")
	ErrInvalidID         = errors.New("invalid_id")
	ErrNotFound          = errors.New("not_found")
)

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}

func IsValidStatus(status string) bool {
	switch status {
	case StatusPendingReview, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	// Calculate recomputes the KPI set from stored data and persists it.
	Calculate(ctx context.Context, req CalculateRequest) (*Response, error)
	Latest(ctx context.Context) (*Response, error)
	History(ctx context.Context, limit int) ([]Response, error)
}

type CalculateRequest struct {
	ReportingYear *int `form:"year" json:"reporting_year,omitempty"`
}

type Response struct {
	ID                string         `json:"id"`
	CompanyID         string         `json:"company_id"`
	ReportingYear     *int           `json:"reporting_year,omitempty"`
	Environmental     float64        `json:"environmental_score"`
	Social            float64        `json:"social_score"`
	Governance        float64        `json:"governance_score"`
	Overall           float64        `json:"overall_score"`
	ComplianceRate    float64        `json:"compliance_rate"`
	TotalEntries      int            `json:"total_entries"`
	EntriesByCategory map[string]int `json:"entries_by_category,omitempty"`
	// DefaultTargetsApplied counts records scored against a configured target.
	DefaultTargetsApplied int       `json:"default_targets_applied,omitempty"`
	CalculatedAt          time.Time `json:"calculated_at"`
}

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 200
)

var (
	ErrInvalidCompany = errors.New("invalid_company")
	ErrInvalidYear    = errors.New("invalid_reporting_year")
	ErrNotFound       = errors.New("not_found")
)

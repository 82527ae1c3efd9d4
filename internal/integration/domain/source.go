package domain

import (
	"context"
	"time"
)

//go:generate mockgen -source=source.go -destination=../mocks/mock_source.go -package=mocks

// ExternalDataSource pulls ESG metrics out of a third-party system.
type ExternalDataSource interface {
	Kind() string
	Fetch(ctx context.Context, req FetchRequest) ([]ExternalMetric, error)
}

type FetchRequest struct {
	CompanyID     string
	ReportingYear int
	Since         *time.Time
}

// ExternalMetric is one decoded record of a connector payload.
type ExternalMetric struct {
	Category      string     `json:"category"`
	MetricName    string     `json:"metric_name"`
	Value         float64    `json:"value"`
	Unit          string     `json:"unit"`
	Target        *float64   `json:"target,omitempty"`
	ReportingYear int        `json:"reporting_year,omitempty"`
	RecordedAt    *time.Time `json:"recorded_at,omitempty"`
}

// SourceFactory builds the data source for a stored connection.
type SourceFactory interface {
	New(conn Connection) (ExternalDataSource, error)
}

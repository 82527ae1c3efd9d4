package domain

import (
	"context"
	"errors"
)

type Service interface {
	Calculate(ctx context.Context, req CalculateRequest) (*CalculateResponse, error)
	Factors() FactorTable
}

type CalculateRequest struct {
	Activity ActivityData `json:"activity"`
	// Region overrides the company's region when set.
	Region        string `json:"region,omitempty"`
	ReportingYear int    `json:"reporting_year,omitempty"`
	// Record persists the scope totals as metric records.
	Record bool `json:"record,omitempty"`
}

type CalculateResponse struct {
	Breakdown
	ReportingYear int      `json:"reporting_year"`
	Recorded      bool     `json:"recorded"`
	MetricIDs     []string `json:"metric_ids,omitempty"`
}

// Metric names written when a breakdown is recorded.
const (
	MetricScope1 = "scope1_emissions"
	MetricScope2 = "scope2_emissions"
	MetricScope3 = "scope3_emissions"
	MetricTotal  = "total_emissions"
	UnitTCO2e    = "tCO2e"
)

var (
	ErrInvalidCompany = errors.New("invalid_company")
	ErrInvalidYear    = errors.New("invalid_reporting_year")
)

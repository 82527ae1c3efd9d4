package domain

import (
	"math"
	"strings"
	"time"

	"github.com/smallbiznis/greenledger/internal/config"
)

const (
	MinReportingYear = 2000
	MaxBatchSize     = 500
)

// Validate checks a submission against the data-entry invariants. now bounds
// the reporting year to at most one year ahead.
func Validate(req SubmitRequest, cfg config.ScoringConfig, now time.Time) error {
	if !IsValidCategory(NormalizeCategory(req.Category)) {
		return ErrInvalidCategory
	}
	if strings.TrimSpace(req.MetricName) == "" {
		return ErrInvalidMetricName
	}
	if strings.TrimSpace(req.Unit) == "" {
		return ErrInvalidUnit
	}
	if req.Value == nil || math.IsNaN(*req.Value) || math.IsInf(*req.Value, 0) {
		return ErrInvalidValue
	}
	value := *req.Value
	if value < 0 && !cfg.AllowsNegative(req.MetricName) {
		return ErrNegativeValue
	}
	if cfg.IsPercentUnit(req.Unit) && (value < 0 || value > 100) {
		return ErrPercentOutOfRange
	}
	if req.Target != nil {
		target := *req.Target
		if target <= 0 || math.IsNaN(target) || math.IsInf(target, 0) {
			return ErrInvalidTarget
		}
		if cfg.IsPercentUnit(req.Unit) && target > 100 {
			return ErrPercentOutOfRange
		}
	}
	if req.ReportingYear < MinReportingYear || req.ReportingYear > now.Year()+1 {
		return ErrInvalidYear
	}
	if req.Source != "" && !IsValidSource(req.Source) {
		return ErrInvalidSource
	}
	return nil
}

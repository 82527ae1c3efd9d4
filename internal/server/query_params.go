package server

import (
	"strconv"
	"strings"
	"time"
)

const dateOnlyLayout = "2006-01-02"

// parseOptionalYear reads an optional ?year= value. Range checks are left to
// the services.
func parseOptionalYear(value string) (*int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return nil, newValidationError("year", "invalid_reporting_year", "year must be an integer")
	}
	return &parsed, nil
}

func parseOptionalInt(value string, field string) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil || parsed < 0 {
		return 0, newValidationError(field, "invalid_"+field, field+" must be a non-negative integer")
	}
	return parsed, nil
}

// parseTimeBound accepts RFC 3339 or a bare date. A bare date expands to
// the start of the day, or its last nanosecond when endOfDay is set.
func parseTimeBound(field, value string, endOfDay bool) (*time.Time, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	day, err := time.ParseInLocation(dateOnlyLayout, raw, time.UTC)
	if err != nil {
		return nil, newValidationError(field, "invalid_"+field, field+" must be RFC 3339 or YYYY-MM-DD")
	}
	if endOfDay {
		day = day.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &day, nil
}

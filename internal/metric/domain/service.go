package domain

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/greenledger/pkg/db/pagination"
)

type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (*Response, error)
	SubmitBatch(ctx context.Context, reqs []SubmitRequest) ([]Response, error)
	GetByID(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

type SubmitRequest struct {
	Category      string     `json:"category" yaml:"category"`
	MetricName    string     `json:"metric_name" yaml:"metric_name"`
	Value         *float64   `json:"value" yaml:"value"`
	Unit          string     `json:"unit" yaml:"unit"`
	Target        *float64   `json:"target,omitempty" yaml:"target,omitempty"`
	ReportingYear int        `json:"reporting_year" yaml:"reporting_year"`
	FrameworkCode *string    `json:"framework_code,omitempty" yaml:"framework_code,omitempty"`
	RecordedAt    *time.Time `json:"recorded_at,omitempty" yaml:"recorded_at,omitempty"`
	// Source is set by the server; API callers always submit manual data.
	Source string `json:"-" yaml:"-"`
}

type ListRequest struct {
	pagination.Pagination
	Category      string
	MetricName    string
	SubmittedBy   string
	Source        string
	ReportingYear *int
}

type ListResponse struct {
	pagination.PageInfo
	Metrics []Response `json:"metrics"`
}

type Response struct {
	ID            string    `json:"id"`
	CompanyID     string    `json:"company_id"`
	Category      string    `json:"category"`
	MetricName    string    `json:"metric_name"`
	Value         float64   `json:"value"`
	Unit          string    `json:"unit"`
	Target        *float64  `json:"target,omitempty"`
	ReportingYear int       `json:"reporting_year"`
	FrameworkCode *string   `json:"framework_code,omitempty"`
	Source        string    `json:"source"`
	SubmittedBy   string    `json:"submitted_by"`
	ContentHash   string    `json:"content_hash"`
	RecordedAt    time.Time `json:"recorded_at"`
	CreatedAt     time.Time `json:"created_at"`
}

var (
	ErrInvalidCompany    = errors.New("invalid_company")
	ErrInvalidCategory   = errors.New("invalid_category")
	ErrInvalidMetricName = errors.New("invalid_metric_name")
	ErrInvalidValue      = errors.New("invalid_value")
	ErrNegativeValue     = errors.New("invalid_negative_value")
	ErrPercentOutOfRange = errors.New("invalid_percentage")
	ErrInvalidUnit       = errors.New("invalid_unit")
	ErrInvalidTarget     = errors.New("invalid_target")
	ErrInvalidYear       = errors.New("invalid_reporting_year")
	ErrInvalidSource     = errors.New("invalid_source")
	ErrEmptyBatch        = errors.New("invalid_batch")
	ErrBatchTooLarge     = errors.New("invalid_batch_size")
	ErrInvalidPageToken  = errors.New("invalid_page_token")
	ErrInvalidID         = errors.New("invalid_id")
	ErrNotFound          = errors.New("not_found")
)

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}

// NormalizeCategory folds case and surrounding space so "Environmental "
// and "environmental" name the same category.
func NormalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

func IsValidCategory(category string) bool {
	switch category {
	case CategoryEnvironmental, CategorySocial, CategoryGovernance:
		return true
	default:
		return false
	}
}

func IsValidSource(source string) bool {
	switch source {
	case SourceManual, SourceERP, SourceHR, SourceEmissionsCalculator:
		return true
	default:
		return false
	}
}

// Round2 rounds half away from zero to two decimals, the precision every
// score and emissions figure is reported at.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// Generate renders the report, archives it and records the export.
	Generate(ctx context.Context, req GenerateRequest) (*Response, error)
	// Render returns the report PDF without archiving it.
	Render(ctx context.Context, req GenerateRequest) ([]byte, error)
	List(ctx context.Context, limit int) ([]Response, error)
	Download(ctx context.Context, id string) (*Document, error)
}

type GenerateRequest struct {
	ReportingYear *int `form:"year" json:"reporting_year,omitempty"`
}

type Response struct {
	ID            string    `json:"id"`
	CompanyID     string    `json:"company_id"`
	ReportingYear *int      `json:"reporting_year,omitempty"`
	StorageKind   string    `json:"storage_kind"`
	ContentHash   string    `json:"content_hash"`
	SizeBytes     int64     `json:"size_bytes"`
	GeneratedBy   string    `json:"generated_by"`
	CreatedAt     time.Time `json:"created_at"`
}

// Document is a downloaded report.
type Document struct {
	Filename string
	Content  []byte
}

const (
	ContentTypePDF = "application/pdf"

	DefaultListLimit = 20
	MaxListLimit     = 100
)

var (
	ErrInvalidCompany = errors.New("invalid_company")
	ErrInvalidYear    = errors.New("invalid_reporting_year")
	ErrInvalidID      = errors.New("invalid_id")
	ErrNotFound       = errors.New("not_found")
)

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}

package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context) ([]Response, error)
	Disable(ctx context.Context, id string) (*Response, error)
	Sync(ctx context.Context, id string, req SyncRequest) (*SyncResponse, error)
	Runs(ctx context.Context, id string) ([]SyncRun, error)
	// SyncAll syncs every enabled connection across companies.
	SyncAll(ctx context.Context) (int, error)
}

type CreateRequest struct {
	Kind      string `json:"kind"`
	Provider  string `json:"provider"`
	Endpoint  string `json:"endpoint"`
	AuthToken string `json:"auth_token"`
}

type SyncRequest struct {
	ReportingYear int `json:"reporting_year,omitempty"`
}

type Response struct {
	ID            string     `json:"id"`
	Kind          string     `json:"kind"`
	Provider      string     `json:"provider"`
	Endpoint      string     `json:"endpoint"`
	HasAuthToken  bool       `json:"has_auth_token"`
	Enabled       bool       `json:"enabled"`
	Status        string     `json:"status"`
	LastSyncAt    *time.Time `json:"last_sync_at,omitempty"`
	LastRunID     *string    `json:"last_run_id,omitempty"`
	LastError     *string    `json:"last_error,omitempty"`
	RecordsSynced int64      `json:"records_synced"`
	CreatedAt     time.Time  `json:"created_at"`
}

type SyncResponse struct {
	RunID     string   `json:"run_id"`
	Status    string   `json:"status"`
	Records   int      `json:"records"`
	MetricIDs []string `json:"metric_ids,omitempty"`
	Error     string   `json:"error,omitempty"`
}

var (
	ErrInvalidCompany  = errors.New("invalid_company")
	ErrInvalidKind     = errors.New("invalid_integration_kind")
	ErrInvalidProvider = errors.New("invalid_provider")
	ErrInvalidEndpoint = errors.New("invalid_endpoint")
	ErrInvalidID       = errors.New("invalid_id")
	ErrDisabled        = errors.New("integration_disabled")
	ErrNotFound        = errors.New("integration_not_found")
	// ErrInvalidPayload wraps schema and decode failures of a connector response.
	ErrInvalidPayload = errors.New("invalid_integration_payload")
	ErrUpstream       = errors.New("integration_upstream_error")
	// ErrSyncTooLarge means one sync would import more records than a single
	// all-or-nothing batch accepts.
	ErrSyncTooLarge = errors.New("integration_sync_too_large")
)

package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	KindERP = "erp"
	KindHR  = "hr"
)

const (
	StatusIdle    = "idle"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Connection is a configured external system that feeds metric records.
type Connection struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID     snowflake.ID `gorm:"not null;index" json:"company_id"`
	Kind          string       `gorm:"type:text;not null" json:"kind"`
	Provider      string       `gorm:"type:text;not null" json:"provider"`
	Endpoint      string       `gorm:"type:text;not null" json:"endpoint"`
	AuthToken     string       `gorm:"column:auth_token;type:text" json:"-"`
	Enabled       bool         `gorm:"not null;default:true" json:"enabled"`
	Status        string       `gorm:"type:text;not null" json:"status"`
	LastSyncAt    *time.Time   `gorm:"column:last_sync_at" json:"last_sync_at,omitempty"`
	LastRunID     *string      `gorm:"column:last_run_id;type:text" json:"last_run_id,omitempty"`
	LastError     *string      `gorm:"column:last_error;type:text" json:"last_error,omitempty"`
	RecordsSynced int64        `gorm:"column:records_synced;not null;default:0" json:"records_synced"`
	CreatedAt     time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null" json:"updated_at"`
}

func (Connection) TableName() string { return "integration_connections" }

// SyncRun records one fetch from a connection. IDs are ULIDs so runs sort by
// start time.
type SyncRun struct {
	ID           string       `gorm:"primaryKey;type:text" json:"id"`
	ConnectionID snowflake.ID `gorm:"not null;index" json:"connection_id"`
	CompanyID    snowflake.ID `gorm:"not null;index" json:"company_id"`
	Status       string       `gorm:"type:text;not null" json:"status"`
	Records      int          `gorm:"not null;default:0" json:"records"`
	Error        *string      `gorm:"type:text" json:"error,omitempty"`
	StartedAt    time.Time    `gorm:"not null" json:"started_at"`
	FinishedAt   *time.Time   `json:"finished_at,omitempty"`
}

func (SyncRun) TableName() string { return "integration_sync_runs" }

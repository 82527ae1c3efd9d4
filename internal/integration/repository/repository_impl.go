package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	integrationdomain "github.com/smallbiznis/greenledger/internal/integration/domain"
	"gorm.io/gorm"
)

const connectionColumns = `id, company_id, kind, provider, endpoint, auth_token, enabled, status,
	last_sync_at, last_run_id, last_error, records_synced, created_at, updated_at`

type repo struct{}

func Provide() integrationdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, conn *integrationdomain.Connection) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO integration_connections (`+connectionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		conn.ID,
		conn.CompanyID,
		conn.Kind,
		conn.Provider,
		conn.Endpoint,
		conn.AuthToken,
		conn.Enabled,
		conn.Status,
		conn.LastSyncAt,
		conn.LastRunID,
		conn.LastError,
		conn.RecordsSynced,
		conn.CreatedAt,
		conn.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, conn *integrationdomain.Connection) error {
	return db.WithContext(ctx).Exec(
		`UPDATE integration_connections
		 SET enabled = ?, status = ?, last_sync_at = ?, last_run_id = ?, last_error = ?,
		     records_synced = ?, updated_at = ?
		 WHERE company_id = ? AND id = ?`,
		conn.Enabled,
		conn.Status,
		conn.LastSyncAt,
		conn.LastRunID,
		conn.LastError,
		conn.RecordsSynced,
		conn.UpdatedAt,
		conn.CompanyID,
		conn.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*integrationdomain.Connection, error) {
	var conn integrationdomain.Connection
	err := db.WithContext(ctx).Raw(
		`SELECT `+connectionColumns+` FROM integration_connections WHERE company_id = ? AND id = ?`,
		companyID,
		id,
	).Scan(&conn).Error
	if err != nil {
		return nil, err
	}
	if conn.ID == 0 {
		return nil, nil
	}
	return &conn, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]integrationdomain.Connection, error) {
	var items []integrationdomain.Connection
	err := db.WithContext(ctx).Raw(
		`SELECT `+connectionColumns+` FROM integration_connections
		 WHERE company_id = ?
		 ORDER BY created_at DESC, id DESC`,
		companyID,
	).Scan(&items).Error
	return items, err
}

func (r *repo) ListEnabled(ctx context.Context, db *gorm.DB) ([]integrationdomain.Connection, error) {
	var items []integrationdomain.Connection
	err := db.WithContext(ctx).Raw(
		`SELECT `+connectionColumns+` FROM integration_connections
		 WHERE enabled = ?
		 ORDER BY id ASC`,
		true,
	).Scan(&items).Error
	return items, err
}

func (r *repo) InsertRun(ctx context.Context, db *gorm.DB, run *integrationdomain.SyncRun) error {
	return db.WithContext(ctx).Create(run).Error
}

func (r *repo) UpdateRun(ctx context.Context, db *gorm.DB, run *integrationdomain.SyncRun) error {
	return db.WithContext(ctx).Exec(
		`UPDATE integration_sync_runs SET status = ?, records = ?, error = ?, finished_at = ? WHERE id = ?`,
		run.Status,
		run.Records,
		run.Error,
		run.FinishedAt,
		run.ID,
	).Error
}

func (r *repo) ListRuns(ctx context.Context, db *gorm.DB, companyID, connectionID snowflake.ID, limit int) ([]integrationdomain.SyncRun, error) {
	var runs []integrationdomain.SyncRun
	stmt := db.WithContext(ctx).
		Where("company_id = ? AND connection_id = ?", companyID, connectionID).
		Order("id desc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	reportdomain "github.com/smallbiznis/greenledger/internal/report/domain"
	"gorm.io/gorm"
)

const selectColumns = `id, company_id, reporting_year, storage_kind, storage_key, content_hash,
	size_bytes, generated_by, created_at`

type repo struct{}

func Provide() reportdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, export *reportdomain.ReportExport) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO report_exports (`+selectColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		export.ID,
		export.CompanyID,
		export.ReportingYear,
		export.StorageKind,
		export.StorageKey,
		export.ContentHash,
		export.SizeBytes,
		export.GeneratedBy,
		export.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*reportdomain.ReportExport, error) {
	var export reportdomain.ReportExport
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM report_exports WHERE company_id = ? AND id = ?`,
		companyID,
		id,
	).Scan(&export).Error
	if err != nil {
		return nil, err
	}
	if export.ID == 0 {
		return nil, nil
	}
	return &export, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, companyID snowflake.ID, limit int) ([]reportdomain.ReportExport, error) {
	var exports []reportdomain.ReportExport
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM report_exports
		 WHERE company_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		companyID,
		limit,
	).Scan(&exports).Error
	if err != nil {
		return nil, err
	}
	return exports, nil
}

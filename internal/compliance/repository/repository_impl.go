package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	compliancedomain "github.com/smallbiznis/greenledger/internal/compliance/domain"
	"gorm.io/gorm"
)

const selectColumns = `id, company_id, title, framework, category, status, due_date, review_note,
	reviewed_at, created_at, updated_at`

type repo struct{}

func Provide() compliancedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, doc *compliancedomain.Document) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO compliance_documents (`+selectColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID,
		doc.CompanyID,
		doc.Title,
		doc.Framework,
		doc.Category,
		doc.Status,
		doc.DueDate,
		doc.ReviewNote,
		doc.ReviewedAt,
		doc.CreatedAt,
		doc.UpdatedAt,
	).Error
}

func (r *repo) UpdateReview(ctx context.Context, db *gorm.DB, doc *compliancedomain.Document, fromStatus string) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE compliance_documents
		 SET status = ?, review_note = ?, reviewed_at = ?, updated_at = ?
		 WHERE company_id = ? AND id = ? AND status = ?`,
		doc.Status,
		doc.ReviewNote,
		doc.ReviewedAt,
		doc.UpdatedAt,
		doc.CompanyID,
		doc.ID,
		fromStatus,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*compliancedomain.Document, error) {
	var doc compliancedomain.Document
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM compliance_documents WHERE company_id = ? AND id = ?`,
		companyID,
		id,
	).Scan(&doc).Error
	if err != nil {
		return nil, err
	}
	if doc.ID == 0 {
		return nil, nil
	}
	return &doc, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter compliancedomain.ListFilter) ([]compliancedomain.Document, error) {
	var docs []compliancedomain.Document
	stmt := db.WithContext(ctx).Model(&compliancedomain.Document{}).
		Where("company_id = ?", filter.CompanyID)

	if status := strings.TrimSpace(filter.Status); status != "" {
		stmt = stmt.Where("status = ?", status)
	}
	if framework := strings.TrimSpace(filter.Framework); framework != "" {
		stmt = stmt.Where("framework = ?", framework)
	}

	if err := stmt.Order("created_at asc, id asc").Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *repo) ListOverdue(ctx context.Context, db *gorm.DB, companyID snowflake.ID, now time.Time) ([]compliancedomain.Document, error) {
	var docs []compliancedomain.Document
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM compliance_documents
		 WHERE company_id = ? AND status = ? AND due_date IS NOT NULL AND due_date < ?
		 ORDER BY due_date ASC, id ASC`,
		companyID,
		compliancedomain.StatusPendingReview,
		now,
	).Scan(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

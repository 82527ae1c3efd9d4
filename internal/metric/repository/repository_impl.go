package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	metricdomain "github.com/smallbiznis/greenledger/internal/metric/domain"
	"gorm.io/gorm"
)

const selectColumns = `id, company_id, category, metric_name, value, unit, target, reporting_year,
	framework_code, source, submitted_by, content_hash, recorded_at, created_at`

type repo struct{}

func Provide() metricdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *metricdomain.MetricRecord) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO esg_metrics (`+selectColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.CompanyID,
		record.Category,
		record.MetricName,
		record.Value,
		record.Unit,
		record.Target,
		record.ReportingYear,
		record.FrameworkCode,
		record.Source,
		record.SubmittedBy,
		record.ContentHash,
		record.RecordedAt,
		record.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*metricdomain.MetricRecord, error) {
	var record metricdomain.MetricRecord
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM esg_metrics WHERE company_id = ? AND id = ?`,
		companyID,
		id,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter metricdomain.ListFilter) ([]metricdomain.MetricRecord, error) {
	var records []metricdomain.MetricRecord
	stmt := db.WithContext(ctx).Model(&metricdomain.MetricRecord{}).
		Where("company_id = ?", filter.CompanyID)

	if category := strings.TrimSpace(filter.Category); category != "" {
		stmt = stmt.Where("category = ?", category)
	}
	if name := strings.TrimSpace(filter.MetricName); name != "" {
		stmt = stmt.Where("metric_name = ?", name)
	}
	if submittedBy := strings.TrimSpace(filter.SubmittedBy); submittedBy != "" {
		stmt = stmt.Where("submitted_by = ?", submittedBy)
	}
	if source := strings.TrimSpace(filter.Source); source != "" {
		stmt = stmt.Where("source = ?", source)
	}
	if filter.ReportingYear != nil {
		stmt = stmt.Where("reporting_year = ?", *filter.ReportingYear)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) ListForScoring(ctx context.Context, db *gorm.DB, companyID snowflake.ID, year *int) ([]metricdomain.MetricRecord, error) {
	var records []metricdomain.MetricRecord
	query := `SELECT ` + selectColumns + ` FROM esg_metrics WHERE company_id = ?`
	args := []any{companyID}
	if year != nil {
		query += ` AND reporting_year = ?`
		args = append(args, *year)
	}
	query += ` ORDER BY recorded_at ASC, id ASC`

	if err := db.WithContext(ctx).Raw(query, args...).Scan(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) LatestValues(ctx context.Context, db *gorm.DB, companyID snowflake.ID, year *int) (map[string]float64, error) {
	records, err := r.ListForScoring(ctx, db, companyID, year)
	if err != nil {
		return nil, err
	}
	values := make(map[string]float64, len(records))
	for _, record := range records {
		values[record.MetricName] = record.Value
	}
	return values, nil
}

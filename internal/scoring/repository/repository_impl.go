package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	scoringdomain "github.com/smallbiznis/greenledger/internal/scoring/domain"
	"gorm.io/gorm"
)

const selectColumns = `id, company_id, reporting_year, environmental_score, social_score,
	governance_score, overall_score, compliance_rate, total_entries, calculated_at`

type repo struct{}

func Provide() scoringdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, s *scoringdomain.ScoreSnapshot) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO score_snapshots (`+selectColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID,
		s.CompanyID,
		s.ReportingYear,
		s.EnvironmentalScore,
		s.SocialScore,
		s.GovernanceScore,
		s.OverallScore,
		s.ComplianceRate,
		s.TotalEntries,
		s.CalculatedAt,
	).Error
}

func (r *repo) Latest(ctx context.Context, db *gorm.DB, companyID snowflake.ID) (*scoringdomain.ScoreSnapshot, error) {
	var snapshot scoringdomain.ScoreSnapshot
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM score_snapshots
		 WHERE company_id = ? AND reporting_year IS NULL
		 ORDER BY calculated_at DESC, id DESC
		 LIMIT 1`,
		companyID,
	).Scan(&snapshot).Error
	if err != nil {
		return nil, err
	}
	if snapshot.ID == 0 {
		return nil, nil
	}
	return &snapshot, nil
}

func (r *repo) History(ctx context.Context, db *gorm.DB, companyID snowflake.ID, limit int) ([]scoringdomain.ScoreSnapshot, error) {
	var snapshots []scoringdomain.ScoreSnapshot
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM score_snapshots
		 WHERE company_id = ?
		 ORDER BY calculated_at DESC, id DESC
		 LIMIT ?`,
		companyID,
		limit,
	).Scan(&snapshots).Error
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	companydomain "github.com/smallbiznis/greenledger/internal/company/domain"
	"gorm.io/gorm"
)

const selectColumns = `id, name, slug, industry, country_code, region, employees, annual_revenue,
	production_units, currency, metadata, created_at, updated_at`

type repo struct{}

func Provide() companydomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, company *companydomain.Company) error {
	return db.WithContext(ctx).Create(company).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, company *companydomain.Company) error {
	return db.WithContext(ctx).Exec(
		`UPDATE companies
		 SET name = ?, industry = ?, country_code = ?, region = ?, employees = ?, annual_revenue = ?,
		     production_units = ?, currency = ?, metadata = ?, updated_at = ?
		 WHERE id = ?`,
		company.Name,
		company.Industry,
		company.CountryCode,
		company.Region,
		company.Employees,
		company.AnnualRevenue,
		company.ProductionUnits,
		company.Currency,
		company.Metadata,
		company.UpdatedAt,
		company.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*companydomain.Company, error) {
	var company companydomain.Company
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM companies WHERE id = ?`,
		id,
	).Scan(&company).Error
	if err != nil {
		return nil, err
	}
	if company.ID == 0 {
		return nil, nil
	}
	return &company, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, limit int) ([]companydomain.Company, error) {
	var companies []companydomain.Company
	stmt := db.WithContext(ctx).Model(&companydomain.Company{}).Order("created_at desc, id desc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Find(&companies).Error; err != nil {
		return nil, err
	}
	return companies, nil
}

// Package seed loads a demo company for local evaluation.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	companydomain "github.com/smallbiznis/greenledger/internal/company/domain"
	compliancedomain "github.com/smallbiznis/greenledger/internal/compliance/domain"
	metricdomain "github.com/smallbiznis/greenledger/internal/metric/domain"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	demoCompanyName = "Demo Manufacturing Co"
	demoCompanySlug = "demo-manufacturing-co"
	demoSubmitter   = "system:seed"
)

type demoMetric struct {
	category string
	name     string
	value    float64
	unit     string
	target   *float64
}

func ptr(v float64) *float64 { return &v }

var demoMetrics = []demoMetric{
	{metricdomain.CategoryEnvironmental, "renewable_energy_share", 42, "%", ptr(60)},
	{metricdomain.CategoryEnvironmental, "waste_recycled_share", 71, "%", ptr(80)},
	{metricdomain.CategoryEnvironmental, "scope1_emissions", 299.7, "tCO2e", nil},
	{metricdomain.CategoryEnvironmental, "scope2_emissions", 65, "tCO2e", nil},
	{metricdomain.CategorySocial, "employee_training_hours", 18, "hours", ptr(24)},
	{metricdomain.CategorySocial, "women_in_leadership", 38, "%", ptr(50)},
	{metricdomain.CategoryGovernance, "board_independence", 64, "%", ptr(75)},
	{metricdomain.CategoryGovernance, "ethics_training_completion", 92, "%", ptr(100)},
}

// EnsureDemoCompany seeds a demo company with a year of metrics and a pending
// compliance document. It is a no-op once the company exists.
func EnsureDemoCompany(db *gorm.DB, log *zap.Logger) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		company, created, err := ensureDemoCompanyTx(ctx, tx, node)
		if err != nil {
			return err
		}
		if !created {
			return nil
		}
		if err := seedMetricsTx(ctx, tx, node, company); err != nil {
			return err
		}
		if err := seedComplianceTx(ctx, tx, node, company); err != nil {
			return err
		}
		if log != nil {
			log.Info("demo company seeded",
				zap.String("company_id", company.ID.String()),
				zap.String("slug", company.Slug),
			)
		}
		return nil
	})
}

func ensureDemoCompanyTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (*companydomain.Company, bool, error) {
	var existing companydomain.Company
	err := tx.WithContext(ctx).Where("slug = ?", demoCompanySlug).Limit(1).Find(&existing).Error
	if err != nil {
		return nil, false, err
	}
	if existing.ID != 0 {
		return &existing, false, nil
	}

	employees := int64(250)
	revenue := 1_000_000.0
	now := time.Now().UTC()
	company := &companydomain.Company{
		ID:            node.Generate(),
		Name:          demoCompanyName,
		Slug:          demoCompanySlug,
		Industry:      "Manufacturing",
		CountryCode:   "US",
		Region:        "US",
		Employees:     &employees,
		AnnualRevenue: &revenue,
		Currency:      "USD",
		Metadata:      datatypes.JSONMap{"seeded": true},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := tx.WithContext(ctx).Create(company).Error; err != nil {
		return nil, false, err
	}
	return company, true, nil
}

func seedMetricsTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, company *companydomain.Company) error {
	now := time.Now().UTC()
	year := now.Year() - 1
	records := make([]metricdomain.MetricRecord, 0, len(demoMetrics))
	for _, m := range demoMetrics {
		record := metricdomain.MetricRecord{
			ID:            node.Generate(),
			CompanyID:     company.ID,
			Category:      m.category,
			MetricName:    m.name,
			Value:         m.value,
			Unit:          m.unit,
			Target:        m.target,
			ReportingYear: year,
			Source:        metricdomain.SourceManual,
			SubmittedBy:   demoSubmitter,
			RecordedAt:    now,
			CreatedAt:     now,
		}
		record.ContentHash = metricdomain.ContentHash(record)
		records = append(records, record)
	}
	return tx.WithContext(ctx).Create(&records).Error
}

func seedComplianceTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, company *companydomain.Company) error {
	now := time.Now().UTC()
	due := now.AddDate(0, 1, 0)
	doc := &compliancedomain.Document{
		ID:        node.Generate(),
		CompanyID: company.ID,
		Title:     "Annual sustainability policy",
		Framework: "GRI",
		Category:  "Governance",
		Status:    compliancedomain.StatusPendingReview,
		DueDate:   &due,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return tx.WithContext(ctx).Create(doc).Error
}

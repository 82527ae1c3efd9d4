package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/greenledger/internal/clock"
	companydomain "github.com/smallbiznis/greenledger/internal/company/domain"
	companyrepo "github.com/smallbiznis/greenledger/internal/company/repository"
	"github.com/smallbiznis/greenledger/internal/companyctx"
	"github.com/smallbiznis/greenledger/internal/compliance/catalog"
	compliancedomain "github.com/smallbiznis/greenledger/internal/compliance/domain"
	compliancerepo "github.com/smallbiznis/greenledger/internal/compliance/repository"
	"github.com/smallbiznis/greenledger/internal/compliance/rules"
	complianceservice "github.com/smallbiznis/greenledger/internal/compliance/service"
	"github.com/smallbiznis/greenledger/internal/config"
	metricdomain "github.com/smallbiznis/greenledger/internal/metric/domain"
	metricrepo "github.com/smallbiznis/greenledger/internal/metric/repository"
	reportdomain "github.com/smallbiznis/greenledger/internal/report/domain"
	"github.com/smallbiznis/greenledger/internal/report/repository"
	"github.com/smallbiznis/greenledger/internal/report/storage"
	"github.com/smallbiznis/greenledger/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	svc   reportdomain.Service
	store *storage.LocalStore
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := db.NewTest(t,
		&companydomain.Company{},
		&metricdomain.MetricRecord{},
		&compliancedomain.Document{},
		&reportdomain.ReportExport{},
	)
	node, err := snowflake.NewNode(5)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC))
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	now := clk.Now()
	require.NoError(t, companyrepo.Provide().Insert(ctx, conn, &companydomain.Company{
		ID: 10, Name: "Fjord Foods", Slug: "fjord-foods", Region: "EU", Currency: "EUR",
		Metadata: datatypes.JSONMap{}, CreatedAt: now, UpdatedAt: now,
	}))

	metrics := metricrepo.Provide()
	target := 100.0
	for i, rec := range []metricdomain.MetricRecord{
		{Category: metricdomain.CategoryEnvironmental, MetricName: "renewable_energy_share", Value: 60, Unit: "%", Target: &target},
		{Category: metricdomain.CategoryEnvironmental, MetricName: "total_emissions", Value: 384.7, Unit: "tCO2e"},
		{Category: metricdomain.CategorySocial, MetricName: "employee_turnover_rate", Value: 12, Unit: "%"},
	} {
		rec.ID = node.Generate()
		rec.CompanyID = 10
		rec.ReportingYear = 2024
		rec.Source = metricdomain.SourceManual
		rec.SubmittedBy = "system"
		rec.ContentHash = metricdomain.ContentHash(rec)
		rec.RecordedAt = now.Add(time.Duration(i) * time.Second)
		rec.CreatedAt = rec.RecordedAt
		require.NoError(t, metrics.Insert(ctx, conn, &rec))
	}

	c, err := catalog.Load()
	require.NoError(t, err)
	evaluator, err := rules.NewEvaluator()
	require.NoError(t, err)
	compliance := complianceservice.New(complianceservice.Params{
		DB:         conn,
		Log:        zap.NewNop(),
		GenID:      node,
		Repo:       compliancerepo.Provide(),
		MetricRepo: metrics,
		Catalog:    c,
		Rules:      evaluator,
		Clock:      clk,
	})

	svc := New(Params{
		DB:             conn,
		Log:            zap.NewNop(),
		GenID:          node,
		Repo:           repository.Provide(),
		Store:          store,
		CompanyRepo:    companyrepo.Provide(),
		MetricRepo:     metrics,
		ComplianceRepo: compliancerepo.Provide(),
		ComplianceSvc:  compliance,
		Scoring:        config.NewStaticScoringConfigHolder(config.DefaultScoringConfig()),
		Clock:          clk,
	})
	return fixture{db: conn, svc: svc, store: store}
}

func TestGenerateArchivesAndDownloads(t *testing.T) {
	f := newFixture(t)
	ctx := companyctx.WithCompanyID(context.Background(), 10)
	year := 2024

	export, err := f.svc.Generate(ctx, reportdomain.GenerateRequest{ReportingYear: &year})
	require.NoError(t, err)
	assert.Equal(t, storage.KindLocal, export.StorageKind)
	assert.Len(t, export.ContentHash, 64)
	assert.Positive(t, export.SizeBytes)
	assert.Equal(t, "system", export.GeneratedBy)

	list, err := f.svc.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, export.ID, list[0].ID)

	doc, err := f.svc.Download(ctx, export.ID)
	require.NoError(t, err)
	assert.Equal(t, "esg-report-2024.pdf", doc.Filename)
	assert.True(t, bytes.HasPrefix(doc.Content, []byte("%PDF")))
	assert.EqualValues(t, export.SizeBytes, len(doc.Content))
}

func TestDownloadIsCompanyScoped(t *testing.T) {
	f := newFixture(t)
	ctx := companyctx.WithCompanyID(context.Background(), 10)

	export, err := f.svc.Generate(ctx, reportdomain.GenerateRequest{})
	require.NoError(t, err)

	other := companyctx.WithCompanyID(context.Background(), 11)
	_, err = f.svc.Download(other, export.ID)
	assert.ErrorIs(t, err, reportdomain.ErrNotFound)

	_, err = f.svc.Download(ctx, "not-an-id")
	assert.ErrorIs(t, err, reportdomain.ErrInvalidID)
}

func TestRenderDoesNotArchive(t *testing.T) {
	f := newFixture(t)
	ctx := companyctx.WithCompanyID(context.Background(), 10)

	pdf, err := f.svc.Render(ctx, reportdomain.GenerateRequest{})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	list, err := f.svc.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRenderValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Render(context.Background(), reportdomain.GenerateRequest{})
	assert.ErrorIs(t, err, reportdomain.ErrInvalidCompany)

	ctx := companyctx.WithCompanyID(context.Background(), 10)
	year := 1990
	_, err = f.svc.Render(ctx, reportdomain.GenerateRequest{ReportingYear: &year})
	assert.ErrorIs(t, err, reportdomain.ErrInvalidYear)

	unknown := companyctx.WithCompanyID(context.Background(), 99)
	_, err = f.svc.Render(unknown, reportdomain.GenerateRequest{})
	assert.ErrorIs(t, err, reportdomain.ErrInvalidCompany)
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/greenledger/internal/clock"
	"github.com/smallbiznis/greenledger/internal/companyctx"
	compliancedomain "github.com/smallbiznis/greenledger/internal/compliance/domain"
	compliancerepo "github.com/smallbiznis/greenledger/internal/compliance/repository"
	"github.com/smallbiznis/greenledger/internal/config"
	emissionsdomain "github.com/smallbiznis/greenledger/internal/emissions/domain"
	"github.com/smallbiznis/greenledger/internal/kpiexport"
	metricdomain "github.com/smallbiznis/greenledger/internal/metric/domain"
	metricrepo "github.com/smallbiznis/greenledger/internal/metric/repository"
	metricservice "github.com/smallbiznis/greenledger/internal/metric/service"
	scoringdomain "github.com/smallbiznis/greenledger/internal/scoring/domain"
	"github.com/smallbiznis/greenledger/internal/scoring/repository"
	"github.com/smallbiznis/greenledger/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db     *gorm.DB
	node   *snowflake.Node
	svc    scoringdomain.Service
	clock  *clock.FakeClock
	gauges *kpiexport.Gauges
}

func newFixture(t *testing.T, cfg config.ScoringConfig) fixture {
	t.Helper()
	conn := db.NewTest(t, &metricdomain.MetricRecord{}, &compliancedomain.Document{}, &scoringdomain.ScoreSnapshot{})
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
	gauges := kpiexport.NewGauges(nil)

	svc := New(Params{
		DB:             conn,
		Log:            zap.NewNop(),
		GenID:          node,
		Repo:           repository.Provide(),
		MetricRepo:     metricrepo.Provide(),
		ComplianceRepo: compliancerepo.Provide(),
		Scoring:        config.NewStaticScoringConfigHolder(cfg),
		Gauges:         gauges,
		Clock:          clk,
	})
	return fixture{db: conn, node: node, svc: svc, clock: clk, gauges: gauges}
}

func (f fixture) addRecord(t *testing.T, companyID snowflake.ID, category, name string, value float64, target *float64, year int) {
	t.Helper()
	now := f.clock.Now()
	require.NoError(t, metricrepo.Provide().Insert(context.Background(), f.db, &metricdomain.MetricRecord{
		ID: f.node.Generate(), CompanyID: companyID, Category: category, MetricName: name,
		Value: value, Unit: "%", Target: target, ReportingYear: year,
		Source: metricdomain.SourceManual, SubmittedBy: "system", ContentHash: "h",
		RecordedAt: now, CreatedAt: now,
	}))
}

func (f fixture) addDocument(t *testing.T, companyID snowflake.ID, status string) {
	t.Helper()
	now := f.clock.Now()
	require.NoError(t, compliancerepo.Provide().Insert(context.Background(), f.db, &compliancedomain.Document{
		ID: f.node.Generate(), CompanyID: companyID, Title: "doc", Framework: "GRI",
		Status: status, CreatedAt: now, UpdatedAt: now,
	}))
}

func target(v float64) *float64 { return &v }

func TestCalculateAppliesTargetPolicy(t *testing.T) {
	f := newFixture(t, config.ScoringConfig{
		DefaultTargets: map[string]float64{"board_independence": 80},
	})
	ctx := companyctx.WithCompanyID(context.Background(), 5)

	f.addRecord(t, 5, metricdomain.CategoryEnvironmental, "renewable_energy_share", 30, target(60), 2024)
	// default target from config: 40 / 80 -> 50
	f.addRecord(t, 5, metricdomain.CategoryGovernance, "board_independence", 40, nil, 2024)
	// no target anywhere: raw value
	f.addRecord(t, 5, metricdomain.CategorySocial, "community_hours", 20, nil, 2024)
	f.addDocument(t, 5, compliancedomain.StatusApproved)
	f.addDocument(t, 5, compliancedomain.StatusPendingReview)
	f.addRecord(t, 6, metricdomain.CategorySocial, "community_hours", 99, nil, 2024)

	resp, err := f.svc.Calculate(ctx, scoringdomain.CalculateRequest{})
	require.NoError(t, err)

	assert.Equal(t, 50.0, resp.Environmental)
	assert.Equal(t, 20.0, resp.Social)
	assert.Equal(t, 50.0, resp.Governance)
	assert.Equal(t, 40.0, resp.Overall)
	assert.Equal(t, 50.0, resp.ComplianceRate)
	assert.Equal(t, 3, resp.TotalEntries)
	assert.Equal(t, 1, resp.DefaultTargetsApplied)

	latest, err := f.svc.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, resp.ID, latest.ID)

	assert.Equal(t, 40.0, gaugeValue(t, f.gauges, "greenledger_esg_score", "overall"))
}

func TestCalculateFiltersByYearAndKeepsHistory(t *testing.T) {
	f := newFixture(t, config.ScoringConfig{})
	ctx := companyctx.WithCompanyID(context.Background(), 5)

	f.addRecord(t, 5, metricdomain.CategoryEnvironmental, "renewable_energy_share", 90, target(100), 2023)
	f.addRecord(t, 5, metricdomain.CategoryEnvironmental, "renewable_energy_share", 45, target(100), 2024)

	year := 2024
	first, err := f.svc.Calculate(ctx, scoringdomain.CalculateRequest{ReportingYear: &year})
	require.NoError(t, err)
	assert.Equal(t, 45.0, first.Environmental)
	assert.Equal(t, 1, first.TotalEntries)

	f.clock.Advance(time.Minute)
	second, err := f.svc.Calculate(ctx, scoringdomain.CalculateRequest{})
	require.NoError(t, err)
	assert.Equal(t, 67.5, second.Environmental)

	history, err := f.svc.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	require.NotNil(t, history[1].ReportingYear)
	assert.Equal(t, 2024, *history[1].ReportingYear)

	bad := 1990
	_, err = f.svc.Calculate(ctx, scoringdomain.CalculateRequest{ReportingYear: &bad})
	assert.ErrorIs(t, err, scoringdomain.ErrInvalidYear)
}

func TestLatestSkipsYearScopedSnapshots(t *testing.T) {
	f := newFixture(t, config.ScoringConfig{})
	ctx := companyctx.WithCompanyID(context.Background(), 5)

	f.addRecord(t, 5, metricdomain.CategoryEnvironmental, "renewable_energy_share", 90, target(100), 2023)
	f.addRecord(t, 5, metricdomain.CategoryEnvironmental, "renewable_energy_share", 40, target(100), 2024)

	year := 2024
	_, err := f.svc.Calculate(ctx, scoringdomain.CalculateRequest{ReportingYear: &year})
	require.NoError(t, err)
	_, err = f.svc.Latest(ctx)
	assert.ErrorIs(t, err, scoringdomain.ErrNotFound)

	f.clock.Advance(time.Minute)
	all, err := f.svc.Calculate(ctx, scoringdomain.CalculateRequest{})
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	scoped, err := f.svc.Calculate(ctx, scoringdomain.CalculateRequest{ReportingYear: &year})
	require.NoError(t, err)
	assert.Equal(t, 40.0, scoped.Environmental)

	latest, err := f.svc.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, all.ID, latest.ID)
	assert.Equal(t, 65.0, latest.Environmental)
	assert.Nil(t, latest.ReportingYear)
}

func TestLatestWithoutSnapshot(t *testing.T) {
	f := newFixture(t, config.DefaultScoringConfig())
	_, err := f.svc.Latest(companyctx.WithCompanyID(context.Background(), 9))
	assert.ErrorIs(t, err, scoringdomain.ErrNotFound)

	_, err = f.svc.Calculate(context.Background(), scoringdomain.CalculateRequest{})
	assert.ErrorIs(t, err, scoringdomain.ErrInvalidCompany)
}

func TestApplyDefaultTargetsKeepsOwnTarget(t *testing.T) {
	records := []metricdomain.MetricRecord{
		{MetricName: "board_independence", Target: target(50)},
		{MetricName: "board_independence"},
		{MetricName: "unknown"},
	}
	applied := ApplyDefaultTargets(records, config.DefaultScoringConfig())
	assert.Equal(t, 1, applied)
	assert.Equal(t, 50.0, *records[0].Target)
	assert.Equal(t, 100.0, *records[1].Target)
	assert.Nil(t, records[2].Target)
}

func gaugeValue(t *testing.T, g *kpiexport.Gauges, name, category string) float64 {
	t.Helper()
	families, err := g.Registry().Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "category" && label.GetValue() == category {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("gauge %s{category=%s} not found", name, category)
	return 0
}

func TestCalculateIgnoresRecordedEmissionsTotals(t *testing.T) {
	f := newFixture(t, config.DefaultScoringConfig())
	ctx := companyctx.WithCompanyID(context.Background(), 5)

	f.addRecord(t, 5, metricdomain.CategoryEnvironmental, "renewable_energy_share", 80, target(100), 2024)

	// The four totals a recorded emissions calculation writes.
	metrics := metricservice.New(metricservice.Params{
		DB:      f.db,
		Log:     zap.NewNop(),
		GenID:   f.node,
		Repo:    metricrepo.Provide(),
		Scoring: config.NewStaticScoringConfigHolder(config.DefaultScoringConfig()),
		Clock:   f.clock,
	})
	var reqs []metricdomain.SubmitRequest
	for name, value := range map[string]float64{
		emissionsdomain.MetricScope1: 53,
		emissionsdomain.MetricScope2: 400,
		emissionsdomain.MetricScope3: 0,
		emissionsdomain.MetricTotal:  453,
	} {
		v := value
		reqs = append(reqs, metricdomain.SubmitRequest{
			Category:      metricdomain.CategoryEnvironmental,
			MetricName:    name,
			Value:         &v,
			Unit:          emissionsdomain.UnitTCO2e,
			ReportingYear: 2024,
			Source:        metricdomain.SourceEmissionsCalculator,
		})
	}
	_, err := metrics.SubmitBatch(ctx, reqs)
	require.NoError(t, err)

	resp, err := f.svc.Calculate(ctx, scoringdomain.CalculateRequest{})
	require.NoError(t, err)
	assert.Equal(t, 80.0, resp.Environmental)
	assert.Equal(t, 1, resp.TotalEntries)
}

func TestScoringRecordsDropsCalculatorOutput(t *testing.T) {
	records := []metricdomain.MetricRecord{
		{MetricName: "renewable_energy_share", Source: metricdomain.SourceManual},
		{MetricName: "scope1_emissions", Source: metricdomain.SourceEmissionsCalculator},
		{MetricName: "employee_turnover_rate", Source: metricdomain.SourceHR},
	}
	out := ScoringRecords(records)
	require.Len(t, out, 2)
	assert.Equal(t, "employee_turnover_rate", out[1].MetricName)
	assert.Len(t, records, 3)
}

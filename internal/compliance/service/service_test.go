package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/greenledger/internal/clock"
	"github.com/smallbiznis/greenledger/internal/companyctx"
	"github.com/smallbiznis/greenledger/internal/compliance/catalog"
	compliancedomain "github.com/smallbiznis/greenledger/internal/compliance/domain"
	"github.com/smallbiznis/greenledger/internal/compliance/repository"
	"github.com/smallbiznis/greenledger/internal/compliance/rules"
	metricdomain "github.com/smallbiznis/greenledger/internal/metric/domain"
	metricrepo "github.com/smallbiznis/greenledger/internal/metric/repository"
	"github.com/smallbiznis/greenledger/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	node  *snowflake.Node
	svc   compliancedomain.Service
	clock *clock.FakeClock
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	conn := db.NewTest(t, &compliancedomain.Document{}, &metricdomain.MetricRecord{})
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	c, err := catalog.Load()
	require.NoError(t, err)
	evaluator, err := rules.NewEvaluator()
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:         conn,
		Log:        zap.NewNop(),
		GenID:      node,
		Repo:       repository.Provide(),
		MetricRepo: metricrepo.Provide(),
		Catalog:    c,
		Rules:      evaluator,
		Clock:      clk,
	})
	return fixture{db: conn, node: node, svc: svc, clock: clk}
}

func ctxFor(id int64) context.Context {
	return companyctx.WithCompanyID(context.Background(), id)
}

func TestCreateAndReviewDocument(t *testing.T) {
	f := newFixture(t)
	ctx := ctxFor(10)

	due := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	doc, err := f.svc.Create(ctx, compliancedomain.CreateRequest{
		Title: "Climate risk policy", Framework: "tcfd", Category: "Governance", DueDate: &due,
	})
	require.NoError(t, err)
	assert.Equal(t, "TCFD", doc.Framework)
	assert.Equal(t, compliancedomain.StatusPendingReview, doc.Status)
	assert.False(t, doc.Overdue)

	approved, err := f.svc.Review(ctx, doc.ID, compliancedomain.ReviewRequest{Status: compliancedomain.StatusApproved, Note: "ok"})
	require.NoError(t, err)
	assert.Equal(t, compliancedomain.StatusApproved, approved.Status)
	require.NotNil(t, approved.ReviewedAt)
	assert.Equal(t, "ok", *approved.ReviewNote)

	_, err = f.svc.Review(ctx, doc.ID, compliancedomain.ReviewRequest{Status: compliancedomain.StatusRejected})
	assert.ErrorIs(t, err, compliancedomain.ErrInvalidTransition)
}

func TestRejectedDocumentCanBeResubmitted(t *testing.T) {
	f := newFixture(t)
	ctx := ctxFor(10)

	doc, err := f.svc.Create(ctx, compliancedomain.CreateRequest{Title: "Diversity report", Framework: "CSRD"})
	require.NoError(t, err)

	_, err = f.svc.Review(ctx, doc.ID, compliancedomain.ReviewRequest{Status: compliancedomain.StatusRejected})
	require.NoError(t, err)
	again, err := f.svc.Review(ctx, doc.ID, compliancedomain.ReviewRequest{Status: compliancedomain.StatusPendingReview})
	require.NoError(t, err)
	assert.Nil(t, again.ReviewedAt)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := ctxFor(10)

	_, err := f.svc.Create(ctx, compliancedomain.CreateRequest{Title: " ", Framework: "GRI"})
	assert.ErrorIs(t, err, compliancedomain.ErrInvalidTitle)
	_, err = f.svc.Create(ctx, compliancedomain.CreateRequest{Title: "x", Framework: "ISO"})
	assert.ErrorIs(t, err, compliancedomain.ErrInvalidFramework)
	_, err = f.svc.Create(context.Background(), compliancedomain.CreateRequest{Title: "x", Framework: "GRI"})
	assert.ErrorIs(t, err, compliancedomain.ErrInvalidCompany)
}

func TestOverdueListsPendingPastDue(t *testing.T) {
	f := newFixture(t)
	ctx := ctxFor(10)

	past := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	future := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	late, err := f.svc.Create(ctx, compliancedomain.CreateRequest{Title: "late", Framework: "GRI", DueDate: &past})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, compliancedomain.CreateRequest{Title: "fine", Framework: "GRI", DueDate: &future})
	require.NoError(t, err)
	_, err = f.svc.Create(ctxFor(11), compliancedomain.CreateRequest{Title: "other company", Framework: "GRI", DueDate: &past})
	require.NoError(t, err)

	overdue, err := f.svc.Overdue(ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, late.ID, overdue[0].ID)
	assert.True(t, overdue[0].Overdue)
}

func TestCoverageEvaluatesRules(t *testing.T) {
	f := newFixture(t)
	ctx := ctxFor(10)
	repo := metricrepo.Provide()

	insert := func(name string, value float64) {
		require.NoError(t, repo.Insert(ctx, f.db, &metricdomain.MetricRecord{
			ID:            f.node.Generate(),
			CompanyID:     10,
			Category:      metricdomain.CategoryEnvironmental,
			MetricName:    name,
			Value:         value,
			Unit:          "tCO2e",
			ReportingYear: 2024,
			Source:        metricdomain.SourceManual,
			SubmittedBy:   "system",
			ContentHash:   "h",
			RecordedAt:    f.clock.Now(),
			CreatedAt:     f.clock.Now(),
		}))
	}
	insert("scope1_emissions", 120)
	insert("scope2_emissions", 80)
	insert("scope3_emissions", 300)
	insert("total_emissions", 500)

	year := 2024
	cov, err := f.svc.Coverage(ctx, "TCFD", &year)
	require.NoError(t, err)
	require.Len(t, cov.Requirements, 3)

	byID := map[string]compliancedomain.RequirementCoverage{}
	for _, item := range cov.Requirements {
		byID[item.ID] = item
	}
	assert.True(t, byID["TCFD-MT-A"].Covered)
	require.NotNil(t, byID["TCFD-MT-B"].RulePassed)
	assert.True(t, *byID["TCFD-MT-B"].RulePassed)
	assert.False(t, byID["TCFD-GOV-A"].Covered)
	assert.Equal(t, []string{"board_independence"}, byID["TCFD-GOV-A"].MissingMetrics)
	assert.InDelta(t, 66.67, cov.CoveragePercent, 0.001)

	_, err = f.svc.Coverage(ctx, "nope", nil)
	assert.ErrorIs(t, err, compliancedomain.ErrInvalidFramework)
}

// racingRepo lands a competing review between the service's read and write.
type racingRepo struct {
	compliancedomain.Repository
	competing string
}

func (r racingRepo) UpdateReview(ctx context.Context, db *gorm.DB, doc *compliancedomain.Document, fromStatus string) (bool, error) {
	other := *doc
	other.Status = r.competing
	other.ReviewNote = nil
	applied, err := r.Repository.UpdateReview(ctx, db, &other, fromStatus)
	if err != nil || !applied {
		return applied, err
	}
	return r.Repository.UpdateReview(ctx, db, doc, fromStatus)
}

func TestReviewLosesToConcurrentReview(t *testing.T) {
	f := newFixture(t)
	c, err := catalog.Load()
	require.NoError(t, err)
	evaluator, err := rules.NewEvaluator()
	require.NoError(t, err)
	svc := New(Params{
		DB:         f.db,
		Log:        zap.NewNop(),
		GenID:      f.node,
		Repo:       racingRepo{Repository: repository.Provide(), competing: compliancedomain.StatusApproved},
		MetricRepo: metricrepo.Provide(),
		Catalog:    c,
		Rules:      evaluator,
		Clock:      f.clock,
	})
	ctx := ctxFor(10)

	doc, err := svc.Create(ctx, compliancedomain.CreateRequest{Title: "Water policy", Framework: "GRI", Category: "Environmental"})
	require.NoError(t, err)

	_, err = svc.Review(ctx, doc.ID, compliancedomain.ReviewRequest{Status: compliancedomain.StatusRejected, Note: "late"})
	assert.ErrorIs(t, err, compliancedomain.ErrInvalidTransition)

	stored, err := f.svc.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, compliancedomain.StatusApproved, stored.Status)
	assert.Nil(t, stored.ReviewNote)
}

func TestUpdateReviewRequiresExpectedStatus(t *testing.T) {
	f := newFixture(t)
	ctx := ctxFor(10)
	doc, err := f.svc.Create(ctx, compliancedomain.CreateRequest{Title: "Board charter", Framework: "GRI", Category: "Governance"})
	require.NoError(t, err)
	_, err = f.svc.Review(ctx, doc.ID, compliancedomain.ReviewRequest{Status: compliancedomain.StatusApproved})
	require.NoError(t, err)

	id, err := snowflake.ParseString(doc.ID)
	require.NoError(t, err)
	stale := &compliancedomain.Document{
		ID: id, CompanyID: snowflake.ID(10), Status: compliancedomain.StatusRejected, UpdatedAt: f.clock.Now(),
	}
	applied, err := repository.Provide().UpdateReview(ctx, f.db, stale, compliancedomain.StatusPendingReview)
	require.NoError(t, err)
	assert.False(t, applied)
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang/mock/gomock"
	"github.com/smallbiznis/greenledger/internal/clock"
	"github.com/smallbiznis/greenledger/internal/companyctx"
	"github.com/smallbiznis/greenledger/internal/config"
	integrationdomain "github.com/smallbiznis/greenledger/internal/integration/domain"
	"github.com/smallbiznis/greenledger/internal/integration/mocks"
	"github.com/smallbiznis/greenledger/internal/integration/repository"
	metricdomain "github.com/smallbiznis/greenledger/internal/metric/domain"
	metricrepo "github.com/smallbiznis/greenledger/internal/metric/repository"
	metricservice "github.com/smallbiznis/greenledger/internal/metric/service"
	"github.com/smallbiznis/greenledger/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	svc     integrationdomain.Service
	factory *mocks.MockSourceFactory
	source  *mocks.MockExternalDataSource
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	conn := db.NewTest(t,
		&integrationdomain.Connection{},
		&integrationdomain.SyncRun{},
		&metricdomain.MetricRecord{},
	)
	node, err := snowflake.NewNode(5)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC))

	metrics := metricservice.New(metricservice.Params{
		DB:      conn,
		Log:     zap.NewNop(),
		GenID:   node,
		Repo:    metricrepo.Provide(),
		Scoring: config.NewStaticScoringConfigHolder(config.DefaultScoringConfig()),
		Clock:   clk,
	})
	factory := mocks.NewMockSourceFactory(ctrl)
	source := mocks.NewMockExternalDataSource(ctrl)

	svc := New(Params{
		DB:        conn,
		Log:       zap.NewNop(),
		GenID:     node,
		Repo:      repository.Provide(),
		Sources:   factory,
		MetricSvc: metrics,
		Clock:     clk,
	})
	return fixture{db: conn, svc: svc, factory: factory, source: source}
}

func createERP(t *testing.T, f fixture, ctx context.Context) *integrationdomain.Response {
	t.Helper()
	resp, err := f.svc.Create(ctx, integrationdomain.CreateRequest{
		Kind:      "ERP",
		Provider:  "sap",
		Endpoint:  "https://erp.example.com/esg",
		AuthToken: "secret",
	})
	require.NoError(t, err)
	return resp
}

func TestCreateValidates(t *testing.T) {
	f := newFixture(t)
	ctx := companyctx.WithCompanyID(context.Background(), 9)

	_, err := f.svc.Create(ctx, integrationdomain.CreateRequest{Kind: "crm", Provider: "x", Endpoint: "https://a.b"})
	assert.ErrorIs(t, err, integrationdomain.ErrInvalidKind)
	_, err = f.svc.Create(ctx, integrationdomain.CreateRequest{Kind: "hr", Endpoint: "https://a.b"})
	assert.ErrorIs(t, err, integrationdomain.ErrInvalidProvider)
	_, err = f.svc.Create(ctx, integrationdomain.CreateRequest{Kind: "hr", Provider: "x", Endpoint: "a.b"})
	assert.ErrorIs(t, err, integrationdomain.ErrInvalidEndpoint)

	resp := createERP(t, f, ctx)
	assert.Equal(t, integrationdomain.KindERP, resp.Kind)
	assert.True(t, resp.HasAuthToken)
	assert.Equal(t, integrationdomain.StatusIdle, resp.Status)
}

func TestSyncStoresFetchedMetrics(t *testing.T) {
	f := newFixture(t)
	ctx := companyctx.WithCompanyID(context.Background(), 9)
	conn := createERP(t, f, ctx)

	target := 100.0
	f.factory.EXPECT().New(gomock.Any()).Return(f.source, nil)
	f.source.EXPECT().Kind().Return(integrationdomain.KindERP).AnyTimes()
	f.source.EXPECT().
		Fetch(gomock.Any(), integrationdomain.FetchRequest{CompanyID: "9", ReportingYear: 2024}).
		Return([]integrationdomain.ExternalMetric{
			{Category: "environmental", MetricName: "energy_consumption", Value: 900, Unit: "MWh"},
			{Category: "environmental", MetricName: "waste_recycled_rate", Value: 70, Unit: "%", Target: &target, ReportingYear: 2023},
		}, nil)

	resp, err := f.svc.Sync(ctx, conn.ID, integrationdomain.SyncRequest{ReportingYear: 2024})
	require.NoError(t, err)
	assert.Equal(t, integrationdomain.StatusSuccess, resp.Status)
	assert.Equal(t, 2, resp.Records)
	assert.Len(t, resp.RunID, 26)

	var records []metricdomain.MetricRecord
	require.NoError(t, f.db.Order("metric_name").Find(&records).Error)
	require.Len(t, records, 2)
	assert.Equal(t, metricdomain.SourceERP, records[0].Source)
	assert.Equal(t, 2024, records[0].ReportingYear)
	assert.Equal(t, 2023, records[1].ReportingYear)
	assert.Equal(t, "system:integration:"+conn.ID, records[0].SubmittedBy)

	list, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(2), list[0].RecordsSynced)
	require.NotNil(t, list[0].LastSyncAt)

	runs, err := f.svc.Runs(ctx, conn.ID)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, integrationdomain.StatusSuccess, runs[0].Status)
}

func TestSyncRecordsFailure(t *testing.T) {
	f := newFixture(t)
	ctx := companyctx.WithCompanyID(context.Background(), 9)
	conn := createERP(t, f, ctx)

	upstream := errors.New("connection refused")
	f.factory.EXPECT().New(gomock.Any()).Return(f.source, nil)
	f.source.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(nil, upstream)

	_, err := f.svc.Sync(ctx, conn.ID, integrationdomain.SyncRequest{})
	assert.ErrorIs(t, err, upstream)

	list, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, integrationdomain.StatusFailed, list[0].Status)
	require.NotNil(t, list[0].LastError)
	assert.Contains(t, *list[0].LastError, "connection refused")
}

func TestSyncRejectsInvalidBatchAtomically(t *testing.T) {
	f := newFixture(t)
	ctx := companyctx.WithCompanyID(context.Background(), 9)
	conn := createERP(t, f, ctx)

	f.factory.EXPECT().New(gomock.Any()).Return(f.source, nil)
	f.source.EXPECT().Kind().Return(integrationdomain.KindHR).AnyTimes()
	f.source.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return([]integrationdomain.ExternalMetric{
		{Category: "social", MetricName: "turnover_rate", Value: 12, Unit: "%"},
		{Category: "social", MetricName: "female_leadership_share", Value: 140, Unit: "%"},
	}, nil)

	_, err := f.svc.Sync(ctx, conn.ID, integrationdomain.SyncRequest{ReportingYear: 2024})
	assert.ErrorIs(t, err, metricdomain.ErrPercentOutOfRange)

	var count int64
	require.NoError(t, f.db.Model(&metricdomain.MetricRecord{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSyncFailsWhenFetchExceedsBatchLimit(t *testing.T) {
	f := newFixture(t)
	ctx := companyctx.WithCompanyID(context.Background(), 9)
	conn := createERP(t, f, ctx)

	fetched := make([]integrationdomain.ExternalMetric, metricdomain.MaxBatchSize+1)
	for i := range fetched {
		fetched[i] = integrationdomain.ExternalMetric{Category: "environmental", MetricName: "energy_consumption", Value: 1, Unit: "MWh"}
	}
	f.factory.EXPECT().New(gomock.Any()).Return(f.source, nil)
	f.source.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(fetched, nil)

	_, err := f.svc.Sync(ctx, conn.ID, integrationdomain.SyncRequest{ReportingYear: 2024})
	assert.ErrorIs(t, err, integrationdomain.ErrSyncTooLarge)

	list, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, integrationdomain.StatusFailed, list[0].Status)
	assert.Nil(t, list[0].LastSyncAt)
}

func TestDisabledConnectionIsSkipped(t *testing.T) {
	f := newFixture(t)
	ctx := companyctx.WithCompanyID(context.Background(), 9)
	conn := createERP(t, f, ctx)

	disabled, err := f.svc.Disable(ctx, conn.ID)
	require.NoError(t, err)
	assert.False(t, disabled.Enabled)

	_, err = f.svc.Sync(ctx, conn.ID, integrationdomain.SyncRequest{})
	assert.ErrorIs(t, err, integrationdomain.ErrDisabled)

	n, err := f.svc.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSyncAllCoversEveryCompany(t *testing.T) {
	f := newFixture(t)
	createERP(t, f, companyctx.WithCompanyID(context.Background(), 9))
	createERP(t, f, companyctx.WithCompanyID(context.Background(), 10))

	f.factory.EXPECT().New(gomock.Any()).Return(f.source, nil).Times(2)
	f.source.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(nil, nil).Times(2)

	n, err := f.svc.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = f.svc.Sync(companyctx.WithCompanyID(context.Background(), 11), "123", integrationdomain.SyncRequest{})
	assert.ErrorIs(t, err, integrationdomain.ErrNotFound)
}

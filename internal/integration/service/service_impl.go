package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	auditdomain "github.com/smallbiznis/greenledger/internal/audit/domain"
	auditcontext "github.com/smallbiznis/greenledger/internal/auditcontext"
	"github.com/smallbiznis/greenledger/internal/clock"
	"github.com/smallbiznis/greenledger/internal/companyctx"
	integrationdomain "github.com/smallbiznis/greenledger/internal/integration/domain"
	metricdomain "github.com/smallbiznis/greenledger/internal/metric/domain"
	obsmetrics "github.com/smallbiznis/greenledger/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	runHistoryLimit = 20
	statusRunning   = "running"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      integrationdomain.Repository
	Sources   integrationdomain.SourceFactory
	MetricSvc metricdomain.Service
	AuditSvc  auditdomain.Service `optional:"true"`
	Metrics   *obsmetrics.Metrics `optional:"true"`
	Clock     clock.Clock         `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      integrationdomain.Repository
	sources   integrationdomain.SourceFactory
	metricSvc metricdomain.Service
	auditSvc  auditdomain.Service
	metrics   *obsmetrics.Metrics
	clock     clock.Clock
}

func New(p Params) integrationdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("integration.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		sources:   p.Sources,
		metricSvc: p.MetricSvc,
		auditSvc:  p.AuditSvc,
		metrics:   p.Metrics,
		clock:     clk,
	}
}

func (s *Service) Create(ctx context.Context, req integrationdomain.CreateRequest) (*integrationdomain.Response, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, integrationdomain.ErrInvalidCompany
	}

	kind := strings.ToLower(strings.TrimSpace(req.Kind))
	if kind != integrationdomain.KindERP && kind != integrationdomain.KindHR {
		return nil, integrationdomain.ErrInvalidKind
	}
	provider := strings.TrimSpace(req.Provider)
	if provider == "" {
		return nil, integrationdomain.ErrInvalidProvider
	}
	endpoint := strings.TrimSpace(req.Endpoint)
	parsed, err := url.Parse(endpoint)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, integrationdomain.ErrInvalidEndpoint
	}

	now := s.clock.Now().UTC()
	conn := &integrationdomain.Connection{
		ID:        s.genID.Generate(),
		CompanyID: companyID,
		Kind:      kind,
		Provider:  provider,
		Endpoint:  endpoint,
		AuthToken: strings.TrimSpace(req.AuthToken),
		Enabled:   true,
		Status:    integrationdomain.StatusIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, conn); err != nil {
		return nil, err
	}

	s.audit(ctx, companyID, auditdomain.ActionIntegrationCreated, conn.ID, map[string]any{
		"kind":       kind,
		"provider":   provider,
		"endpoint":   endpoint,
		"auth_token": conn.AuthToken,
	})
	resp := toResponse(conn)
	return &resp, nil
}

func (s *Service) List(ctx context.Context) ([]integrationdomain.Response, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, integrationdomain.ErrInvalidCompany
	}
	items, err := s.repo.List(ctx, s.db, companyID)
	if err != nil {
		return nil, err
	}
	resp := make([]integrationdomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Disable(ctx context.Context, id string) (*integrationdomain.Response, error) {
	conn, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if conn.Enabled {
		conn.Enabled = false
		conn.UpdatedAt = s.clock.Now().UTC()
		if err := s.repo.Update(ctx, s.db, conn); err != nil {
			return nil, err
		}
		s.audit(ctx, conn.CompanyID, auditdomain.ActionIntegrationDisable, conn.ID, nil)
	}
	resp := toResponse(conn)
	return &resp, nil
}

func (s *Service) Runs(ctx context.Context, id string) ([]integrationdomain.SyncRun, error) {
	conn, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.repo.ListRuns(ctx, s.db, conn.CompanyID, conn.ID, runHistoryLimit)
}

func (s *Service) Sync(ctx context.Context, id string, req integrationdomain.SyncRequest) (*integrationdomain.SyncResponse, error) {
	conn, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !conn.Enabled {
		return nil, integrationdomain.ErrDisabled
	}
	return s.syncConnection(ctx, conn, req.ReportingYear)
}

// SyncAll runs every enabled connection once and returns how many succeeded.
// A failing connection does not stop the others.
func (s *Service) SyncAll(ctx context.Context) (int, error) {
	conns, err := s.repo.ListEnabled(ctx, s.db)
	if err != nil {
		return 0, err
	}

	succeeded := 0
	for i := range conns {
		if ctx.Err() != nil {
			return succeeded, ctx.Err()
		}
		conn := conns[i]
		connCtx := companyctx.WithCompanyID(ctx, conn.CompanyID.Int64())
		if _, err := s.syncConnection(connCtx, &conn, 0); err != nil {
			s.log.Warn("scheduled sync failed",
				zap.String("connection_id", conn.ID.String()),
				zap.String("company_id", conn.CompanyID.String()),
				zap.Error(err),
			)
			continue
		}
		succeeded++
	}
	return succeeded, nil
}

func (s *Service) syncConnection(ctx context.Context, conn *integrationdomain.Connection, year int) (*integrationdomain.SyncResponse, error) {
	if actorType, _ := auditcontext.ActorFromContext(ctx); actorType == "" {
		ctx = auditcontext.WithActor(ctx, string(auditdomain.ActorTypeSystem), "integration:"+conn.ID.String())
	}

	startedAt := s.clock.Now().UTC()
	run := &integrationdomain.SyncRun{
		ID:           ulid.MustNew(ulid.Timestamp(startedAt), ulid.DefaultEntropy()).String(),
		ConnectionID: conn.ID,
		CompanyID:    conn.CompanyID,
		Status:       statusRunning,
		StartedAt:    startedAt,
	}
	if err := s.repo.InsertRun(ctx, s.db, run); err != nil {
		return nil, err
	}

	ids, syncErr := s.fetchAndStore(ctx, conn, year, startedAt)

	finishedAt := s.clock.Now().UTC()
	run.FinishedAt = &finishedAt
	run.Records = len(ids)
	conn.LastRunID = &run.ID
	conn.UpdatedAt = finishedAt
	if syncErr != nil {
		msg := syncErr.Error()
		run.Status = integrationdomain.StatusFailed
		run.Error = &msg
		conn.Status = integrationdomain.StatusFailed
		conn.LastError = &msg
	} else {
		run.Status = integrationdomain.StatusSuccess
		conn.Status = integrationdomain.StatusSuccess
		conn.LastError = nil
		conn.LastSyncAt = &startedAt
		conn.RecordsSynced += int64(len(ids))
	}

	if err := s.repo.UpdateRun(ctx, s.db, run); err != nil {
		s.log.Warn("failed to update sync run", zap.String("run_id", run.ID), zap.Error(err))
	}
	if err := s.repo.Update(ctx, s.db, conn); err != nil {
		s.log.Warn("failed to update connection", zap.String("connection_id", conn.ID.String()), zap.Error(err))
	}

	s.metrics.RecordIntegrationSync(ctx, conn.Kind, run.Status, run.Records)
	s.audit(ctx, conn.CompanyID, auditdomain.ActionIntegrationSynced, conn.ID, map[string]any{
		"run_id":  run.ID,
		"status":  run.Status,
		"records": run.Records,
	})

	if syncErr != nil {
		return nil, syncErr
	}
	return &integrationdomain.SyncResponse{
		RunID:     run.ID,
		Status:    run.Status,
		Records:   run.Records,
		MetricIDs: ids,
	}, nil
}

func (s *Service) fetchAndStore(ctx context.Context, conn *integrationdomain.Connection, year int, now time.Time) ([]string, error) {
	src, err := s.sources.New(*conn)
	if err != nil {
		return nil, err
	}

	var since *time.Time
	if conn.Status == integrationdomain.StatusSuccess {
		since = conn.LastSyncAt
	}
	fetched, err := src.Fetch(ctx, integrationdomain.FetchRequest{
		CompanyID:     conn.CompanyID.String(),
		ReportingYear: year,
		Since:         since,
	})
	if err != nil {
		return nil, err
	}
	if len(fetched) == 0 {
		return nil, nil
	}
	// One sync is one all-or-nothing batch; splitting it would leave partial
	// imports behind a failed run.
	if len(fetched) > metricdomain.MaxBatchSize {
		return nil, fmt.Errorf("%w: %d records", integrationdomain.ErrSyncTooLarge, len(fetched))
	}

	reqs := make([]metricdomain.SubmitRequest, 0, len(fetched))
	for _, m := range fetched {
		value := m.Value
		reportingYear := m.ReportingYear
		if reportingYear == 0 {
			reportingYear = year
		}
		if reportingYear == 0 {
			reportingYear = now.Year()
		}
		reqs = append(reqs, metricdomain.SubmitRequest{
			Category:      m.Category,
			MetricName:    m.MetricName,
			Value:         &value,
			Unit:          m.Unit,
			Target:        m.Target,
			ReportingYear: reportingYear,
			RecordedAt:    m.RecordedAt,
			Source:        src.Kind(),
		})
	}

	items, err := s.metricSvc.SubmitBatch(ctx, reqs)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids, nil
}

func (s *Service) load(ctx context.Context, id string) (*integrationdomain.Connection, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, integrationdomain.ErrInvalidCompany
	}
	connID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || connID == 0 {
		return nil, integrationdomain.ErrInvalidID
	}
	conn, err := s.repo.FindByID(ctx, s.db, companyID, connID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, integrationdomain.ErrNotFound
	}
	return conn, nil
}

func (s *Service) audit(ctx context.Context, companyID snowflake.ID, action string, connID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	targetID := connID.String()
	if err := s.auditSvc.AuditLog(ctx, &companyID, "", nil, action, "integration", &targetID, metadata); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Debug("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

func toResponse(conn *integrationdomain.Connection) integrationdomain.Response {
	return integrationdomain.Response{
		ID:            conn.ID.String(),
		Kind:          conn.Kind,
		Provider:      conn.Provider,
		Endpoint:      conn.Endpoint,
		HasAuthToken:  conn.AuthToken != "",
		Enabled:       conn.Enabled,
		Status:        conn.Status,
		LastSyncAt:    conn.LastSyncAt,
		LastRunID:     conn.LastRunID,
		LastError:     conn.LastError,
		RecordsSynced: conn.RecordsSynced,
		CreatedAt:     conn.CreatedAt,
	}
}

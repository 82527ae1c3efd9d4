package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/greenledger/internal/audit/domain"
	auditcontext "github.com/smallbiznis/greenledger/internal/auditcontext"
	"github.com/smallbiznis/greenledger/internal/cache"
	"github.com/smallbiznis/greenledger/internal/clock"
	"github.com/smallbiznis/greenledger/internal/companyctx"
	"github.com/smallbiznis/greenledger/internal/config"
	metricdomain "github.com/smallbiznis/greenledger/internal/metric/domain"
	obsmetrics "github.com/smallbiznis/greenledger/internal/observability/metrics"
	"github.com/smallbiznis/greenledger/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     metricdomain.Repository
	Scoring  *config.ScoringConfigHolder
	AuditSvc auditdomain.Service  `optional:"true"`
	Metrics  *obsmetrics.Metrics  `optional:"true"`
	Cache    *cache.ResponseCache `optional:"true"`
	Clock    clock.Clock          `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     metricdomain.Repository
	scoring  *config.ScoringConfigHolder
	auditSvc auditdomain.Service
	metrics  *obsmetrics.Metrics
	cache    *cache.ResponseCache
	clock    clock.Clock
}

func New(p Params) metricdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("metric.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		scoring:  p.Scoring,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
		cache:    p.Cache,
		clock:    clk,
	}
}

func (s *Service) Submit(ctx context.Context, req metricdomain.SubmitRequest) (*metricdomain.Response, error) {
	items, err := s.SubmitBatch(ctx, []metricdomain.SubmitRequest{req})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

// SubmitBatch stores every record or none of them.
func (s *Service) SubmitBatch(ctx context.Context, reqs []metricdomain.SubmitRequest) ([]metricdomain.Response, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, metricdomain.ErrInvalidCompany
	}
	if len(reqs) == 0 {
		return nil, metricdomain.ErrEmptyBatch
	}
	if len(reqs) > metricdomain.MaxBatchSize {
		return nil, metricdomain.ErrBatchTooLarge
	}

	cfg := s.scoring.Get()
	now := s.clock.Now().UTC()
	submittedBy := submitterFromContext(ctx)

	records := make([]metricdomain.MetricRecord, 0, len(reqs))
	for i, req := range reqs {
		if err := metricdomain.Validate(req, cfg, now); err != nil {
			s.metrics.RecordMetricRejection(ctx, err.Error())
			if len(reqs) > 1 {
				return nil, fmt.Errorf("metrics[%d]: %w", i, err)
			}
			return nil, err
		}
		records = append(records, s.newRecord(companyID, req, submittedBy, now))
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range records {
			if err := s.repo.Insert(ctx, tx, &records[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterSubmit(ctx, companyID, records)

	resp := make([]metricdomain.Response, 0, len(records))
	for i := range records {
		resp = append(resp, toResponse(&records[i]))
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*metricdomain.Response, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, metricdomain.ErrInvalidCompany
	}
	recordID, err := metricdomain.ParseID(strings.TrimSpace(id))
	if err != nil || recordID == 0 {
		return nil, metricdomain.ErrInvalidID
	}

	record, err := s.repo.FindByID(ctx, s.db, companyID, recordID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, metricdomain.ErrNotFound
	}
	resp := toResponse(record)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req metricdomain.ListRequest) (metricdomain.ListResponse, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return metricdomain.ListResponse{}, metricdomain.ErrInvalidCompany
	}
	req.Category = metricdomain.NormalizeCategory(req.Category)
	if req.Category != "" && !metricdomain.IsValidCategory(req.Category) {
		return metricdomain.ListResponse{}, metricdomain.ErrInvalidCategory
	}
	if source := strings.TrimSpace(req.Source); source != "" && !metricdomain.IsValidSource(source) {
		return metricdomain.ListResponse{}, metricdomain.ErrInvalidSource
	}

	position, err := pagination.DecodePosition(req.PageToken)
	if err != nil {
		return metricdomain.ListResponse{}, metricdomain.ErrInvalidPageToken
	}
	var cursor *metricdomain.Cursor
	if position != nil {
		cursor = &metricdomain.Cursor{ID: position.ID, CreatedAt: position.CreatedAt}
	}

	limit := req.Limit()
	items, err := s.repo.List(ctx, s.db, metricdomain.ListFilter{
		CompanyID:     companyID,
		Category:      req.Category,
		MetricName:    req.MetricName,
		SubmittedBy:   req.SubmittedBy,
		Source:        req.Source,
		ReportingYear: req.ReportingYear,
		Cursor:        cursor,
		Limit:         limit,
	})
	if err != nil {
		return metricdomain.ListResponse{}, err
	}

	page, info := pagination.Page(items, limit, func(item metricdomain.MetricRecord) pagination.Cursor {
		return pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
	})

	metrics := make([]metricdomain.Response, 0, len(page))
	for i := range page {
		metrics = append(metrics, toResponse(&page[i]))
	}
	return metricdomain.ListResponse{PageInfo: info, Metrics: metrics}, nil
}

func (s *Service) newRecord(companyID snowflake.ID, req metricdomain.SubmitRequest, submittedBy string, now time.Time) metricdomain.MetricRecord {
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = metricdomain.SourceManual
	}
	recordedAt := now
	if req.RecordedAt != nil && !req.RecordedAt.IsZero() {
		recordedAt = req.RecordedAt.UTC()
	}

	record := metricdomain.MetricRecord{
		ID:            s.genID.Generate(),
		CompanyID:     companyID,
		Category:      metricdomain.NormalizeCategory(req.Category),
		MetricName:    strings.ToLower(strings.TrimSpace(req.MetricName)),
		Value:         *req.Value,
		Unit:          strings.TrimSpace(req.Unit),
		Target:        req.Target,
		ReportingYear: req.ReportingYear,
		FrameworkCode: normalizeFramework(req.FrameworkCode),
		Source:        source,
		SubmittedBy:   submittedBy,
		RecordedAt:    recordedAt,
		CreatedAt:     now,
	}
	record.ContentHash = metricdomain.ContentHash(record)
	return record
}

func (s *Service) afterSubmit(ctx context.Context, companyID snowflake.ID, records []metricdomain.MetricRecord) {
	counts := map[[2]string]int{}
	for _, record := range records {
		counts[[2]string{record.Category, record.Source}]++
	}
	for key, count := range counts {
		s.metrics.RecordMetricSubmission(ctx, key[0], key[1], count)
	}

	s.cache.InvalidateCompany(ctx, companyID)

	if s.auditSvc == nil {
		return
	}
	for _, record := range records {
		targetID := record.ID.String()
		_ = s.auditSvc.AuditLog(ctx, &companyID, "", nil, auditdomain.ActionMetricSubmitted, "metric", &targetID, map[string]any{
			"category":       record.Category,
			"metric_name":    record.MetricName,
			"reporting_year": record.ReportingYear,
			"source":         record.Source,
			"content_hash":   record.ContentHash,
		})
	}
}

func submitterFromContext(ctx context.Context) string {
	actorType, actorID := auditcontext.ActorFromContext(ctx)
	switch {
	case actorType != "" && actorID != "":
		return actorType + ":" + actorID
	case actorType != "":
		return actorType
	default:
		return string(auditdomain.ActorTypeSystem)
	}
}

func normalizeFramework(code *string) *string {
	if code == nil {
		return nil
	}
	trimmed := strings.ToUpper(strings.TrimSpace(*code))
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func toResponse(record *metricdomain.MetricRecord) metricdomain.Response {
	return metricdomain.Response{
		ID:            record.ID.String(),
		CompanyID:     record.CompanyID.String(),
		Category:      record.Category,
		MetricName:    record.MetricName,
		Value:         record.Value,
		Unit:          record.Unit,
		Target:        record.Target,
		ReportingYear: record.ReportingYear,
		FrameworkCode: record.FrameworkCode,
		Source:        record.Source,
		SubmittedBy:   record.SubmittedBy,
		ContentHash:   record.ContentHash,
		RecordedAt:    record.RecordedAt,
		CreatedAt:     record.CreatedAt,
	}
}

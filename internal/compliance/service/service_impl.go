package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/greenledger/internal/audit/domain"
	"github.com/smallbiznis/greenledger/internal/cache"
	"github.com/smallbiznis/greenledger/internal/clock"
	"github.com/smallbiznis/greenledger/internal/companyctx"
	"github.com/smallbiznis/greenledger/internal/compliance/catalog"
	compliancedomain "github.com/smallbiznis/greenledger/internal/compliance/domain"
	"github.com/smallbiznis/greenledger/internal/compliance/rules"
	metricdomain "github.com/smallbiznis/greenledger/internal/metric/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       compliancedomain.Repository
	MetricRepo metricdomain.Repository
	Catalog    *catalog.Catalog
	Rules      *rules.Evaluator
	AuditSvc   auditdomain.Service  `optional:"true"`
	Cache      *cache.ResponseCache `optional:"true"`
	Clock      clock.Clock          `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       compliancedomain.Repository
	metricRepo metricdomain.Repository
	catalog    *catalog.Catalog
	rules      *rules.Evaluator
	auditSvc   auditdomain.Service
	cache      *cache.ResponseCache
	clock      clock.Clock
}

func New(p Params) compliancedomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("compliance.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		metricRepo: p.MetricRepo,
		catalog:    p.Catalog,
		rules:      p.Rules,
		auditSvc:   p.AuditSvc,
		cache:      p.Cache,
		clock:      clk,
	}
}

func (s *Service) Create(ctx context.Context, req compliancedomain.CreateRequest) (*compliancedomain.Response, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, compliancedomain.ErrInvalidCompany
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, compliancedomain.ErrInvalidTitle
	}
	framework, ok := s.catalog.Get(req.Framework)
	if !ok {
		return nil, compliancedomain.ErrInvalidFramework
	}

	now := s.clock.Now().UTC()
	doc := &compliancedomain.Document{
		ID:        s.genID.Generate(),
		CompanyID: companyID,
		Title:     title,
		Framework: framework.Code,
		Category:  strings.ToLower(strings.TrimSpace(req.Category)),
		Status:    compliancedomain.StatusPendingReview,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.DueDate != nil && !req.DueDate.IsZero() {
		due := req.DueDate.UTC()
		doc.DueDate = &due
	}

	if err := s.repo.Insert(ctx, s.db, doc); err != nil {
		return nil, err
	}

	s.cache.InvalidateCompany(ctx, companyID)
	s.audit(ctx, companyID, auditdomain.ActionDocumentCreated, doc, nil)

	resp := s.toResponse(doc, now)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req compliancedomain.ListRequest) ([]compliancedomain.Response, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, compliancedomain.ErrInvalidCompany
	}
	status := strings.TrimSpace(req.Status)
	if status != "" && !compliancedomain.IsValidStatus(status) {
		return nil, compliancedomain.ErrInvalidStatus
	}
	framework := strings.TrimSpace(req.Framework)
	if framework != "" {
		fw, ok := s.catalog.Get(framework)
		if !ok {
			return nil, compliancedomain.ErrInvalidFramework
		}
		framework = fw.Code
	}

	docs, err := s.repo.List(ctx, s.db, compliancedomain.ListFilter{
		CompanyID: companyID,
		Status:    status,
		Framework: framework,
	})
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	resp := make([]compliancedomain.Response, 0, len(docs))
	for i := range docs {
		resp = append(resp, s.toResponse(&docs[i], now))
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*compliancedomain.Response, error) {
	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := s.toResponse(doc, s.clock.Now().UTC())
	return &resp, nil
}

func (s *Service) Review(ctx context.Context, id string, req compliancedomain.ReviewRequest) (*compliancedomain.Response, error) {
	status := strings.TrimSpace(req.Status)
	if !compliancedomain.IsValidStatus(status) {
		return nil, compliancedomain.ErrInvalidStatus
	}

	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !compliancedomain.CanTransition(doc.Status, status) {
		return nil, compliancedomain.ErrInvalidTransition
	}

	previous := doc.Status
	now := s.clock.Now().UTC()
	doc.Status = status
	doc.UpdatedAt = now
	if status == compliancedomain.StatusPendingReview {
		doc.ReviewedAt = nil
	} else {
		doc.ReviewedAt = &now
	}
	if note := strings.TrimSpace(req.Note); note != "" {
		doc.ReviewNote = &note
	}

	applied, err := s.repo.UpdateReview(ctx, s.db, doc, previous)
	if err != nil {
		return nil, err
	}
	if !applied {
		// A concurrent review moved the document off previous.
		return nil, compliancedomain.ErrInvalidTransition
	}

	s.cache.InvalidateCompany(ctx, doc.CompanyID)
	s.audit(ctx, doc.CompanyID, auditdomain.ActionDocumentReviewed, doc, map[string]any{
		"from_status": previous,
		"to_status":   status,
	})

	resp := s.toResponse(doc, now)
	return &resp, nil
}

func (s *Service) Overdue(ctx context.Context) ([]compliancedomain.Response, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, compliancedomain.ErrInvalidCompany
	}

	now := s.clock.Now().UTC()
	docs, err := s.repo.ListOverdue(ctx, s.db, companyID, now)
	if err != nil {
		return nil, err
	}
	resp := make([]compliancedomain.Response, 0, len(docs))
	for i := range docs {
		resp = append(resp, s.toResponse(&docs[i], now))
	}
	return resp, nil
}

func (s *Service) Documents(ctx context.Context) ([]compliancedomain.Document, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, compliancedomain.ErrInvalidCompany
	}
	return s.repo.List(ctx, s.db, compliancedomain.ListFilter{CompanyID: companyID})
}

func (s *Service) Frameworks() []compliancedomain.Framework {
	return s.catalog.All()
}

// Coverage maps the company's latest metric values onto a framework's
// requirements. A requirement is covered when every metric it names has at
// least one record.
func (s *Service) Coverage(ctx context.Context, code string, year *int) (*compliancedomain.CoverageResponse, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, compliancedomain.ErrInvalidCompany
	}
	framework, ok := s.catalog.Get(code)
	if !ok {
		return nil, compliancedomain.ErrInvalidFramework
	}

	values, err := s.metricRepo.LatestValues(ctx, s.db, companyID, year)
	if err != nil {
		return nil, err
	}

	ruleYear := 0
	if year != nil {
		ruleYear = *year
	}

	resp := &compliancedomain.CoverageResponse{
		Framework:     framework.Code,
		ReportingYear: year,
		Requirements:  make([]compliancedomain.RequirementCoverage, 0, len(framework.Requirements)),
	}

	covered := 0
	for _, req := range framework.Requirements {
		item := compliancedomain.RequirementCoverage{
			ID:             req.ID,
			Title:          req.Title,
			Category:       req.Category,
			CoveredMetrics: []string{},
			MissingMetrics: []string{},
		}
		for _, name := range req.Metrics {
			if _, ok := values[name]; ok {
				item.CoveredMetrics = append(item.CoveredMetrics, name)
			} else {
				item.MissingMetrics = append(item.MissingMetrics, name)
			}
		}
		item.Covered = len(item.MissingMetrics) == 0

		if item.Covered && strings.TrimSpace(req.Rule) != "" && s.rules != nil {
			passed, err := s.rules.Evaluate(req.Rule, values, ruleYear)
			if err != nil {
				s.log.Warn("compliance rule failed",
					zap.String("framework", framework.Code),
					zap.String("requirement", req.ID),
					zap.Error(err),
				)
				item.RuleError = err.Error()
			} else {
				item.RulePassed = &passed
			}
		}
		if item.Covered {
			covered++
		}
		resp.Requirements = append(resp.Requirements, item)
	}

	if len(framework.Requirements) > 0 {
		pct := float64(covered) / float64(len(framework.Requirements)) * 100
		resp.CoveragePercent = math.Round(pct*100) / 100
	}
	return resp, nil
}

func (s *Service) find(ctx context.Context, id string) (*compliancedomain.Document, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, compliancedomain.ErrInvalidCompany
	}
	docID, err := compliancedomain.ParseID(strings.TrimSpace(id))
	if err != nil || docID == 0 {
		return nil, compliancedomain.ErrInvalidID
	}
	doc, err := s.repo.FindByID(ctx, s.db, companyID, docID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, compliancedomain.ErrNotFound
	}
	return doc, nil
}

func (s *Service) audit(ctx context.Context, companyID snowflake.ID, action string, doc *compliancedomain.Document, extra map[string]any) {
	if s.auditSvc == nil {
		return
	}
	metadata := map[string]any{
		"framework": doc.Framework,
		"status":    doc.Status,
	}
	for key, value := range extra {
		metadata[key] = value
	}
	targetID := doc.ID.String()
	_ = s.auditSvc.AuditLog(ctx, &companyID, "", nil, action, "compliance_document", &targetID, metadata)
}

func (s *Service) toResponse(doc *compliancedomain.Document, now time.Time) compliancedomain.Response {
	overdue := doc.Status == compliancedomain.StatusPendingReview &&
		doc.DueDate != nil && doc.DueDate.Before(now)
	return compliancedomain.Response{
		ID:         doc.ID.String(),
		Title:      doc.Title,
		Framework:  doc.Framework,
		Category:   doc.Category,
		Status:     doc.Status,
		DueDate:    doc.DueDate,
		ReviewNote: doc.ReviewNote,
		ReviewedAt: doc.ReviewedAt,
		Overdue:    overdue,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
}

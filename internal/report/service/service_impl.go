package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/greenledger/internal/audit/domain"
	"github.com/smallbiznis/greenledger/internal/auditcontext"
	"github.com/smallbiznis/greenledger/internal/clock"
	companydomain "github.com/smallbiznis/greenledger/internal/company/domain"
	"github.com/smallbiznis/greenledger/internal/companyctx"
	compliancedomain "github.com/smallbiznis/greenledger/internal/compliance/domain"
	"github.com/smallbiznis/greenledger/internal/config"
	emissionsdomain "github.com/smallbiznis/greenledger/internal/emissions/domain"
	metricdomain "github.com/smallbiznis/greenledger/internal/metric/domain"
	obsmetrics "github.com/smallbiznis/greenledger/internal/observability/metrics"
	reportdomain "github.com/smallbiznis/greenledger/internal/report/domain"
	"github.com/smallbiznis/greenledger/internal/report/render"
	"github.com/smallbiznis/greenledger/internal/report/storage"
	scoringdomain "github.com/smallbiznis/greenledger/internal/scoring/domain"
	scoringservice "github.com/smallbiznis/greenledger/internal/scoring/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Repo           reportdomain.Repository
	Store          storage.Store
	CompanyRepo    companydomain.Repository
	MetricRepo     metricdomain.Repository
	ComplianceRepo compliancedomain.Repository
	ComplianceSvc  compliancedomain.Service
	Scoring        *config.ScoringConfigHolder
	AuditSvc       auditdomain.Service `optional:"true"`
	Metrics        *obsmetrics.Metrics `optional:"true"`
	Clock          clock.Clock         `optional:"true"`
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	repo           reportdomain.Repository
	store          storage.Store
	companyRepo    companydomain.Repository
	metricRepo     metricdomain.Repository
	complianceRepo compliancedomain.Repository
	complianceSvc  compliancedomain.Service
	scoring        *config.ScoringConfigHolder
	auditSvc       auditdomain.Service
	metrics        *obsmetrics.Metrics
	clock          clock.Clock
}

func New(p Params) reportdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("report.service"),
		genID:          p.GenID,
		repo:           p.Repo,
		store:          p.Store,
		companyRepo:    p.CompanyRepo,
		metricRepo:     p.MetricRepo,
		complianceRepo: p.ComplianceRepo,
		complianceSvc:  p.ComplianceSvc,
		scoring:        p.Scoring,
		auditSvc:       p.AuditSvc,
		metrics:        p.Metrics,
		clock:          clk,
	}
}

func (s *Service) Generate(ctx context.Context, req reportdomain.GenerateRequest) (*reportdomain.Response, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, reportdomain.ErrInvalidCompany
	}
	now := s.clock.Now().UTC()
	pdf, err := s.render(ctx, companyID, req.ReportingYear, now)
	if err != nil {
		return nil, err
	}

	sum := blake2b.Sum256(pdf)
	hash := hex.EncodeToString(sum[:])
	key := fmt.Sprintf("reports/%s/%s.pdf", companyID.String(), hash)
	if err := s.store.Put(ctx, key, pdf, reportdomain.ContentTypePDF); err != nil {
		return nil, fmt.Errorf("archive report: %w", err)
	}

	export := &reportdomain.ReportExport{
		ID:            s.genID.Generate(),
		CompanyID:     companyID,
		ReportingYear: req.ReportingYear,
		StorageKind:   s.store.Kind(),
		StorageKey:    key,
		ContentHash:   hash,
		SizeBytes:     int64(len(pdf)),
		GeneratedBy:   generatorFromContext(ctx),
		CreatedAt:     now,
	}
	if err := s.repo.Insert(ctx, s.db, export); err != nil {
		return nil, err
	}

	if s.auditSvc != nil {
		targetID := export.ID.String()
		_ = s.auditSvc.AuditLog(ctx, &companyID, "", nil, auditdomain.ActionReportGenerated, "report", &targetID, map[string]any{
			"reporting_year": req.ReportingYear,
			"storage":        export.StorageKind,
			"content_hash":   hash,
			"size_bytes":     export.SizeBytes,
		})
	}
	s.metrics.RecordReportGenerated(ctx, export.StorageKind)
	s.log.Info("report archived",
		zap.String("company_id", companyID.String()),
		zap.String("report_id", export.ID.String()),
		zap.String("storage", export.StorageKind),
		zap.Int64("size_bytes", export.SizeBytes),
	)

	resp := toResponse(export)
	return &resp, nil
}

func (s *Service) Render(ctx context.Context, req reportdomain.GenerateRequest) ([]byte, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, reportdomain.ErrInvalidCompany
	}
	pdf, err := s.render(ctx, companyID, req.ReportingYear, s.clock.Now().UTC())
	if err != nil {
		return nil, err
	}
	s.metrics.RecordReportGenerated(ctx, "stream")
	return pdf, nil
}

func (s *Service) List(ctx context.Context, limit int) ([]reportdomain.Response, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, reportdomain.ErrInvalidCompany
	}
	switch {
	case limit <= 0:
		limit = reportdomain.DefaultListLimit
	case limit > reportdomain.MaxListLimit:
		limit = reportdomain.MaxListLimit
	}

	exports, err := s.repo.List(ctx, s.db, companyID, limit)
	if err != nil {
		return nil, err
	}
	resp := make([]reportdomain.Response, 0, len(exports))
	for i := range exports {
		resp = append(resp, toResponse(&exports[i]))
	}
	return resp, nil
}

func (s *Service) Download(ctx context.Context, id string) (*reportdomain.Document, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, reportdomain.ErrInvalidCompany
	}
	exportID, err := reportdomain.ParseID(strings.TrimSpace(id))
	if err != nil {
		return nil, reportdomain.ErrInvalidID
	}
	export, err := s.repo.FindByID(ctx, s.db, companyID, exportID)
	if err != nil {
		return nil, err
	}
	if export == nil {
		return nil, reportdomain.ErrNotFound
	}

	content, err := s.store.Get(ctx, export.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.log.Warn("archived report missing from storage",
				zap.String("report_id", export.ID.String()),
				zap.String("storage_key", export.StorageKey),
			)
			return nil, reportdomain.ErrNotFound
		}
		return nil, err
	}
	return &reportdomain.Document{
		Filename: reportFilename(export.ReportingYear, export.CreatedAt),
		Content:  content,
	}, nil
}

func (s *Service) render(ctx context.Context, companyID snowflake.ID, year *int, now time.Time) ([]byte, error) {
	if year != nil && (*year < metricdomain.MinReportingYear || *year > now.Year()+1) {
		return nil, reportdomain.ErrInvalidYear
	}
	data, err := s.collect(ctx, companyID, year, now)
	if err != nil {
		return nil, err
	}
	pdf, err := render.ESGReport(*data)
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return pdf, nil
}

func (s *Service) collect(ctx context.Context, companyID snowflake.ID, year *int, now time.Time) (*render.ReportData, error) {
	company, err := s.companyRepo.FindByID(ctx, s.db, companyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, reportdomain.ErrInvalidCompany
	}

	records, err := s.metricRepo.ListForScoring(ctx, s.db, companyID, year)
	if err != nil {
		return nil, err
	}
	documents, err := s.complianceRepo.List(ctx, s.db, compliancedomain.ListFilter{CompanyID: companyID})
	if err != nil {
		return nil, err
	}
	latest, err := s.metricRepo.LatestValues(ctx, s.db, companyID, year)
	if err != nil {
		return nil, err
	}

	// Listing shows raw submissions; scoring sees default targets filled in.
	listing := make([]render.MetricRow, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		listing = append(listing, render.MetricRow{
			Category:   r.Category,
			MetricName: r.MetricName,
			Value:      r.Value,
			Unit:       r.Unit,
			Target:     r.Target,
			Year:       r.ReportingYear,
			Source:     r.Source,
		})
	}
	scoringRecords := scoringservice.ScoringRecords(records)
	scoringservice.ApplyDefaultTargets(scoringRecords, s.scoring.Get())
	scores := scoringdomain.ComputeScores(scoringRecords, documents)

	byStatus := make(map[string]int)
	for _, doc := range documents {
		byStatus[doc.Status]++
	}

	frameworks := make([]render.FrameworkCoverage, 0)
	for _, fw := range s.complianceSvc.Frameworks() {
		coverage, err := s.complianceSvc.Coverage(ctx, fw.Code, year)
		if err != nil {
			return nil, fmt.Errorf("coverage %s: %w", fw.Code, err)
		}
		covered := 0
		for _, req := range coverage.Requirements {
			if req.Covered {
				covered++
			}
		}
		frameworks = append(frameworks, render.FrameworkCoverage{
			Code:            fw.Code,
			Name:            fw.Name,
			CoveragePercent: coverage.CoveragePercent,
			Covered:         covered,
			Requirements:    len(coverage.Requirements),
		})
	}

	yearLabel := "All years"
	if year != nil {
		yearLabel = strconv.Itoa(*year)
	}

	return &render.ReportData{
		CompanyName:   company.Name,
		Industry:      company.Industry,
		Region:        company.Region,
		ReportingYear: yearLabel,
		GeneratedAt:   now.Format(time.RFC3339),
		Scores: render.Scores{
			Environmental:  scores.Environmental,
			Social:         scores.Social,
			Governance:     scores.Governance,
			Overall:        scores.Overall,
			ComplianceRate: scores.ComplianceRate,
			TotalEntries:   scores.TotalEntries,
		},
		Emissions: render.Emissions{
			Scope1: lookup(latest, emissionsdomain.MetricScope1),
			Scope2: lookup(latest, emissionsdomain.MetricScope2),
			Scope3: lookup(latest, emissionsdomain.MetricScope3),
			Total:  lookup(latest, emissionsdomain.MetricTotal),
		},
		DocumentsByStatus: byStatus,
		Frameworks:        frameworks,
		Metrics:           listing,
	}, nil
}

func lookup(values map[string]float64, name string) *float64 {
	v, ok := values[name]
	if !ok {
		return nil
	}
	return &v
}

func generatorFromContext(ctx context.Context) string {
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

func reportFilename(year *int, createdAt time.Time) string {
	if year != nil {
		return fmt.Sprintf("esg-report-%d.pdf", *year)
	}
	return "esg-report-" + createdAt.UTC().Format("20060102") + ".pdf"
}

func toResponse(e *reportdomain.ReportExport) reportdomain.Response {
	return reportdomain.Response{
		ID:            e.ID.String(),
		CompanyID:     e.CompanyID.String(),
		ReportingYear: e.ReportingYear,
		StorageKind:   e.StorageKind,
		ContentHash:   e.ContentHash,
		SizeBytes:     e.SizeBytes,
		GeneratedBy:   e.GeneratedBy,
		CreatedAt:     e.CreatedAt,
	}
}

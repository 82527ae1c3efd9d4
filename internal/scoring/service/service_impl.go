package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/greenledger/internal/clock"
	"github.com/smallbiznis/greenledger/internal/companyctx"
	compliancedomain "github.com/smallbiznis/greenledger/internal/compliance/domain"
	"github.com/smallbiznis/greenledger/internal/config"
	"github.com/smallbiznis/greenledger/internal/kpiexport"
	metricdomain "github.com/smallbiznis/greenledger/internal/metric/domain"
	obsmetrics "github.com/smallbiznis/greenledger/internal/observability/metrics"
	scoringdomain "github.com/smallbiznis/greenledger/internal/scoring/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Repo           scoringdomain.Repository
	MetricRepo     metricdomain.Repository
	ComplianceRepo compliancedomain.Repository
	Scoring        *config.ScoringConfigHolder
	Metrics        *obsmetrics.Metrics `optional:"true"`
	Gauges         *kpiexport.Gauges   `optional:"true"`
	Clock          clock.Clock         `optional:"true"`
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	repo           scoringdomain.Repository
	metricRepo     metricdomain.Repository
	complianceRepo compliancedomain.Repository
	scoring        *config.ScoringConfigHolder
	metrics        *obsmetrics.Metrics
	gauges         *kpiexport.Gauges
	clock          clock.Clock
}

func New(p Params) scoringdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("scoring.service"),
		genID:          p.GenID,
		repo:           p.Repo,
		metricRepo:     p.MetricRepo,
		complianceRepo: p.ComplianceRepo,
		scoring:        p.Scoring,
		metrics:        p.Metrics,
		gauges:         p.Gauges,
		clock:          clk,
	}
}

func (s *Service) Calculate(ctx context.Context, req scoringdomain.CalculateRequest) (*scoringdomain.Response, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, scoringdomain.ErrInvalidCompany
	}
	now := s.clock.Now().UTC()
	if req.ReportingYear != nil {
		year := *req.ReportingYear
		if year < metricdomain.MinReportingYear || year > now.Year()+1 {
			return nil, scoringdomain.ErrInvalidYear
		}
	}

	records, err := s.metricRepo.ListForScoring(ctx, s.db, companyID, req.ReportingYear)
	if err != nil {
		return nil, err
	}
	documents, err := s.complianceRepo.List(ctx, s.db, compliancedomain.ListFilter{CompanyID: companyID})
	if err != nil {
		return nil, err
	}

	records = ScoringRecords(records)
	applied := ApplyDefaultTargets(records, s.scoring.Get())
	scores := scoringdomain.ComputeScores(records, documents)

	snapshot := &scoringdomain.ScoreSnapshot{
		ID:                 s.genID.Generate(),
		CompanyID:          companyID,
		ReportingYear:      req.ReportingYear,
		EnvironmentalScore: scores.Environmental,
		SocialScore:        scores.Social,
		GovernanceScore:    scores.Governance,
		OverallScore:       scores.Overall,
		ComplianceRate:     scores.ComplianceRate,
		TotalEntries:       scores.TotalEntries,
		CalculatedAt:       now,
	}
	if err := s.repo.Insert(ctx, s.db, snapshot); err != nil {
		return nil, err
	}

	s.metrics.RecordScoreCalculation(ctx, companyID.String())
	if req.ReportingYear == nil {
		s.gauges.SetScores(companyID.String(), kpiexport.ScoreValues{
			Environmental:  scores.Environmental,
			Social:         scores.Social,
			Governance:     scores.Governance,
			Overall:        scores.Overall,
			ComplianceRate: scores.ComplianceRate,
			CalculatedUnix: now.Unix(),
		})
	}
	s.log.Debug("scores calculated",
		zap.String("company_id", companyID.String()),
		zap.Int("records", len(records)),
		zap.Int("default_targets_applied", applied),
		zap.Float64("overall", scores.Overall),
	)

	resp := toResponse(snapshot)
	resp.EntriesByCategory = scores.EntriesByCategory
	resp.DefaultTargetsApplied = applied
	return &resp, nil
}

func (s *Service) Latest(ctx context.Context) (*scoringdomain.Response, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, scoringdomain.ErrInvalidCompany
	}
	snapshot, err := s.repo.Latest(ctx, s.db, companyID)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, scoringdomain.ErrNotFound
	}
	resp := toResponse(snapshot)
	return &resp, nil
}

func (s *Service) History(ctx context.Context, limit int) ([]scoringdomain.Response, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, scoringdomain.ErrInvalidCompany
	}
	switch {
	case limit <= 0:
		limit = scoringdomain.DefaultHistoryLimit
	case limit > scoringdomain.MaxHistoryLimit:
		limit = scoringdomain.MaxHistoryLimit
	}

	snapshots, err := s.repo.History(ctx, s.db, companyID, limit)
	if err != nil {
		return nil, err
	}
	resp := make([]scoringdomain.Response, 0, len(snapshots))
	for i := range snapshots {
		resp = append(resp, toResponse(&snapshots[i]))
	}
	return resp, nil
}

// ScoringRecords returns a copy of records without the emissions
// calculator's scope totals. Those are absolute tCO2e figures where lower is
// better, which the value/target ratio cannot score.
func ScoringRecords(records []metricdomain.MetricRecord) []metricdomain.MetricRecord {
	out := make([]metricdomain.MetricRecord, 0, len(records))
	for _, record := range records {
		if record.Source == metricdomain.SourceEmissionsCalculator {
			continue
		}
		out = append(out, record)
	}
	return out
}

// ApplyDefaultTargets fills in the configured target for records that carry
// none and reports how many records were changed. A record's own target is
// never replaced.
func ApplyDefaultTargets(records []metricdomain.MetricRecord, cfg config.ScoringConfig) int {
	applied := 0
	for i := range records {
		if records[i].Target != nil {
			continue
		}
		target, ok := cfg.TargetFor(records[i].MetricName)
		if !ok {
			continue
		}
		records[i].Target = &target
		applied++
	}
	return applied
}

func toResponse(s *scoringdomain.ScoreSnapshot) scoringdomain.Response {
	return scoringdomain.Response{
		ID:             s.ID.String(),
		CompanyID:      s.CompanyID.String(),
		ReportingYear:  s.ReportingYear,
		Environmental:  s.EnvironmentalScore,
		Social:         s.SocialScore,
		Governance:     s.GovernanceScore,
		Overall:        s.OverallScore,
		ComplianceRate: s.ComplianceRate,
		TotalEntries:   s.TotalEntries,
		CalculatedAt:   s.CalculatedAt,
	}
}

package service

import (
	"context"

	auditdomain "github.com/smallbiznis/greenledger/internal/audit/domain"
	"github.com/smallbiznis/greenledger/internal/clock"
	companydomain "github.com/smallbiznis/greenledger/internal/company/domain"
	"github.com/smallbiznis/greenledger/internal/companyctx"
	emissionsdomain "github.com/smallbiznis/greenledger/internal/emissions/domain"
	"github.com/smallbiznis/greenledger/internal/kpiexport"
	metricdomain "github.com/smallbiznis/greenledger/internal/metric/domain"
	obsmetrics "github.com/smallbiznis/greenledger/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	CompanyRepo companydomain.Repository
	MetricSvc   metricdomain.Service
	AuditSvc    auditdomain.Service `optional:"true"`
	Metrics     *obsmetrics.Metrics `optional:"true"`
	Gauges      *kpiexport.Gauges   `optional:"true"`
	Clock       clock.Clock         `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	companyRepo companydomain.Repository
	metricSvc   metricdomain.Service
	auditSvc    auditdomain.Service
	metrics     *obsmetrics.Metrics
	gauges      *kpiexport.Gauges
	clock       clock.Clock
}

func New(p Params) emissionsdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("emissions.service"),
		companyRepo: p.CompanyRepo,
		metricSvc:   p.MetricSvc,
		auditSvc:    p.AuditSvc,
		metrics:     p.Metrics,
		gauges:      p.Gauges,
		clock:       clk,
	}
}

func (s *Service) Factors() emissionsdomain.FactorTable {
	return emissionsdomain.Factors()
}

// Calculate runs the calculator with the company's region and denominators
// filling whatever the request leaves out.
func (s *Service) Calculate(ctx context.Context, req emissionsdomain.CalculateRequest) (*emissionsdomain.CalculateResponse, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, emissionsdomain.ErrInvalidCompany
	}

	now := s.clock.Now().UTC()
	year := req.ReportingYear
	if year == 0 {
		year = now.Year()
	}
	if year < metricdomain.MinReportingYear || year > now.Year()+1 {
		return nil, emissionsdomain.ErrInvalidYear
	}

	company, err := s.companyRepo.FindByID(ctx, s.db, companyID)
	if err != nil {
		return nil, err
	}

	activity := req.Activity
	region := req.Region
	if company != nil {
		if region == "" {
			region = company.Region
		}
		if activity.Revenue == nil {
			activity.Revenue = company.AnnualRevenue
		}
		if activity.Employees == nil && company.Employees != nil {
			employees := float64(*company.Employees)
			activity.Employees = &employees
		}
		if activity.ProductionUnits == nil {
			activity.ProductionUnits = company.ProductionUnits
		}
	}

	breakdown := emissionsdomain.ComputeEmissions(activity, region)
	resp := &emissionsdomain.CalculateResponse{
		Breakdown:     breakdown,
		ReportingYear: year,
	}

	if req.Record {
		ids, err := s.record(ctx, breakdown, year)
		if err != nil {
			return nil, err
		}
		resp.Recorded = true
		resp.MetricIDs = ids
		s.gauges.SetEmissions(companyID.String(), kpiexport.EmissionValues{
			Scope1: breakdown.Scope1Total,
			Scope2: breakdown.Scope2Total,
			Scope3: breakdown.Scope3Total,
			Total:  breakdown.Total,
		})
		if s.auditSvc != nil {
			targetID := companyID.String()
			_ = s.auditSvc.AuditLog(ctx, &companyID, "", nil, auditdomain.ActionEmissionsRecorded, "company", &targetID, map[string]any{
				"reporting_year": year,
				"region":         breakdown.Region,
				"total":          breakdown.Total,
			})
		}
	}

	s.metrics.RecordEmissionsCalculation(ctx, breakdown.Region, req.Record)
	s.log.Debug("emissions calculated",
		zap.String("company_id", companyID.String()),
		zap.String("region", breakdown.Region),
		zap.Float64("total", breakdown.Total),
		zap.Int("warnings", len(breakdown.Warnings)),
		zap.Bool("recorded", req.Record),
	)
	return resp, nil
}

func (s *Service) record(ctx context.Context, breakdown emissionsdomain.Breakdown, year int) ([]string, error) {
	totals := []struct {
		name  string
		value float64
	}{
		{emissionsdomain.MetricScope1, breakdown.Scope1Total},
		{emissionsdomain.MetricScope2, breakdown.Scope2Total},
		{emissionsdomain.MetricScope3, breakdown.Scope3Total},
		{emissionsdomain.MetricTotal, breakdown.Total},
	}

	reqs := make([]metricdomain.SubmitRequest, 0, len(totals))
	for _, total := range totals {
		value := total.value
		reqs = append(reqs, metricdomain.SubmitRequest{
			Category:      metricdomain.CategoryEnvironmental,
			MetricName:    total.name,
			Value:         &value,
			Unit:          emissionsdomain.UnitTCO2e,
			ReportingYear: year,
			Source:        metricdomain.SourceEmissionsCalculator,
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

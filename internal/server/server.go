package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/greenledger/internal/apikey"
	apikeydomain "github.com/smallbiznis/greenledger/internal/apikey/domain"
	"github.com/smallbiznis/greenledger/internal/audit"
	auditdomain "github.com/smallbiznis/greenledger/internal/audit/domain"
	"github.com/smallbiznis/greenledger/internal/authorization"
	"github.com/smallbiznis/greenledger/internal/cache"
	"github.com/smallbiznis/greenledger/internal/company"
	companydomain "github.com/smallbiznis/greenledger/internal/company/domain"
	"github.com/smallbiznis/greenledger/internal/compliance"
	compliancedomain "github.com/smallbiznis/greenledger/internal/compliance/domain"
	"github.com/smallbiznis/greenledger/internal/config"
	"github.com/smallbiznis/greenledger/internal/emissions"
	emissionsdomain "github.com/smallbiznis/greenledger/internal/emissions/domain"
	"github.com/smallbiznis/greenledger/internal/integration"
	integrationdomain "github.com/smallbiznis/greenledger/internal/integration/domain"
	"github.com/smallbiznis/greenledger/internal/kpiexport"
	"github.com/smallbiznis/greenledger/internal/metric"
	metricdomain "github.com/smallbiznis/greenledger/internal/metric/domain"
	"github.com/smallbiznis/greenledger/internal/observability"
	obslogger "github.com/smallbiznis/greenledger/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/greenledger/internal/observability/metrics"
	obstracing "github.com/smallbiznis/greenledger/internal/observability/tracing"
	"github.com/smallbiznis/greenledger/internal/report"
	reportdomain "github.com/smallbiznis/greenledger/internal/report/domain"
	"github.com/smallbiznis/greenledger/internal/scoring"
	scoringdomain "github.com/smallbiznis/greenledger/internal/scoring/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	cache.Module,
	kpiexport.Module,
	authorization.Module,
	audit.Module,
	apikey.Module,
	company.Module,
	metric.Module,
	scoring.Module,
	emissions.Module,
	compliance.Module,
	integration.Module,
	report.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, gauges *kpiexport.Gauges) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	gatherers := prometheus.Gatherers{prometheus.DefaultGatherer}
	if gauges != nil {
		gatherers = append(gatherers, gauges.Registry())
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{})))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, gauges *kpiexport.Gauges) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics, gauges)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	log            *zap.Logger
	apiKeySvc      apikeydomain.Service
	authzSvc       authorization.Service
	auditSvc       auditdomain.Service
	companySvc     companydomain.Service
	metricSvc      metricdomain.Service
	scoringSvc     scoringdomain.Service
	emissionsSvc   emissionsdomain.Service
	complianceSvc  compliancedomain.Service
	integrationSvc integrationdomain.Service
	reportSvc      reportdomain.Service
	responseCache  *cache.ResponseCache
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	Log            *zap.Logger
	APIKeySvc      apikeydomain.Service
	AuthzSvc       authorization.Service
	AuditSvc       auditdomain.Service
	CompanySvc     companydomain.Service
	MetricSvc      metricdomain.Service
	ScoringSvc     scoringdomain.Service
	EmissionsSvc   emissionsdomain.Service
	ComplianceSvc  compliancedomain.Service
	IntegrationSvc integrationdomain.Service
	ReportSvc      reportdomain.Service
	ResponseCache  *cache.ResponseCache `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		log:            p.Log.Named("http"),
		apiKeySvc:      p.APIKeySvc,
		authzSvc:       p.AuthzSvc,
		auditSvc:       p.AuditSvc,
		companySvc:     p.CompanySvc,
		metricSvc:      p.MetricSvc,
		scoringSvc:     p.ScoringSvc,
		emissionsSvc:   p.EmissionsSvc,
		complianceSvc:  p.ComplianceSvc,
		integrationSvc: p.IntegrationSvc,
		reportSvc:      p.ReportSvc,
		responseCache:  p.ResponseCache,
	}

	svc.registerAdminRoutes()
	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin", s.AdminTokenRequired())

	admin.POST("/companies", s.OnboardCompany)
	admin.GET("/companies", s.ListCompanies)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.APIKeyRequired())

	// -------- Company --------
	api.GET("/company", s.authorize(authorization.ObjectCompany, authorization.ActionCompanyView), s.GetCompany)
	api.PATCH("/company", s.authorize(authorization.ObjectCompany, authorization.ActionCompanyUpdate), s.UpdateCompany)

	// -------- Metrics --------
	api.GET("/metrics", s.authorize(authorization.ObjectMetric, authorization.ActionMetricView), s.ListMetrics)
	api.POST("/metrics", s.authorize(authorization.ObjectMetric, authorization.ActionMetricSubmit), s.SubmitMetric)
	api.POST("/metrics/batch", s.authorize(authorization.ObjectMetric, authorization.ActionMetricSubmit), s.SubmitMetricBatch)
	api.GET("/metrics/:id", s.authorize(authorization.ObjectMetric, authorization.ActionMetricView), s.GetMetricByID)

	// -------- KPIs --------
	api.GET("/kpis", s.authorize(authorization.ObjectKPI, authorization.ActionKPIView), s.ResponseCache(), s.GetKPIs)
	api.POST("/kpis/calculate", s.authorize(authorization.ObjectKPI, authorization.ActionKPICalculate), s.CalculateKPIs)
	api.GET("/kpis/latest", s.authorize(authorization.ObjectKPI, authorization.ActionKPIView), s.GetLatestKPIs)
	api.GET("/kpis/history", s.authorize(authorization.ObjectKPI, authorization.ActionKPIView), s.ListKPIHistory)

	// -------- Emissions --------
	api.POST("/emissions/calculate", s.authorize(authorization.ObjectEmissions, authorization.ActionEmissionsCalculate), s.CalculateEmissions)
	api.GET("/emissions/factors", s.authorize(authorization.ObjectEmissions, authorization.ActionEmissionsCalculate), s.ListEmissionFactors)

	// -------- Compliance --------
	api.GET("/compliance/documents", s.authorize(authorization.ObjectCompliance, authorization.ActionComplianceView), s.ListComplianceDocuments)
	api.POST("/compliance/documents", s.authorize(authorization.ObjectCompliance, authorization.ActionComplianceCreate), s.CreateComplianceDocument)
	api.GET("/compliance/documents/overdue", s.authorize(authorization.ObjectCompliance, authorization.ActionComplianceView), s.ListOverdueComplianceDocuments)
	api.GET("/compliance/documents/:id", s.authorize(authorization.ObjectCompliance, authorization.ActionComplianceView), s.GetComplianceDocument)
	api.POST("/compliance/documents/:id/review", s.authorize(authorization.ObjectCompliance, authorization.ActionComplianceReview), s.ReviewComplianceDocument)
	api.GET("/frameworks", s.authorize(authorization.ObjectCompliance, authorization.ActionComplianceView), s.ListFrameworks)
	api.GET("/frameworks/:code/coverage", s.authorize(authorization.ObjectCompliance, authorization.ActionComplianceView), s.GetFrameworkCoverage)

	// -------- Integrations --------
	api.GET("/integrations", s.authorize(authorization.ObjectIntegration, authorization.ActionIntegrationView), s.ListIntegrations)
	api.POST("/integrations", s.authorize(authorization.ObjectIntegration, authorization.ActionIntegrationManage), s.CreateIntegration)
	api.POST("/integrations/:id/disable", s.authorize(authorization.ObjectIntegration, authorization.ActionIntegrationManage), s.DisableIntegration)
	api.POST("/integrations/:id/sync", s.authorize(authorization.ObjectIntegration, authorization.ActionIntegrationSync), s.SyncIntegration)
	api.GET("/integrations/:id/runs", s.authorize(authorization.ObjectIntegration, authorization.ActionIntegrationView), s.ListIntegrationRuns)

	// -------- Reports --------
	api.GET("/reports/esg.pdf", s.authorize(authorization.ObjectReport, authorization.ActionReportView), s.StreamESGReport)
	api.GET("/reports", s.authorize(authorization.ObjectReport, authorization.ActionReportView), s.ListReports)
	api.POST("/reports", s.authorize(authorization.ObjectReport, authorization.ActionReportGenerate), s.GenerateReport)
	api.GET("/reports/:id/download", s.authorize(authorization.ObjectReport, authorization.ActionReportView), s.DownloadReport)

	// -------- API keys --------
	api.GET("/api-keys", s.authorize(authorization.ObjectAPIKey, authorization.ActionAPIKeyView), s.ListAPIKeys)
	api.POST("/api-keys", s.authorize(authorization.ObjectAPIKey, authorization.ActionAPIKeyCreate), s.CreateAPIKey)
	api.POST("/api-keys/:key_id/rotate", s.authorize(authorization.ObjectAPIKey, authorization.ActionAPIKeyRotate), s.RotateAPIKey)
	api.POST("/api-keys/:key_id/revoke", s.authorize(authorization.ObjectAPIKey, authorization.ActionAPIKeyRevoke), s.RevokeAPIKey)

	// -------- Audit --------
	api.GET("/audit-logs", s.authorize(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}

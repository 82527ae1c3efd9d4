package kpiexport

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Gauges holds the per-company KPI series that are pushed to an external
// Prometheus-compatible store.
type Gauges struct {
	registry       *prometheus.Registry
	score          *prometheus.GaugeVec
	complianceRate *prometheus.GaugeVec
	emissions      *prometheus.GaugeVec
	calculatedAt   *prometheus.GaugeVec
}

func NewGauges(registry *prometheus.Registry) *Gauges {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	g := &Gauges{
		registry: registry,
		score: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "greenledger_esg_score",
			Help: "Latest ESG score per company and category (0-100).",
		}, []string{"company_id", "category"}),
		complianceRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "greenledger_compliance_rate",
			Help: "Share of approved compliance documents per company (0-100).",
		}, []string{"company_id"}),
		emissions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "greenledger_emissions_tco2e",
			Help: "Latest recorded emissions per company and scope in tCO2e.",
		}, []string{"company_id", "scope"}),
		calculatedAt: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "greenledger_score_calculated_timestamp_seconds",
			Help: "Unix time of the latest score calculation per company.",
		}, []string{"company_id"}),
	}
	registry.MustRegister(g.score, g.complianceRate, g.emissions, g.calculatedAt)
	return g
}

func (g *Gauges) Registry() *prometheus.Registry {
	if g == nil {
		return nil
	}
	return g.registry
}

type ScoreValues struct {
	Environmental  float64
	Social         float64
	Governance     float64
	Overall        float64
	ComplianceRate float64
	CalculatedUnix int64
}

func (g *Gauges) SetScores(companyID string, v ScoreValues) {
	if g == nil || companyID == "" {
		return
	}
	g.score.WithLabelValues(companyID, "environmental").Set(v.Environmental)
	g.score.WithLabelValues(companyID, "social").Set(v.Social)
	g.score.WithLabelValues(companyID, "governance").Set(v.Governance)
	g.score.WithLabelValues(companyID, "overall").Set(v.Overall)
	g.complianceRate.WithLabelValues(companyID).Set(v.ComplianceRate)
	if v.CalculatedUnix > 0 {
		g.calculatedAt.WithLabelValues(companyID).Set(float64(v.CalculatedUnix))
	}
}

type EmissionValues struct {
	Scope1 float64
	Scope2 float64
	Scope3 float64
	Total  float64
}

func (g *Gauges) SetEmissions(companyID string, v EmissionValues) {
	if g == nil || companyID == "" {
		return
	}
	g.emissions.WithLabelValues(companyID, "scope1").Set(v.Scope1)
	g.emissions.WithLabelValues(companyID, "scope2").Set(v.Scope2)
	g.emissions.WithLabelValues(companyID, "scope3").Set(v.Scope3)
	g.emissions.WithLabelValues(companyID, "total").Set(v.Total)
}

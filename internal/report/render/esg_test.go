package render

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestESGReportProducesPDF(t *testing.T) {
	total := 120.5
	target := 100.0
	data := ReportData{
		CompanyName:   "Acme",
		Region:        "US",
		ReportingYear: "2024",
		GeneratedAt:   "2025-01-01T00:00:00Z",
		Scores:        Scores{Environmental: 60, Overall: 20, TotalEntries: 2},
		Emissions:     Emissions{Total: &total},
		DocumentsByStatus: map[string]int{
			"Approved":       1,
			"Pending Review": 2,
		},
		Frameworks: []FrameworkCoverage{{Code: "GRI", Name: "Global Reporting Initiative", CoveragePercent: 50, Covered: 2, Requirements: 4}},
		Metrics: []MetricRow{
			{Category: "environmental", MetricName: "renewable_energy_share", Value: 80, Unit: "%", Target: &target, Year: 2024, Source: "manual"},
		},
	}

	pdf, err := ESGReport(data)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestESGReportHandlesEmptyData(t *testing.T) {
	pdf, err := ESGReport(ReportData{CompanyName: "Empty Co", ReportingYear: "all"})
	require.NoError(t, err)
	assert.NotEmpty(t, pdf)
}

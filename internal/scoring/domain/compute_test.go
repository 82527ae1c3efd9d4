package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	compliancedomain "github.com/smallbiznis/greenledger/internal/compliance/domain"
	metricdomain "github.com/smallbiznis/greenledger/internal/metric/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func record(category string, value float64, target *float64) metricdomain.MetricRecord {
	return metricdomain.MetricRecord{Category: category, MetricName: "m", Value: value, Unit: "u", Target: target, ReportingYear: 2024}
}

func TestComputeScoresEmptyInput(t *testing.T) {
	got := ComputeScores(nil, nil)
	assert.Zero(t, got.Environmental)
	assert.Zero(t, got.Social)
	assert.Zero(t, got.Governance)
	assert.Zero(t, got.Overall)
	assert.Zero(t, got.ComplianceRate)
	assert.Zero(t, got.TotalEntries)
}

func TestComputeScoresTargetRatioMean(t *testing.T) {
	got := ComputeScores([]metricdomain.MetricRecord{
		record(metricdomain.CategoryEnvironmental, 80, f(100)),
		record(metricdomain.CategoryEnvironmental, 40, f(100)),
	}, nil)

	assert.Equal(t, 60.0, got.Environmental)
	assert.Zero(t, got.Overall, "overall stays 0 while social and governance are empty")
	assert.Equal(t, 2, got.TotalEntries)
}

func TestComputeScoresClampsAndFallsBackToRawValue(t *testing.T) {
	got := ComputeScores([]metricdomain.MetricRecord{
		record(metricdomain.CategoryEnvironmental, 250, f(100)),
		record(metricdomain.CategoryEnvironmental, -5, f(100)),
		record(metricdomain.CategorySocial, 33.333, nil),
		record(metricdomain.CategoryGovernance, 90, f(120)),
		record(metricdomain.CategoryGovernance, math.NaN(), f(100)),
		record("economic", 10, nil),
	}, nil)

	assert.Equal(t, 50.0, got.Environmental)
	assert.Equal(t, 33.33, got.Social)
	assert.Equal(t, 75.0, got.Governance)
	assert.Equal(t, 52.78, got.Overall)
	assert.Equal(t, 4, got.TotalEntries)
	assert.Equal(t, 1, got.EntriesByCategory[metricdomain.CategoryGovernance])
}

func TestComplianceRate(t *testing.T) {
	docs := []compliancedomain.Document{
		{Status: compliancedomain.StatusApproved},
		{Status: compliancedomain.StatusApproved},
		{Status: compliancedomain.StatusPendingReview},
	}
	assert.Equal(t, 67.0, ComplianceRate(docs))
	assert.Equal(t, 0.0, ComplianceRate(nil))

	got := ComputeScores(nil, docs)
	assert.Equal(t, 67.0, got.ComplianceRate)
}

func TestComputeScoresJSONRoundTrip(t *testing.T) {
	records := []metricdomain.MetricRecord{
		{ID: 11, CompanyID: 7, Category: metricdomain.CategoryEnvironmental, MetricName: "renewable_energy_share", Value: 63.2, Unit: "%", Target: f(80), ReportingYear: 2024, Source: metricdomain.SourceManual},
		{ID: 12, CompanyID: 7, Category: metricdomain.CategorySocial, MetricName: "employee_training_hours", Value: 18, Unit: "h", Target: f(40), ReportingYear: 2024, Source: metricdomain.SourceHR},
		{ID: 13, CompanyID: 7, Category: metricdomain.CategoryGovernance, MetricName: "board_independence", Value: 71.5, Unit: "%", ReportingYear: 2024, Source: metricdomain.SourceManual},
	}
	docs := []compliancedomain.Document{{ID: 1, Status: compliancedomain.StatusApproved}, {ID: 2, Status: compliancedomain.StatusRejected}}

	want := ComputeScores(records, docs)

	raw, err := json.Marshal(records)
	require.NoError(t, err)
	var decoded []metricdomain.MetricRecord
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, want, ComputeScores(decoded, docs))
}

func TestCategoryScoresStayWithinBoundsWhenTargetsPresent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("category scores are within [0,100]", prop.ForAll(
		func(values []float64, targets []float64, categories []int) bool {
			n := len(values)
			if len(targets) < n {
				n = len(targets)
			}
			if len(categories) < n {
				n = len(categories)
			}
			if n == 0 {
				return true
			}

			records := make([]metricdomain.MetricRecord, 0, n)
			for i := 0; i < n; i++ {
				category := metricdomain.Categories[categories[i]]
				records = append(records, record(category, values[i], f(targets[i])))
			}

			got := ComputeScores(records, nil)
			for _, score := range []float64{got.Environmental, got.Social, got.Governance, got.Overall} {
				if score < 0 || score > 100 {
					return false
				}
			}
			return got.TotalEntries == n
		},
		gen.SliceOf(gen.Float64Range(-1e9, 1e9)),
		gen.SliceOf(gen.Float64Range(0.001, 1e9)),
		gen.SliceOf(gen.IntRange(0, 2)),
	))

	properties.TestingRun(t)
}

func TestComputeScoresMatchesCategoryCaseInsensitively(t *testing.T) {
	got := ComputeScores([]metricdomain.MetricRecord{
		record("Environmental", 80, f(100)),
		record(" SOCIAL ", 60, f(100)),
		record("governance", 40, f(100)),
	}, nil)

	assert.Equal(t, 80.0, got.Environmental)
	assert.Equal(t, 60.0, got.Social)
	assert.Equal(t, 60.0, got.Overall)
	assert.Equal(t, 3, got.TotalEntries)
}

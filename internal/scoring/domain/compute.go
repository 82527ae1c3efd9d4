package domain

import (
	"math"

	compliancedomain "github.com/smallbiznis/greenledger/internal/compliance/domain"
	metricdomain "github.com/smallbiznis/greenledger/internal/metric/domain"
)

// Scores is the output of ComputeScores. All values are rounded to two
// decimals.
type Scores struct {
	Environmental  float64 `json:"environmental_score" yaml:"environmental_score"`
	Social         float64 `json:"social_score" yaml:"social_score"`
	Governance     float64 `json:"governance_score" yaml:"governance_score"`
	Overall        float64 `json:"overall_score" yaml:"overall_score"`
	ComplianceRate float64 `json:"compliance_rate" yaml:"compliance_rate"`
	TotalEntries   int     `json:"total_entries" yaml:"total_entries"`
	// EntriesByCategory counts the records that contributed to each score.
	EntriesByCategory map[string]int `json:"entries_by_category" yaml:"entries_by_category"`
}

// ComputeScores aggregates metric records and compliance documents into
// category, overall and compliance scores.
//
// A record with a positive target contributes clamp(value/target*100, 0, 100);
// a record without one contributes its raw value. Records with a NaN or
// infinite value, or an unknown category, are skipped; category names are
// matched case-insensitively. The overall score is the mean of the three
// category scores, or 0 unless every category has at least one entry.
func ComputeScores(records []metricdomain.MetricRecord, documents []compliancedomain.Document) Scores {
	sums := map[string]float64{}
	counts := map[string]int{}

	for _, record := range records {
		category := metricdomain.NormalizeCategory(record.Category)
		if !metricdomain.IsValidCategory(category) {
			continue
		}
		contribution, ok := contributionOf(record)
		if !ok {
			continue
		}
		sums[category] += contribution
		counts[category]++
	}

	mean := func(category string) float64 {
		if counts[category] == 0 {
			return 0
		}
		return sums[category] / float64(counts[category])
	}

	env := mean(metricdomain.CategoryEnvironmental)
	soc := mean(metricdomain.CategorySocial)
	gov := mean(metricdomain.CategoryGovernance)

	var overall float64
	if counts[metricdomain.CategoryEnvironmental] > 0 &&
		counts[metricdomain.CategorySocial] > 0 &&
		counts[metricdomain.CategoryGovernance] > 0 {
		overall = (env + soc + gov) / 3
	}

	total := 0
	entries := make(map[string]int, len(metricdomain.Categories))
	for _, category := range metricdomain.Categories {
		entries[category] = counts[category]
		total += counts[category]
	}

	return Scores{
		Environmental:     metricdomain.Round2(env),
		Social:            metricdomain.Round2(soc),
		Governance:        metricdomain.Round2(gov),
		Overall:           metricdomain.Round2(overall),
		ComplianceRate:    ComplianceRate(documents),
		TotalEntries:      total,
		EntriesByCategory: entries,
	}
}

// ComplianceRate is round(100 * approved / total), or 0 without documents.
func ComplianceRate(documents []compliancedomain.Document) float64 {
	if len(documents) == 0 {
		return 0
	}
	approved := 0
	for _, doc := range documents {
		if doc.Status == compliancedomain.StatusApproved {
			approved++
		}
	}
	return math.Round(100 * float64(approved) / float64(len(documents)))
}

func contributionOf(record metricdomain.MetricRecord) (float64, bool) {
	if math.IsNaN(record.Value) || math.IsInf(record.Value, 0) {
		return 0, false
	}
	if record.Target == nil {
		return record.Value, true
	}
	target := *record.Target
	if target <= 0 || math.IsNaN(target) || math.IsInf(target, 0) {
		return record.Value, true
	}
	return clamp(record.Value/target*100, 0, 100), true
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

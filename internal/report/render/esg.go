// Package render lays out the ESG report PDF.
package render

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// maxMetricRows caps the metric listing appendix.
const maxMetricRows = 200

type ReportData struct {
	CompanyName   string
	Industry      string
	Region        string
	ReportingYear string
	GeneratedAt   string

	Scores    Scores
	Emissions Emissions

	DocumentsByStatus map[string]int
	Frameworks        []FrameworkCoverage
	Metrics           []MetricRow
}

type Scores struct {
	Environmental  float64
	Social         float64
	Governance     float64
	Overall        float64
	ComplianceRate float64
	TotalEntries   int
}

// Emissions holds the latest recorded totals in tCO2e. Nil means no record.
type Emissions struct {
	Scope1 *float64
	Scope2 *float64
	Scope3 *float64
	Total  *float64
}

type FrameworkCoverage struct {
	Code            string
	Name            string
	CoveragePercent float64
	Covered         int
	Requirements    int
}

type MetricRow struct {
	Category   string
	MetricName string
	Value      float64
	Unit       string
	Target     *float64
	Year       int
	Source     string
}

var (
	titleStyle   = props.Text{Size: 20, Style: fontstyle.Bold, Align: align.Left}
	sectionStyle = props.Text{Size: 13, Style: fontstyle.Bold, Top: 4}
	headerStyle  = props.Text{Size: 9, Style: fontstyle.Bold}
	cellStyle    = props.Text{Size: 9}
	numberHeader = props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}
	numberCell   = props.Text{Size: 9, Align: align.Right}
)

// ESGReport renders the report and returns the PDF bytes.
func ESGReport(data ReportData) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	addHeader(m, data)
	addScores(m, data.Scores)
	addEmissions(m, data.Emissions)
	addCompliance(m, data.DocumentsByStatus)
	addFrameworks(m, data.Frameworks)
	addMetrics(m, data.Metrics)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

func addHeader(m core.Maroto, data ReportData) {
	m.AddRow(12, text.NewCol(12, "ESG Report", titleStyle))
	m.AddRow(20,
		col.New(6).Add(
			text.New(data.CompanyName, props.Text{Size: 12, Style: fontstyle.Bold}),
			text.New("Industry: "+orDash(data.Industry), props.Text{Top: 6, Size: 9}),
			text.New("Region: "+orDash(data.Region), props.Text{Top: 10, Size: 9}),
		),
		col.New(6).Add(
			text.New("Reporting year: "+data.ReportingYear, props.Text{Size: 9, Align: align.Right}),
			text.New("Generated: "+data.GeneratedAt, props.Text{Top: 4, Size: 9, Align: align.Right}),
		),
	)
}

func addScores(m core.Maroto, s Scores) {
	m.AddRow(12, text.NewCol(12, "Scores", sectionStyle))
	m.AddRow(7,
		text.NewCol(6, "Category", headerStyle),
		text.NewCol(6, "Score (0-100)", numberHeader),
	)
	rows := []struct {
		label string
		value float64
	}{
		{"Environmental", s.Environmental},
		{"Social", s.Social},
		{"Governance", s.Governance},
		{"Overall", s.Overall},
		{"Compliance rate", s.ComplianceRate},
	}
	for _, row := range rows {
		m.AddRow(6,
			text.NewCol(6, row.label, cellStyle),
			text.NewCol(6, formatNumber(row.value), numberCell),
		)
	}
	m.AddRow(6, text.NewCol(12, fmt.Sprintf("Based on %d metric entries.", s.TotalEntries), props.Text{Size: 8, Top: 1}))
}

func addEmissions(m core.Maroto, e Emissions) {
	m.AddRow(12, text.NewCol(12, "Greenhouse gas emissions (tCO2e)", sectionStyle))
	rows := []struct {
		label string
		value *float64
	}{
		{"Scope 1", e.Scope1},
		{"Scope 2", e.Scope2},
		{"Scope 3", e.Scope3},
		{"Total", e.Total},
	}
	for _, row := range rows {
		value := "not reported"
		if row.value != nil {
			value = formatNumber(*row.value)
		}
		m.AddRow(6,
			text.NewCol(6, row.label, cellStyle),
			text.NewCol(6, value, numberCell),
		)
	}
}

func addCompliance(m core.Maroto, byStatus map[string]int) {
	m.AddRow(12, text.NewCol(12, "Compliance documents", sectionStyle))
	if len(byStatus) == 0 {
		m.AddRow(6, text.NewCol(12, "No compliance documents on file.", cellStyle))
		return
	}
	statuses := make([]string, 0, len(byStatus))
	for status := range byStatus {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		m.AddRow(6,
			text.NewCol(6, status, cellStyle),
			text.NewCol(6, strconv.Itoa(byStatus[status]), numberCell),
		)
	}
}

func addFrameworks(m core.Maroto, frameworks []FrameworkCoverage) {
	m.AddRow(12, text.NewCol(12, "Framework coverage", sectionStyle))
	m.AddRow(7,
		text.NewCol(2, "Code", headerStyle),
		text.NewCol(6, "Framework", headerStyle),
		text.NewCol(2, "Requirements", numberHeader),
		text.NewCol(2, "Coverage %", numberHeader),
	)
	for _, fw := range frameworks {
		m.AddRow(6,
			text.NewCol(2, fw.Code, cellStyle),
			text.NewCol(6, fw.Name, cellStyle),
			text.NewCol(2, fmt.Sprintf("%d/%d", fw.Covered, fw.Requirements), numberCell),
			text.NewCol(2, formatNumber(fw.CoveragePercent), numberCell),
		)
	}
}

func addMetrics(m core.Maroto, metrics []MetricRow) {
	m.AddRow(12, text.NewCol(12, "Reported metrics", sectionStyle))
	if len(metrics) == 0 {
		m.AddRow(6, text.NewCol(12, "No metrics reported for this period.", cellStyle))
		return
	}
	m.AddRow(7,
		text.NewCol(2, "Category", headerStyle),
		text.NewCol(4, "Metric", headerStyle),
		text.NewCol(2, "Value", numberHeader),
		text.NewCol(2, "Target", numberHeader),
		text.NewCol(1, "Year", numberHeader),
		text.NewCol(1, "Source", headerStyle),
	)
	for i, row := range metrics {
		if i == maxMetricRows {
			m.AddRow(6, text.NewCol(12, fmt.Sprintf("%d more entries omitted.", len(metrics)-maxMetricRows), props.Text{Size: 8}))
			break
		}
		target := "-"
		if row.Target != nil {
			target = formatNumber(*row.Target)
		}
		m.AddRow(6,
			text.NewCol(2, row.Category, cellStyle),
			text.NewCol(4, row.MetricName, cellStyle),
			text.NewCol(2, formatNumber(row.Value)+" "+row.Unit, numberCell),
			text.NewCol(2, target, numberCell),
			text.NewCol(1, strconv.Itoa(row.Year), numberCell),
			text.NewCol(1, row.Source, props.Text{Size: 7}),
		)
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}

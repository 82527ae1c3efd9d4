package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	emissionsdomain "github.com/smallbiznis/greenledger/internal/emissions/domain"
	scoringdomain "github.com/smallbiznis/greenledger/internal/scoring/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const recordsYAML = `
records:
  - category: environmental
    metric_name: renewable_energy_percentage
    value: 80
    unit: "%"
    reporting_year: 2024
  - category: social
    metric_name: employee_satisfaction
    value: 60
    unit: score
    reporting_year: 2024
  - category: governance
    metric_name: board_independence
    value: 90
    unit: "%"
    reporting_year: 2024
documents:
  - title: GRI 305 disclosure
    framework: GRI
    status: Approved
  - title: TCFD scenario analysis
    framework: TCFD
    status: Pending Review
`

func TestCalcScoresRawTargets(t *testing.T) {
	path := writeFile(t, "records.yaml", recordsYAML)

	out, err := runCLI(t, "", "calc", "scores", "-f", path, "--raw-targets")
	require.NoError(t, err)

	var scores scoringdomain.Scores
	require.NoError(t, json.Unmarshal([]byte(out), &scores))
	assert.Equal(t, 80.0, scores.Environmental)
	assert.Equal(t, 60.0, scores.Social)
	assert.Equal(t, 90.0, scores.Governance)
	assert.Equal(t, 76.67, scores.Overall)
	assert.Equal(t, 50.0, scores.ComplianceRate)
	assert.Equal(t, 3, scores.TotalEntries)
}

func TestCalcScoresFromStdinAsYAML(t *testing.T) {
	out, err := runCLI(t, recordsYAML, "calc", "scores", "-f", "-", "--raw-targets", "--format", "yaml")
	require.NoError(t, err)

	var scores scoringdomain.Scores
	require.NoError(t, yaml.Unmarshal([]byte(out), &scores))
	assert.Equal(t, 76.67, scores.Overall)
}

func TestCalcEmissions(t *testing.T) {
	path := writeFile(t, "activity.yaml", `
region: US
activity:
  fuels:
    diesel: 1000
  electricity_mwh: 100
`)

	out, err := runCLI(t, "", "calc", "emissions", "-f", path, "--region", "EU")
	require.NoError(t, err)

	var breakdown emissionsdomain.Breakdown
	require.NoError(t, json.Unmarshal([]byte(out), &breakdown))
	assert.Equal(t, "EU", breakdown.Region)
	assert.Equal(t, 2680.0, breakdown.Scope1Total)
	assert.Equal(t, 30.0, breakdown.Scope2Total)
	assert.Equal(t, 2710.0, breakdown.Total)
}

func TestCalcRejectsUnknownFormat(t *testing.T) {
	path := writeFile(t, "activity.yaml", "region: EU\n")
	_, err := runCLI(t, "", "calc", "emissions", "-f", path, "--format", "xml")
	assert.Error(t, err)
}

func TestCalcRequiresFile(t *testing.T) {
	_, err := runCLI(t, "", "calc", "scores")
	assert.Error(t, err)
}

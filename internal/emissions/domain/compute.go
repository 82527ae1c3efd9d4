package domain

import (
	"fmt"
	"math"
	"sort"

	metricdomain "github.com/smallbiznis/greenledger/internal/metric/domain"
)

// ActivityData holds the activity quantities for one reporting period.
type ActivityData struct {
	// Fuels maps a fuel name to the quantity burned.
	Fuels             map[string]float64 `json:"fuels,omitempty" yaml:"fuels,omitempty"`
	ProcessEmissions  float64            `json:"process_emissions,omitempty" yaml:"process_emissions,omitempty"`
	FugitiveEmissions float64            `json:"fugitive_emissions,omitempty" yaml:"fugitive_emissions,omitempty"`
	ElectricityMWh    float64            `json:"electricity_mwh,omitempty" yaml:"electricity_mwh,omitempty"`
	SteamMWh          float64            `json:"steam_mwh,omitempty" yaml:"steam_mwh,omitempty"`
	CoolingMWh        float64            `json:"cooling_mwh,omitempty" yaml:"cooling_mwh,omitempty"`
	// Scope3 maps a value-chain category to spend or activity units.
	Scope3          map[string]float64 `json:"scope3,omitempty" yaml:"scope3,omitempty"`
	Revenue         *float64           `json:"revenue,omitempty" yaml:"revenue,omitempty"`
	Employees       *float64           `json:"employees,omitempty" yaml:"employees,omitempty"`
	ProductionUnits *float64           `json:"production_units,omitempty" yaml:"production_units,omitempty"`
}

type Intensity struct {
	PerRevenue        *float64 `json:"per_revenue,omitempty" yaml:"per_revenue,omitempty"`
	PerEmployee       *float64 `json:"per_employee,omitempty" yaml:"per_employee,omitempty"`
	PerProductionUnit *float64 `json:"per_production_unit,omitempty" yaml:"per_production_unit,omitempty"`
}

// Breakdown is the result of ComputeEmissions, in tCO2e rounded to two
// decimals.
type Breakdown struct {
	Scope1Total float64            `json:"scope1_total" yaml:"scope1_total"`
	Scope2Total float64            `json:"scope2_total" yaml:"scope2_total"`
	Scope3Total float64            `json:"scope3_total" yaml:"scope3_total"`
	Total       float64            `json:"total" yaml:"total"`
	BySource    map[string]float64 `json:"by_source" yaml:"by_source"`
	Intensity   Intensity          `json:"intensity" yaml:"intensity"`
	Region      string             `json:"region" yaml:"region"`
	GridFactor  float64            `json:"grid_factor" yaml:"grid_factor"`
	Warnings    []string           `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// ComputeEmissions converts activity data into Scope 1/2/3 emissions using the
// fixed factor tables. It never fails: unusable quantities are treated as 0
// and reported in Warnings.
func ComputeEmissions(activity ActivityData, region string) Breakdown {
	var warnings []string
	sanitize := func(field string, v float64) float64 {
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
			warnings = append(warnings, fmt.Sprintf("%s is not a finite number; treated as 0", field))
			return 0
		case v < 0:
			warnings = append(warnings, fmt.Sprintf("%s is negative; treated as 0", field))
			return 0
		default:
			return v
		}
	}

	bySource := map[string]float64{}

	var scope1 float64
	for _, name := range sortedKeys(activity.Fuels) {
		canonical, factor, ok := fuelFactor(name)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("unknown fuel %q ignored", name))
			continue
		}
		qty := sanitize("fuels."+name, activity.Fuels[name])
		e := qty * factor
		bySource[canonical] += e
		scope1 += e
	}
	process := sanitize("process_emissions", activity.ProcessEmissions)
	fugitive := sanitize("fugitive_emissions", activity.FugitiveEmissions)
	if process > 0 {
		bySource["processEmissions"] = process
	}
	if fugitive > 0 {
		bySource["fugitiveEmissions"] = fugitive
	}
	scope1 += process + fugitive

	resolvedRegion, grid := GridFactor(region)
	electricity := sanitize("electricity_mwh", activity.ElectricityMWh) * grid
	steam := sanitize("steam_mwh", activity.SteamMWh) * SteamFactor
	cooling := sanitize("cooling_mwh", activity.CoolingMWh) * CoolingFactor
	bySource["electricity"] = electricity
	if steam > 0 {
		bySource["steam"] = steam
	}
	if cooling > 0 {
		bySource["cooling"] = cooling
	}
	scope2 := electricity + steam + cooling

	var scope3 float64
	for _, category := range sortedKeys(activity.Scope3) {
		factor, ok := scope3Factor(category)
		if !ok {
			factor = DefaultScope3Factor
			warnings = append(warnings, fmt.Sprintf("scope 3 category %q has no factor; using %.2f", category, DefaultScope3Factor))
		}
		e := sanitize("scope3."+category, activity.Scope3[category]) * factor
		bySource["scope3."+category] += e
		scope3 += e
	}

	total := scope1 + scope2 + scope3

	for key, value := range bySource {
		bySource[key] = metricdomain.Round2(value)
	}

	return Breakdown{
		Scope1Total: metricdomain.Round2(scope1),
		Scope2Total: metricdomain.Round2(scope2),
		Scope3Total: metricdomain.Round2(scope3),
		Total:       metricdomain.Round2(total),
		BySource:    bySource,
		Intensity: Intensity{
			PerRevenue:        intensity(total, activity.Revenue),
			PerEmployee:       intensity(total, activity.Employees),
			PerProductionUnit: intensity(total, activity.ProductionUnits),
		},
		Region:     resolvedRegion,
		GridFactor: grid,
		Warnings:   warnings,
	}
}

func intensity(total float64, denominator *float64) *float64 {
	if denominator == nil {
		return nil
	}
	d := *denominator
	if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return nil
	}
	v := metricdomain.Round2(total / d)
	return &v
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

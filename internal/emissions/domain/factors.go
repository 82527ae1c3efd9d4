package domain

import "strings"

// Fuel emission factors in tCO2e per unit (m³ for natural gas, litres for
// liquid fuels).
var fuelFactors = map[string]float64{
	"naturalgas": 0.0053,
	"diesel":     2.68,
	"gasoline":   2.31,
	"propane":    1.51,
	"heatingoil": 2.52,
}

var fuelNames = map[string]string{
	"naturalgas": "naturalGas",
	"diesel":     "diesel",
	"gasoline":   "gasoline",
	"propane":    "propane",
	"heatingoil": "heatingOil",
}

// Grid electricity factors in tCO2e per MWh.
var gridFactors = map[string]float64{
	"US": 0.4,
	"EU": 0.3,
	"UK": 0.25,
	"CN": 0.6,
	"IN": 0.7,
}

const (
	GlobalRegion     = "Global"
	GlobalGridFactor = 0.5
	SteamFactor      = 0.2
	CoolingFactor    = 0.15
	// DefaultScope3Factor applies to spend categories outside the fixed table.
	DefaultScope3Factor = 0.1
)

// Scope 3 spend/activity factors in tCO2e per unit.
var scope3Factors = map[string]float64{
	"purchasedGoods":      0.5,
	"capitalGoods":        0.4,
	"fuelAndEnergy":       0.3,
	"upstreamTransport":   0.2,
	"waste":               0.1,
	"businessTravel":      0.15,
	"employeeCommuting":   0.12,
	"downstreamTransport": 0.2,
	"useOfSoldProducts":   0.35,
	"endOfLife":           0.08,
}

// FactorTable is the exported view of every constant used by the calculator.
type FactorTable struct {
	Fuels               map[string]float64 `json:"fuels" yaml:"fuels"`
	Grid                map[string]float64 `json:"grid" yaml:"grid"`
	GlobalGridFactor    float64            `json:"global_grid_factor" yaml:"global_grid_factor"`
	Steam               float64            `json:"steam" yaml:"steam"`
	Cooling             float64            `json:"cooling" yaml:"cooling"`
	Scope3              map[string]float64 `json:"scope3" yaml:"scope3"`
	DefaultScope3Factor float64            `json:"default_scope3_factor" yaml:"default_scope3_factor"`
}

func Factors() FactorTable {
	fuels := make(map[string]float64, len(fuelFactors))
	for key, factor := range fuelFactors {
		fuels[fuelNames[key]] = factor
	}
	grid := make(map[string]float64, len(gridFactors))
	for key, factor := range gridFactors {
		grid[key] = factor
	}
	scope3 := make(map[string]float64, len(scope3Factors))
	for key, factor := range scope3Factors {
		scope3[key] = factor
	}
	return FactorTable{
		Fuels:               fuels,
		Grid:                grid,
		GlobalGridFactor:    GlobalGridFactor,
		Steam:               SteamFactor,
		Cooling:             CoolingFactor,
		Scope3:              scope3,
		DefaultScope3Factor: DefaultScope3Factor,
	}
}

// GridFactor resolves a region code case-insensitively, falling back to the
// global factor.
func GridFactor(region string) (string, float64) {
	code := strings.ToUpper(strings.TrimSpace(region))
	if factor, ok := gridFactors[code]; ok {
		return code, factor
	}
	return GlobalRegion, GlobalGridFactor
}

// IsKnownRegion reports whether a region has its own grid factor.
func IsKnownRegion(region string) bool {
	_, ok := gridFactors[strings.ToUpper(strings.TrimSpace(region))]
	return ok
}

func fuelFactor(name string) (string, float64, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer("_", "", "-", "", " ", "").Replace(key)
	factor, ok := fuelFactors[key]
	if !ok {
		return "", 0, false
	}
	return fuelNames[key], factor, true
}

func scope3Factor(category string) (float64, bool) {
	factor, ok := scope3Factors[strings.TrimSpace(category)]
	return factor, ok
}

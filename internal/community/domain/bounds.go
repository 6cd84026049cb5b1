package community

// Bound is the valid range of a field. MinField and MaxField make a bound
// depend on another field of the same document.
type Bound struct {
	Field    string  `json:"field"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	MinField string  `json:"min_field,omitempty"`
	MaxField string  `json:"max_field,omitempty"`
}

var bounds = []Bound{
	{Field: "total_households", Min: 1, Max: 10000},
	{Field: "average_household_size", Min: 1, Max: 10},
	{Field: "households_with_solar", Min: 0, MaxField: "total_households"},
	{Field: "average_solar_capacity_per_household", Min: 0, Max: 50},
	{Field: "solar_panel_efficiency", Min: 0.1, Max: 0.5},
	{Field: "solar_panel_area_per_household", Min: 0, Max: 200},
	{Field: "average_household_consumption", Min: 0, Max: 20},
	{Field: "peak_household_consumption", MinField: "average_household_consumption", Max: 50},
	{Field: "regional_to_community_scaling", Min: 0.00001, Max: 0.01},
	{Field: "demand_scaling_factor", Min: 0.01, Max: 1},
	{Field: "generation_scaling_factor", Min: 0.1, Max: 5},
	{Field: "fallback_regional_scaling", Min: 0.0001, Max: 0.01},
	{Field: "grid_import_capacity", Min: 0, Max: 10000},
	{Field: "grid_export_capacity", Min: 0, Max: 10000},
	{Field: "grid_stability_threshold", Min: 0.5, Max: 1},
	{Field: "battery_capacity_per_household", Min: 0, Max: 100},
	{Field: "battery_efficiency", Min: 0.5, Max: 1},
	{Field: "trading_volume_percentage", Min: 0, Max: 1},
	{Field: "price_fluctuation_range", Min: 0, Max: 1},
	{Field: "average_energy_price", Min: 0, Max: 2},
	{Field: "battery_distribution_north", Min: 0, Max: 1},
	{Field: "battery_distribution_south", Min: 0, Max: 1},
	{Field: "battery_distribution_center", Min: 0, Max: 1},
	{Field: "contribution_tier_gold", Min: 0, Max: 1},
	{Field: "contribution_tier_silver", Min: 0, Max: 1},
	{Field: "contribution_tier_bronze", Min: 0, Max: 1},
	{Field: "mock_trader_volume", Min: 0, Max: 10000},
	{Field: "mock_solar_farm_production", Min: 0, Max: 10000},
	{Field: "mock_efficiency_high", Min: 0, Max: 1},
	{Field: "mock_efficiency_medium", Min: 0, Max: 1},
	{Field: "mock_carbon_offset", Min: 0, Max: 10000},
	{Field: "emission_factor_kg_per_kwh", Min: 0, Max: 2},
	{Field: "telemetry_baseline_hz", Min: 45, Max: 65},
	{Field: "telemetry_nominal_v", Min: 100, Max: 400},
	{Field: "demand_response_engagement", Min: 0, Max: 1},
	{Field: "regional_rank", Min: 0, Max: 1000},
}

// Bounds returns the bound table.
func Bounds() []Bound {
	return append([]Bound(nil), bounds...)
}

func knownFields() map[string]bool {
	out := make(map[string]bool, len(bounds))
	for _, b := range bounds {
		out[b.Field] = true
	}
	return out
}

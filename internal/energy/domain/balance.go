package energy

// SourceBreakdown is the share of supply, in percent.
type SourceBreakdown struct {
	Solar float64 `json:"solar"`
	Grid  float64 `json:"grid"`
}

// NetBalance is generation minus consumption; positive is surplus.
func NetBalance(generation, consumption float64) float64 {
	return SafeFloat(SafeFloat(generation) - SafeFloat(consumption))
}

// GridExport is the surplus sent to the grid.
func GridExport(net float64) float64 {
	return max(0, SafeFloat(net))
}

// GridImport is the deficit drawn from the grid.
func GridImport(net float64) float64 {
	return max(0, -SafeFloat(net))
}

// Breakdown splits supply between solar and grid using the larger of
// generation and consumption as the total.
func Breakdown(generation, consumption float64) SourceBreakdown {
	generation, consumption = SafeFloat(generation), SafeFloat(consumption)
	total := max(generation, consumption)
	if total <= 0 {
		return SourceBreakdown{}
	}
	out := SourceBreakdown{Solar: Ratio(generation, total) * 100}
	if consumption > generation {
		out.Grid = Ratio(consumption-generation, total) * 100
	}
	return out
}

// Efficiency is the share of consumption covered by generation, capped at 1.
func Efficiency(generation, consumption float64) float64 {
	if SafeFloat(consumption) <= 0 {
		return 0
	}
	return min(1, Ratio(generation, consumption))
}

package energy

import "math"

// Telemetry is the synthesized grid state.
type Telemetry struct {
	FrequencyHz  float64 `json:"frequency_hz"`
	VoltageV     float64 `json:"voltage_v"`
	LoadPct      float64 `json:"load_percentage"`
	RenewablePct float64 `json:"renewable_percentage"`
	Stability    float64 `json:"stability_index"`
}

// Stability is 1 when generation matches consumption and falls with the
// relative imbalance.
func Stability(generation, consumption float64) float64 {
	generation, consumption = SafeFloat(generation), SafeFloat(consumption)
	return Clamp01(1 - math.Abs(generation-consumption)/max(consumption, 1))
}

// GridTelemetry derives frequency, voltage, load and renewable share.
// meanConsumption is the mean over the trailing 24 hours.
func GridTelemetry(generation, consumption, meanConsumption, baselineHz, nominalV float64) Telemetry {
	stability := Stability(generation, consumption)
	return Telemetry{
		FrequencyHz:  SafeFloat(baselineHz + 0.2*(0.5-stability)),
		VoltageV:     SafeFloat(nominalV + 5*(0.5-stability)),
		LoadPct:      Clamp(Ratio(consumption, max(SafeFloat(meanConsumption), 1))*100, 0, 100),
		RenewablePct: Clamp(Breakdown(generation, consumption).Solar, 0, 100),
		Stability:    stability,
	}
}

// CarbonOffset converts produced energy to avoided emissions in kg.
func CarbonOffset(producedKWh, factorKgPerKWh float64) float64 {
	return SafeFloat(SafeFloat(producedKWh) * SafeFloat(factorKgPerKWh))
}

package community

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// Config is the singleton community configuration document.
type Config struct {
	TotalHouseholds      int     `json:"total_households"`
	AverageHouseholdSize float64 `json:"average_household_size"`

	HouseholdsWithSolar              int     `json:"households_with_solar"`
	AverageSolarCapacityPerHousehold float64 `json:"average_solar_capacity_per_household"`
	SolarPanelEfficiency             float64 `json:"solar_panel_efficiency"`
	SolarPanelAreaPerHousehold       float64 `json:"solar_panel_area_per_household"`

	AverageHouseholdConsumption float64 `json:"average_household_consumption"`
	PeakHouseholdConsumption    float64 `json:"peak_household_consumption"`

	RegionalToCommunityScaling float64 `json:"regional_to_community_scaling"`
	DemandScalingFactor        float64 `json:"demand_scaling_factor"`
	GenerationScalingFactor    float64 `json:"generation_scaling_factor"`
	FallbackRegionalScaling    float64 `json:"fallback_regional_scaling"`

	GridImportCapacity     float64 `json:"grid_import_capacity"`
	GridExportCapacity     float64 `json:"grid_export_capacity"`
	GridStabilityThreshold float64 `json:"grid_stability_threshold"`

	BatteryCapacityPerHousehold float64 `json:"battery_capacity_per_household"`
	BatteryEfficiency           float64 `json:"battery_efficiency"`

	TradingVolumePercentage float64 `json:"trading_volume_percentage"`
	PriceFluctuationRange   float64 `json:"price_fluctuation_range"`
	AverageEnergyPrice      float64 `json:"average_energy_price"`

	BatteryDistributionNorth  float64 `json:"battery_distribution_north"`
	BatteryDistributionSouth  float64 `json:"battery_distribution_south"`
	BatteryDistributionCenter float64 `json:"battery_distribution_center"`

	ContributionTierGold   float64 `json:"contribution_tier_gold"`
	ContributionTierSilver float64 `json:"contribution_tier_silver"`
	ContributionTierBronze float64 `json:"contribution_tier_bronze"`

	MockTraderVolume        float64 `json:"mock_trader_volume"`
	MockSolarFarmProduction float64 `json:"mock_solar_farm_production"`
	MockEfficiencyHigh      float64 `json:"mock_efficiency_high"`
	MockEfficiencyMedium    float64 `json:"mock_efficiency_medium"`
	MockCarbonOffset        float64 `json:"mock_carbon_offset"`

	EmissionFactorKgPerKWh   float64 `json:"emission_factor_kg_per_kwh"`
	TelemetryBaselineHz      float64 `json:"telemetry_baseline_hz"`
	TelemetryNominalV        float64 `json:"telemetry_nominal_v"`
	DemandResponseEngagement float64 `json:"demand_response_engagement"`
	RegionalRank             int     `json:"regional_rank"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// Defaults returns the default configuration at version 1.
func Defaults(now time.Time) Config {
	now = now.UTC()
	return Config{
		TotalHouseholds:                  500,
		AverageHouseholdSize:             2.5,
		HouseholdsWithSolar:              300,
		AverageSolarCapacityPerHousehold: 8,
		SolarPanelEfficiency:             0.20,
		SolarPanelAreaPerHousehold:       40,
		AverageHouseholdConsumption:      3.5,
		PeakHouseholdConsumption:         7,
		RegionalToCommunityScaling:       0.0001,
		DemandScalingFactor:              0.25,
		GenerationScalingFactor:          1,
		FallbackRegionalScaling:          0.001,
		GridImportCapacity:               2000,
		GridExportCapacity:               1500,
		GridStabilityThreshold:           0.9,
		BatteryCapacityPerHousehold:      10,
		BatteryEfficiency:                0.95,
		TradingVolumePercentage:          0.1,
		PriceFluctuationRange:            0.12,
		AverageEnergyPrice:               0.25,
		BatteryDistributionNorth:         0.4,
		BatteryDistributionSouth:         0.35,
		BatteryDistributionCenter:        0.25,
		ContributionTierGold:             0.15,
		ContributionTierSilver:           0.35,
		ContributionTierBronze:           0.50,
		MockTraderVolume:                 1500,
		MockSolarFarmProduction:          2500,
		MockEfficiencyHigh:               0.95,
		MockEfficiencyMedium:             0.92,
		MockCarbonOffset:                 500,
		EmissionFactorKgPerKWh:           0.35,
		TelemetryBaselineHz:              50,
		TelemetryNominalV:                230,
		DemandResponseEngagement:         0.75,
		RegionalRank:                     3,
		CreatedAt:                        now,
		UpdatedAt:                        now,
		Version:                          1,
	}
}

var readOnlyFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"version":    true,
}

// Apply overlays a partial update and returns the validated result. The
// receiver is never modified. Unknown and read-only fields are rejected.
func (c Config) Apply(updates map[string]json.RawMessage, now time.Time) (Config, error) {
	if len(updates) == 0 {
		return c, ErrNoUpdates
	}
	known := knownFields()
	keys := make([]string, 0, len(updates))
	for key := range updates {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var errs ValidationErrors
	for _, key := range keys {
		switch {
		case readOnlyFields[key]:
			errs = append(errs, &FieldError{Field: key, Reason: "read-only field"})
		case !known[key]:
			errs = append(errs, &FieldError{Field: key, Reason: "unknown field"})
		}
	}
	if len(errs) > 0 {
		return c, errs
	}

	next := c
	for _, key := range keys {
		payload, err := json.Marshal(map[string]json.RawMessage{key: updates[key]})
		if err != nil {
			return c, err
		}
		dec := json.NewDecoder(bytes.NewReader(payload))
		if err := dec.Decode(&next); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				errs = append(errs, &FieldError{Field: key, Reason: fmt.Sprintf("expected %s", typeErr.Type)})
				continue
			}
			errs = append(errs, &FieldError{Field: key, Reason: err.Error()})
		}
	}
	if len(errs) > 0 {
		return c, errs
	}
	if err := next.Validate(); err != nil {
		return c, err
	}
	next.Version = c.Version + 1
	next.UpdatedAt = now.UTC()
	return next, nil
}

// Validate checks every bounded field.
func (c Config) Validate() error {
	values := c.values()
	var errs ValidationErrors
	for _, b := range bounds {
		lo, hi := b.Min, b.Max
		if b.MinField != "" {
			lo = values[b.MinField]
		}
		if b.MaxField != "" {
			hi = values[b.MaxField]
		}
		v := values[b.Field]
		if math.IsNaN(v) || v < lo || v > hi {
			errs = append(errs, &FieldError{Field: b.Field, Value: v, Min: lo, Max: hi})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ScalingFactors is the subset of the config the metric engine reads.
type ScalingFactors struct {
	RegionalToCommunityScaling float64 `json:"regional_to_community_scaling"`
	DemandScalingFactor        float64 `json:"demand_scaling_factor"`
	GenerationScalingFactor    float64 `json:"generation_scaling_factor"`
	TradingVolumePercentage    float64 `json:"trading_volume_percentage"`
	FallbackRegionalScaling    float64 `json:"fallback_regional_scaling"`
	EmissionFactorKgPerKWh     float64 `json:"emission_factor_kg_per_kwh"`
}

// Scaling returns the scaling factors.
func (c Config) Scaling() ScalingFactors {
	return ScalingFactors{
		RegionalToCommunityScaling: c.RegionalToCommunityScaling,
		DemandScalingFactor:        c.DemandScalingFactor,
		GenerationScalingFactor:    c.GenerationScalingFactor,
		TradingVolumePercentage:    c.TradingVolumePercentage,
		FallbackRegionalScaling:    c.FallbackRegionalScaling,
		EmissionFactorKgPerKWh:     c.EmissionFactorKgPerKWh,
	}
}

func (c Config) values() map[string]float64 {
	payload, err := json.Marshal(c)
	if err != nil {
		return map[string]float64{}
	}
	raw := map[string]any{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return map[string]float64{}
	}
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		if f, ok := v.(float64); ok {
			out[k] = f
		}
	}
	return out
}

package devices

import (
	"errors"
	"fmt"
	"time"

	energy "energy-square/internal/energy/domain"
)

// ErrInvalidDevice indicates a device record that fails validation.
var ErrInvalidDevice = errors.New("user device: invalid")

// UserDevice is the solar, battery and consumption profile of one user.
type UserDevice struct {
	UserID                 string    `json:"user_id"`
	Name                   string    `json:"name"`
	SolarCapacityKW        float64   `json:"solar_capacity_kw"`
	BatteryCapacityKWh     float64   `json:"battery_capacity_kwh"`
	BatterySOCPct          float64   `json:"battery_soc_pct"`
	AvgDailyConsumptionKWh float64   `json:"avg_daily_consumption_kwh"`
	Location               string    `json:"location"`
	IsDefault              bool      `json:"is_default,omitempty"`
	UpdatedAt              time.Time `json:"updated_at,omitempty"`
}

// Validate checks capacities and state of charge.
func (d UserDevice) Validate() error {
	if d.UserID == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidDevice)
	}
	if d.SolarCapacityKW < 0 || d.BatteryCapacityKWh < 0 || d.AvgDailyConsumptionKWh < 0 {
		return fmt.Errorf("%w: capacities must be non-negative", ErrInvalidDevice)
	}
	if d.BatterySOCPct < 0 || d.BatterySOCPct > 100 {
		return fmt.Errorf("%w: battery_soc_pct must be within [0, 100]", ErrInvalidDevice)
	}
	return nil
}

// StoredEnergyKWh is the energy currently held in the battery.
func (d UserDevice) StoredEnergyKWh() float64 {
	return d.BatteryCapacityKWh * d.BatterySOCPct / 100
}

// DefaultUserDevice is returned for users without a stored record.
func DefaultUserDevice(userID string) UserDevice {
	return UserDevice{
		UserID:                 userID,
		Name:                   "Default User",
		SolarCapacityKW:        4,
		BatteryCapacityKWh:     8,
		BatterySOCPct:          50,
		AvgDailyConsumptionKWh: 10,
		Location:               "Unknown",
		IsDefault:              true,
	}
}

// SampleUsers returns the seed profiles.
func SampleUsers() []UserDevice {
	return []UserDevice{
		{UserID: "user_001", Name: "Solar Pro User", SolarCapacityKW: 5, BatteryCapacityKWh: 10, BatterySOCPct: 85, AvgDailyConsumptionKWh: 12, Location: "North Zone"},
		{UserID: "user_002", Name: "Moderate Solar User", SolarCapacityKW: 3.5, BatteryCapacityKWh: 7.5, BatterySOCPct: 65, AvgDailyConsumptionKWh: 10, Location: "Central Zone"},
		{UserID: "user_003", Name: "Small Solar User", SolarCapacityKW: 2, BatteryCapacityKWh: 5, BatterySOCPct: 45, AvgDailyConsumptionKWh: 8, Location: "South Zone"},
		{UserID: "user_004", Name: "Large Solar User", SolarCapacityKW: 8, BatteryCapacityKWh: 15, BatterySOCPct: 75, AvgDailyConsumptionKWh: 15, Location: "North Zone"},
		{UserID: "user_005", Name: "Standard Solar User", SolarCapacityKW: 4, BatteryCapacityKWh: 8, BatterySOCPct: 55, AvgDailyConsumptionKWh: 9.5, Location: "Central Zone"},
	}
}

// CommunityAggregate sums user devices bottom-up.
type CommunityAggregate struct {
	TotalSolarCapacityKW    float64 `json:"total_solar_capacity_kw"`
	TotalBatteryCapacityKWh float64 `json:"total_battery_capacity_kwh"`
	TotalConsumptionKWh     float64 `json:"total_consumption_kwh"`
	AverageBatterySOCPct    float64 `json:"average_battery_soc_pct"`
	UserCount               int     `json:"user_count"`
}

// Aggregate totals the devices. The average state of charge is weighted
// by battery capacity.
func Aggregate(list []UserDevice) CommunityAggregate {
	var agg CommunityAggregate
	stored := 0.0
	for _, d := range list {
		agg.TotalSolarCapacityKW += d.SolarCapacityKW
		agg.TotalBatteryCapacityKWh += d.BatteryCapacityKWh
		agg.TotalConsumptionKWh += d.AvgDailyConsumptionKWh
		stored += d.StoredEnergyKWh()
	}
	agg.UserCount = len(list)
	agg.AverageBatterySOCPct = energy.Round(energy.Ratio(stored, agg.TotalBatteryCapacityKWh)*100, 1)
	agg.TotalSolarCapacityKW = energy.Round(agg.TotalSolarCapacityKW, 2)
	agg.TotalBatteryCapacityKWh = energy.Round(agg.TotalBatteryCapacityKWh, 2)
	agg.TotalConsumptionKWh = energy.Round(agg.TotalConsumptionKWh, 2)
	return agg
}

// ProductionShare allocates community production to one user by solar
// capacity share.
func ProductionShare(userCapacityKW, totalCapacityKW, communityProducedKWh float64) float64 {
	return energy.Round(energy.Ratio(userCapacityKW, totalCapacityKW)*energy.SafeFloat(communityProducedKWh), 2)
}

package community

import (
	"errors"
	"fmt"
)

// Derived holds values computed from the config.
type Derived struct {
	TotalPopulation           int     `json:"total_population"`
	TotalSolarCapacity        float64 `json:"total_solar_capacity"`
	TotalSolarArea            float64 `json:"total_solar_area"`
	TotalCommunityConsumption float64 `json:"total_community_consumption"`
	TotalBatteryCapacity      float64 `json:"total_battery_capacity"`
}

// Derived computes community totals.
func (c Config) Derived() Derived {
	return Derived{
		TotalPopulation:           int(float64(c.TotalHouseholds) * c.AverageHouseholdSize),
		TotalSolarCapacity:        float64(c.HouseholdsWithSolar) * c.AverageSolarCapacityPerHousehold,
		TotalSolarArea:            float64(c.HouseholdsWithSolar) * c.SolarPanelAreaPerHousehold,
		TotalCommunityConsumption: float64(c.TotalHouseholds) * c.AverageHouseholdConsumption,
		TotalBatteryCapacity:      float64(c.TotalHouseholds) * c.BatteryCapacityPerHousehold,
	}
}

// Metrics is the community summary shown on dashboards.
type Metrics struct {
	TotalHouseholds             int     `json:"total_households"`
	HouseholdsWithSolar         int     `json:"households_with_solar"`
	SolarCoveragePercentage     float64 `json:"solar_coverage_percentage"`
	TotalSolarCapacity          float64 `json:"total_solar_capacity"`
	TotalCommunityConsumption   float64 `json:"total_community_consumption"`
	AverageHouseholdConsumption float64 `json:"average_household_consumption"`
	TotalBatteryCapacity        float64 `json:"total_battery_capacity"`
	GridImportCapacity          float64 `json:"grid_import_capacity"`
	GridExportCapacity          float64 `json:"grid_export_capacity"`
}

// Metrics summarizes the community.
func (c Config) Metrics() Metrics {
	d := c.Derived()
	coverage := 0.0
	if c.TotalHouseholds > 0 {
		coverage = float64(c.HouseholdsWithSolar) / float64(c.TotalHouseholds) * 100
	}
	return Metrics{
		TotalHouseholds:             c.TotalHouseholds,
		HouseholdsWithSolar:         c.HouseholdsWithSolar,
		SolarCoveragePercentage:     coverage,
		TotalSolarCapacity:          d.TotalSolarCapacity,
		TotalCommunityConsumption:   d.TotalCommunityConsumption,
		AverageHouseholdConsumption: c.AverageHouseholdConsumption,
		TotalBatteryCapacity:        d.TotalBatteryCapacity,
		GridImportCapacity:          c.GridImportCapacity,
		GridExportCapacity:          c.GridExportCapacity,
	}
}

// RealisticConsumption converts regional demand (MW) to community demand
// (kW), bounded to half and one and a half times the configured community
// consumption.
func (c Config) RealisticConsumption(regionalMW float64) float64 {
	total := c.Derived().TotalCommunityConsumption
	kw := regionalMW * 1000 * c.RegionalToCommunityScaling
	return max(total*0.5, min(kw, total*1.5))
}

// RealisticGeneration bounds raw solar power to 120% of installed capacity.
func (c Config) RealisticGeneration(rawKW float64) float64 {
	return max(0, min(rawKW, c.Derived().TotalSolarCapacity*1.2))
}

// ValidationReport lists consistency issues and soft warnings.
type ValidationReport struct {
	Valid    bool              `json:"valid"`
	Issues   []string          `json:"issues"`
	Warnings []string          `json:"warnings"`
	Summary  map[string]string `json:"config_summary"`
}

// Report checks the config for issues and implausible values.
func (c Config) Report() ValidationReport {
	d := c.Derived()
	report := ValidationReport{Issues: []string{}, Warnings: []string{}}
	covered := map[string]bool{}
	if c.HouseholdsWithSolar > c.TotalHouseholds {
		report.Issues = append(report.Issues, "Solar households exceed total households")
		covered["households_with_solar"] = true
	}
	if c.PeakHouseholdConsumption < c.AverageHouseholdConsumption {
		report.Issues = append(report.Issues, "Peak consumption is less than average consumption")
		covered["peak_household_consumption"] = true
	}
	var verrs ValidationErrors
	if errors.As(c.Validate(), &verrs) {
		for _, e := range verrs {
			if !covered[e.Field] {
				report.Issues = append(report.Issues, e.Error())
			}
		}
	}
	if c.RegionalToCommunityScaling > 0.01 {
		report.Warnings = append(report.Warnings, "Regional scaling factor seems high (>1% of regional demand)")
	}
	if d.TotalSolarCapacity > d.TotalCommunityConsumption*2 {
		report.Warnings = append(report.Warnings, "Solar capacity is more than 2x community consumption")
	}
	if c.BatteryCapacityPerHousehold > 50 {
		report.Warnings = append(report.Warnings, "Battery capacity per household seems high (>50 kWh)")
	}
	report.Valid = len(report.Issues) == 0

	coverage, ratio := 0.0, 0.0
	if c.TotalHouseholds > 0 {
		coverage = float64(c.HouseholdsWithSolar) / float64(c.TotalHouseholds) * 100
	}
	if d.TotalCommunityConsumption > 0 {
		ratio = d.TotalSolarCapacity / d.TotalCommunityConsumption
	}
	report.Summary = map[string]string{
		"total_households":     fmt.Sprintf("%d", c.TotalHouseholds),
		"solar_coverage":       fmt.Sprintf("%.1f%%", coverage),
		"total_solar_capacity": fmt.Sprintf("%.0f kW", d.TotalSolarCapacity),
		"total_consumption":    fmt.Sprintf("%.0f kW", d.TotalCommunityConsumption),
		"solar_ratio":          fmt.Sprintf("%.2f", ratio),
	}
	return report
}

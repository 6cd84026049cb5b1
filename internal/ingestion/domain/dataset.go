package ingestion

import (
	"sort"
	"strings"
	"time"
)

// PricePoint is one row of the national price series.
type PricePoint struct {
	Stamp
	Period     int    `json:"period"`
	IsWeekend  bool   `json:"is_weekend"`
	PriceMWh   Float  `json:"price_eur_mwh"`
	PriceKWh   Float  `json:"price_eur_kwh"`
	IsPeakHour bool   `json:"is_peak_hour"`
	Category   string `json:"price_category"`
}

// NewPricePoint derives the kWh price, peak flag and category from the MWh
// price.
func NewPricePoint(stamp Stamp, period int, priceMWh Float) PricePoint {
	kwh := Missing()
	if priceMWh.Valid() {
		kwh = priceMWh / 1000
	}
	return PricePoint{
		Stamp:      stamp,
		Period:     period,
		IsWeekend:  stamp.IsWeekend(),
		PriceMWh:   priceMWh,
		PriceKWh:   kwh,
		IsPeakHour: IsPeakHour(stamp.Hour),
		Category:   PriceCategory(priceMWh),
	}
}

// ZonalPrice holds regional prices and their spread against the national
// zone for one slot.
type ZonalPrice struct {
	Stamp
	Period  int              `json:"period"`
	Prices  map[string]Float `json:"prices"`
	Spreads map[string]Float `json:"spreads_vs_national"`
}

// DemandRecord holds regional demand for one slot. TotalMW is the sum of
// present regions; NationalMW is the national column when supplied.
type DemandRecord struct {
	Stamp
	Period     int              `json:"period"`
	Regions    map[string]Float `json:"regions"`
	TotalMW    Float            `json:"total_mw"`
	NationalMW Float            `json:"national_mw"`
	Category   string           `json:"demand_category"`
}

// RegionalDemand sums the present region values in key order.
func (d DemandRecord) RegionalDemand() float64 {
	keys := make([]string, 0, len(d.Regions))
	for k := range d.Regions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var total float64
	for _, k := range keys {
		if v := d.Regions[k]; v.Valid() {
			total += float64(v)
		}
	}
	return total
}

// National returns the national demand, falling back to the regional total.
func (d DemandRecord) National() Float {
	if d.NationalMW.Valid() {
		return d.NationalMW
	}
	return d.TotalMW
}

// TradingOpportunity compares regional prices against the national price.
type TradingOpportunity struct {
	Stamp
	PunMWh              Float            `json:"pun_price"`
	RegionPrices        map[string]Float `json:"region_prices"`
	Arbitrage           map[string]Float `json:"arbitrage"`
	ArbitragePct        map[string]Float `json:"arbitrage_pct"`
	BestArbitrageRegion string           `json:"best_arbitrage_region"`
	BestArbitrageValue  Float            `json:"best_arbitrage_value"`
}

// SolarReading is one generation row joined with weather.
type SolarReading struct {
	Stamp
	PlantID     string `json:"plant_id"`
	SourceKey   string `json:"source_key"`
	ACPower     Float  `json:"ac_power"`
	DCPower     Float  `json:"dc_power"`
	DailyYield  Float  `json:"daily_yield"`
	TotalYield  Float  `json:"total_yield"`
	AmbientTemp Float  `json:"ambient_temperature"`
	ModuleTemp  Float  `json:"module_temperature"`
	Irradiation Float  `json:"irradiation"`
	Efficiency  Float  `json:"efficiency"`
	IsProducing bool   `json:"is_producing"`
}

// SolarDaily aggregates readings of one calendar date.
type SolarDaily struct {
	Date            string `json:"date"`
	ACPowerSum      Float  `json:"ac_power_sum"`
	DCPowerSum      Float  `json:"dc_power_sum"`
	DailyYieldMax   Float  `json:"daily_yield_max"`
	IrradiationMean Float  `json:"irradiation_mean"`
	AmbientTempMean Float  `json:"ambient_temperature_mean"`
	ModuleTempMean  Float  `json:"module_temperature_mean"`
	EfficiencyMean  Float  `json:"efficiency_mean"`
}

// PlantSeries is the solar series of one plant.
type PlantSeries struct {
	Hourly []SolarReading `json:"hourly"`
	Daily  []SolarDaily   `json:"daily"`
}

// MarketData groups the market series of a snapshot.
type MarketData struct {
	PunPrices            []PricePoint         `json:"pun_prices"`
	ZonalPrices          []ZonalPrice         `json:"zonal_prices"`
	DemandData           []DemandRecord       `json:"demand_data"`
	TradingOpportunities []TradingOpportunity `json:"trading_opportunities"`
}

// PriceStats summarizes the national price series.
type PriceStats struct {
	Min         Float `json:"min_price"`
	Max         Float `json:"max_price"`
	Mean        Float `json:"avg_price"`
	StdDev      Float `json:"price_volatility"`
	PeakMean    Float `json:"peak_avg_price"`
	OffPeakMean Float `json:"offpeak_avg_price"`
}

// DemandStats summarizes national demand.
type DemandStats struct {
	Min         Float `json:"min_demand"`
	Max         Float `json:"max_demand"`
	Mean        Float `json:"avg_demand"`
	PeakMean    Float `json:"peak_avg_demand"`
	OffPeakMean Float `json:"offpeak_avg_demand"`
}

// PlantStats summarizes one plant's production.
type PlantStats struct {
	TotalProductionKWh     Float `json:"total_production_kwh"`
	MaxPowerKW             Float `json:"max_power_kw"`
	AvgEfficiency          Float `json:"avg_efficiency"`
	ProducingHours         Float `json:"producing_hours"`
	AvgIrradiation         Float `json:"avg_irradiation"`
	TemperatureCoefficient Float `json:"temperature_coefficient"`
}

// Analytics is the derived summary of a snapshot. Sections whose source
// was unavailable are omitted.
type Analytics struct {
	PriceStats             *PriceStats           `json:"price_stats,omitempty"`
	DemandStats            *DemandStats          `json:"demand_stats,omitempty"`
	Plants                 map[string]PlantStats `json:"solar_stats,omitempty"`
	PriceDemandCorrelation *Float                `json:"price_demand_correlation,omitempty"`
}

// DataPeriod is the covered time range of the price series.
type DataPeriod struct {
	Start *time.Time `json:"start"`
	End   *time.Time `json:"end"`
}

// Metadata describes an ingestion run.
type Metadata struct {
	RunID              string         `json:"run_id"`
	TransformationDate time.Time      `json:"transformation_date"`
	DataPeriod         DataPeriod     `json:"data_period"`
	TotalRecords       map[string]int `json:"total_records"`
	Unavailable        []string       `json:"unavailable_sources,omitempty"`
}

// Dataset is the canonical snapshot. It is immutable once published.
type Dataset struct {
	MarketData MarketData             `json:"market_data"`
	SolarData  map[string]PlantSeries `json:"solar_data"`
	Analytics  Analytics              `json:"analytics"`
	Metadata   Metadata               `json:"metadata"`
}

// PlantKey returns the solar_data key of a plant id.
func PlantKey(id string) string {
	if strings.HasPrefix(id, "plant_") {
		return id
	}
	return "plant_" + id
}

// PlantKeys returns the solar_data keys in sorted order.
func (d *Dataset) PlantKeys() []string {
	if d == nil {
		return nil
	}
	keys := make([]string, 0, len(d.SolarData))
	for k := range d.SolarData {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RecordCounts counts records per source as stored in the dataset.
func (d *Dataset) RecordCounts() map[string]int {
	counts := map[string]int{}
	if d == nil {
		return counts
	}
	counts["pun_prices"] = len(d.MarketData.PunPrices)
	counts["zonal_prices"] = len(d.MarketData.ZonalPrices)
	counts["demand_data"] = len(d.MarketData.DemandData)
	counts["trading_opportunities"] = len(d.MarketData.TradingOpportunities)
	for _, key := range d.PlantKeys() {
		counts["solar_"+key] = len(d.SolarData[key].Hourly)
	}
	return counts
}

// Empty returns a dataset with no records.
func Empty() *Dataset {
	return &Dataset{
		SolarData: map[string]PlantSeries{},
		Metadata:  Metadata{TotalRecords: map[string]int{}},
	}
}

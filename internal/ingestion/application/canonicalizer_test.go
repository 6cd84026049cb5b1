package application

import (
	"errors"
	"io"
	"log"
	"math"
	"testing"
	"time"

	ingestion "energy-square/internal/ingestion/domain"
)

var day = time.Date(2025, 10, 27, 0, 0, 0, 0, time.UTC)

func slot(hour int) ingestion.Stamp {
	return ingestion.NewStamp(day.Add(time.Duration(hour) * time.Hour))
}

func record(hour int, fields map[string]ingestion.Float) ingestion.TimestampedRecord {
	return ingestion.TimestampedRecord{Stamp: slot(hour), Period: 1, Fields: fields}
}

func testCanonicalizer() *Canonicalizer {
	return NewCanonicalizer(DefaultLayout(), log.New(io.Discard, "", 0))
}

func TestBuildPricesAndStats(t *testing.T) {
	in := Inputs{PUN: ingestion.SourceResult{Source: "pun_prices", Records: []ingestion.TimestampedRecord{
		record(9, map[string]ingestion.Float{ingestion.FieldPriceMWh: 120}),
		record(2, map[string]ingestion.Float{ingestion.FieldPriceMWh: 40}),
		record(3, map[string]ingestion.Float{ingestion.FieldPriceMWh: ingestion.Missing()}),
	}}}

	ds := testCanonicalizer().Build("run-1", in)
	prices := ds.MarketData.PunPrices
	if len(prices) != 3 {
		t.Fatalf("expected 3 prices, got %d", len(prices))
	}
	if prices[0].Hour != 2 || prices[2].Hour != 9 {
		t.Fatalf("expected prices ordered by time, got hours %d..%d", prices[0].Hour, prices[2].Hour)
	}
	if prices[2].Category != "Very High" || !prices[2].IsPeakHour || prices[2].PriceKWh != 0.12 {
		t.Fatalf("unexpected derived price %+v", prices[2])
	}

	stats := ds.Analytics.PriceStats
	if stats == nil {
		t.Fatalf("expected price stats")
	}
	if stats.Min != 40 || stats.Max != 120 || stats.Mean != 80 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.PeakMean != 120 || stats.OffPeakMean != 40 {
		t.Fatalf("unexpected peak split %+v", stats)
	}
	if ds.Metadata.DataPeriod.Start == nil || !ds.Metadata.DataPeriod.Start.Equal(slot(2).Timestamp) {
		t.Fatalf("unexpected data period %+v", ds.Metadata.DataPeriod)
	}
	if ds.Metadata.RunID != "run-1" || ds.Metadata.TotalRecords["pun_prices"] != 3 {
		t.Fatalf("unexpected metadata %+v", ds.Metadata)
	}
}

func TestBuildDemandExcludesMissingRegions(t *testing.T) {
	in := Inputs{Demand: ingestion.SourceResult{Source: "demand_data", Records: []ingestion.TimestampedRecord{
		record(10, map[string]ingestion.Float{"North": 15000, "Sicilia": ingestion.Missing(), "Sardegna": 1000, "Total Italy": 26000}),
		record(11, map[string]ingestion.Float{"North": ingestion.Missing()}),
	}}}

	ds := testCanonicalizer().Build("run", in)
	demand := ds.MarketData.DemandData
	if len(demand) != 2 {
		t.Fatalf("expected 2 demand records, got %d", len(demand))
	}
	if demand[0].TotalMW != 16000 {
		t.Fatalf("expected total 16000, got %v", float64(demand[0].TotalMW))
	}
	if demand[0].Category != "High" {
		t.Fatalf("expected category from national column, got %s", demand[0].Category)
	}
	if demand[1].TotalMW.Valid() {
		t.Fatalf("expected missing total when no region is present")
	}
	if demand[1].RegionalDemand() != 0 {
		t.Fatalf("expected zero regional demand, got %v", demand[1].RegionalDemand())
	}
	if ds.Analytics.DemandStats == nil || ds.Analytics.DemandStats.Max != 26000 {
		t.Fatalf("unexpected demand stats %+v", ds.Analytics.DemandStats)
	}
}

func TestTradingOpportunitiesTieBreak(t *testing.T) {
	in := Inputs{
		PUN: ingestion.SourceResult{Records: []ingestion.TimestampedRecord{
			record(8, map[string]ingestion.Float{ingestion.FieldPriceMWh: 100}),
			record(9, map[string]ingestion.Float{ingestion.FieldPriceMWh: 100}),
		}},
		Zonal: ingestion.SourceResult{Records: []ingestion.TimestampedRecord{
			record(8, map[string]ingestion.Float{"Italia": 100, "Calabria": 110, "Sicilia": 110, "North": 90}),
		}},
	}

	ds := testCanonicalizer().Build("run", in)
	opps := ds.MarketData.TradingOpportunities
	if len(opps) != 1 {
		t.Fatalf("expected inner join to keep 1 row, got %d", len(opps))
	}
	opp := opps[0]
	if opp.BestArbitrageRegion != "Calabria" || opp.BestArbitrageValue != 10 {
		t.Fatalf("expected Calabria tie-break winner, got %s %v", opp.BestArbitrageRegion, float64(opp.BestArbitrageValue))
	}
	if opp.ArbitragePct["North"] != -10 {
		t.Fatalf("expected -10%%, got %v", float64(opp.ArbitragePct["North"]))
	}
	if opp.Arbitrage["Sardegna"].Valid() {
		t.Fatalf("expected missing arbitrage for absent region")
	}

	zonal := ds.MarketData.ZonalPrices[0]
	if zonal.Spreads["Calabria"] != 10 || zonal.Spreads["North"] != -10 {
		t.Fatalf("unexpected spreads %+v", zonal.Spreads)
	}
	if _, ok := zonal.Spreads["Italia"]; ok {
		t.Fatalf("national zone must not have a spread")
	}
}

func TestSolarJoinAndEfficiency(t *testing.T) {
	gen := []ingestion.TimestampedRecord{
		record(12, map[string]ingestion.Float{ingestion.FieldACPower: 900, ingestion.FieldDCPower: 1000, ingestion.FieldDailyYield: 50}),
		record(13, map[string]ingestion.Float{ingestion.FieldACPower: 0, ingestion.FieldDCPower: 0, ingestion.FieldDailyYield: 80}),
	}
	weather := []ingestion.TimestampedRecord{
		record(12, map[string]ingestion.Float{ingestion.FieldIrradiation: 0.8, ingestion.FieldAmbientTemp: 30, ingestion.FieldModuleTemp: 50}),
	}
	in := Inputs{Plants: map[string]PlantInputs{
		"1": {
			Generation: ingestion.SourceResult{Source: "solar_plant_1_generation", Records: gen},
			Weather:    ingestion.SourceResult{Source: "solar_plant_1_weather", Records: weather},
		},
	}}

	ds := testCanonicalizer().Build("run", in)
	series, ok := ds.SolarData["plant_1"]
	if !ok {
		t.Fatalf("expected plant_1 series")
	}
	if len(series.Hourly) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(series.Hourly))
	}
	first, second := series.Hourly[0], series.Hourly[1]
	if first.Efficiency != 0.9 || !first.IsProducing || first.Irradiation != 0.8 {
		t.Fatalf("unexpected first reading %+v", first)
	}
	if second.Efficiency != 0 || second.IsProducing {
		t.Fatalf("expected zero efficiency without DC power, got %+v", second)
	}
	if second.Irradiation.Valid() || second.ModuleTemp.Valid() {
		t.Fatalf("expected null weather for unmatched reading")
	}

	if len(series.Daily) != 1 {
		t.Fatalf("expected 1 daily bucket, got %d", len(series.Daily))
	}
	daily := series.Daily[0]
	if daily.ACPowerSum != 900 || daily.DailyYieldMax != 80 || daily.IrradiationMean != 0.8 {
		t.Fatalf("unexpected daily aggregate %+v", daily)
	}
	if math.Abs(float64(daily.EfficiencyMean)-0.45) > 1e-9 {
		t.Fatalf("expected mean efficiency 0.45, got %v", float64(daily.EfficiencyMean))
	}

	stats := ds.Analytics.Plants["plant_1"]
	if stats.TotalProductionKWh != 225 {
		t.Fatalf("expected 900 kW x 0.25 h = 225 kWh, got %v", float64(stats.TotalProductionKWh))
	}
	if stats.ProducingHours != 0.25 || stats.TemperatureCoefficient != 0 {
		t.Fatalf("unexpected plant stats %+v", stats)
	}
	if ds.Metadata.TotalRecords["solar_plant_1"] != 2 {
		t.Fatalf("unexpected record counts %v", ds.Metadata.TotalRecords)
	}
}

func TestTemperatureCoefficientNeedsElevenRows(t *testing.T) {
	var hourly []ingestion.SolarReading
	for i := 0; i < 10; i++ {
		hourly = append(hourly, ingestion.SolarReading{
			ACPower:     ingestion.Float(100 + 10*i),
			Irradiation: 0.5,
			ModuleTemp:  ingestion.Float(20 + i),
		})
	}
	if got := temperatureCoefficient(hourly); got != 0 {
		t.Fatalf("expected 0 with 10 rows, got %v", float64(got))
	}
	hourly = append(hourly, ingestion.SolarReading{ACPower: 200, Irradiation: 0.5, ModuleTemp: 30})
	if got := temperatureCoefficient(hourly); math.Abs(float64(got)-1) > 1e-9 {
		t.Fatalf("expected perfect correlation, got %v", float64(got))
	}
}

func TestUnavailableSourcesDegradeToEmpty(t *testing.T) {
	in := Inputs{
		PUN:    ingestion.Unavailable("pun_prices", errors.New("boom")),
		Zonal:  ingestion.Unavailable("zonal_prices", errors.New("boom")),
		Demand: ingestion.SourceResult{Source: "demand_data", Records: []ingestion.TimestampedRecord{record(1, map[string]ingestion.Float{"North": 100})}},
		Plants: map[string]PlantInputs{
			"2": {
				Generation: ingestion.Unavailable("solar_plant_2_generation", errors.New("missing")),
				Weather:    ingestion.Unavailable("solar_plant_2_weather", errors.New("missing")),
			},
		},
	}

	ds := testCanonicalizer().Build("run", in)
	if len(ds.MarketData.PunPrices) != 0 || len(ds.MarketData.TradingOpportunities) != 0 {
		t.Fatalf("expected empty price series")
	}
	if ds.Analytics.PriceStats != nil {
		t.Fatalf("expected price stats to be omitted")
	}
	if ds.Analytics.PriceDemandCorrelation != nil {
		t.Fatalf("expected correlation to be omitted")
	}
	if _, ok := ds.Analytics.Plants["plant_2"]; ok {
		t.Fatalf("expected plant stats to be omitted")
	}
	if len(ds.MarketData.DemandData) != 1 {
		t.Fatalf("expected demand to survive, got %d", len(ds.MarketData.DemandData))
	}
	if len(ds.Metadata.Unavailable) != 4 {
		t.Fatalf("expected 4 unavailable sources, got %v", ds.Metadata.Unavailable)
	}
}

package application

import (
	"log"
	"math"
	"sort"
	"time"

	ingestion "energy-square/internal/ingestion/domain"
)

// arbitrageTolerance treats arbitrage values this close as equal.
const arbitrageTolerance = 1e-9

// Inputs are the raw reads of one ingestion run.
type Inputs struct {
	PUN    ingestion.SourceResult
	Zonal  ingestion.SourceResult
	Demand ingestion.SourceResult
	Plants map[string]PlantInputs
}

// PlantInputs are the raw logs of one plant.
type PlantInputs struct {
	Generation ingestion.SourceResult
	Weather    ingestion.SourceResult
}

// Canonicalizer merges raw reads into a canonical dataset. An unavailable
// source degrades to an empty series.
type Canonicalizer struct {
	layout Layout
	logger *log.Logger
	now    func() time.Time
}

// NewCanonicalizer constructs a canonicalizer for a source layout.
func NewCanonicalizer(layout Layout, logger *log.Logger) *Canonicalizer {
	if logger == nil {
		logger = log.Default()
	}
	return &Canonicalizer{
		layout: layout,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Build produces the dataset of one run.
func (c *Canonicalizer) Build(runID string, in Inputs) *ingestion.Dataset {
	ds := ingestion.Empty()
	var unavailable []string
	rows := func(result ingestion.SourceResult) []ingestion.TimestampedRecord {
		if !result.Available() {
			c.logger.Printf("canonicalizer: %v", result.Err)
			unavailable = append(unavailable, result.Source)
			return nil
		}
		if result.Skipped > 0 {
			c.logger.Printf("canonicalizer: source=%s skipped=%d unparseable rows", result.Source, result.Skipped)
		}
		return result.Records
	}

	ds.MarketData.PunPrices = transformPrices(rows(in.PUN))
	ds.MarketData.ZonalPrices = c.transformZonal(rows(in.Zonal))
	ds.MarketData.DemandData = c.transformDemand(rows(in.Demand))
	ds.MarketData.TradingOpportunities = c.tradingOpportunities(ds.MarketData.PunPrices, ds.MarketData.ZonalPrices)

	plantIDs := make([]string, 0, len(in.Plants))
	for id := range in.Plants {
		plantIDs = append(plantIDs, id)
	}
	sort.Strings(plantIDs)
	for _, id := range plantIDs {
		plant := in.Plants[id]
		gen := rows(plant.Generation)
		weather := rows(plant.Weather)
		ds.SolarData[ingestion.PlantKey(id)] = transformSolar(id, gen, weather)
	}

	ds.Analytics = c.analyze(ds)
	ds.Metadata = ingestion.Metadata{
		RunID:              runID,
		TransformationDate: c.now(),
		DataPeriod:         dataPeriod(ds.MarketData.PunPrices),
		TotalRecords:       ds.RecordCounts(),
		Unavailable:        unavailable,
	}
	return ds
}

func transformPrices(rows []ingestion.TimestampedRecord) []ingestion.PricePoint {
	out := make([]ingestion.PricePoint, 0, len(rows))
	for _, row := range rows {
		out = append(out, ingestion.NewPricePoint(row.Stamp, row.Period, row.Field(ingestion.FieldPriceMWh)))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

func (c *Canonicalizer) transformZonal(rows []ingestion.TimestampedRecord) []ingestion.ZonalPrice {
	national := c.layout.NationalZone
	keep := make(map[string]bool, len(c.layout.ZonalRegions)+1)
	for _, region := range c.layout.ZonalRegions {
		keep[region] = true
	}
	keep[national] = true

	out := make([]ingestion.ZonalPrice, 0, len(rows))
	for _, row := range rows {
		prices := make(map[string]ingestion.Float, len(row.Fields))
		for name, value := range row.Fields {
			if len(c.layout.ZonalRegions) == 0 || keep[name] {
				prices[name] = value
			}
		}
		base := row.Field(national)
		spreads := make(map[string]ingestion.Float, len(prices))
		for name, value := range prices {
			if name == national {
				continue
			}
			spread := ingestion.Missing()
			if value.Valid() && base.Valid() {
				spread = value - base
			}
			spreads[name] = spread
		}
		out = append(out, ingestion.ZonalPrice{
			Stamp:   row.Stamp,
			Period:  row.Period,
			Prices:  prices,
			Spreads: spreads,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

func (c *Canonicalizer) transformDemand(rows []ingestion.TimestampedRecord) []ingestion.DemandRecord {
	out := make([]ingestion.DemandRecord, 0, len(rows))
	for _, row := range rows {
		regions := make(map[string]ingestion.Float, len(c.layout.DemandRegions))
		total := ingestion.Missing()
		for _, region := range c.layout.DemandRegions {
			value := row.Field(region)
			regions[region] = value
			if !value.Valid() {
				continue
			}
			if !total.Valid() {
				total = 0
			}
			total += value
		}
		rec := ingestion.DemandRecord{
			Stamp:      row.Stamp,
			Period:     row.Period,
			Regions:    regions,
			TotalMW:    total,
			NationalMW: row.Field(c.layout.NationalDemandColumn),
		}
		rec.Category = ingestion.DemandCategory(rec.National())
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// tradingOpportunities inner-joins the national and zonal series on
// timestamp and ranks regional arbitrage against the national price.
func (c *Canonicalizer) tradingOpportunities(prices []ingestion.PricePoint, zonal []ingestion.ZonalPrice) []ingestion.TradingOpportunity {
	if len(prices) == 0 || len(zonal) == 0 {
		return []ingestion.TradingOpportunity{}
	}
	byTime := make(map[int64]ingestion.ZonalPrice, len(zonal))
	for _, z := range zonal {
		key := z.Timestamp.UnixNano()
		if _, ok := byTime[key]; !ok {
			byTime[key] = z
		}
	}

	out := make([]ingestion.TradingOpportunity, 0, len(prices))
	for _, p := range prices {
		z, ok := byTime[p.Timestamp.UnixNano()]
		if !ok {
			continue
		}
		opp := ingestion.TradingOpportunity{
			Stamp:              p.Stamp,
			PunMWh:             p.PriceMWh,
			RegionPrices:       make(map[string]ingestion.Float, len(c.layout.ArbitrageRegions)),
			Arbitrage:          make(map[string]ingestion.Float, len(c.layout.ArbitrageRegions)),
			ArbitragePct:       make(map[string]ingestion.Float, len(c.layout.ArbitrageRegions)),
			BestArbitrageValue: ingestion.Missing(),
		}
		for _, region := range c.layout.ArbitrageRegions {
			price, ok := z.Prices[region]
			if !ok {
				price = ingestion.Missing()
			}
			arb, pct := ingestion.Missing(), ingestion.Missing()
			if price.Valid() && p.PriceMWh.Valid() {
				arb = price - p.PriceMWh
				if p.PriceMWh != 0 {
					pct = arb / p.PriceMWh * 100
				}
			}
			opp.RegionPrices[region] = price
			opp.Arbitrage[region] = arb
			opp.ArbitragePct[region] = pct
			if !arb.Valid() {
				continue
			}
			if !opp.BestArbitrageValue.Valid() || float64(arb) > float64(opp.BestArbitrageValue)+arbitrageTolerance {
				opp.BestArbitrageRegion = region
				opp.BestArbitrageValue = arb
			}
		}
		out = append(out, opp)
	}
	return out
}

func transformSolar(plantID string, gen, weather []ingestion.TimestampedRecord) ingestion.PlantSeries {
	weatherAt := make(map[int64]ingestion.TimestampedRecord, len(weather))
	for _, w := range weather {
		key := w.Timestamp.UnixNano()
		if _, ok := weatherAt[key]; !ok {
			weatherAt[key] = w
		}
	}

	hourly := make([]ingestion.SolarReading, 0, len(gen))
	for _, row := range gen {
		reading := ingestion.SolarReading{
			Stamp:       row.Stamp,
			PlantID:     plantID,
			SourceKey:   row.Labels[ingestion.FieldSourceKey],
			ACPower:     row.Field(ingestion.FieldACPower),
			DCPower:     row.Field(ingestion.FieldDCPower),
			DailyYield:  row.Field(ingestion.FieldDailyYield),
			TotalYield:  row.Field(ingestion.FieldTotalYield),
			AmbientTemp: ingestion.Missing(),
			ModuleTemp:  ingestion.Missing(),
			Irradiation: ingestion.Missing(),
		}
		if id := row.Labels[ingestion.FieldPlantID]; id != "" {
			reading.PlantID = id
		}
		if w, ok := weatherAt[row.Timestamp.UnixNano()]; ok {
			reading.AmbientTemp = w.Field(ingestion.FieldAmbientTemp)
			reading.ModuleTemp = w.Field(ingestion.FieldModuleTemp)
			reading.Irradiation = w.Field(ingestion.FieldIrradiation)
		}
		reading.Efficiency = efficiency(reading.ACPower, reading.DCPower)
		reading.IsProducing = reading.ACPower.Valid() && reading.ACPower > 0
		hourly = append(hourly, reading)
	}
	sort.SliceStable(hourly, func(i, j int) bool { return hourly[i].Timestamp.Before(hourly[j].Timestamp) })

	return ingestion.PlantSeries{Hourly: hourly, Daily: dailyAggregates(hourly)}
}

func efficiency(ac, dc ingestion.Float) ingestion.Float {
	if !dc.Valid() || dc == 0 {
		return 0
	}
	ratio := float64(ac) / float64(dc)
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return 0
	}
	return ingestion.Float(ratio)
}

func dailyAggregates(hourly []ingestion.SolarReading) []ingestion.SolarDaily {
	var (
		order   []string
		buckets = map[string][]ingestion.SolarReading{}
	)
	for _, r := range hourly {
		date := r.Timestamp.Format("2006-01-02")
		if _, ok := buckets[date]; !ok {
			order = append(order, date)
		}
		buckets[date] = append(buckets[date], r)
	}

	out := make([]ingestion.SolarDaily, 0, len(order))
	for _, date := range order {
		day := buckets[date]
		pick := func(f func(ingestion.SolarReading) ingestion.Float) []float64 {
			values := make([]ingestion.Float, 0, len(day))
			for _, r := range day {
				values = append(values, f(r))
			}
			return ingestion.ValidValues(values)
		}
		out = append(out, ingestion.SolarDaily{
			Date:            date,
			ACPowerSum:      sumOf(pick(func(r ingestion.SolarReading) ingestion.Float { return r.ACPower })),
			DCPowerSum:      sumOf(pick(func(r ingestion.SolarReading) ingestion.Float { return r.DCPower })),
			DailyYieldMax:   maxOf(pick(func(r ingestion.SolarReading) ingestion.Float { return r.DailyYield })),
			IrradiationMean: meanOf(pick(func(r ingestion.SolarReading) ingestion.Float { return r.Irradiation })),
			AmbientTempMean: meanOf(pick(func(r ingestion.SolarReading) ingestion.Float { return r.AmbientTemp })),
			ModuleTempMean:  meanOf(pick(func(r ingestion.SolarReading) ingestion.Float { return r.ModuleTemp })),
			EfficiencyMean:  meanOf(pick(func(r ingestion.SolarReading) ingestion.Float { return r.Efficiency })),
		})
	}
	return out
}

func dataPeriod(prices []ingestion.PricePoint) ingestion.DataPeriod {
	if len(prices) == 0 {
		return ingestion.DataPeriod{}
	}
	start := prices[0].Timestamp
	end := prices[len(prices)-1].Timestamp
	return ingestion.DataPeriod{Start: &start, End: &end}
}

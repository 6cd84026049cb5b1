package application

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	ingestion "energy-square/internal/ingestion/domain"
)

// minCoefficientRows is the number of producing rows needed before a
// temperature coefficient is reported.
const minCoefficientRows = 11

func (c *Canonicalizer) analyze(ds *ingestion.Dataset) ingestion.Analytics {
	out := ingestion.Analytics{
		PriceStats:  priceStats(ds.MarketData.PunPrices),
		DemandStats: demandStats(ds.MarketData.DemandData),
	}
	interval := c.layout.SampleInterval()
	for _, key := range ds.PlantKeys() {
		series := ds.SolarData[key]
		if len(series.Hourly) == 0 {
			continue
		}
		if out.Plants == nil {
			out.Plants = map[string]ingestion.PlantStats{}
		}
		out.Plants[key] = plantStats(series.Hourly, interval)
	}
	out.PriceDemandCorrelation = priceDemandCorrelation(ds.MarketData.PunPrices, ds.MarketData.DemandData)
	return out
}

func priceStats(prices []ingestion.PricePoint) *ingestion.PriceStats {
	var all, peak, offPeak []float64
	for _, p := range prices {
		if !p.PriceMWh.Valid() {
			continue
		}
		v := float64(p.PriceMWh)
		all = append(all, v)
		if p.IsPeakHour {
			peak = append(peak, v)
		} else {
			offPeak = append(offPeak, v)
		}
	}
	if len(all) == 0 {
		return nil
	}
	return &ingestion.PriceStats{
		Min:         minOf(all),
		Max:         maxOf(all),
		Mean:        meanOf(all),
		StdDev:      stdDevOf(all),
		PeakMean:    meanOf(peak),
		OffPeakMean: meanOf(offPeak),
	}
}

func demandStats(demand []ingestion.DemandRecord) *ingestion.DemandStats {
	var all, peak, offPeak []float64
	for _, d := range demand {
		national := d.National()
		if !national.Valid() {
			continue
		}
		v := float64(national)
		all = append(all, v)
		if ingestion.IsPeakHour(d.Hour) {
			peak = append(peak, v)
		} else {
			offPeak = append(offPeak, v)
		}
	}
	if len(all) == 0 {
		return nil
	}
	return &ingestion.DemandStats{
		Min:         minOf(all),
		Max:         maxOf(all),
		Mean:        meanOf(all),
		PeakMean:    meanOf(peak),
		OffPeakMean: meanOf(offPeak),
	}
}

func plantStats(hourly []ingestion.SolarReading, interval time.Duration) ingestion.PlantStats {
	hours := interval.Hours()
	var ac, eff, irr []float64
	producing := 0
	for _, r := range hourly {
		if r.ACPower.Valid() {
			ac = append(ac, float64(r.ACPower))
		}
		if r.Efficiency.Valid() {
			eff = append(eff, float64(r.Efficiency))
		}
		if r.Irradiation.Valid() {
			irr = append(irr, float64(r.Irradiation))
		}
		if r.IsProducing {
			producing++
		}
	}
	total := ingestion.Float(0)
	if len(ac) > 0 {
		total = ingestion.Float(floats.Sum(ac) * hours)
	}
	return ingestion.PlantStats{
		TotalProductionKWh:     total,
		MaxPowerKW:             maxOf(ac),
		AvgEfficiency:          meanOf(eff),
		ProducingHours:         ingestion.Float(float64(producing) * hours),
		AvgIrradiation:         meanOf(irr),
		TemperatureCoefficient: temperatureCoefficient(hourly),
	}
}

// temperatureCoefficient correlates module temperature with AC power over
// producing, irradiated rows. Too few rows or a degenerate series yield 0.
func temperatureCoefficient(hourly []ingestion.SolarReading) ingestion.Float {
	var temps, power []float64
	eligible := 0
	for _, r := range hourly {
		if !r.ACPower.Valid() || r.ACPower <= 0 || !r.Irradiation.Valid() || r.Irradiation <= 0 {
			continue
		}
		eligible++
		if r.ModuleTemp.Valid() {
			temps = append(temps, float64(r.ModuleTemp))
			power = append(power, float64(r.ACPower))
		}
	}
	if eligible < minCoefficientRows || len(temps) < 2 {
		return 0
	}
	corr := stat.Correlation(temps, power, nil)
	if math.IsNaN(corr) || math.IsInf(corr, 0) {
		return 0
	}
	return ingestion.Float(corr)
}

// priceDemandCorrelation pairs prices and national demand by timestamp.
// It is omitted when either series is empty or the pairs are degenerate.
func priceDemandCorrelation(prices []ingestion.PricePoint, demand []ingestion.DemandRecord) *ingestion.Float {
	if len(prices) == 0 || len(demand) == 0 {
		return nil
	}
	demandAt := make(map[int64]ingestion.Float, len(demand))
	for _, d := range demand {
		key := d.Timestamp.UnixNano()
		if _, ok := demandAt[key]; !ok {
			demandAt[key] = d.National()
		}
	}
	var xs, ys []float64
	for _, p := range prices {
		d, ok := demandAt[p.Timestamp.UnixNano()]
		if !ok || !d.Valid() || !p.PriceMWh.Valid() {
			continue
		}
		xs = append(xs, float64(p.PriceMWh))
		ys = append(ys, float64(d))
	}
	if len(xs) < 2 {
		return nil
	}
	corr := stat.Correlation(xs, ys, nil)
	if math.IsNaN(corr) || math.IsInf(corr, 0) {
		return nil
	}
	value := ingestion.Float(corr)
	return &value
}

func sumOf(values []float64) ingestion.Float {
	if len(values) == 0 {
		return ingestion.Missing()
	}
	return ingestion.Float(floats.Sum(values))
}

func minOf(values []float64) ingestion.Float {
	if len(values) == 0 {
		return ingestion.Missing()
	}
	return ingestion.Float(floats.Min(values))
}

func maxOf(values []float64) ingestion.Float {
	if len(values) == 0 {
		return ingestion.Missing()
	}
	return ingestion.Float(floats.Max(values))
}

func meanOf(values []float64) ingestion.Float {
	if len(values) == 0 {
		return ingestion.Missing()
	}
	return ingestion.Float(stat.Mean(values, nil))
}

func stdDevOf(values []float64) ingestion.Float {
	if len(values) < 2 {
		return ingestion.Missing()
	}
	return ingestion.Float(stat.StdDev(values, nil))
}

package application

import (
	"math"

	energy "energy-square/internal/energy/domain"
	ingestion "energy-square/internal/ingestion/domain"
)

// GenerationAt sums, over every plant, the mean AC power of the readings at
// hour. Readings at or below zero are excluded from the mean.
func GenerationAt(ds *ingestion.Dataset, hour int) float64 {
	if ds == nil {
		return 0
	}
	total := 0.0
	for _, key := range ds.PlantKeys() {
		var sum float64
		var n int
		for _, r := range ds.SolarData[key].Hourly {
			if r.Hour != hour || !r.ACPower.Valid() || r.ACPower <= 0 {
				continue
			}
			sum += float64(r.ACPower)
			n++
		}
		if n > 0 {
			total += sum / float64(n)
		}
	}
	return energy.SafeFloat(total)
}

// hourDemandMW averages the regional demand of the records at hour, keeping
// only records with positive demand. found reports whether any record
// matched the hour.
func hourDemandMW(demand []ingestion.DemandRecord, hour int) (avg float64, found bool) {
	var sum float64
	var n int
	for _, rec := range demand {
		if rec.Hour != hour {
			continue
		}
		found = true
		if regional := rec.RegionalDemand(); regional > 0 {
			sum += regional
			n++
		}
	}
	if n == 0 {
		return 0, found
	}
	return sum / float64(n), found
}

// RegionalConsumptionKW converts the regional demand at hour to community
// kW with the given scale. Hours without records are interpolated from the
// nearest sampled hours.
func RegionalConsumptionKW(demand []ingestion.DemandRecord, hour int, scale float64) float64 {
	if len(demand) == 0 {
		return 0
	}
	if avg, found := hourDemandMW(demand, hour); found {
		return energy.SafeFloat(avg * 1000 * scale)
	}
	seen := map[int]bool{}
	samples := make([]energy.HourSample, 0, 24)
	for _, rec := range demand {
		if seen[rec.Hour] {
			continue
		}
		seen[rec.Hour] = true
		avg, _ := hourDemandMW(demand, rec.Hour)
		samples = append(samples, energy.HourSample{Hour: rec.Hour, Value: avg * 1000 * scale})
	}
	return energy.InterpolateHour(hour, samples)
}

// ConsumptionScale picks the regional scaling factor, falling back when the
// primary factor is unusable.
func ConsumptionScale(primary, fallback float64) float64 {
	if primary > 0 && !math.IsInf(primary, 0) {
		return primary
	}
	return energy.SafeFloat(fallback)
}

// LatestPriceKWh walks the price series from the most recent point and
// returns the first present price in currency per kWh.
func LatestPriceKWh(prices []ingestion.PricePoint) float64 {
	for i := len(prices) - 1; i >= 0; i-- {
		p := prices[i]
		if p.PriceKWh.Valid() {
			return energy.SafeFloat(float64(p.PriceKWh))
		}
		if p.PriceMWh.Valid() {
			return energy.SafeFloat(float64(p.PriceMWh) / 1000)
		}
	}
	return 0
}

// NationalDemandTotal sums the national demand of every record.
func NationalDemandTotal(demand []ingestion.DemandRecord) float64 {
	total := 0.0
	for _, rec := range demand {
		if v := rec.National(); v.Valid() {
			total += float64(v)
		}
	}
	return total
}

// PlantProductionTotal sums total_production_kwh over the plant analytics.
func PlantProductionTotal(ds *ingestion.Dataset) float64 {
	if ds == nil {
		return 0
	}
	total := 0.0
	for _, stats := range ds.Analytics.Plants {
		total += stats.TotalProductionKWh.Or(0)
	}
	return energy.SafeFloat(total)
}

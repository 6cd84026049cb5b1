package energy

import "time"

// Live is the instantaneous community balance.
type Live struct {
	GenerationKW  float64         `json:"current_generation_kw"`
	ConsumptionKW float64         `json:"current_consumption_kw"`
	NetBalanceKW  float64         `json:"net_balance_kw"`
	GridExportKW  float64         `json:"grid_export_kw"`
	GridImportKW  float64         `json:"grid_import_kw"`
	Breakdown     SourceBreakdown `json:"source_breakdown"`
	Timestamp     time.Time       `json:"timestamp"`
}

// FlowPoint is one hourly slot of an energy flow window.
type FlowPoint struct {
	Date         time.Time `json:"date"`
	Produced     float64   `json:"produced"`
	Consumed     float64   `json:"consumed"`
	Sold         float64   `json:"sold"`
	Bought       float64   `json:"bought"`
	CarbonOffset float64   `json:"carbon_offset"`
	Efficiency   float64   `json:"efficiency"`
}

// NewFlowPoint derives sold, bought and efficiency for a slot.
func NewFlowPoint(at time.Time, generation, consumption float64) FlowPoint {
	net := NetBalance(generation, consumption)
	return FlowPoint{
		Date:       at,
		Produced:   Round(generation, 2),
		Consumed:   Round(consumption, 2),
		Sold:       Round(GridExport(net), 2),
		Bought:     Round(GridImport(net), 2),
		Efficiency: Efficiency(generation, consumption),
	}
}

// FlowTotals sums a window.
type FlowTotals struct {
	ProducedKWh float64 `json:"produced_kwh"`
	ConsumedKWh float64 `json:"consumed_kwh"`
	SoldKWh     float64 `json:"sold_kwh"`
	BoughtKWh   float64 `json:"bought_kwh"`
}

// Totals sums the points of a window of hourly slots.
func Totals(points []FlowPoint) FlowTotals {
	var t FlowTotals
	for _, p := range points {
		t.ProducedKWh += p.Produced
		t.ConsumedKWh += p.Consumed
		t.SoldKWh += p.Sold
		t.BoughtKWh += p.Bought
	}
	return t
}

// MeanConsumed is the mean consumption of a window.
func MeanConsumed(points []FlowPoint) float64 {
	values := make([]float64, 0, len(points))
	for _, p := range points {
		values = append(values, p.Consumed)
	}
	return Mean(values)
}

// Carbon summarizes avoided emissions.
type Carbon struct {
	TotalOffsetKg      float64 `json:"total_offset_kg"`
	BaselineComparison float64 `json:"baseline_comparison"`
	RegionalRank       int     `json:"regional_rank"`
	CumulativeOffsetKg float64 `json:"cumulative_offset_kg"`
}

// NewCarbon computes carbon metrics from the daily and 30-day windows.
func NewCarbon(day, month FlowTotals, factor float64, rank int) Carbon {
	baseline := 0.0
	if day.ConsumedKWh > 0 {
		baseline = Clamp01(Ratio(day.ProducedKWh, day.ConsumedKWh))
	}
	return Carbon{
		TotalOffsetKg:      Round(CarbonOffset(day.ProducedKWh, factor), 2),
		BaselineComparison: baseline,
		RegionalRank:       rank,
		CumulativeOffsetKg: Round(CarbonOffset(month.ProducedKWh, factor), 2),
	}
}

// Demand-response constants.
const (
	DemandResponsePriceThreshold = 0.20
	DemandResponseShedShare      = 0.10
	DemandResponseRewardShare    = 0.5
	DemandResponseEventDuration  = 2 * time.Hour
)

// DemandResponseEvent is a synthesized load reduction request.
type DemandResponseEvent struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	TargetReductionKW float64   `json:"target_reduction_kw"`
	RewardPerKWh      float64   `json:"reward_per_kwh"`
	Status            string    `json:"status"`
}

// DemandResponse is the demand-response signal.
type DemandResponse struct {
	Engagement      float64               `json:"engagement"`
	PotentialShedKW float64               `json:"potential_shed_kw"`
	PriceSignalKWh  float64               `json:"price_signal_eur_kwh"`
	ActiveEvents    []DemandResponseEvent `json:"active_events"`
	Recommendations []string              `json:"recommendations"`
}

// NewDemandResponse synthesizes events from the latest price and balance.
func NewDemandResponse(now time.Time, consumption, net, priceKWh, engagement float64) DemandResponse {
	shed := max(0, SafeFloat(consumption)*DemandResponseShedShare)
	out := DemandResponse{
		Engagement:      SafeFloat(engagement),
		PotentialShedKW: shed,
		PriceSignalKWh:  SafeFloat(priceKWh),
		ActiveEvents:    []DemandResponseEvent{},
		Recommendations: []string{},
	}
	if out.PriceSignalKWh > DemandResponsePriceThreshold {
		out.ActiveEvents = append(out.ActiveEvents, DemandResponseEvent{
			ID:                "peak-price",
			Title:             "Peak Price Reduction",
			StartTime:         now,
			EndTime:           now.Add(DemandResponseEventDuration),
			TargetReductionKW: Round(shed, 2),
			RewardPerKWh:      Round(out.PriceSignalKWh*DemandResponseRewardShare, 3),
			Status:            "active",
		})
		out.Recommendations = append(out.Recommendations, "Reduce flexible loads during next 2 hours to avoid high prices")
	}
	if SafeFloat(net) < 0 {
		out.Recommendations = append(out.Recommendations, "Shift non-critical consumption to off-peak hours")
	}
	return out
}

// GridInteraction reports stability and the current grid tariffs.
type GridInteraction struct {
	StabilityIndex float64  `json:"stability_index"`
	ImportRate     float64  `json:"import_rate"`
	ExportRate     float64  `json:"export_rate"`
	OutageZones    []string `json:"outage_zones"`
}

// ExportDiscount is applied to the latest price for surplus sold.
const ExportDiscount = 0.95

// NewGridInteraction prices imports in deficit and exports in surplus.
func NewGridInteraction(generation, consumption, priceKWh float64) GridInteraction {
	net := NetBalance(generation, consumption)
	out := GridInteraction{
		StabilityIndex: Stability(generation, consumption),
		OutageZones:    []string{},
	}
	if net < 0 {
		out.ImportRate = SafeFloat(priceKWh)
	}
	if net > 0 {
		out.ExportRate = Round(priceKWh*ExportDiscount, 2)
	}
	return out
}

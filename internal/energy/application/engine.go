package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	community "energy-square/internal/community/domain"
	energy "energy-square/internal/energy/domain"
	ingestion "energy-square/internal/ingestion/domain"
	"energy-square/internal/observability/metrics"
)

// DatasetSource returns the published canonical dataset.
type DatasetSource interface {
	Current() *ingestion.Dataset
}

// ConfigSource returns the community config. It is read on every call.
type ConfigSource interface {
	Get(ctx context.Context) (community.Config, error)
}

// Engine reconstructs live and windowed community metrics from the
// canonical dataset.
type Engine struct {
	data   DatasetSource
	config ConfigSource
	logger *log.Logger
	now    func() time.Time
	loc    *time.Location
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLocation sets the zone used to derive the hour of day. It must match
// the zone the dataset hours were derived in.
func WithLocation(loc *time.Location) EngineOption {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// NewEngine constructs an engine.
func NewEngine(data DatasetSource, config ConfigSource, logger *log.Logger, opts ...EngineOption) (*Engine, error) {
	if data == nil {
		return nil, errors.New("energy engine: nil dataset source")
	}
	if config == nil {
		return nil, errors.New("energy engine: nil config source")
	}
	if logger == nil {
		logger = log.Default()
	}
	e := &Engine{
		data:   data,
		config: config,
		logger: logger,
		now:    time.Now,
		loc:    time.UTC,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// guard runs one metric computation. Failures and panics are logged and
// replaced by fallback.
func guard[T any](e *Engine, metric string, fallback T, fn func() (T, error)) (out T) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Printf("energy engine: metric=%s panic: %v", metric, r)
			metrics.IncMetricFallback(metric)
			out = fallback
		}
	}()
	value, err := fn()
	if err != nil {
		e.logger.Printf("energy engine: metric=%s error: %v", metric, err)
		metrics.IncMetricFallback(metric)
		return fallback
	}
	return value
}

func (e *Engine) hourOf(t time.Time) int {
	return t.In(e.loc).Hour()
}

func (e *Engine) loadConfig(ctx context.Context) (community.Config, error) {
	cfg, err := e.config.Get(ctx)
	if err != nil {
		return community.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// profile resolves generation and consumption for every hour of day once
// per call.
type profile struct {
	generation  [24]float64
	consumption [24]float64
}

func (e *Engine) buildProfile(ds *ingestion.Dataset, cfg community.Config) profile {
	scale := ConsumptionScale(cfg.RegionalToCommunityScaling, cfg.FallbackRegionalScaling)
	var p profile
	for h := 0; h < 24; h++ {
		p.generation[h] = GenerationAt(ds, h)
		p.consumption[h] = RegionalConsumptionKW(ds.MarketData.DemandData, h, scale)
	}
	return p
}

// CurrentGeneration is the community solar generation in kW for the
// current hour of day.
func (e *Engine) CurrentGeneration(_ context.Context) float64 {
	return e.generationAt(e.now())
}

// CurrentConsumption is the community consumption in kW for the current
// hour of day.
func (e *Engine) CurrentConsumption(ctx context.Context) float64 {
	return e.consumptionAt(ctx, e.now())
}

func (e *Engine) generationAt(at time.Time) float64 {
	return guard(e, "current_generation", 0, func() (float64, error) {
		return GenerationAt(e.data.Current(), e.hourOf(at)), nil
	})
}

func (e *Engine) consumptionAt(ctx context.Context, at time.Time) float64 {
	return guard(e, "current_consumption", 0, func() (float64, error) {
		cfg, err := e.loadConfig(ctx)
		if err != nil {
			return 0, err
		}
		scale := ConsumptionScale(cfg.RegionalToCommunityScaling, cfg.FallbackRegionalScaling)
		return RegionalConsumptionKW(e.data.Current().MarketData.DemandData, e.hourOf(at), scale), nil
	})
}

// NetBalance is current generation minus consumption.
func (e *Engine) NetBalance(ctx context.Context) float64 {
	return e.Live(ctx).NetBalanceKW
}

// GridExport is the current surplus sent to the grid.
func (e *Engine) GridExport(ctx context.Context) float64 {
	return e.Live(ctx).GridExportKW
}

// SourceBreakdown is the current solar and grid share.
func (e *Engine) SourceBreakdown(ctx context.Context) energy.SourceBreakdown {
	return e.Live(ctx).Breakdown
}

// Live resolves generation and consumption for one instant and derives the
// balance.
func (e *Engine) Live(ctx context.Context) energy.Live {
	now := e.now()
	generation := e.generationAt(now)
	consumption := e.consumptionAt(ctx, now)
	net := energy.NetBalance(generation, consumption)
	return energy.Live{
		GenerationKW:  generation,
		ConsumptionKW: consumption,
		NetBalanceKW:  net,
		GridExportKW:  energy.GridExport(net),
		GridImportKW:  energy.GridImport(net),
		Breakdown:     energy.Breakdown(generation, consumption),
		Timestamp:     now,
	}
}

// EnergyFlow returns one point per hour for the last days×24 hours, oldest
// first. Each slot reuses the dataset's hour-of-day pattern.
func (e *Engine) EnergyFlow(ctx context.Context, days int) []energy.FlowPoint {
	return guard(e, "energy_flow", []energy.FlowPoint{}, func() ([]energy.FlowPoint, error) {
		cfg, err := e.loadConfig(ctx)
		if err != nil {
			return nil, err
		}
		return e.flow(e.data.Current(), cfg, days, false), nil
	})
}

// EnergyTrends is EnergyFlow with the carbon offset of each slot.
func (e *Engine) EnergyTrends(ctx context.Context, days int) []energy.FlowPoint {
	return guard(e, "energy_trends", []energy.FlowPoint{}, func() ([]energy.FlowPoint, error) {
		cfg, err := e.loadConfig(ctx)
		if err != nil {
			return nil, err
		}
		return e.flow(e.data.Current(), cfg, days, true), nil
	})
}

func (e *Engine) flow(ds *ingestion.Dataset, cfg community.Config, days int, withCarbon bool) []energy.FlowPoint {
	if days < 1 {
		days = 1
	}
	p := e.buildProfile(ds, cfg)
	now := e.now()
	slots := days * 24
	out := make([]energy.FlowPoint, 0, slots)
	for i := 0; i < slots; i++ {
		at := now.Add(-time.Duration(slots-i) * time.Hour)
		h := e.hourOf(at)
		point := energy.NewFlowPoint(at, p.generation[h], p.consumption[h])
		if withCarbon {
			point.CarbonOffset = energy.Round(energy.CarbonOffset(point.Produced, cfg.EmissionFactorKgPerKWh), 2)
		}
		out = append(out, point)
	}
	return out
}

// GridTelemetry synthesizes frequency, voltage, load and renewable share.
func (e *Engine) GridTelemetry(ctx context.Context) energy.Telemetry {
	fallback := energy.Telemetry{FrequencyHz: 50, VoltageV: 230}
	return guard(e, "grid_telemetry", fallback, func() (energy.Telemetry, error) {
		cfg, err := e.loadConfig(ctx)
		if err != nil {
			return energy.Telemetry{}, err
		}
		ds := e.data.Current()
		p := e.buildProfile(ds, cfg)
		h := e.hourOf(e.now())
		generation, consumption := p.generation[h], p.consumption[h]
		mean := energy.MeanConsumed(e.flow(ds, cfg, 1, false))
		t := energy.GridTelemetry(generation, consumption, mean, cfg.TelemetryBaselineHz, cfg.TelemetryNominalV)
		t.FrequencyHz = energy.Round(t.FrequencyHz, 2)
		t.VoltageV = energy.Round(t.VoltageV, 1)
		t.LoadPct = energy.Round(t.LoadPct, 0)
		t.RenewablePct = energy.Round(t.RenewablePct, 0)
		return t, nil
	})
}

// CarbonMetrics reports the offset of the last 24 hours and 30 days.
func (e *Engine) CarbonMetrics(ctx context.Context) energy.Carbon {
	return guard(e, "carbon", energy.Carbon{}, func() (energy.Carbon, error) {
		cfg, err := e.loadConfig(ctx)
		if err != nil {
			return energy.Carbon{}, err
		}
		ds := e.data.Current()
		day := energy.Totals(e.flow(ds, cfg, 1, false))
		month := energy.Totals(e.flow(ds, cfg, 30, false))
		return energy.NewCarbon(day, month, cfg.EmissionFactorKgPerKWh, cfg.RegionalRank), nil
	})
}

// DemandResponseSignal derives shed potential and price-triggered events.
func (e *Engine) DemandResponseSignal(ctx context.Context) energy.DemandResponse {
	fallback := energy.NewDemandResponse(e.now(), 0, 0, 0, 0.75)
	return guard(e, "demand_response", fallback, func() (energy.DemandResponse, error) {
		cfg, err := e.loadConfig(ctx)
		if err != nil {
			return energy.DemandResponse{}, err
		}
		live := e.Live(ctx)
		price := LatestPriceKWh(e.data.Current().MarketData.PunPrices)
		return energy.NewDemandResponse(e.now(), live.ConsumptionKW, live.NetBalanceKW, price, cfg.DemandResponseEngagement), nil
	})
}

// GridInteraction reports stability and grid tariffs at the current balance.
func (e *Engine) GridInteraction(ctx context.Context) energy.GridInteraction {
	fallback := energy.GridInteraction{StabilityIndex: 0.9, OutageZones: []string{}}
	return guard(e, "grid_interaction", fallback, func() (energy.GridInteraction, error) {
		live := e.Live(ctx)
		price := LatestPriceKWh(e.data.Current().MarketData.PunPrices)
		return energy.NewGridInteraction(live.GenerationKW, live.ConsumptionKW, price), nil
	})
}

// LatestPrice is the most recent known price per kWh.
func (e *Engine) LatestPrice(_ context.Context) float64 {
	return guard(e, "latest_price", 0, func() (float64, error) {
		return LatestPriceKWh(e.data.Current().MarketData.PunPrices), nil
	})
}

// History is the 24 hour production and demand history.
type History struct {
	ProductionKWh float64 `json:"history_24h_production"`
	Demand        float64 `json:"history_24h_demand"`
}

// History24h sums plant production and the national demand scaled by
// demand_scaling_factor. The factor is independent of the live regional
// scaling.
func (e *Engine) History24h(ctx context.Context) History {
	return guard(e, "history_24h", History{}, func() (History, error) {
		cfg, err := e.loadConfig(ctx)
		if err != nil {
			return History{}, err
		}
		ds := e.data.Current()
		return History{
			ProductionKWh: PlantProductionTotal(ds),
			Demand:        energy.SafeFloat(NationalDemandTotal(ds.MarketData.DemandData) * cfg.DemandScalingFactor),
		}, nil
	})
}

package application

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	community "energy-square/internal/community/domain"
	dashboard "energy-square/internal/dashboard/domain"
	devices "energy-square/internal/devices/domain"
	energyapp "energy-square/internal/energy/application"
	energy "energy-square/internal/energy/domain"
	ingestion "energy-square/internal/ingestion/domain"
	notices "energy-square/internal/notices/domain"
	"energy-square/internal/observability/metrics"
)

const (
	alertLimit       = 10
	transactionLimit = 10
	monthDays        = 30
)

// MetricEngine computes community metrics.
type MetricEngine interface {
	Live(ctx context.Context) energy.Live
	History24h(ctx context.Context) energyapp.History
	EnergyFlow(ctx context.Context, days int) []energy.FlowPoint
	EnergyTrends(ctx context.Context, days int) []energy.FlowPoint
	GridInteraction(ctx context.Context) energy.GridInteraction
	CarbonMetrics(ctx context.Context) energy.Carbon
	DemandResponseSignal(ctx context.Context) energy.DemandResponse
	LatestPrice(ctx context.Context) float64
}

// ConfigSource returns the community config.
type ConfigSource interface {
	Get(ctx context.Context) (community.Config, error)
}

// NoticeSource lists alerts.
type NoticeSource interface {
	ListCommunityAlerts(ctx context.Context, limit int) ([]notices.Notice, error)
	ListUserAlerts(ctx context.Context, userID string, limit int) ([]notices.Notice, error)
}

// DeviceSource reads the device registry. Its methods degrade to defaults.
type DeviceSource interface {
	GetUserDevice(ctx context.Context, userID string) devices.UserDevice
	AggregateCommunity(ctx context.Context) devices.CommunityAggregate
	UserProductionToday(ctx context.Context, userID string, communityProducedKWh, fallbackCapacityKW float64) float64
	UserConsumptionToday(ctx context.Context, userID string) float64
}

// DatasetSource returns the published dataset.
type DatasetSource interface {
	Current() *ingestion.Dataset
}

// TransactionRepository lists marketplace trades.
type TransactionRepository interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]dashboard.Transaction, error)
}

// ProgramRepository stores demand-response programs.
type ProgramRepository interface {
	List(ctx context.Context) ([]dashboard.Program, error)
	Create(ctx context.Context, program dashboard.Program) error
}

// Deps are the collaborators of the service.
type Deps struct {
	Engine       MetricEngine
	Config       ConfigSource
	Notices      NoticeSource
	Devices      DeviceSource
	Dataset      DatasetSource
	Transactions TransactionRepository
	Programs     ProgramRepository
}

// Service composes engine results and collaborator data into dashboard
// responses. A failing collaborator degrades its section only.
type Service struct {
	deps   Deps
	logger *log.Logger
	now    func() time.Time
}

// ServiceOption configures the service.
type ServiceOption func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a service.
func NewService(deps Deps, logger *log.Logger, opts ...ServiceOption) (*Service, error) {
	switch {
	case deps.Engine == nil:
		return nil, errors.New("dashboard service: nil engine")
	case deps.Config == nil:
		return nil, errors.New("dashboard service: nil config source")
	case deps.Notices == nil:
		return nil, errors.New("dashboard service: nil notice source")
	case deps.Devices == nil:
		return nil, errors.New("dashboard service: nil device source")
	case deps.Dataset == nil:
		return nil, errors.New("dashboard service: nil dataset source")
	case deps.Transactions == nil:
		return nil, errors.New("dashboard service: nil transaction repository")
	case deps.Programs == nil:
		return nil, errors.New("dashboard service: nil program repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &Service{deps: deps, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// degradation counts sections that fell back during one request.
type degradation struct {
	count atomic.Int32
}

func (d *degradation) mark() { d.count.Add(1) }

func (d *degradation) result() string {
	if d.count.Load() > 0 {
		return metrics.ResultDegraded
	}
	return metrics.ResultSuccess
}

func (s *Service) config(ctx context.Context, view string, deg *degradation) community.Config {
	cfg, err := s.deps.Config.Get(ctx)
	if err != nil {
		s.logger.Printf("dashboard service: view=%s config error: %v", view, err)
		deg.mark()
		return community.Defaults(s.now())
	}
	return cfg
}

// Community builds the community dashboard.
func (s *Service) Community(ctx context.Context) dashboard.CommunityDashboard {
	started := time.Now()
	deg := &degradation{}
	cfg := s.config(ctx, "community", deg)

	var (
		live    energy.Live
		history energyapp.History
		grid    energy.GridInteraction
		carbon  energy.Carbon
		agg     devices.CommunityAggregate
		alerts  []notices.Notice
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		live = s.deps.Engine.Live(gctx)
		return nil
	})
	g.Go(func() error {
		history = s.deps.Engine.History24h(gctx)
		return nil
	})
	g.Go(func() error {
		grid = s.deps.Engine.GridInteraction(gctx)
		return nil
	})
	g.Go(func() error {
		carbon = s.deps.Engine.CarbonMetrics(gctx)
		return nil
	})
	g.Go(func() error {
		agg = s.deps.Devices.AggregateCommunity(gctx)
		return nil
	})
	g.Go(func() error {
		alerts = s.communityAlerts(gctx, deg)
		return nil
	})
	_ = g.Wait()

	out := dashboard.CommunityDashboard{
		TotalEnergyFlow: dashboard.EnergyFlow{
			Generation:      dashboard.LiveHistory{Live: live.GenerationKW, History24h: history.ProductionKWh},
			Consumption:     dashboard.LiveHistory{Live: live.ConsumptionKW, History24h: history.Demand},
			Net:             live.NetBalanceKW,
			SourceBreakdown: live.Breakdown,
		},
		StorageNetwork:      dashboard.NewStorageNetwork(cfg, agg.TotalBatteryCapacityKWh, agg.AverageBatterySOCPct),
		GridInteraction:     grid,
		Participation:       dashboard.NewParticipation(cfg, agg.UserCount),
		CarbonMetrics:       carbon,
		MarketplaceActivity: dashboard.NewMarketplaceActivity(cfg, history.ProductionKWh),
		Alerts:              alerts,
		Leaderboards:        dashboard.NewLeaderboards(cfg),
		GeneratedAt:         s.now().UTC(),
	}
	metrics.ObserveDashboard("community", deg.result(), time.Since(started))
	return out
}

func (s *Service) communityAlerts(ctx context.Context, deg *degradation) []notices.Notice {
	alerts, err := s.deps.Notices.ListCommunityAlerts(ctx, alertLimit)
	if err != nil {
		s.logger.Printf("dashboard service: community alerts error: %v", err)
		deg.mark()
		return []notices.Notice{}
	}
	return alerts
}

func (s *Service) userAlerts(ctx context.Context, userID string, deg *degradation) []notices.Notice {
	alerts, err := s.deps.Notices.ListUserAlerts(ctx, userID, alertLimit)
	if err != nil {
		s.logger.Printf("dashboard service: user alerts error: user=%s err=%v", userID, err)
		deg.mark()
		return []notices.Notice{}
	}
	return alerts
}

func (s *Service) transactions(ctx context.Context, userID string, deg *degradation) []dashboard.Transaction {
	list, err := s.deps.Transactions.ListByUser(ctx, userID, transactionLimit)
	if err != nil {
		s.logger.Printf("dashboard service: transactions error: user=%s err=%v", userID, err)
		deg.mark()
		return []dashboard.Transaction{}
	}
	if list == nil {
		return []dashboard.Transaction{}
	}
	return list
}

// flows resolves the 24 hour and 30 day flows concurrently.
func (s *Service) flows(ctx context.Context) (day, month energy.FlowTotals) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		day = energy.Totals(s.deps.Engine.EnergyFlow(gctx, 1))
		return nil
	})
	g.Go(func() error {
		month = energy.Totals(s.deps.Engine.EnergyTrends(gctx, monthDays))
		return nil
	})
	_ = g.Wait()
	return day, month
}

// User builds the dashboard of one user.
func (s *Service) User(ctx context.Context, userID string) dashboard.UserDashboard {
	started := time.Now()
	deg := &degradation{}
	cfg := s.config(ctx, "user", deg)

	var (
		day, month   energy.FlowTotals
		device       devices.UserDevice
		agg          devices.CommunityAggregate
		signal       energy.DemandResponse
		price        float64
		transactions []dashboard.Transaction
		alerts       []notices.Notice
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		day, month = s.flows(gctx)
		return nil
	})
	g.Go(func() error {
		device = s.deps.Devices.GetUserDevice(gctx, userID)
		agg = s.deps.Devices.AggregateCommunity(gctx)
		return nil
	})
	g.Go(func() error {
		signal = s.deps.Engine.DemandResponseSignal(gctx)
		return nil
	})
	g.Go(func() error {
		price = s.deps.Engine.LatestPrice(gctx)
		return nil
	})
	g.Go(func() error {
		transactions = s.transactions(gctx, userID, deg)
		return nil
	})
	g.Go(func() error {
		alerts = s.userAlerts(gctx, userID, deg)
		return nil
	})
	_ = g.Wait()

	produced := s.deps.Devices.UserProductionToday(ctx, userID, day.ProducedKWh, cfg.Derived().TotalSolarCapacity)
	consumed := s.deps.Devices.UserConsumptionToday(ctx, userID)
	credits := dashboard.NewCredits(day, month, cfg.TotalHouseholds)
	rates := dashboard.NewMarketRates(price, cfg.AverageEnergyPrice, cfg.PriceFluctuationRange)

	out := dashboard.UserDashboard{
		UserID:              userID,
		ProducedKWhToday:    energy.Round(produced, 2),
		ConsumedKWhToday:    energy.Round(consumed, 2),
		NetKWhToday:         energy.Round(produced-consumed, 2),
		BatterySOCPct:       energy.Round(device.BatterySOCPct, 1),
		BatteryCapacityKWh:  energy.Round(device.BatteryCapacityKWh, 2),
		BatteryAvailableKWh: energy.Round(device.StoredEnergyKWh(), 2),
		CreditsToday:        credits.CreditsToday,
		TotalCredits:        credits.TotalCredits,
		CurrentRate:         rates.CurrentRate,
		RecentTransactions:  transactions,
		Carbon:              dashboard.NewUserCarbon(day, month, cfg.EmissionFactorKgPerKWh, agg.UserCount),
		DemandResponse:      dashboard.NewUserParticipation(signal),
		Alerts:              alerts,
	}
	metrics.ObserveDashboard("user", deg.result(), time.Since(started))
	return out
}

// Marketplace reports credits, rates and trades of one user.
func (s *Service) Marketplace(ctx context.Context, userID string) dashboard.Marketplace {
	started := time.Now()
	deg := &degradation{}
	cfg := s.config(ctx, "marketplace", deg)
	day, month := s.flows(ctx)
	rates := dashboard.NewMarketRates(s.deps.Engine.LatestPrice(ctx), cfg.AverageEnergyPrice, cfg.PriceFluctuationRange)
	if deg.count.Load() > 0 {
		rates = dashboard.DefaultMarketRates
	}
	out := dashboard.Marketplace{
		UserID:       userID,
		Credits:      dashboard.NewCredits(day, month, cfg.TotalHouseholds),
		Rates:        rates,
		Transactions: s.transactions(ctx, userID, deg),
	}
	metrics.ObserveDashboard("marketplace", deg.result(), time.Since(started))
	return out
}

// DemandResponse reports the demand-response signal with aggregate figures
// and the configured programs.
func (s *Service) DemandResponse(ctx context.Context) dashboard.DemandResponseMetrics {
	started := time.Now()
	deg := &degradation{}
	var (
		signal energy.DemandResponse
		live   energy.Live
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		signal = s.deps.Engine.DemandResponseSignal(gctx)
		return nil
	})
	g.Go(func() error {
		live = s.deps.Engine.Live(gctx)
		return nil
	})
	_ = g.Wait()

	programs, err := s.ListPrograms(ctx)
	if err != nil {
		s.logger.Printf("dashboard service: programs error: %v", err)
		deg.mark()
	}
	out := dashboard.NewDemandResponseMetrics(signal, live, programs)
	metrics.ObserveDashboard("demand_response", deg.result(), time.Since(started))
	return out
}

// ListPrograms returns the programs ordered by start time.
func (s *Service) ListPrograms(ctx context.Context) ([]dashboard.Program, error) {
	list, err := s.deps.Programs.List(ctx)
	if err != nil {
		return []dashboard.Program{}, err
	}
	out := append([]dashboard.Program{}, list...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out, nil
}

// CreateProgram stores a new program.
func (s *Service) CreateProgram(ctx context.Context, in dashboard.ProgramInput) (dashboard.Program, error) {
	program, err := dashboard.NewProgram(in, uuid.NewString(), s.now())
	if err != nil {
		return dashboard.Program{}, err
	}
	if err := s.deps.Programs.Create(ctx, program); err != nil {
		s.logger.Printf("dashboard service: create program error: id=%s err=%v", program.ID, err)
		return dashboard.Program{}, err
	}
	s.logger.Printf("dashboard service: program created: id=%s target_kw=%.2f", program.ID, program.TargetReductionKW)
	return program, nil
}

// Debug describes the loaded dataset and the active scaling.
type Debug struct {
	Status          string         `json:"status"`
	Timestamp       time.Time      `json:"timestamp"`
	RunID           string         `json:"run_id"`
	DatasetKeys     []string       `json:"data_keys"`
	MarketDataKeys  []string       `json:"market_data_keys"`
	AnalyticsKeys   []string       `json:"analytics_keys"`
	PlantKeys       []string       `json:"plant_keys"`
	PunPricesCount  int            `json:"pun_prices_count"`
	DemandDataCount int            `json:"demand_data_count"`
	TotalRecords    map[string]int `json:"total_records"`
	Unavailable     []string       `json:"unavailable_sources"`
	CommunityConfig DebugConfig    `json:"community_config"`
	ConfigError     string         `json:"config_error,omitempty"`
}

// DebugConfig is the config subset shown by Debug.
type DebugConfig struct {
	TotalHouseholds            int     `json:"total_households"`
	TotalSolarCapacity         float64 `json:"total_solar_capacity"`
	TotalCommunityConsumption  float64 `json:"total_community_consumption"`
	RegionalToCommunityScaling float64 `json:"regional_to_community_scaling"`
	DemandScalingFactor        float64 `json:"demand_scaling_factor"`
	TradingVolumePercentage    float64 `json:"trading_volume_percentage"`
}

// Debug reports what the engine is currently serving.
func (s *Service) Debug(ctx context.Context) Debug {
	ds := s.deps.Dataset.Current()
	if ds == nil {
		ds = ingestion.Empty()
	}
	out := Debug{
		Status:          "ok",
		Timestamp:       s.now().UTC(),
		RunID:           ds.Metadata.RunID,
		DatasetKeys:     []string{"market_data", "solar_data", "analytics", "metadata"},
		MarketDataKeys:  []string{"pun_prices", "zonal_prices", "demand_data", "trading_opportunities"},
		AnalyticsKeys:   analyticsKeys(ds.Analytics),
		PlantKeys:       ds.PlantKeys(),
		PunPricesCount:  len(ds.MarketData.PunPrices),
		DemandDataCount: len(ds.MarketData.DemandData),
		TotalRecords:    ds.Metadata.TotalRecords,
		Unavailable:     ds.Metadata.Unavailable,
	}
	if out.Unavailable == nil {
		out.Unavailable = []string{}
	}
	cfg, err := s.deps.Config.Get(ctx)
	if err != nil {
		out.Status = "degraded"
		out.ConfigError = err.Error()
		return out
	}
	derived := cfg.Derived()
	out.CommunityConfig = DebugConfig{
		TotalHouseholds:            cfg.TotalHouseholds,
		TotalSolarCapacity:         derived.TotalSolarCapacity,
		TotalCommunityConsumption:  derived.TotalCommunityConsumption,
		RegionalToCommunityScaling: cfg.RegionalToCommunityScaling,
		DemandScalingFactor:        cfg.DemandScalingFactor,
		TradingVolumePercentage:    cfg.TradingVolumePercentage,
	}
	return out
}

func analyticsKeys(a ingestion.Analytics) []string {
	keys := []string{}
	if a.PriceStats != nil {
		keys = append(keys, "price_stats")
	}
	if a.DemandStats != nil {
		keys = append(keys, "demand_stats")
	}
	if len(a.Plants) > 0 {
		keys = append(keys, "solar_stats")
	}
	if a.PriceDemandCorrelation != nil {
		keys = append(keys, "price_demand_correlation")
	}
	return keys
}

// EnergyFlowReport is the exported energy-flow report.
type EnergyFlowReport struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Days        int                `json:"days"`
	Points      []energy.FlowPoint `json:"points"`
	Totals      energy.FlowTotals  `json:"totals"`
	CarbonKg    float64            `json:"carbon_offset_kg"`
}

// EnergyFlowReport collects the hourly flow of the last days with totals.
func (s *Service) EnergyFlowReport(ctx context.Context, days int) EnergyFlowReport {
	if days < 1 {
		days = 1
	}
	points := s.deps.Engine.EnergyTrends(ctx, days)
	totals := energy.Totals(points)
	carbon := 0.0
	for _, p := range points {
		carbon += p.CarbonOffset
	}
	return EnergyFlowReport{
		GeneratedAt: s.now().UTC(),
		Days:        days,
		Points:      points,
		Totals:      totals,
		CarbonKg:    energy.Round(carbon, 2),
	}
}

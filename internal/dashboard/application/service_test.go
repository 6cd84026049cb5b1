package application

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	community "energy-square/internal/community/domain"
	dashboard "energy-square/internal/dashboard/domain"
	"energy-square/internal/dashboard/infrastructure/memory"
	devices "energy-square/internal/devices/domain"
	energyapp "energy-square/internal/energy/application"
	energy "energy-square/internal/energy/domain"
	ingestion "energy-square/internal/ingestion/domain"
	notices "energy-square/internal/notices/domain"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type stubEngine struct {
	live   energy.Live
	points []energy.FlowPoint
	signal energy.DemandResponse
	price  float64
}

func (s stubEngine) Live(context.Context) energy.Live { return s.live }
func (s stubEngine) History24h(context.Context) energyapp.History {
	return energyapp.History{ProductionKWh: 1000, Demand: 800}
}
func (s stubEngine) EnergyFlow(context.Context, int) []energy.FlowPoint   { return s.points }
func (s stubEngine) EnergyTrends(context.Context, int) []energy.FlowPoint { return s.points }
func (s stubEngine) GridInteraction(context.Context) energy.GridInteraction {
	return energy.GridInteraction{StabilityIndex: 0.9, OutageZones: []string{}}
}
func (s stubEngine) CarbonMetrics(context.Context) energy.Carbon {
	return energy.Carbon{TotalOffsetKg: 350, RegionalRank: 3}
}
func (s stubEngine) DemandResponseSignal(context.Context) energy.DemandResponse { return s.signal }
func (s stubEngine) LatestPrice(context.Context) float64                       { return s.price }

type stubConfig struct {
	err error
}

func (s stubConfig) Get(context.Context) (community.Config, error) {
	if s.err != nil {
		return community.Config{}, s.err
	}
	return community.Defaults(testNow), nil
}

type stubNotices struct {
	err error
}

func (s stubNotices) ListCommunityAlerts(context.Context, int) ([]notices.Notice, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []notices.Notice{{ID: "n1", Type: "warning", Severity: "high", Message: "storm"}}, nil
}

func (s stubNotices) ListUserAlerts(_ context.Context, userID string, _ int) ([]notices.Notice, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []notices.Notice{{ID: "n2", UserID: userID, Message: "battery full"}}, nil
}

type stubDevices struct{}

func (stubDevices) GetUserDevice(_ context.Context, userID string) devices.UserDevice {
	return devices.UserDevice{UserID: userID, SolarCapacityKW: 5, BatteryCapacityKWh: 10, BatterySOCPct: 50}
}

func (stubDevices) AggregateCommunity(context.Context) devices.CommunityAggregate {
	return devices.CommunityAggregate{TotalBatteryCapacityKWh: 30, AverageBatterySOCPct: 55, UserCount: 3}
}

func (stubDevices) UserProductionToday(context.Context, string, float64, float64) float64 { return 20 }
func (stubDevices) UserConsumptionToday(context.Context, string) float64                  { return 12 }

type stubDataset struct{}

func (stubDataset) Current() *ingestion.Dataset { return ingestion.Empty() }

type nilDataset struct{}

func (nilDataset) Current() *ingestion.Dataset { return nil }

type failingPrograms struct{}

func (failingPrograms) List(context.Context) ([]dashboard.Program, error) {
	return nil, errors.New("db down")
}

func (failingPrograms) Create(context.Context, dashboard.Program) error {
	return errors.New("db down")
}

func testPoints() []energy.FlowPoint {
	return []energy.FlowPoint{
		{Produced: 600, Consumed: 100, Sold: 500, CarbonOffset: 210},
		{Produced: 0, Consumed: 100, Bought: 100},
	}
}

func newTestService(t *testing.T, deps Deps) *Service {
	t.Helper()
	if deps.Engine == nil {
		deps.Engine = stubEngine{points: testPoints(), price: 0.2, live: energy.Live{GenerationKW: 80, ConsumptionKW: 120, NetBalanceKW: -40}}
	}
	if deps.Config == nil {
		deps.Config = stubConfig{}
	}
	if deps.Notices == nil {
		deps.Notices = stubNotices{}
	}
	if deps.Devices == nil {
		deps.Devices = stubDevices{}
	}
	if deps.Dataset == nil {
		deps.Dataset = stubDataset{}
	}
	if deps.Transactions == nil {
		deps.Transactions = memory.NewTransactionRepository()
	}
	if deps.Programs == nil {
		deps.Programs = memory.NewProgramRepository()
	}
	svc, err := NewService(deps, log.New(io.Discard, "", 0), WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return svc
}

func TestNewServiceRejectsMissingDeps(t *testing.T) {
	if _, err := NewService(Deps{}, nil); err == nil {
		t.Fatalf("expected error for missing deps")
	}
}

func TestCommunityDashboard(t *testing.T) {
	svc := newTestService(t, Deps{})
	out := svc.Community(context.Background())

	if out.TotalEnergyFlow.Generation.Live != 80 || out.TotalEnergyFlow.Generation.History24h != 1000 {
		t.Fatalf("unexpected generation %+v", out.TotalEnergyFlow.Generation)
	}
	if out.TotalEnergyFlow.Consumption.History24h != 800 || out.TotalEnergyFlow.Net != -40 {
		t.Fatalf("unexpected consumption %+v", out.TotalEnergyFlow)
	}
	if out.StorageNetwork.TotalCapacityWh != 30000 || out.Participation.ActiveMembers != 3 {
		t.Fatalf("unexpected storage or participation %+v %+v", out.StorageNetwork, out.Participation)
	}
	if out.MarketplaceActivity.VolumeTradedKWh != 100 {
		t.Fatalf("unexpected marketplace activity %+v", out.MarketplaceActivity)
	}
	if len(out.Alerts) != 1 || out.CarbonMetrics.TotalOffsetKg != 350 {
		t.Fatalf("unexpected alerts or carbon %+v %+v", out.Alerts, out.CarbonMetrics)
	}
	if !out.GeneratedAt.Equal(testNow) {
		t.Fatalf("unexpected generated_at %v", out.GeneratedAt)
	}
}

func TestCommunityDegradesOnCollaboratorErrors(t *testing.T) {
	svc := newTestService(t, Deps{
		Config:  stubConfig{err: errors.New("config store down")},
		Notices: stubNotices{err: errors.New("notices down")},
	})
	out := svc.Community(context.Background())
	if out.Alerts == nil || len(out.Alerts) != 0 {
		t.Fatalf("expected empty alerts, got %v", out.Alerts)
	}
	defaults := community.Defaults(testNow)
	if out.Participation.ContributionTiers.Gold != defaults.ContributionTierGold {
		t.Fatalf("expected default config, got %+v", out.Participation)
	}
}

func TestUserDashboard(t *testing.T) {
	txs := memory.NewTransactionRepository()
	if err := txs.Add(context.Background(), dashboard.Transaction{ID: "tx1", UserID: "user_001", Type: "sell", AmountKWh: 4, Timestamp: testNow}); err != nil {
		t.Fatalf("add: %v", err)
	}
	svc := newTestService(t, Deps{Transactions: txs})
	out := svc.User(context.Background(), "user_001")

	if out.ProducedKWhToday != 20 || out.ConsumedKWhToday != 12 || out.NetKWhToday != 8 {
		t.Fatalf("unexpected energy %+v", out)
	}
	if out.BatteryCapacityKWh != 10 || out.BatteryAvailableKWh != 5 {
		t.Fatalf("unexpected battery %+v", out)
	}
	// 400 kWh day surplus over 500 households.
	if out.CreditsToday != 0.72 {
		t.Fatalf("expected 0.72 credits, got %v", out.CreditsToday)
	}
	if out.CurrentRate != 0.2 {
		t.Fatalf("expected latest price as rate, got %v", out.CurrentRate)
	}
	if len(out.RecentTransactions) != 1 || len(out.Alerts) != 1 || out.Alerts[0].UserID != "user_001" {
		t.Fatalf("unexpected transactions or alerts %+v %+v", out.RecentTransactions, out.Alerts)
	}
	// 600 kWh over 3 users at 0.35 kg/kWh.
	if out.Carbon.TodayKg != 70 {
		t.Fatalf("expected 70 kg today, got %v", out.Carbon.TodayKg)
	}
}

func TestMarketplaceFallsBackToDefaultRates(t *testing.T) {
	svc := newTestService(t, Deps{Config: stubConfig{err: errors.New("config store down")}})
	out := svc.Marketplace(context.Background(), "user_002")
	if out.Rates != dashboard.DefaultMarketRates {
		t.Fatalf("expected default rates, got %+v", out.Rates)
	}
	if out.Transactions == nil {
		t.Fatalf("expected empty transaction list")
	}
}

func TestProgramsLifecycle(t *testing.T) {
	svc := newTestService(t, Deps{})
	ctx := context.Background()

	later := testNow.Add(3 * time.Hour)
	if _, err := svc.CreateProgram(ctx, dashboard.ProgramInput{ID: "late", StartTime: &later, TargetReductionKW: 5}); err != nil {
		t.Fatalf("create late: %v", err)
	}
	early, err := svc.CreateProgram(ctx, dashboard.ProgramInput{TargetReductionKW: 10})
	if err != nil {
		t.Fatalf("create early: %v", err)
	}
	if early.ID == "" {
		t.Fatalf("expected generated id")
	}
	if _, err := svc.CreateProgram(ctx, dashboard.ProgramInput{TargetReductionKW: -1}); !errors.Is(err, dashboard.ErrInvalidProgram) {
		t.Fatalf("expected ErrInvalidProgram, got %v", err)
	}

	list, err := svc.ListPrograms(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != early.ID || list[1].ID != "late" {
		t.Fatalf("unexpected order %+v", list)
	}

	dr := svc.DemandResponse(ctx)
	if len(dr.Programs) != 2 || len(dr.Alerts) != 1 {
		t.Fatalf("unexpected demand response %+v", dr)
	}
}

func TestDemandResponseSurvivesProgramStoreFailure(t *testing.T) {
	svc := newTestService(t, Deps{Programs: failingPrograms{}})
	dr := svc.DemandResponse(context.Background())
	if dr.Programs == nil || len(dr.Programs) != 0 {
		t.Fatalf("expected empty programs, got %v", dr.Programs)
	}
	if _, err := svc.CreateProgram(context.Background(), dashboard.ProgramInput{}); err == nil {
		t.Fatalf("expected store error")
	}
}

func TestDebugReportsConfigError(t *testing.T) {
	svc := newTestService(t, Deps{Config: stubConfig{err: errors.New("config store down")}})
	out := svc.Debug(context.Background())
	if out.Status != "degraded" || out.ConfigError == "" {
		t.Fatalf("expected degraded debug, got %+v", out)
	}
	if out.Unavailable == nil || len(out.MarketDataKeys) != 4 {
		t.Fatalf("unexpected debug %+v", out)
	}

	ok := newTestService(t, Deps{}).Debug(context.Background())
	if ok.Status != "ok" || ok.CommunityConfig.TotalHouseholds != 500 {
		t.Fatalf("unexpected debug %+v", ok)
	}
}

func TestDebugWithoutDataset(t *testing.T) {
	svc := newTestService(t, Deps{Dataset: nilDataset{}})
	out := svc.Debug(context.Background())
	if out.Status != "ok" || out.RunID != "" || out.PunPricesCount != 0 {
		t.Fatalf("unexpected debug %+v", out)
	}
	if out.Unavailable == nil || out.PlantKeys == nil {
		t.Fatalf("expected empty slices, got %+v", out)
	}
}

func TestEnergyFlowReport(t *testing.T) {
	svc := newTestService(t, Deps{})
	report := svc.EnergyFlowReport(context.Background(), 0)
	if report.Days != 1 || len(report.Points) != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Totals.ProducedKWh != 600 || report.Totals.BoughtKWh != 100 || report.CarbonKg != 210 {
		t.Fatalf("unexpected totals %+v carbon=%v", report.Totals, report.CarbonKg)
	}
}

package dashboard

import (
	"time"

	community "energy-square/internal/community/domain"
	energy "energy-square/internal/energy/domain"
	notices "energy-square/internal/notices/domain"
)

// MockTradeCount is the reported number of trades until a trade ledger exists.
const MockTradeCount = 45

// GreenTechEfficiency is the fixed efficiency of the third most efficient member.
const GreenTechEfficiency = 0.89

// LiveHistory pairs a live reading with its 24 hour history.
type LiveHistory struct {
	Live       float64 `json:"live"`
	History24h float64 `json:"history_24h"`
}

// EnergyFlow is the total energy flow section.
type EnergyFlow struct {
	Generation      LiveHistory            `json:"generation"`
	Consumption     LiveHistory            `json:"consumption"`
	Net             float64                `json:"net"`
	SourceBreakdown energy.SourceBreakdown `json:"source_breakdown"`
}

// Distribution splits storage between areas as shares of 1.
type Distribution struct {
	North  float64 `json:"north"`
	South  float64 `json:"south"`
	Center float64 `json:"center"`
}

// StorageNetwork summarizes the community batteries.
type StorageNetwork struct {
	TotalCapacityWh float64      `json:"total_capacity"`
	AggregateSOC    float64      `json:"aggregate_soc"`
	Distribution    Distribution `json:"distribution"`
	CriticalAlerts  []string     `json:"critical_alerts"`
}

// ContributionTiers are the member shares per tier.
type ContributionTiers struct {
	Gold   float64 `json:"gold"`
	Silver float64 `json:"silver"`
	Bronze float64 `json:"bronze"`
}

// Participation summarizes member participation.
type Participation struct {
	ActiveMembers            int               `json:"active_members"`
	ContributionTiers        ContributionTiers `json:"contribution_tiers"`
	DemandResponseEngagement float64           `json:"demand_response_engagement"`
}

// Trader is a marketplace leaderboard entry.
type Trader struct {
	Name   string  `json:"name"`
	Volume float64 `json:"volume"`
	Rank   int     `json:"rank"`
}

// MarketplaceActivity summarizes community trading.
type MarketplaceActivity struct {
	VolumeTradedKWh      float64  `json:"volume_traded_kwh"`
	VolumeTradedCurrency float64  `json:"volume_traded_currency"`
	NumberOfTrades       int      `json:"number_of_trades"`
	PriceFluctuation     float64  `json:"price_fluctuation"`
	TopTraders           []Trader `json:"top_traders"`
}

// Producer is a production leaderboard entry.
type Producer struct {
	Name       string  `json:"name"`
	Production float64 `json:"production"`
	Rank       int     `json:"rank"`
}

// EfficientMember is an efficiency leaderboard entry.
type EfficientMember struct {
	Name       string  `json:"name"`
	Efficiency float64 `json:"efficiency"`
	Rank       int     `json:"rank"`
}

// Offsetter is a carbon offset leaderboard entry.
type Offsetter struct {
	Name   string  `json:"name"`
	Offset float64 `json:"offset"`
	Rank   int     `json:"rank"`
}

// Leaderboards groups the community leaderboards.
type Leaderboards struct {
	TopProducers     []Producer        `json:"top_producers"`
	MostEfficient    []EfficientMember `json:"most_efficient"`
	CarbonOffsetters []Offsetter       `json:"carbon_offsetters"`
}

// CommunityDashboard is the community dashboard response.
type CommunityDashboard struct {
	TotalEnergyFlow     EnergyFlow             `json:"total_energy_flow"`
	StorageNetwork      StorageNetwork         `json:"storage_network"`
	GridInteraction     energy.GridInteraction `json:"grid_interaction"`
	Participation       Participation          `json:"participation_summary"`
	CarbonMetrics       energy.Carbon          `json:"carbon_metrics"`
	MarketplaceActivity MarketplaceActivity    `json:"marketplace_activity"`
	Alerts              []notices.Notice       `json:"alerts_system_notices"`
	Leaderboards        Leaderboards           `json:"leaderboards"`
	GeneratedAt         time.Time              `json:"generated_at"`
}

// TopTraders returns the trader leaderboard scaled from the configured volume.
func TopTraders(cfg community.Config) []Trader {
	v := cfg.MockTraderVolume
	return []Trader{
		{Name: "Energy Trader A", Volume: energy.Round(v, 2), Rank: 1},
		{Name: "Solar Farm B", Volume: energy.Round(v*0.8, 2), Rank: 2},
		{Name: "Green Energy Co", Volume: energy.Round(v*0.63, 2), Rank: 3},
	}
}

// NewLeaderboards builds the leaderboards from the configured mock figures.
func NewLeaderboards(cfg community.Config) Leaderboards {
	production := cfg.MockSolarFarmProduction
	offset := cfg.MockCarbonOffset
	return Leaderboards{
		TopProducers: []Producer{
			{Name: "Solar Farm Alpha", Production: energy.Round(production, 2), Rank: 1},
			{Name: "Green Energy Co", Production: energy.Round(production*0.84, 2), Rank: 2},
			{Name: "Eco Power Ltd", Production: energy.Round(production*0.72, 2), Rank: 3},
		},
		MostEfficient: []EfficientMember{
			{Name: "Efficiency Master", Efficiency: cfg.MockEfficiencyHigh, Rank: 1},
			{Name: "Solar Expert", Efficiency: cfg.MockEfficiencyMedium, Rank: 2},
			{Name: "Green Tech", Efficiency: GreenTechEfficiency, Rank: 3},
		},
		CarbonOffsetters: []Offsetter{
			{Name: "Eco Warrior", Offset: energy.Round(offset, 2), Rank: 1},
			{Name: "Green Champion", Offset: energy.Round(offset*0.9, 2), Rank: 2},
			{Name: "Climate Hero", Offset: energy.Round(offset*0.8, 2), Rank: 3},
		},
	}
}

// NewMarketplaceActivity derives traded volume from the 24 hour production.
func NewMarketplaceActivity(cfg community.Config, productionKWh float64) MarketplaceActivity {
	volume := energy.SafeFloat(productionKWh * cfg.TradingVolumePercentage)
	return MarketplaceActivity{
		VolumeTradedKWh:      energy.Round(volume, 2),
		VolumeTradedCurrency: energy.Round(volume*cfg.AverageEnergyPrice, 2),
		NumberOfTrades:       MockTradeCount,
		PriceFluctuation:     cfg.PriceFluctuationRange,
		TopTraders:           TopTraders(cfg),
	}
}

// NewStorageNetwork reports the aggregated batteries in Wh, split by the
// configured area shares.
func NewStorageNetwork(cfg community.Config, capacityKWh, socPct float64) StorageNetwork {
	return StorageNetwork{
		TotalCapacityWh: energy.Round(capacityKWh*1000, 2),
		AggregateSOC:    socPct,
		Distribution: Distribution{
			North:  cfg.BatteryDistributionNorth,
			South:  cfg.BatteryDistributionSouth,
			Center: cfg.BatteryDistributionCenter,
		},
		CriticalAlerts: []string{},
	}
}

// NewParticipation summarizes participation. activeMembers falls back to the
// configured population when no device is registered.
func NewParticipation(cfg community.Config, activeMembers int) Participation {
	if activeMembers <= 0 {
		activeMembers = cfg.Derived().TotalPopulation
	}
	return Participation{
		ActiveMembers: activeMembers,
		ContributionTiers: ContributionTiers{
			Gold:   cfg.ContributionTierGold,
			Silver: cfg.ContributionTierSilver,
			Bronze: cfg.ContributionTierBronze,
		},
		DemandResponseEngagement: cfg.DemandResponseEngagement,
	}
}

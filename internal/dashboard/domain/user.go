package dashboard

import (
	energy "energy-square/internal/energy/domain"
	notices "energy-square/internal/notices/domain"
)

// RewardPerEvent is the estimated reward for one demand-response event.
const RewardPerEvent = 5.0

// UserCarbon is the carbon offset attributed to one household.
type UserCarbon struct {
	TodayKg float64 `json:"carbon_offset_today_kg"`
	MonthKg float64 `json:"carbon_offset_month_kg"`
	Rank    int     `json:"carbon_offset_community_rank"`
}

// UserParticipation is a user's demand-response participation.
type UserParticipation struct {
	EngagementPct   float64 `json:"dr_engagement"`
	EventsCount     int     `json:"dr_events_participated"`
	TotalRewardsEUR float64 `json:"dr_total_rewards_eur"`
}

// UserDashboard is the per-user dashboard response.
type UserDashboard struct {
	UserID              string            `json:"user_id"`
	ProducedKWhToday    float64           `json:"produced_kwh_today"`
	ConsumedKWhToday    float64           `json:"consumed_kwh_today"`
	NetKWhToday         float64           `json:"net_kwh_today"`
	BatterySOCPct       float64           `json:"battery_soc_pct"`
	BatteryCapacityKWh  float64           `json:"battery_capacity_kwh"`
	BatteryAvailableKWh float64           `json:"battery_available_kwh"`
	CreditsToday        float64           `json:"credits_today"`
	TotalCredits        float64           `json:"total_credits"`
	CurrentRate         float64           `json:"current_rate_eur_kwh"`
	RecentTransactions  []Transaction     `json:"recent_transactions"`
	Carbon              UserCarbon        `json:"carbon"`
	DemandResponse      UserParticipation `json:"demand_response"`
	Alerts              []notices.Notice  `json:"user_alerts"`
}

// NewUserCarbon attributes the community production evenly to households and
// estimates the user's rank from the household average.
func NewUserCarbon(day, month energy.FlowTotals, factor float64, households int) UserCarbon {
	if households < 1 {
		households = 1
	}
	n := float64(households)
	today := energy.SafeFloat(day.ProducedKWh / n * factor)
	userMonth := energy.SafeFloat(month.ProducedKWh / n * factor)
	average := energy.SafeFloat(month.ProducedKWh * factor / n)
	return UserCarbon{
		TodayKg: energy.Round(today, 2),
		MonthKg: energy.Round(userMonth, 2),
		Rank:    CarbonRank(userMonth, average, households),
	}
}

// CarbonRank estimates a rank from the user's offset relative to the average.
// Users 20% above average rank first; users at or above average fall in the
// top decile; everyone else ranks in the bottom 70%.
func CarbonRank(userOffset, averageOffset float64, households int) int {
	if households < 1 {
		households = 1
	}
	switch {
	case userOffset >= averageOffset*1.2:
		return 1
	case userOffset >= averageOffset:
		return max(2, int(float64(households)*0.1)+1)
	default:
		return max(int(float64(households)*0.3), households-int(float64(households)*0.7))
	}
}

// NewUserParticipation estimates participation from the community signal.
// Engaged communities are assumed to join every active event.
func NewUserParticipation(signal energy.DemandResponse) UserParticipation {
	events := 0
	if signal.Engagement > 0.5 {
		events = len(signal.ActiveEvents)
	}
	return UserParticipation{
		EngagementPct:   energy.Round(signal.Engagement*100, 1),
		EventsCount:     events,
		TotalRewardsEUR: energy.Round(float64(events)*RewardPerEvent, 2),
	}
}

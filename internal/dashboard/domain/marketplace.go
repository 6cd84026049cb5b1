package dashboard

import (
	"time"

	energy "energy-square/internal/energy/domain"
)

const (
	// CreditConversionToday is the share of today's surplus credited after
	// grid losses.
	CreditConversionToday = 0.9
	// CreditConversionTotal is the share of the 30 day surplus credited.
	CreditConversionTotal = 0.85
)

// Credits are a user's energy credits.
type Credits struct {
	CreditsToday float64 `json:"credits_today"`
	TotalCredits float64 `json:"total_credits"`
}

// MarketRates are the current peer-to-peer rates per kWh.
type MarketRates struct {
	CurrentRate float64 `json:"current_rate_eur_kwh"`
	MinRate     float64 `json:"min_rate_eur_kwh"`
	MaxRate     float64 `json:"max_rate_eur_kwh"`
	AvgRate24h  float64 `json:"avg_rate_24h_eur_kwh"`
}

// DefaultMarketRates is reported when the rates cannot be derived.
var DefaultMarketRates = MarketRates{CurrentRate: 0.30, MinRate: 0.25, MaxRate: 0.35, AvgRate24h: 0.30}

// Transaction is a peer-to-peer trade.
type Transaction struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Type           string    `json:"type"`
	AmountKWh      float64   `json:"amount_kwh"`
	PricePerKWh    float64   `json:"price_per_kwh"`
	TotalEUR       float64   `json:"total_eur"`
	CounterpartyID string    `json:"counterparty_id"`
	Timestamp      time.Time `json:"timestamp"`
}

// Marketplace is the marketplace response of one user.
type Marketplace struct {
	UserID       string        `json:"user_id"`
	Credits      Credits       `json:"credits"`
	Rates        MarketRates   `json:"market_rates"`
	Transactions []Transaction `json:"recent_transactions"`
}

// NewCredits splits community surplus evenly over households. Deficits earn
// no credits.
func NewCredits(day, month energy.FlowTotals, households int) Credits {
	if households < 1 {
		households = 1
	}
	n := float64(households)
	today := (day.ProducedKWh - day.ConsumedKWh) / n
	total := (month.ProducedKWh - month.ConsumedKWh) / n
	return Credits{
		CreditsToday: energy.Round(maxZero(today*CreditConversionToday), 2),
		TotalCredits: energy.Round(maxZero(total*CreditConversionTotal), 2),
	}
}

// NewMarketRates uses the latest price when known and the configured average
// otherwise, with a symmetric fluctuation band.
func NewMarketRates(latestPriceKWh, averagePrice, fluctuation float64) MarketRates {
	current := averagePrice
	if latestPriceKWh > 0 {
		current = latestPriceKWh
	}
	return MarketRates{
		CurrentRate: energy.Round(current, 3),
		MinRate:     energy.Round(current*(1-fluctuation), 3),
		MaxRate:     energy.Round(current*(1+fluctuation), 3),
		AvgRate24h:  energy.Round(averagePrice, 3),
	}
}

func maxZero(v float64) float64 {
	v = energy.SafeFloat(v)
	if v < 0 {
		return 0
	}
	return v
}

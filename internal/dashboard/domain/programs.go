package dashboard

import (
	"errors"
	"strings"
	"time"

	energy "energy-square/internal/energy/domain"
)

// Program defaults.
const (
	DefaultProgramTitle    = "Demand Response Program"
	DefaultProgramReason   = "Manual"
	DefaultProgramStatus   = "active"
	DefaultProgramReward   = 0.1
	DefaultProgramDuration = 2 * time.Hour
)

// ErrInvalidProgram indicates a rejected program definition.
var ErrInvalidProgram = errors.New("dashboard: invalid demand response program")

// Program is a demand-response program.
type Program struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Reason            string    `json:"reason"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	TargetReductionKW float64   `json:"target_reduction_kw"`
	RewardPerKWh      float64   `json:"reward_per_kwh"`
	Status            string    `json:"status"`
}

// ProgramInput is a program definition; zero values take defaults.
type ProgramInput struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Reason            string     `json:"reason"`
	StartTime         *time.Time `json:"start_time"`
	EndTime           *time.Time `json:"end_time"`
	TargetReductionKW float64    `json:"target_reduction_kw"`
	RewardPerKWh      *float64   `json:"reward_per_kwh"`
	Status            string     `json:"status"`
}

// NewProgram applies defaults to the input. The program runs for two hours
// from its start unless an end is given.
func NewProgram(in ProgramInput, id string, now time.Time) (Program, error) {
	p := Program{
		ID:                strings.TrimSpace(in.ID),
		Title:             strings.TrimSpace(in.Title),
		Reason:            strings.TrimSpace(in.Reason),
		StartTime:         now.UTC(),
		TargetReductionKW: in.TargetReductionKW,
		RewardPerKWh:      DefaultProgramReward,
		Status:            strings.TrimSpace(in.Status),
	}
	if p.ID == "" {
		p.ID = id
	}
	if p.Title == "" {
		p.Title = DefaultProgramTitle
	}
	if p.Reason == "" {
		p.Reason = DefaultProgramReason
	}
	if p.Status == "" {
		p.Status = DefaultProgramStatus
	}
	if in.StartTime != nil {
		p.StartTime = in.StartTime.UTC()
	}
	p.EndTime = p.StartTime.Add(DefaultProgramDuration)
	if in.EndTime != nil {
		p.EndTime = in.EndTime.UTC()
	}
	if in.RewardPerKWh != nil {
		p.RewardPerKWh = *in.RewardPerKWh
	}

	var errs []error
	if p.ID == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if !p.EndTime.After(p.StartTime) {
		errs = append(errs, errors.New("end_time must be after start_time"))
	}
	if p.TargetReductionKW < 0 || energy.SafeFloat(p.TargetReductionKW) != p.TargetReductionKW {
		errs = append(errs, errors.New("target_reduction_kw must be a non-negative number"))
	}
	if p.RewardPerKWh < 0 || energy.SafeFloat(p.RewardPerKWh) != p.RewardPerKWh {
		errs = append(errs, errors.New("reward_per_kwh must be a non-negative number"))
	}
	if len(errs) > 0 {
		return Program{}, errors.Join(append([]error{ErrInvalidProgram}, errs...)...)
	}
	return p, nil
}

// DemandResponseMetrics extends the engine signal with aggregate figures and
// alerts.
type DemandResponseMetrics struct {
	energy.DemandResponse
	AggregateGenerationKW    float64   `json:"aggregate_generation_kw"`
	AggregateConsumptionKW   float64   `json:"aggregate_consumption_kw"`
	NetBalanceKW             float64   `json:"net_balance_kw"`
	AggregatePotentialShedKW float64   `json:"aggregate_potential_shed_kw"`
	Alerts                   []string  `json:"alerts"`
	Programs                 []Program `json:"programs"`
}

const (
	alertHighPrice = "High price signal detected. Consider reducing non-critical loads."
	alertDeficit   = "Grid deficit: shifting flexible loads can reduce import costs."
)

// NewDemandResponseMetrics combines the signal with the live balance.
func NewDemandResponseMetrics(signal energy.DemandResponse, live energy.Live, programs []Program) DemandResponseMetrics {
	alerts := []string{}
	if len(signal.ActiveEvents) > 0 {
		alerts = append(alerts, alertHighPrice)
	}
	if live.NetBalanceKW < 0 {
		alerts = append(alerts, alertDeficit)
	}
	if programs == nil {
		programs = []Program{}
	}
	return DemandResponseMetrics{
		DemandResponse:           signal,
		AggregateGenerationKW:    live.GenerationKW,
		AggregateConsumptionKW:   live.ConsumptionKW,
		NetBalanceKW:             live.NetBalanceKW,
		AggregatePotentialShedKW: signal.PotentialShedKW,
		Alerts:                   alerts,
		Programs:                 programs,
	}
}

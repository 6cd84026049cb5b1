package energy

import (
	"testing"
	"time"
)

func TestCarbonOffsetScenario(t *testing.T) {
	carbon := NewCarbon(FlowTotals{ProducedKWh: 1000, ConsumedKWh: 800}, FlowTotals{ProducedKWh: 30000}, 0.35, 3)
	if carbon.TotalOffsetKg != 350 {
		t.Fatalf("expected 350 kg, got %v", carbon.TotalOffsetKg)
	}
	if carbon.BaselineComparison != 1 {
		t.Fatalf("expected baseline clamped to 1, got %v", carbon.BaselineComparison)
	}
	if carbon.CumulativeOffsetKg != 10500 {
		t.Fatalf("expected 10500 kg, got %v", carbon.CumulativeOffsetKg)
	}
}

func TestCarbonNoConsumption(t *testing.T) {
	carbon := NewCarbon(FlowTotals{ProducedKWh: 10}, FlowTotals{}, 0.35, 0)
	if carbon.BaselineComparison != 0 {
		t.Fatalf("expected 0 baseline, got %v", carbon.BaselineComparison)
	}
}

func TestFlowPoint(t *testing.T) {
	p := NewFlowPoint(time.Time{}, 150, 100)
	if p.Sold != 50 || p.Bought != 0 || p.Efficiency != 1 {
		t.Fatalf("unexpected point %+v", p)
	}
	p = NewFlowPoint(time.Time{}, 0, 0)
	if p.Efficiency != 0 || p.Sold != 0 || p.Bought != 0 {
		t.Fatalf("unexpected zero point %+v", p)
	}
}

func TestDemandResponseEventAboveThreshold(t *testing.T) {
	now := time.Date(2026, 7, 1, 18, 0, 0, 0, time.UTC)
	dr := NewDemandResponse(now, 400, -50, 0.3, 0.75)
	if dr.PotentialShedKW != 40 {
		t.Fatalf("expected 40 kW shed, got %v", dr.PotentialShedKW)
	}
	if len(dr.ActiveEvents) != 1 || dr.ActiveEvents[0].RewardPerKWh != 0.15 {
		t.Fatalf("unexpected events %+v", dr.ActiveEvents)
	}
	if !dr.ActiveEvents[0].EndTime.Equal(now.Add(2 * time.Hour)) {
		t.Fatalf("unexpected end time %v", dr.ActiveEvents[0].EndTime)
	}
	if len(dr.Recommendations) != 2 {
		t.Fatalf("expected price and deficit recommendations, got %v", dr.Recommendations)
	}
}

func TestDemandResponseQuiet(t *testing.T) {
	dr := NewDemandResponse(time.Now(), 100, 20, 0.2, 0.75)
	if len(dr.ActiveEvents) != 0 || len(dr.Recommendations) != 0 {
		t.Fatalf("expected no events at threshold, got %+v", dr)
	}
}

func TestGridInteraction(t *testing.T) {
	surplus := NewGridInteraction(500, 300, 0.12)
	if surplus.ImportRate != 0 || surplus.ExportRate != 0.11 {
		t.Fatalf("unexpected surplus rates %+v", surplus)
	}
	deficit := NewGridInteraction(100, 300, 0.12)
	if deficit.ImportRate != 0.12 || deficit.ExportRate != 0 {
		t.Fatalf("unexpected deficit rates %+v", deficit)
	}
}

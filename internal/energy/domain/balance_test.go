package energy

import (
	"math"
	"testing"
)

func TestBreakdownZeroTotal(t *testing.T) {
	got := Breakdown(0, 0)
	if got.Solar != 0 || got.Grid != 0 {
		t.Fatalf("expected zero breakdown, got %+v", got)
	}
}

func TestBreakdownSurplusScenario(t *testing.T) {
	net := NetBalance(500, 300)
	if net != 200 {
		t.Fatalf("expected net 200, got %v", net)
	}
	if export := GridExport(net); export != 200 {
		t.Fatalf("expected export 200, got %v", export)
	}
	got := Breakdown(500, 300)
	if got.Solar != 100 || got.Grid != 0 {
		t.Fatalf("expected solar 100 grid 0, got %+v", got)
	}
}

func TestBreakdownDeficit(t *testing.T) {
	got := Breakdown(100, 400)
	if got.Solar != 25 || got.Grid != 75 {
		t.Fatalf("expected solar 25 grid 75, got %+v", got)
	}
	if imp := GridImport(NetBalance(100, 400)); imp != 300 {
		t.Fatalf("expected import 300, got %v", imp)
	}
}

func TestEfficiencyClamped(t *testing.T) {
	if got := Efficiency(150, 100); got != 1 {
		t.Fatalf("expected 1, got %v", got)
	}
	if got := Efficiency(50, 100); got != 0.5 {
		t.Fatalf("expected 0.5, got %v", got)
	}
	if got := Efficiency(50, 0); got != 0 {
		t.Fatalf("expected 0 without consumption, got %v", got)
	}
}

func TestGridTelemetryBalanced(t *testing.T) {
	got := GridTelemetry(300, 300, 300, 50, 230)
	if got.Stability != 1 {
		t.Fatalf("expected stability 1, got %v", got.Stability)
	}
	if math.Abs(got.FrequencyHz-49.9) > 1e-9 {
		t.Fatalf("expected 49.9 Hz, got %v", got.FrequencyHz)
	}
	if math.Abs(got.VoltageV-227.5) > 1e-9 {
		t.Fatalf("expected 227.5 V, got %v", got.VoltageV)
	}
	if got.LoadPct != 100 || got.RenewablePct != 100 {
		t.Fatalf("unexpected load/renewable %+v", got)
	}
}

func TestGridTelemetryNoConsumption(t *testing.T) {
	got := GridTelemetry(0, 0, 0, 50, 230)
	if got.Stability != 1 || got.LoadPct != 0 || got.RenewablePct != 0 {
		t.Fatalf("unexpected telemetry %+v", got)
	}
}

func TestCarbonOffset(t *testing.T) {
	if got := Round(CarbonOffset(1000, 0.35), 2); got != 350 {
		t.Fatalf("expected 350, got %v", got)
	}
}

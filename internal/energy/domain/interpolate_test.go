package energy

import "testing"

func TestInterpolateHourLinear(t *testing.T) {
	samples := []HourSample{{Hour: 6, Value: 100}, {Hour: 10, Value: 200}}
	if got := InterpolateHour(8, samples); got != 150 {
		t.Fatalf("expected 150, got %v", got)
	}
	if got := InterpolateHour(7, samples); got != 125 {
		t.Fatalf("expected 125, got %v", got)
	}
}

func TestInterpolateHourExactSample(t *testing.T) {
	samples := []HourSample{{Hour: 10, Value: 200}, {Hour: 6, Value: 100}}
	if got := InterpolateHour(6, samples); got != 100 {
		t.Fatalf("expected exactly 100, got %v", got)
	}
}

func TestInterpolateHourOneSided(t *testing.T) {
	after := []HourSample{{Hour: 10, Value: 200}}
	if got := InterpolateHour(3, after); got != 200 {
		t.Fatalf("expected 200, got %v", got)
	}
	before := []HourSample{{Hour: 2, Value: 80}, {Hour: 5, Value: 90}}
	if got := InterpolateHour(23, before); got != 90 {
		t.Fatalf("expected nearest lower sample 90, got %v", got)
	}
}

func TestInterpolateHourNoSamples(t *testing.T) {
	if got := InterpolateHour(12, nil); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestInterpolateHourPicksNearestNeighbours(t *testing.T) {
	samples := []HourSample{
		{Hour: 1, Value: 10},
		{Hour: 4, Value: 40},
		{Hour: 9, Value: 90},
		{Hour: 20, Value: 500},
	}
	if got := InterpolateHour(6, samples); got != 60 {
		t.Fatalf("expected 60, got %v", got)
	}
}

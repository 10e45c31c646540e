package metrics

import (
	"math"
	"testing"
)

func TestAgeGapStats_PerfectClock(t *testing.T) {
	stats := AgeGapStats([]int64{300, 270, 240, 210})

	if stats.Count != 3 {
		t.Fatalf("Expected 3 gaps. Got: %d", stats.Count)
	}
	if math.Abs(stats.Mean-30) > 1e-9 {
		t.Errorf("Expected mean gap 30. Got: %f", stats.Mean)
	}
	if stats.Variance != 0 || stats.CV != 0 {
		t.Errorf("Expected zero variance and CV. Got: %f / %f", stats.Variance, stats.CV)
	}
}

func TestAgeGapStats_Irregular(t *testing.T) {
	// gaps 10, 90 -> mean 50, variance 1600, stddev 40
	stats := AgeGapStats([]int64{100, 0, 10})

	if math.Abs(stats.Mean-50) > 1e-9 {
		t.Errorf("Expected mean 50. Got: %f", stats.Mean)
	}
	if math.Abs(stats.Variance-1600) > 1e-9 {
		t.Errorf("Expected variance 1600. Got: %f", stats.Variance)
	}
	if math.Abs(stats.CV-0.8) > 1e-9 {
		t.Errorf("Expected CV 0.8. Got: %f", stats.CV)
	}
}

func TestAgeGapStats_ZeroMeanGuard(t *testing.T) {
	stats := AgeGapStats([]int64{50, 50, 50})

	if stats.Mean != 0 || stats.CV != 0 {
		t.Errorf("Expected zero mean and CV for simultaneous transfers. Got: %f / %f", stats.Mean, stats.CV)
	}
	if math.IsNaN(stats.CV) {
		t.Error("CV must never be NaN")
	}
}

func TestAgeGapStats_Empty(t *testing.T) {
	stats := AgeGapStats([]int64{42})

	if stats != (GapStats{}) {
		t.Errorf("Expected zero stats for a single timestamp. Got: %+v", stats)
	}
}

func TestSortedAges_DoesNotMutateInput(t *testing.T) {
	ages := []int64{3, 1, 2}
	sorted := SortedAges(ages)

	if ages[0] != 3 {
		t.Error("SortedAges mutated its input")
	}
	if sorted[0] != 1 || sorted[2] != 3 {
		t.Errorf("Expected ascending order. Got: %v", sorted)
	}
}

package metrics

import (
	"math"
	"sort"
)

// Gap statistics shared by the suspicion scorer, temporal analyzer and
// adaptive guard.
//
// All three reason about the spacing between a wallet's transactions:
//
//   gaps = |t[i] - t[i-1]| over the sorted timestamps
//   mean, population variance
//   CV   = stddev / mean   (coefficient of variation)
//
// A low CV means the wallet transacts on a near-fixed clock, which is
// the signature of scripted layering. A zero mean gap (every transfer
// at the same second) is treated as a mean of 1 so CV stays finite.

// GapStats summarises a sequence of inter-transaction gaps.
type GapStats struct {
	Count    int     // number of gaps
	Mean     float64 // seconds
	Variance float64 // population variance
	CV       float64
}

// SortedAges returns a copy of ages in ascending order.
func SortedAges(ages []int64) []int64 {
	out := make([]int64, len(ages))
	copy(out, ages)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Gaps returns the absolute differences between consecutive values.
func Gaps(sorted []int64) []float64 {
	if len(sorted) < 2 {
		return nil
	}
	gaps := make([]float64, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		gaps[i-1] = math.Abs(float64(sorted[i] - sorted[i-1]))
	}
	return gaps
}

// ComputeGapStats computes mean, population variance and CV. With no
// gaps every field is zero.
func ComputeGapStats(gaps []float64) GapStats {
	if len(gaps) == 0 {
		return GapStats{}
	}

	sum := 0.0
	for _, g := range gaps {
		sum += g
	}
	mean := sum / float64(len(gaps))

	varianceSum := 0.0
	for _, g := range gaps {
		d := g - mean
		varianceSum += d * d
	}
	variance := varianceSum / float64(len(gaps))

	divisor := mean
	if divisor == 0 {
		divisor = 1
	}

	return GapStats{
		Count:    len(gaps),
		Mean:     mean,
		Variance: variance,
		CV:       math.Sqrt(variance) / divisor,
	}
}

// AgeGapStats sorts ages ascending and summarises their gaps.
func AgeGapStats(ages []int64) GapStats {
	return ComputeGapStats(Gaps(SortedAges(ages)))
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MinInt returns the smaller of a and b.
func MinInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

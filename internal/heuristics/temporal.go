package heuristics

import (
	"fmt"
	"sort"

	"github.com/rawblock/smurfing-engine/internal/metrics"
	"github.com/rawblock/smurfing-engine/pkg/models"
)

// Temporal Analyzer
//
// A deeper timing pass over one wallet's own transfers, independent of
// the suspicion score. Transfers are ordered oldest first (descending
// age) and four signals feed an attention score:
//
//   Signal            Trigger                                Points
//   bursts            runs of ≥3 transfers, gaps ≤30s        10/burst, cap 30
//   periodicity       ≥3 transfers, gap CV <5% / <10% / <15%  25 / 15 / 8
//   time-of-day       share of the busiest pseudo-hour        >70% 15, >50% 10, >30% 5
//   rapid sequences   gaps ≤5s                               5/gap, cap 20
//
// Only relative ages are known, so the time-of-day bucket is age mod one
// day. It finds wallets that act at the same offset every day, not at a
// real clock hour.

const (
	burstGapSeconds    = 30
	burstMinTxs        = 3
	rapidGapSeconds    = 5
	rapidRunMinGaps    = 2
	periodicMinTxs     = 3
	periodicMaxMeanGap = 600
	secondsPerDay      = 86400
	secondsPerHour     = 3600
	maxTemporalScore   = 100
	temporalMinTxs     = 2
	highSeverityMinTxs = 5
	periodicMaxCV      = 0.15
)

// TemporalBreakdown is each signal's contribution to the attention score.
type TemporalBreakdown struct {
	Burst         int `json:"burst"`
	Periodicity   int `json:"periodicity"`
	Concentration int `json:"concentration"`
	Rapid         int `json:"rapid"`
}

// TemporalResult is the timing analysis of a single wallet.
type TemporalResult struct {
	Address        string                   `json:"address"`
	AttentionScore int                      `json:"attentionScore"`
	Breakdown      TemporalBreakdown        `json:"breakdown"`
	Patterns       []models.TemporalPattern `json:"patterns"`
	FirstSeen      int64                    `json:"firstSeen"`
	LastSeen       int64                    `json:"lastSeen"`
}

// txRun is an inclusive index range over the chronologically sorted txs.
type txRun struct {
	start, end int
}

func (r txRun) size() int { return r.end - r.start + 1 }

// AnalyzeTemporal scores one wallet's timing. Wallets with fewer than two
// transfers score 0 and report no patterns.
func AnalyzeTemporal(address string, txs []models.Transaction) TemporalResult {
	res := TemporalResult{Address: address, Patterns: []models.TemporalPattern{}}
	if len(txs) == 0 {
		return res
	}

	sorted := chronological(txs)
	res.FirstSeen = sorted[0].Age
	res.LastSeen = sorted[len(sorted)-1].Age
	if len(sorted) < temporalMinTxs {
		return res
	}

	gaps := make([]int64, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		gaps[i-1] = absInt64(sorted[i-1].Age - sorted[i].Age)
	}

	// 1. Bursts
	bursts := runsWithin(gaps, burstGapSeconds, burstMinTxs-1)
	res.Breakdown.Burst = metrics.MinInt(30, 10*len(bursts))
	for _, b := range bursts {
		res.Patterns = append(res.Patterns, runPattern(sorted, b, models.PatternBurst, burstSeverity(b.size()),
			fmt.Sprintf("Burst of %d transactions with gaps of at most %ds", b.size(), burstGapSeconds)))
	}

	// 2. Periodicity
	if len(sorted) >= periodicMinTxs {
		stats := metrics.ComputeGapStats(toFloat(gaps))
		res.Breakdown.Periodicity = periodicityPoints(stats.CV)
		if stats.CV < periodicMaxCV && stats.Mean < periodicMaxMeanGap {
			res.Patterns = append(res.Patterns, models.TemporalPattern{
				Type:        models.PatternPeriodic,
				Severity:    periodicSeverity(stats.CV),
				Description: fmt.Sprintf("Periodic activity: avg gap %.0fs, CV %.1f%%", stats.Mean, stats.CV*100),
				Start:       res.FirstSeen,
				End:         res.LastSeen,
				TxHashes:    hashes(sorted),
			})
		}
	}

	// 3. Time-of-day concentration
	res.Breakdown.Concentration = concentrationPoints(hourConcentration(sorted))

	// 4. Rapid sequences
	rapid := 0
	for _, g := range gaps {
		if g <= rapidGapSeconds {
			rapid++
		}
	}
	res.Breakdown.Rapid = metrics.MinInt(20, 5*rapid)
	for _, r := range runsWithin(gaps, rapidGapSeconds, rapidRunMinGaps) {
		res.Patterns = append(res.Patterns, runPattern(sorted, r, models.PatternRapidFire, rapidSeverity(r.size()),
			fmt.Sprintf("Rapid-fire sequence: %d transactions at most %ds apart", r.size(), rapidGapSeconds)))
	}

	b := res.Breakdown
	res.AttentionScore = metrics.MinInt(maxTemporalScore, b.Burst+b.Periodicity+b.Concentration+b.Rapid)
	return res
}

// EnrichTemporal runs the temporal pass for every wallet in the store and
// attaches the result.
func EnrichTemporal(store *WalletStore, index map[string][]models.Transaction) {
	for _, w := range store.All() {
		res := AnalyzeTemporal(w.Address, index[w.Address])
		w.Temporal = &models.TemporalEnrichment{
			AttentionScore: res.AttentionScore,
			Patterns:       res.Patterns,
			FirstSeen:      res.FirstSeen,
			LastSeen:       res.LastSeen,
		}
	}
}

// chronological returns a copy of txs sorted oldest first. Ties keep
// ledger order.
func chronological(txs []models.Transaction) []models.Transaction {
	out := make([]models.Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Age > out[j].Age })
	return out
}

// runsWithin finds maximal runs of consecutive gaps ≤ limit that contain
// at least minGaps gaps. Gap i sits between transfers i and i+1.
func runsWithin(gaps []int64, limit int64, minGaps int) []txRun {
	var runs []txRun
	start := -1
	flush := func(end int) {
		if start >= 0 && end-start >= minGaps {
			runs = append(runs, txRun{start: start, end: end})
		}
		start = -1
	}
	for i, g := range gaps {
		if g <= limit {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(gaps))
	return runs
}

func runPattern(sorted []models.Transaction, r txRun, typ models.TemporalPatternType, sev models.Severity, desc string) models.TemporalPattern {
	return models.TemporalPattern{
		Type:        typ,
		Severity:    sev,
		Description: desc,
		Start:       sorted[r.start].Age,
		End:         sorted[r.end].Age,
		TxHashes:    hashes(sorted[r.start : r.end+1]),
	}
}

func burstSeverity(n int) models.Severity {
	switch {
	case n >= highSeverityMinTxs:
		return models.SeverityHigh
	case n >= burstMinTxs:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

func rapidSeverity(n int) models.Severity {
	if n >= highSeverityMinTxs {
		return models.SeverityHigh
	}
	return models.SeverityMedium
}

func periodicityPoints(cv float64) int {
	switch {
	case cv < 0.05:
		return 25
	case cv < 0.10:
		return 15
	case cv < 0.15:
		return 8
	default:
		return 0
	}
}

func periodicSeverity(cv float64) models.Severity {
	switch {
	case cv < 0.05:
		return models.SeverityHigh
	case cv < 0.10:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// hourConcentration is the share of transfers in the busiest of 24
// pseudo-hour buckets.
func hourConcentration(txs []models.Transaction) float64 {
	var buckets [24]int
	for _, tx := range txs {
		offset := tx.Age % secondsPerDay
		if offset < 0 {
			offset += secondsPerDay
		}
		buckets[offset/secondsPerHour]++
	}
	peak := 0
	for _, c := range buckets {
		if c > peak {
			peak = c
		}
	}
	return float64(peak) / float64(len(txs))
}

func concentrationPoints(c float64) int {
	switch {
	case c > 0.7:
		return 15
	case c > 0.5:
		return 10
	case c > 0.3:
		return 5
	default:
		return 0
	}
}

func hashes(txs []models.Transaction) []string {
	out := make([]string, len(txs))
	for i, tx := range txs {
		out[i] = tx.Hash
	}
	return out
}

func toFloat(xs []int64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = float64(x)
	}
	return out
}

func absInt64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}

package heuristics

import (
	"fmt"
	"sort"

	"github.com/rawblock/smurfing-engine/internal/graph"
	"github.com/rawblock/smurfing-engine/internal/metrics"
	"github.com/rawblock/smurfing-engine/pkg/models"
)

// Suspicion Scorer
//
// Smurfing hides a large sum by splitting it across many small transfers
// and many throwaway wallets. Each wallet in the ledger is scored 0-100
// from graph statistics that betray that structure:
//
//   Signal                 Trigger                           Points
//   fan-out hub            ≥5 distinct recipients             3/peer, cap 30
//   fan-in hub             ≥5 distinct senders                3/peer, cap 30
//   peeling chain          ≥2 values shrinking by <15%        5/step, cap 25
//   time clustering        ≥3 gaps under 60s                  4/gap,  cap 20
//   high fee ratio         ≥2 transfers with fee/value > 1%   3/tx,   cap 15
//   lifetime volume        >100 lifetime transactions         n/50,   cap 10
//   robotic rhythm         gap CV <5% and mean gap <300s      20
//   regular rhythm         gap CV <10% and mean gap <600s     10
//
// Reasons are recorded in the order above. The wallet is then assigned a
// structural role (mule / aggregator / splitter / normal).

const (
	hubThreshold      = 5
	peelShrinkLimit   = 0.15
	peelMinSteps      = 2
	clusterGapSeconds = 60
	clusterMinGaps    = 3
	highFeeRatio      = 0.01
	highFeeMinTxs     = 2
	volumeTxThreshold = 100
	rhythmMinGaps     = 1
	maxSuspicionScore = 100
)

// ScoreWallets scores every address in the ledger and writes the results
// into store. It returns the graph it built so callers can reuse it.
// Running it twice on the same input yields identical wallets.
func ScoreWallets(txs []models.Transaction, store *WalletStore) *graph.Graph {
	g := graph.Build(txs)
	idx := graph.IndexByAddress(txs)

	for _, addr := range g.Addresses() {
		w := store.GetOrCreate(addr)
		scoreWallet(w, g, idx[addr])
	}
	return g
}

func scoreWallet(w *models.Wallet, g *graph.Graph, txs []models.Transaction) {
	resetDerived(w)
	accumulateTotals(w, txs)

	score := 0
	var reasons []string

	// 1. Fan-out
	fanOut := g.FanOut(w.Address)
	if fanOut >= hubThreshold {
		w.ParticipatesInFanOut = true
		score += metrics.MinInt(30, 3*fanOut)
		reasons = append(reasons, fmt.Sprintf("Fan-out: sends to %d distinct wallets", fanOut))
	}

	// 2. Fan-in
	fanIn := g.FanIn(w.Address)
	if fanIn >= hubThreshold {
		w.ParticipatesInFanIn = true
		score += metrics.MinInt(30, 3*fanIn)
		reasons = append(reasons, fmt.Sprintf("Fan-in: receives from %d distinct wallets", fanIn))
	}

	// 3. Peeling chain
	if steps := CountPeelSteps(txValues(txs)); steps >= peelMinSteps {
		w.IsPeelingSource = true
		score += metrics.MinInt(25, 5*steps)
		reasons = append(reasons, fmt.Sprintf("Peeling chain: %d gradually shrinking transfers", steps))
	}

	ages := txAges(txs)
	sorted := metrics.SortedAges(ages)

	// 4. Time clustering
	if clustered := countGapsBelow(sorted, clusterGapSeconds); clustered >= clusterMinGaps {
		score += metrics.MinInt(20, 4*clustered)
		reasons = append(reasons, fmt.Sprintf("Time clustering: %d transfers within %ds of each other", clustered, clusterGapSeconds))
	}

	// 5. High fee ratio
	highFee := 0
	for _, tx := range txs {
		if tx.FeeRatio > highFeeRatio {
			highFee++
		}
	}
	if highFee >= highFeeMinTxs {
		score += metrics.MinInt(15, 3*highFee)
		reasons = append(reasons, fmt.Sprintf("High fee ratio on %d transfers", highFee))
	}

	// 6. Lifetime volume
	if w.MaxTxCount > volumeTxThreshold {
		score += metrics.MinInt(10, w.MaxTxCount/50)
		reasons = append(reasons, fmt.Sprintf("High lifetime activity: %d transactions", w.MaxTxCount))
	}

	// 7. Rhythm
	stats := metrics.ComputeGapStats(metrics.Gaps(sorted))
	rhythm := ClassifyRhythm(stats)
	w.Rhythm = rhythm.Class
	w.RhythmDescription = rhythm.Description
	w.AvgTimeBetweenTx = stats.Mean
	if rhythm.Bonus > 0 {
		score += rhythm.Bonus
		reasons = append(reasons, rhythm.Reason)
	}

	if score > maxSuspicionScore {
		score = maxSuspicionScore
	}
	w.SuspicionScore = score
	w.SuspicionReasons = reasons
	w.Role = ClassifyRole(fanOut, fanIn, w.IsPeelingSource, w.TotalSent, w.TotalReceived)
}

// resetDerived clears everything the scorer owns so rescoring is idempotent.
// Manual flags and enrichments from later passes are left alone.
func resetDerived(w *models.Wallet) {
	w.TotalSent = 0
	w.TotalReceived = 0
	w.OutCount = 0
	w.InCount = 0
	w.SuspicionScore = 0
	w.SuspicionReasons = nil
	w.Rhythm = models.RhythmNormal
	w.RhythmDescription = ""
	w.AvgTimeBetweenTx = 0
	w.ParticipatesInFanOut = false
	w.ParticipatesInFanIn = false
	w.IsPeelingSource = false
	w.MaxTxCount = 0
	w.Role = models.RoleNormal
}

func accumulateTotals(w *models.Wallet, txs []models.Transaction) {
	for _, tx := range txs {
		if tx.From == w.Address {
			w.TotalSent += tx.Value
			w.OutCount++
			if tx.FromTxCount > w.MaxTxCount {
				w.MaxTxCount = tx.FromTxCount
			}
			if w.EntityType == "" {
				w.EntityType = tx.FromEntity
			}
		}
		if tx.To == w.Address {
			w.TotalReceived += tx.Value
			w.InCount++
			if tx.ToTxCount > w.MaxTxCount {
				w.MaxTxCount = tx.ToTxCount
			}
			if w.EntityType == "" {
				w.EntityType = tx.ToEntity
			}
		}
	}
}

// CountPeelSteps sorts values descending and counts consecutive pairs whose
// fractional decrease is strictly between 0 and 15%.
func CountPeelSteps(values []float64) int {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	steps := 0
	for i := 1; i < len(sorted); i++ {
		prev := sorted[i-1]
		if prev <= 0 {
			continue
		}
		decrease := (prev - sorted[i]) / prev
		if decrease > 0 && decrease < peelShrinkLimit {
			steps++
		}
	}
	return steps
}

// RhythmVerdict is the rhythm classification for one wallet.
type RhythmVerdict struct {
	Class       models.RhythmClass
	Bonus       int
	Description string
	Reason      string
}

// ClassifyRhythm grades gap regularity. A wallet with fewer than two
// transactions has no gaps and classifies as normal. A single gap has a
// CV of zero, so two quick transfers already read as robotic.
func ClassifyRhythm(stats metrics.GapStats) RhythmVerdict {
	if stats.Count < rhythmMinGaps {
		return RhythmVerdict{
			Class:       models.RhythmNormal,
			Description: "Insufficient transactions for rhythm analysis",
		}
	}

	desc := fmt.Sprintf("CV %.1f%%, avg gap %.0fs", stats.CV*100, stats.Mean)
	switch {
	case stats.CV < 0.05 && stats.Mean < 300:
		return RhythmVerdict{
			Class:       models.RhythmHighlySuspicious,
			Bonus:       20,
			Description: desc,
			Reason:      "Robotic transaction rhythm: " + desc,
		}
	case stats.CV < 0.10 && stats.Mean < 600:
		return RhythmVerdict{
			Class:       models.RhythmSuspicious,
			Bonus:       10,
			Description: desc,
			Reason:      "Regular transaction rhythm: " + desc,
		}
	default:
		return RhythmVerdict{Class: models.RhythmNormal, Description: desc}
	}
}

// ClassifyRole assigns the structural role. Order matters: the first
// matching rule wins. Mule and aggregator are mutually exclusive because
// each requires the other's hub side to be low.
func ClassifyRole(fanOut, fanIn int, peeling bool, sent, received float64) models.Role {
	highOut := fanOut >= hubThreshold
	highIn := fanIn >= hubThreshold

	switch {
	case highOut && !highIn && received > 0:
		return models.RoleMule
	case highIn && !highOut && sent > 0:
		return models.RoleAggregator
	case highOut && peeling:
		return models.RoleSplitter
	case highOut && fanOut > 2*fanIn:
		return models.RoleSplitter
	case highIn && fanIn > 2*fanOut:
		return models.RoleAggregator
	default:
		return models.RoleNormal
	}
}

func countGapsBelow(sorted []int64, limit float64) int {
	n := 0
	for _, gap := range metrics.Gaps(sorted) {
		if gap < limit {
			n++
		}
	}
	return n
}

func txValues(txs []models.Transaction) []float64 {
	values := make([]float64, len(txs))
	for i, tx := range txs {
		values[i] = tx.Value
	}
	return values
}

func txAges(txs []models.Transaction) []int64 {
	ages := make([]int64, len(txs))
	for i, tx := range txs {
		ages[i] = tx.Age
	}
	return ages
}

package heuristics

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawblock/smurfing-engine/pkg/models"
)

func agesToTxs(addr string, ages ...int64) []models.Transaction {
	txs := make([]models.Transaction, len(ages))
	for i, age := range ages {
		txs[i] = transfer(fmt.Sprintf("h%d", i), addr, "peer", 1, age)
	}
	return txs
}

func TestAnalyzeTemporal_TooFewTransactions(t *testing.T) {
	res := AnalyzeTemporal("w", agesToTxs("w", 500))
	assert.Equal(t, 0, res.AttentionScore)
	assert.Empty(t, res.Patterns)
	assert.Equal(t, int64(500), res.FirstSeen)
	assert.Equal(t, int64(500), res.LastSeen)

	res = AnalyzeTemporal("w", nil)
	assert.Equal(t, 0, res.AttentionScore)
}

func TestAnalyzeTemporal_BurstAndRapidFire(t *testing.T) {
	// oldest first: a 4-transfer burst of 2s gaps, a long pause, then a
	// second burst of 3 with 20s gaps
	txs := agesToTxs("w", 100006, 100004, 100002, 100000, 50040, 50020, 50000)

	res := AnalyzeTemporal("w", txs)

	assert.Equal(t, 20, res.Breakdown.Burst)
	assert.Equal(t, 15, res.Breakdown.Rapid)
	assert.Equal(t, int64(100006), res.FirstSeen)
	assert.Equal(t, int64(50000), res.LastSeen)

	var bursts, rapid []models.TemporalPattern
	for _, p := range res.Patterns {
		switch p.Type {
		case models.PatternBurst:
			bursts = append(bursts, p)
		case models.PatternRapidFire:
			rapid = append(rapid, p)
		}
	}

	require.Len(t, bursts, 2)
	assert.Equal(t, models.SeverityMedium, bursts[0].Severity)
	assert.Equal(t, []string{"h0", "h1", "h2", "h3"}, bursts[0].TxHashes)
	assert.Equal(t, int64(100006), bursts[0].Start)
	assert.Equal(t, int64(100000), bursts[0].End)
	assert.Equal(t, []string{"h4", "h5", "h6"}, bursts[1].TxHashes)

	require.Len(t, rapid, 1)
	assert.Equal(t, models.SeverityMedium, rapid[0].Severity)
	assert.Len(t, rapid[0].TxHashes, 4)
}

func TestAnalyzeTemporal_PeriodicWallet(t *testing.T) {
	// ten transfers exactly 120s apart
	var ages []int64
	for i := 0; i < 10; i++ {
		ages = append(ages, int64(93000-120*i))
	}
	res := AnalyzeTemporal("w", agesToTxs("w", ages...))

	assert.Equal(t, 25, res.Breakdown.Periodicity)
	assert.Equal(t, 0, res.Breakdown.Burst)
	assert.Equal(t, 0, res.Breakdown.Rapid)
	// 1080s span sits inside one pseudo-hour bucket
	assert.Equal(t, 15, res.Breakdown.Concentration)
	assert.Equal(t, 40, res.AttentionScore)

	require.Len(t, res.Patterns, 1)
	assert.Equal(t, models.PatternPeriodic, res.Patterns[0].Type)
	assert.Equal(t, models.SeverityHigh, res.Patterns[0].Severity)
}

func TestAnalyzeTemporal_SlowPeriodicNotReported(t *testing.T) {
	// perfectly regular but hourly: scores periodicity, emits no pattern
	res := AnalyzeTemporal("w", agesToTxs("w", 36000, 32400, 28800, 25200))
	assert.Equal(t, 25, res.Breakdown.Periodicity)
	assert.Empty(t, res.Patterns)
}

func TestAnalyzeTemporal_AllSignals(t *testing.T) {
	// forty transfers one second apart inside a single pseudo-hour
	var ages []int64
	for i := 0; i < 40; i++ {
		ages = append(ages, int64(5000-i))
	}
	res := AnalyzeTemporal("w", agesToTxs("w", ages...))

	assert.Equal(t, TemporalBreakdown{Burst: 10, Periodicity: 25, Concentration: 15, Rapid: 20}, res.Breakdown)
	assert.Equal(t, 70, res.AttentionScore)
	require.NotEmpty(t, res.Patterns)
	assert.Equal(t, models.PatternBurst, res.Patterns[0].Type)
	assert.Equal(t, models.SeverityHigh, res.Patterns[0].Severity)
	assert.Len(t, res.Patterns[0].TxHashes, 40)
}

func TestPeriodicityTiers(t *testing.T) {
	tests := []struct {
		cv     float64
		points int
		sev    models.Severity
	}{
		{0.01, 25, models.SeverityHigh},
		{0.07, 15, models.SeverityMedium},
		{0.12, 8, models.SeverityLow},
		{0.5, 0, models.SeverityLow},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("cv=%.2f", tt.cv), func(t *testing.T) {
			assert.Equal(t, tt.points, periodicityPoints(tt.cv))
			assert.Equal(t, tt.sev, periodicSeverity(tt.cv))
		})
	}
}

func TestEnrichTemporal(t *testing.T) {
	txs := agesToTxs("w", 300, 290, 280)
	store := NewWalletStore()
	ScoreWallets(txs, store)

	idx := make(map[string][]models.Transaction)
	for _, tx := range txs {
		idx[tx.From] = append(idx[tx.From], tx)
		idx[tx.To] = append(idx[tx.To], tx)
	}
	EnrichTemporal(store, idx)

	for _, w := range store.All() {
		require.NotNil(t, w.Temporal, w.Address)
		assert.GreaterOrEqual(t, w.Temporal.AttentionScore, 0)
		assert.LessOrEqual(t, w.Temporal.AttentionScore, 100)
	}
	w, _ := store.Get("w")
	assert.Equal(t, int64(300), w.Temporal.FirstSeen)
	assert.Equal(t, int64(280), w.Temporal.LastSeen)
}

func TestBuildHeatmap(t *testing.T) {
	txs := agesToTxs("w", 1000, 1000, 500, 0)
	cells := BuildHeatmap(txs)

	require.Len(t, cells, 168)
	assert.Equal(t, HeatmapCell{Day: 0, Hour: 0, Count: 2, Intensity: 0.2}, cells[0])
	// midpoint of the range lands on slot 84: day 3, hour 12
	assert.Equal(t, 3, cells[84].Day)
	assert.Equal(t, 12, cells[84].Hour)
	assert.Equal(t, 1, cells[84].Count)
	// newest transfer is clamped into the last slot
	assert.Equal(t, 1, cells[167].Count)
	assert.Equal(t, 6, cells[167].Day)
	assert.Equal(t, 23, cells[167].Hour)
}

func TestBuildHeatmap_SaturatesAndHandlesFlatRange(t *testing.T) {
	var ages []int64
	for i := 0; i < 25; i++ {
		ages = append(ages, 42)
	}
	cells := BuildHeatmap(agesToTxs("w", ages...))
	assert.Equal(t, 25, cells[0].Count)
	assert.Equal(t, 1.0, cells[0].Intensity)

	total := 0
	for _, c := range BuildHeatmap(nil) {
		total += c.Count
	}
	assert.Zero(t, total)
}

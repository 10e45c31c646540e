package engine

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rawblock/smurfing-engine/internal/heuristics"
	"github.com/rawblock/smurfing-engine/pkg/models"
)

// fanOutLedger has one source paying six fresh wallets in quick succession.
func fanOutLedger() []models.Transaction {
	txs := make([]models.Transaction, 0, 6)
	for i := 1; i <= 6; i++ {
		txs = append(txs, models.Transaction{
			Hash:  fmt.Sprintf("0x%02d", i),
			From:  "src",
			To:    fmt.Sprintf("m%d", i),
			Value: 1,
			Age:   int64(1000 - 10*i),
		})
	}
	return txs
}

func newTestSession(t *testing.T) (*Session, *heuristics.AlertManager) {
	t.Helper()
	alerts := heuristics.NewAlertManager(zap.NewNop(), nil)
	return NewSession(zap.NewNop(), alerts, rand.New(rand.NewSource(1))), alerts
}

func TestSession_RequiresLedger(t *testing.T) {
	s, _ := newTestSession(t)

	_, err := s.Analyze()
	assert.ErrorIs(t, err, ErrNoLedger)
	_, err = s.Wallets(0, 0)
	assert.ErrorIs(t, err, ErrNoLedger)
	_, err = s.DisplayGraph()
	assert.ErrorIs(t, err, ErrNoLedger)
	_, err = s.Expand(nil, heuristics.ExpansionConfig{K: 1})
	assert.ErrorIs(t, err, ErrNoLedger)
}

func TestSession_LoadAndQuery(t *testing.T) {
	s, _ := newTestSession(t)

	sum, err := s.Load("test", fanOutLedger())
	require.NoError(t, err)
	assert.Equal(t, 6, sum.Transactions)
	assert.Equal(t, 7, sum.Wallets)

	wallets, err := s.Wallets(0, 0)
	require.NoError(t, err)
	require.Len(t, wallets, 7)
	assert.Equal(t, "src", wallets[0].Address)
	assert.True(t, wallets[0].ParticipatesInFanOut)
	assert.NotNil(t, wallets[0].Guard)
	assert.NotNil(t, wallets[0].Temporal)

	limited, err := s.Wallets(0, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	w, err := s.Wallet("  SRC ")
	require.NoError(t, err)
	assert.Equal(t, 6, w.OutCount)

	_, err = s.Wallet("nobody")
	assert.ErrorIs(t, err, ErrUnknownWallet)

	txs, err := s.WalletTransactions("m3")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "0x03", txs[0].Hash)

	cells, err := s.Heatmap("")
	require.NoError(t, err)
	assert.Len(t, cells, 168)

	g, err := s.DisplayGraph()
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 7)
	assert.Len(t, g.Links, 6)
}

func TestSession_ManualFlagSurvivesReload(t *testing.T) {
	s, alerts := newTestSession(t)
	_, err := s.Load("test", fanOutLedger())
	require.NoError(t, err)

	_, err = s.SetManualFlag("src", models.ManualFlag("bogus"))
	assert.ErrorIs(t, err, ErrInvalidFlag)

	w, err := s.SetManualFlag("src", models.FlagSuspicious)
	require.NoError(t, err)
	assert.Equal(t, models.FlagSuspicious, w.ManualFlag)

	recent := alerts.GetRecentAlerts(1)
	require.Len(t, recent, 1)
	assert.Equal(t, heuristics.AlertManualFlag, recent[0].AlertType)

	_, err = s.Load("reload", fanOutLedger())
	require.NoError(t, err)
	w, err = s.Wallet("src")
	require.NoError(t, err)
	assert.Equal(t, models.FlagSuspicious, w.ManualFlag)
}

func TestSession_SeedsAndExpand(t *testing.T) {
	s, _ := newTestSession(t)
	_, err := s.Load("test", fanOutLedger())
	require.NoError(t, err)

	seed, created := s.AddSeed("SRC", "source")
	assert.True(t, created)
	assert.Equal(t, "src", seed.Address)
	_, created = s.AddSeed("src", "again")
	assert.False(t, created)
	require.Len(t, s.Seeds(), 1)

	res, err := s.Expand(nil, heuristics.ExpansionConfig{K: 1})
	require.NoError(t, err)
	assert.Len(t, res.Subgraph.Nodes, 7)
	assert.Len(t, res.Subgraph.Links, 6)
	assert.Equal(t, []string{"src"}, res.Subgraph.Seeds)
	require.Len(t, res.Topology, 1)
	assert.Len(t, res.Topology[0].Wallets, 6)

	backward, err := s.Expand([]string{seed.ID}, heuristics.ExpansionConfig{K: 1, Direction: models.DirectionBackward})
	require.NoError(t, err)
	assert.Len(t, backward.Subgraph.Nodes, 1)

	_, err = s.Expand([]string{"missing"}, heuristics.ExpansionConfig{K: 1})
	assert.ErrorIs(t, err, ErrUnknownSeed)

	assert.ErrorIs(t, s.RemoveSeed("missing"), ErrUnknownSeed)
	require.NoError(t, s.RemoveSeed(seed.ID))
	assert.Empty(t, s.Seeds())
}

func TestSession_Learn(t *testing.T) {
	s, _ := newTestSession(t)
	_, err := s.Load("test", fanOutLedger())
	require.NoError(t, err)
	builtIns := len(s.Library().Patterns)

	p, err := s.Learn(LearnRequest{Address: "src", PatternName: "Payroll Splitter", ConfirmedBy: "analyst"})
	require.NoError(t, err)
	assert.Equal(t, "Payroll Splitter", p.Name)
	assert.False(t, p.IsBuiltIn)
	assert.Equal(t, 0.5, p.Confidence)
	require.Len(t, p.Examples, 1)
	assert.Equal(t, "src", p.Examples[0].Address)
	assert.Equal(t, 6.0, p.Features.AvgFanOut)
	assert.Len(t, s.Library().Patterns, builtIns+1)

	w, err := s.Wallet("src")
	require.NoError(t, err)
	assert.Equal(t, models.FlagConfirmedLaundering, w.ManualFlag)
	require.NotNil(t, w.Guard)
	require.NotEmpty(t, w.Guard.MatchedPatterns)
	assert.Equal(t, "Payroll Splitter", w.Guard.MatchedPatterns[0].PatternName)

	_, err = s.Learn(LearnRequest{Address: "nobody", PatternName: "x"})
	assert.ErrorIs(t, err, ErrUnknownWallet)
}

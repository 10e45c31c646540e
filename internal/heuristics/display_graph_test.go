package heuristics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawblock/smurfing-engine/pkg/models"
)

func TestTierColor(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{0, ColorLowRisk},
		{29, ColorLowRisk},
		{30, ColorMediumRisk},
		{59, ColorMediumRisk},
		{60, ColorHighRisk},
		{100, ColorHighRisk},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TierColor(tt.score), "score %d", tt.score)
	}
}

func TestNodeSize(t *testing.T) {
	assert.Equal(t, 3.0, NodeSize(&models.Wallet{TotalSent: 1}, globalNodeFloor))
	assert.Equal(t, 10.0, NodeSize(&models.Wallet{TotalSent: 60, TotalReceived: 40}, globalNodeFloor))
	assert.Equal(t, 5.0, NodeSize(&models.Wallet{TotalSent: 9}, subgraphNodeFloor))
}

func TestBuildDisplayGraph(t *testing.T) {
	txs := []models.Transaction{
		transfer("h1", "a", "b", 2, 100),
		transfer("h2", "a", "b", 3, 50),
		transfer("h3", "b", "a", 1, 10),
	}
	store := NewWalletStore()
	g := ScoreWallets(txs, store)

	dg := BuildDisplayGraph(g, store)
	require.Len(t, dg.Nodes, 2)
	assert.Equal(t, "a", dg.Nodes[0].ID)
	assert.Equal(t, ColorLowRisk, dg.Nodes[0].Color)

	require.Len(t, dg.Links, 2)
	ab := dg.Links[0]
	assert.Equal(t, "a", ab.Source)
	assert.Equal(t, "b", ab.Target)
	assert.Equal(t, 5.0, ab.Value)
	assert.Equal(t, int64(50), ab.MinAge)
	assert.Equal(t, "h1", ab.TxHash)
}

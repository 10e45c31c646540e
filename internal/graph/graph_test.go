package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawblock/smurfing-engine/pkg/models"
)

func tx(hash, from, to string, value float64, age int64) models.Transaction {
	return models.Transaction{Hash: hash, From: from, To: to, Value: value, Age: age}
}

func TestBuild_CollapsesParallelTransfers(t *testing.T) {
	g := Build([]models.Transaction{
		tx("h1", "a", "b", 1.5, 300),
		tx("h2", "a", "b", 2.5, 120),
		tx("h3", "b", "a", 1.0, 60),
		tx("h4", "a", "c", 4.0, 30),
	})

	assert.Equal(t, []string{"b", "c"}, g.Forward("a"))
	assert.Equal(t, []string{"a"}, g.Backward("b"))
	assert.Equal(t, 2, g.FanOut("a"))
	assert.Equal(t, 1, g.FanIn("a"))

	edge, ok := g.Edge("a", "b")
	require.True(t, ok)
	assert.InDelta(t, 4.0, edge.Value, 1e-9)
	assert.Equal(t, []int64{300, 120}, edge.Ages)
	assert.Equal(t, []string{"h1", "h2"}, edge.Hashes)
	assert.Equal(t, int64(120), edge.MinAge())
	assert.Equal(t, "h1", edge.FirstHash())

	_, ok = g.Edge("c", "a")
	assert.False(t, ok)
	assert.Len(t, g.Edges(), 3)
	assert.Equal(t, []string{"a", "b", "c"}, g.Addresses())
}

func TestBuild_SelfLoopIsAnEdge(t *testing.T) {
	g := Build([]models.Transaction{tx("h1", "a", "a", 1, 10)})

	assert.Equal(t, []string{"a"}, g.Forward("a"))
	assert.Equal(t, []string{"a"}, g.Backward("a"))
	_, ok := g.Edge("a", "a")
	assert.True(t, ok)
	assert.Equal(t, []string{"a"}, g.Addresses())
}

func TestFilter(t *testing.T) {
	txs := []models.Transaction{
		{Hash: "small", From: "a", To: "b", Value: 0.5, Age: 100},
		{Hash: "old", From: "a", To: "b", Value: 5, Age: 9000},
		{Hash: "exchange", From: "a", To: "x", Value: 5, Age: 100, ToEntity: "exchange"},
		{Hash: "plain", From: "a", To: "c", Value: 5, Age: 100, FromEntity: "wallet"},
	}

	tests := []struct {
		name     string
		criteria Criteria
		want     []string
	}{
		{"no filters", Criteria{}, []string{"small", "old", "exchange", "plain"}},
		{"min value", Criteria{MinValue: 1}, []string{"old", "exchange", "plain"}},
		{"age window", Criteria{MaxAge: 1000}, []string{"small", "exchange", "plain"}},
		{"lower age bound", Criteria{MinAge: 1000}, []string{"old"}},
		{"entity allow-list", Criteria{EntityTypes: []models.EntityType{"exchange"}}, []string{"exchange"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, tx := range Filter(txs, tt.criteria) {
				got = append(got, tx.Hash)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIndexByAddress(t *testing.T) {
	idx := IndexByAddress([]models.Transaction{
		tx("h1", "a", "b", 1, 10),
		tx("h2", "b", "b", 1, 5),
	})

	assert.Len(t, idx["a"], 1)
	assert.Len(t, idx["b"], 2)
}

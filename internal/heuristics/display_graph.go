package heuristics

import (
	"math"

	"github.com/rawblock/smurfing-engine/internal/graph"
	"github.com/rawblock/smurfing-engine/pkg/models"
)

// Suspicion tier colors shared by every rendered graph.
const (
	ColorLowRisk    = "#22c55e"
	ColorMediumRisk = "#eab308"
	ColorHighRisk   = "#ef4444"
	ColorSeed       = "#8b5cf6"
)

// Node sizing. The global ledger view floors at 3, investigation
// subgraphs at 5, and seeds are pinned.
const (
	globalNodeFloor   = 3.0
	subgraphNodeFloor = 5.0
	seedNodeSize      = 15.0
)

// TierColor maps a suspicion score to its display color.
func TierColor(score int) string {
	switch {
	case score < 30:
		return ColorLowRisk
	case score < 60:
		return ColorMediumRisk
	default:
		return ColorHighRisk
	}
}

// NodeSize is sqrt(total volume), never below floor.
func NodeSize(w *models.Wallet, floor float64) float64 {
	return math.Max(floor, math.Sqrt(w.TotalSent+w.TotalReceived))
}

// BuildDisplayGraph renders the whole ledger graph: one node per scored
// address and one link per aggregated edge.
func BuildDisplayGraph(g *graph.Graph, store *WalletStore) models.DisplayGraph {
	out := models.DisplayGraph{
		Nodes: make([]models.GraphNode, 0, len(g.Addresses())),
		Links: make([]models.GraphLink, 0, len(g.Edges())),
	}

	for _, addr := range g.Addresses() {
		w, ok := store.Get(addr)
		if !ok {
			continue
		}
		out.Nodes = append(out.Nodes, models.GraphNode{
			ID:             addr,
			Size:           NodeSize(w, globalNodeFloor),
			Color:          TierColor(w.SuspicionScore),
			SuspicionScore: w.SuspicionScore,
			Role:           w.Role,
		})
	}

	for _, e := range g.Edges() {
		out.Links = append(out.Links, models.GraphLink{
			Source: e.From,
			Target: e.To,
			Value:  e.Value,
			MinAge: e.MinAge(),
			TxHash: e.FirstHash(),
		})
	}
	return out
}

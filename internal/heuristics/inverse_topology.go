package heuristics

import (
	"sort"

	"github.com/rawblock/smurfing-engine/internal/graph"
	"github.com/rawblock/smurfing-engine/pkg/models"
)

// pairTotal is the unfiltered volume between two wallets, both directions.
type pairTotal struct {
	value float64
	count int
}

// InverseTopology answers "who is connected to this seed, and how" for
// every seed of sub. Relations come from the subgraph's own links; value
// and count come from the unfiltered ledger so filters never hide money
// that actually moved between the pair. A wallet with no direct link to
// the seed is listed as indirect only under the seed whose expansion
// reached it. Each list is ordered by suspicion score, highest first,
// ties in node order.
func InverseTopology(sub models.Subgraph, txs []models.Transaction, store *WalletStore) []models.SeedConnections {
	linked := make(map[graph.EdgeKey]bool, len(sub.Links))
	for _, l := range sub.Links {
		linked[graph.EdgeKey{From: l.Source, To: l.Target}] = true
	}

	seeds := make(map[string]bool, len(sub.Seeds))
	for _, s := range sub.Seeds {
		seeds[s] = true
	}
	totals := pairTotals(txs, seeds)

	out := make([]models.SeedConnections, 0, len(sub.Seeds))
	for _, seed := range sub.Seeds {
		conn := models.SeedConnections{Seed: seed, Wallets: []models.ConnectedWallet{}}
		for _, n := range sub.Nodes {
			if n.ID == seed {
				continue
			}
			rel := relationTo(linked, seed, n.ID)
			dist := 1
			if rel == models.RelationIndirect {
				if !reachedFrom(n, seed) {
					continue
				}
				dist = n.Distance
			}
			t := totals[undirected(seed, n.ID)]
			cw := models.ConnectedWallet{
				Address:    n.ID,
				Relation:   rel,
				TotalValue: t.value,
				TxCount:    t.count,
				Distance:   dist,
			}
			if w, ok := store.Get(n.ID); ok {
				cw.SuspicionScore = w.SuspicionScore
			}
			conn.Wallets = append(conn.Wallets, cw)
		}
		sort.SliceStable(conn.Wallets, func(i, j int) bool {
			return conn.Wallets[i].SuspicionScore > conn.Wallets[j].SuspicionScore
		})
		out = append(out, conn)
	}
	return out
}

// reachedFrom reports whether the expansion reached n from seed. Only
// then is n.Distance the hop count from that seed.
func reachedFrom(n models.GraphNode, seed string) bool {
	return len(n.Path) > 0 && n.Path[0] == seed
}

// relationTo describes addr from the seed's side: sends_to means the
// wallet pays the seed.
func relationTo(linked map[graph.EdgeKey]bool, seed, addr string) models.Relation {
	toSeed := linked[graph.EdgeKey{From: addr, To: seed}]
	fromSeed := linked[graph.EdgeKey{From: seed, To: addr}]
	switch {
	case toSeed && fromSeed:
		return models.RelationBidirectional
	case toSeed:
		return models.RelationSendsTo
	case fromSeed:
		return models.RelationReceivesFrom
	default:
		return models.RelationIndirect
	}
}

// pairTotals sums transfers touching a seed, keyed by unordered pair.
func pairTotals(txs []models.Transaction, seeds map[string]bool) map[graph.EdgeKey]pairTotal {
	totals := make(map[graph.EdgeKey]pairTotal)
	for _, tx := range txs {
		if !seeds[tx.From] && !seeds[tx.To] {
			continue
		}
		key := undirected(tx.From, tx.To)
		t := totals[key]
		t.value += tx.Value
		t.count++
		totals[key] = t
	}
	return totals
}

func undirected(a, b string) graph.EdgeKey {
	if a > b {
		a, b = b, a
	}
	return graph.EdgeKey{From: a, To: b}
}

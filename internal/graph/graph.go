package graph

import (
	"github.com/rawblock/smurfing-engine/pkg/models"
)

// Transaction Graph Builder
//
// Collapses the flat ledger into a directed wallet graph:
//
//   forward[a]  = addresses a has sent to
//   backward[b] = addresses that sent to b
//   edges[a→b]  = every transfer from a to b, aggregated
//
// Multiple transfers on the same ordered pair collapse into one edge.
// Self-transfers are kept as a self-loop edge. Neighbor lists preserve
// first-insertion order so traversals over the graph are reproducible.

// EdgeKey identifies an ordered (from, to) address pair.
type EdgeKey struct {
	From string
	To   string
}

// Edge aggregates every transfer on one ordered pair.
type Edge struct {
	From   string
	To     string
	Value  float64  // summed value
	Ages   []int64  // one per transfer, ledger order
	Hashes []string // one per transfer, ledger order
}

// MinAge returns the newest (smallest) age among the edge's transfers.
func (e *Edge) MinAge() int64 {
	if len(e.Ages) == 0 {
		return 0
	}
	newest := e.Ages[0]
	for _, a := range e.Ages[1:] {
		if a < newest {
			newest = a
		}
	}
	return newest
}

// FirstHash returns a representative transfer hash for the edge.
func (e *Edge) FirstHash() string {
	if len(e.Hashes) == 0 {
		return ""
	}
	return e.Hashes[0]
}

// Graph is the directed wallet graph derived from one ledger snapshot.
// It is rebuilt per analysis run and never persisted.
type Graph struct {
	forward   map[string][]string
	backward  map[string][]string
	fwdSeen   map[EdgeKey]bool
	edges     map[EdgeKey]*Edge
	edgeOrder []EdgeKey
	addresses []string
	known     map[string]bool
}

func newGraph() *Graph {
	return &Graph{
		forward:  make(map[string][]string),
		backward: make(map[string][]string),
		fwdSeen:  make(map[EdgeKey]bool),
		edges:    make(map[EdgeKey]*Edge),
		known:    make(map[string]bool),
	}
}

// Build constructs the graph from a transaction list. It never fails:
// malformed or self-referential transfers are accepted as-is.
func Build(txs []models.Transaction) *Graph {
	g := newGraph()
	for _, tx := range txs {
		g.add(tx)
	}
	return g
}

func (g *Graph) add(tx models.Transaction) {
	g.touch(tx.From)
	g.touch(tx.To)

	key := EdgeKey{From: tx.From, To: tx.To}
	if !g.fwdSeen[key] {
		g.fwdSeen[key] = true
		g.forward[tx.From] = append(g.forward[tx.From], tx.To)
		g.backward[tx.To] = append(g.backward[tx.To], tx.From)
	}

	edge, ok := g.edges[key]
	if !ok {
		edge = &Edge{From: tx.From, To: tx.To}
		g.edges[key] = edge
		g.edgeOrder = append(g.edgeOrder, key)
	}
	edge.Value += tx.Value
	edge.Ages = append(edge.Ages, tx.Age)
	edge.Hashes = append(edge.Hashes, tx.Hash)
}

func (g *Graph) touch(addr string) {
	if !g.known[addr] {
		g.known[addr] = true
		g.addresses = append(g.addresses, addr)
	}
}

// Forward returns the distinct addresses addr has sent to.
func (g *Graph) Forward(addr string) []string {
	return g.forward[addr]
}

// Backward returns the distinct addresses that have sent to addr.
func (g *Graph) Backward(addr string) []string {
	return g.backward[addr]
}

// FanOut is the number of distinct recipients of addr.
func (g *Graph) FanOut(addr string) int {
	return len(g.forward[addr])
}

// FanIn is the number of distinct senders to addr.
func (g *Graph) FanIn(addr string) int {
	return len(g.backward[addr])
}

// Edge returns the aggregate for the ordered pair, if any transfer exists.
func (g *Graph) Edge(from, to string) (*Edge, bool) {
	e, ok := g.edges[EdgeKey{From: from, To: to}]
	return e, ok
}

// Edges returns every aggregated edge in first-seen order.
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, 0, len(g.edgeOrder))
	for _, k := range g.edgeOrder {
		out = append(out, g.edges[k])
	}
	return out
}

// Addresses returns every address seen as sender or recipient, first-seen order.
func (g *Graph) Addresses() []string {
	return g.addresses
}

// Has reports whether addr appears anywhere in the graph.
func (g *Graph) Has(addr string) bool {
	return g.known[addr]
}

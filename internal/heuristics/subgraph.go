package heuristics

import (
	"github.com/rawblock/smurfing-engine/internal/graph"
	"github.com/rawblock/smurfing-engine/pkg/models"
)

// Subgraph Expander
//
// Starting from investigator-chosen seed wallets, walks the transfer
// graph out to k hops and returns a bounded node/link set:
//
//   1. Filter the ledger (value, age window, entity tags)
//   2. Build a graph from the surviving transfers only
//   3. Breadth-first search from every seed at once (distance 0)
//   4. A visited node moves only to a strictly shorter distance; ties keep
//      the first path found
//   5. Nodes at distance k are not expanded further
//
// Every neighbor examined adds a link oriented in the true send
// direction, no matter which adjacency found it. Links are unique per
// ordered (source, target) pair, so wallets that paid each other both ways
// yield two links, one per real edge.

// ExpansionConfig controls one subgraph expansion. Callers validate K;
// any K ≥ 0 is handled.
type ExpansionConfig struct {
	Seeds       []models.Seed       `json:"seeds"`
	K           int                 `json:"k"`           // max hops from the nearest seed
	MinValue    float64             `json:"minValue"`    // drop smaller transfers
	MinAge      int64               `json:"minAge"`      // inclusive, 0 = unbounded
	MaxAge      int64               `json:"maxAge"`      // inclusive, 0 = unbounded
	EntityTypes []models.EntityType `json:"entityTypes"` // empty = all
	Direction   models.Direction    `json:"direction"`   // forward / backward / bidirectional
}

func (c ExpansionConfig) criteria() graph.Criteria {
	return graph.Criteria{
		MinValue:    c.MinValue,
		MinAge:      c.MinAge,
		MaxAge:      c.MaxAge,
		EntityTypes: c.EntityTypes,
	}
}

// ExpansionResult is the subgraph plus, per seed, how every other node in
// it relates to that seed.
type ExpansionResult struct {
	Subgraph models.Subgraph          `json:"subgraph"`
	Topology []models.SeedConnections `json:"topology"`
}

// visit is the BFS bookkeeping for one reached address.
type visit struct {
	distance int
	path     []string
}

// expansion holds the traversal state while a subgraph is being built.
type expansion struct {
	g       *graph.Graph
	visited map[string]*visit
	order   []string
	links   []models.GraphLink
	linked  map[graph.EdgeKey]bool
}

// ExpandSubgraph runs a k-hop expansion over txs. Zero seeds return an
// empty result without touching the ledger.
func ExpandSubgraph(cfg ExpansionConfig, txs []models.Transaction, store *WalletStore) ExpansionResult {
	empty := ExpansionResult{
		Subgraph: models.Subgraph{Nodes: []models.GraphNode{}, Links: []models.GraphLink{}, Seeds: []string{}},
		Topology: []models.SeedConnections{},
	}
	if len(cfg.Seeds) == 0 {
		return empty
	}

	ex := &expansion{
		g:       graph.Build(graph.Filter(txs, cfg.criteria())),
		visited: make(map[string]*visit),
		linked:  make(map[graph.EdgeKey]bool),
	}

	var queue []string
	seedColor := make(map[string]string, len(cfg.Seeds))
	for _, s := range cfg.Seeds {
		if _, ok := ex.visited[s.Address]; ok {
			continue
		}
		seedColor[s.Address] = s.Color
		ex.visited[s.Address] = &visit{distance: 0, path: []string{s.Address}}
		ex.order = append(ex.order, s.Address)
		queue = append(queue, s.Address)
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		v := ex.visited[cur]
		if v.distance >= cfg.K {
			continue
		}

		if cfg.Direction != models.DirectionBackward {
			for _, next := range ex.g.Forward(cur) {
				ex.addLink(cur, next, models.DirectionForward)
				if ex.reach(next, v) {
					queue = append(queue, next)
				}
			}
		}
		if cfg.Direction == models.DirectionBackward || cfg.Direction == models.DirectionBidirectional {
			for _, prev := range ex.g.Backward(cur) {
				ex.addLink(prev, cur, models.DirectionBackward)
				if ex.reach(prev, v) {
					queue = append(queue, prev)
				}
			}
		}
	}

	sub := models.Subgraph{
		Nodes: ex.nodes(store, seedColor),
		Seeds: make([]string, 0, len(seedColor)),
	}
	// a seed with no wallet record renders no node and gets no topology
	for _, n := range sub.Nodes {
		if n.IsSeed {
			sub.Seeds = append(sub.Seeds, n.ID)
		}
	}
	sub.Links = ex.renderableLinks(sub.Nodes)

	return ExpansionResult{
		Subgraph: sub,
		Topology: InverseTopology(sub, txs, store),
	}
}

// reach records addr as one hop beyond from. It reports whether addr
// needs (re)expanding.
func (ex *expansion) reach(addr string, from *visit) bool {
	d := from.distance + 1
	if existing, ok := ex.visited[addr]; ok && existing.distance <= d {
		return false
	}

	path := make([]string, len(from.path), len(from.path)+1)
	copy(path, from.path)
	path = append(path, addr)

	if _, ok := ex.visited[addr]; !ok {
		ex.order = append(ex.order, addr)
	}
	ex.visited[addr] = &visit{distance: d, path: path}
	return true
}

// addLink records the edge source→target once, aggregated over the
// filtered transfers on that ordered pair.
func (ex *expansion) addLink(source, target string, dir models.Direction) {
	key := graph.EdgeKey{From: source, To: target}
	if ex.linked[key] {
		return
	}
	e, ok := ex.g.Edge(source, target)
	if !ok {
		return
	}
	ex.linked[key] = true
	ex.links = append(ex.links, models.GraphLink{
		Source:    source,
		Target:    target,
		Value:     e.Value,
		MinAge:    e.MinAge(),
		TxHash:    e.FirstHash(),
		Direction: dir,
	})
}

// nodes renders every visited address that has a wallet record, in
// discovery order. Seeds get a fixed size and their own color.
func (ex *expansion) nodes(store *WalletStore, seedColor map[string]string) []models.GraphNode {
	out := make([]models.GraphNode, 0, len(ex.order))
	for _, addr := range ex.order {
		w, ok := store.Get(addr)
		if !ok {
			continue
		}
		v := ex.visited[addr]
		n := models.GraphNode{
			ID:             addr,
			Size:           NodeSize(w, subgraphNodeFloor),
			Color:          TierColor(w.SuspicionScore),
			SuspicionScore: w.SuspicionScore,
			Role:           w.Role,
			Distance:       v.distance,
			Path:           v.path,
		}
		if color, isSeed := seedColor[addr]; isSeed {
			n.IsSeed = true
			n.Size = seedNodeSize
			n.Color = color
			if n.Color == "" {
				n.Color = ColorSeed
			}
		}
		out = append(out, n)
	}
	return out
}

// renderableLinks drops links whose endpoints produced no node, so every
// link in the result resolves against the node list.
func (ex *expansion) renderableLinks(nodes []models.GraphNode) []models.GraphLink {
	present := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		present[n.ID] = true
	}
	out := make([]models.GraphLink, 0, len(ex.links))
	for _, l := range ex.links {
		if present[l.Source] && present[l.Target] {
			out = append(out, l)
		}
	}
	return out
}

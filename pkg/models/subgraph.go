package models

import "time"

// Direction selects which adjacency a subgraph expansion follows. On a
// link it records which adjacency discovered the link.
type Direction string

const (
	DirectionForward       Direction = "forward"
	DirectionBackward      Direction = "backward"
	DirectionBidirectional Direction = "bidirectional"
)

// Valid reports whether d is one of the three expansion modes.
func (d Direction) Valid() bool {
	switch d {
	case DirectionForward, DirectionBackward, DirectionBidirectional:
		return true
	default:
		return false
	}
}

// Seed is an investigator-chosen anchor wallet for subgraph expansion.
type Seed struct {
	ID        string    `json:"id"`
	Address   string    `json:"address"`
	Label     string    `json:"label,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Color     string    `json:"color"`
}

// GraphNode is a renderable wallet node. Links reference nodes by ID
// (the address); resolving them is the renderer's job.
type GraphNode struct {
	ID             string   `json:"id"`
	Size           float64  `json:"size"`
	Color          string   `json:"color"`
	SuspicionScore int      `json:"suspicionScore"`
	Role           Role     `json:"role"`
	IsSeed         bool     `json:"isSeed,omitempty"`
	Distance       int      `json:"distance,omitempty"`
	Path           []string `json:"path,omitempty"`
}

// GraphLink is one aggregated directed edge. Source and Target always
// follow the true send direction.
type GraphLink struct {
	Source    string    `json:"source"`
	Target    string    `json:"target"`
	Value     float64   `json:"value"`
	MinAge    int64     `json:"minAge"`
	TxHash    string    `json:"txHash,omitempty"`
	Direction Direction `json:"direction,omitempty"`
}

// DisplayGraph is the node/link view of the whole ledger.
type DisplayGraph struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

// Subgraph is the bounded result of a k-hop seed expansion.
type Subgraph struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
	Seeds []string    `json:"seeds"`
}

// Relation describes how a connected wallet relates to a seed, read from
// the wallet's side: sends_to means the wallet paid the seed directly.
type Relation string

const (
	RelationSendsTo       Relation = "sends_to"
	RelationReceivesFrom  Relation = "receives_from"
	RelationBidirectional Relation = "bidirectional"
	RelationIndirect      Relation = "indirect"
)

// ConnectedWallet is one entry in a seed's inverse topology.
type ConnectedWallet struct {
	Address        string   `json:"address"`
	Relation       Relation `json:"relation"`
	TotalValue     float64  `json:"totalValue"`
	TxCount        int      `json:"txCount"`
	SuspicionScore int      `json:"suspicionScore"`
	Distance       int      `json:"distance"`
}

// SeedConnections lists the subgraph wallets connected to one seed.
type SeedConnections struct {
	Seed    string            `json:"seed"`
	Wallets []ConnectedWallet `json:"wallets"`
}

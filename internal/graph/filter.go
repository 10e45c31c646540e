package graph

import (
	"github.com/rawblock/smurfing-engine/pkg/models"
)

// Criteria narrows the ledger before a graph is built. Zero values
// disable the corresponding filter.
type Criteria struct {
	MinValue    float64
	MinAge      int64 // inclusive; 0 = no lower bound
	MaxAge      int64 // inclusive; 0 = no upper bound
	EntityTypes []models.EntityType
}

// Match reports whether a transaction passes every active filter. The
// entity allow-list passes a transfer when either party carries an
// allowed tag.
func (c Criteria) Match(tx models.Transaction) bool {
	if tx.Value < c.MinValue {
		return false
	}
	if c.MinAge > 0 && tx.Age < c.MinAge {
		return false
	}
	if c.MaxAge > 0 && tx.Age > c.MaxAge {
		return false
	}
	if len(c.EntityTypes) > 0 {
		allowed := false
		for _, et := range c.EntityTypes {
			if tx.FromEntity == et || tx.ToEntity == et {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}
	return true
}

// Filter returns the transactions matching c, in ledger order.
func Filter(txs []models.Transaction, c Criteria) []models.Transaction {
	out := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if c.Match(tx) {
			out = append(out, tx)
		}
	}
	return out
}

// IndexByAddress maps each address to the transfers it takes part in,
// in ledger order. A self-transfer is listed once.
func IndexByAddress(txs []models.Transaction) map[string][]models.Transaction {
	idx := make(map[string][]models.Transaction)
	for _, tx := range txs {
		idx[tx.From] = append(idx[tx.From], tx)
		if tx.To != tx.From {
			idx[tx.To] = append(idx[tx.To], tx)
		}
	}
	return idx
}

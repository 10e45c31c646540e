package heuristics

import (
	"time"

	"github.com/rawblock/smurfing-engine/pkg/models"
)

// Built-in prototypes. IDs are stable so matches stay comparable across
// restarts; learned prototypes get a fresh UUID instead.
const (
	PatternIDFanOutSmurfing    = "builtin-fan-out-smurfing"
	PatternIDFanInAggregation  = "builtin-fan-in-aggregation"
	PatternIDPeelingChain      = "builtin-peeling-chain"
	PatternIDAutomatedLayering = "builtin-automated-layering"
	PatternIDMuleRelay         = "builtin-mule-relay"
)

// DefaultLibrary returns the built-in prototypes. They carry no examples,
// so the first confirmation folded into one replaces its averaged features
// (fan-out, fan-in, gap, value, CV) with the wallet's own; the flags and
// tx-count range still merge. Later confirmations average in.
func DefaultLibrary(now time.Time) models.PatternLibrary {
	builtIn := func(id, name, desc string, confidence float64, fv models.FeatureVector) models.LaunderingPattern {
		return models.LaunderingPattern{
			ID:          id,
			Name:        name,
			Description: desc,
			CreatedAt:   now,
			UpdatedAt:   now,
			Confidence:  confidence,
			IsBuiltIn:   true,
			Features:    fv,
			Examples:    []models.PatternExample{},
		}
	}

	return models.PatternLibrary{
		UpdatedAt: now,
		Patterns: []models.LaunderingPattern{
			builtIn(PatternIDFanOutSmurfing, "Fan-out smurfing",
				"One wallet splits a large sum into many small transfers to fresh wallets", 0.85,
				models.FeatureVector{AvgFanOut: 10, AvgFanIn: 1, AvgTimeGap: 120, AvgTxValue: 1, RhythmCV: 0.1, HasBurst: true, TxCountMin: 10, TxCountMax: 50}),
			builtIn(PatternIDFanInAggregation, "Fan-in aggregation",
				"Many small deposits converge on one collection wallet", 0.8,
				models.FeatureVector{AvgFanOut: 1, AvgFanIn: 10, AvgTimeGap: 300, AvgTxValue: 1, RhythmCV: 0.3, TxCountMin: 10, TxCountMax: 100}),
			builtIn(PatternIDPeelingChain, "Peeling chain",
				"A balance is drained through a sequence of slightly smaller transfers", 0.8,
				models.FeatureVector{AvgFanOut: 2, AvgFanIn: 1, AvgTimeGap: 600, AvgTxValue: 5, RhythmCV: 0.2, HasPeeling: true, TxCountMin: 5, TxCountMax: 30}),
			builtIn(PatternIDAutomatedLayering, "Automated layering",
				"Scripted transfers on a near-fixed clock pass funds through intermediate hops", 0.75,
				models.FeatureVector{AvgFanOut: 3, AvgFanIn: 3, AvgTimeGap: 60, AvgTxValue: 0.5, RhythmCV: 0.02, HasBurst: true, TxCountMin: 20, TxCountMax: 200}),
			builtIn(PatternIDMuleRelay, "Mule relay",
				"A funded intermediary forwards money to several recipients and goes quiet", 0.7,
				models.FeatureVector{AvgFanOut: 5, AvgFanIn: 1, AvgTimeGap: 180, AvgTxValue: 2, RhythmCV: 0.15, TxCountMin: 5, TxCountMax: 20}),
		},
	}
}

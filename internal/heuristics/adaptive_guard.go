package heuristics

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rawblock/smurfing-engine/internal/metrics"
	"github.com/rawblock/smurfing-engine/pkg/models"
)

// Adaptive Guard
//
// Compares each wallet's behavioral fingerprint against a library of
// laundering prototypes and learns new prototypes from investigator
// confirmations.
//
// Similarity is a fixed weighted distance, normalized to [0,1]:
//
//   Feature        Weight   Sub-score
//   fan-out        20       max(0, 20 - 2|Δ|)
//   fan-in         20       max(0, 20 - 2|Δ|)
//   timing         15       max(0, 15 - |Δ|/10)
//   value          10       max(0, 10 - 5|Δ|)
//   rhythm CV      15       max(0, 15 - 30|Δ|)
//   peeling        10       10 on equality
//   burst          10       10 on equality
//
// A feature counts as matched when its sub-score reaches 75% of its
// weight. A wallet with a high suspicion score that resembles no known
// prototype is a zero-day candidate: something is off, but not in a way
// the library has seen before.

const (
	weightFanOut  = 20.0
	weightFanIn   = 20.0
	weightTiming  = 15.0
	weightValue   = 10.0
	weightRhythm  = 15.0
	weightPeeling = 10.0
	weightBurst   = 10.0
	weightTotal   = weightFanOut + weightFanIn + weightTiming + weightValue + weightRhythm + weightPeeling + weightBurst

	matchedFraction   = 0.75
	minKeptSimilarity = 0.3
	burstFeatureGap   = 30

	zeroDayMinSuspicion  = 50
	zeroDayMaxSimilarity = 0.5
	multiMatchBonus      = 10
	multiMatchThreshold  = 2
	maxPatternConfidence = 0.95
	learnConfidenceStep  = 0.02
	newPatternConfidence = 0.5
)

// ZeroDayReason is attached to every zero-day candidate.
const ZeroDayReason = "High suspicion score with no strong match to known laundering patterns - potential novel technique"

// ExtractFeatures builds the fingerprint of one wallet from its scored
// record and its own transfers.
func ExtractFeatures(w *models.Wallet, txs []models.Transaction) models.FeatureVector {
	recipients := make(map[string]struct{})
	senders := make(map[string]struct{})
	total := 0.0
	ages := make([]int64, 0, len(txs))

	for _, tx := range txs {
		if tx.From == w.Address {
			recipients[tx.To] = struct{}{}
		}
		if tx.To == w.Address {
			senders[tx.From] = struct{}{}
		}
		total += tx.Value
		ages = append(ages, tx.Age)
	}

	fv := models.FeatureVector{
		AvgFanOut:  float64(len(recipients)),
		AvgFanIn:   float64(len(senders)),
		AvgTimeGap: w.AvgTimeBetweenTx,
		RhythmCV:   1,
		HasPeeling: w.IsPeelingSource,
		TxCountMin: len(txs),
		TxCountMax: len(txs),
	}
	if len(txs) > 0 {
		fv.AvgTxValue = total / float64(len(txs))
	}

	gaps := metrics.Gaps(metrics.SortedAges(ages))
	if len(gaps) > 0 {
		fv.RhythmCV = metrics.ComputeGapStats(gaps).CV
	}
	for _, g := range gaps {
		if g < burstFeatureGap {
			fv.HasBurst = true
			break
		}
	}
	return fv
}

// Similarity scores a wallet fingerprint against a prototype and reports
// which features matched.
func Similarity(wallet, proto models.FeatureVector) (float64, []models.MatchedFeature) {
	achieved := 0.0
	matched := []models.MatchedFeature{}

	add := func(score, weight float64, f models.MatchedFeature) {
		achieved += score
		if score >= weight*matchedFraction {
			matched = append(matched, f)
		}
	}

	add(math.Max(0, weightFanOut-2*math.Abs(wallet.AvgFanOut-proto.AvgFanOut)), weightFanOut, models.FeatureFanOut)
	add(math.Max(0, weightFanIn-2*math.Abs(wallet.AvgFanIn-proto.AvgFanIn)), weightFanIn, models.FeatureFanIn)
	add(math.Max(0, weightTiming-math.Abs(wallet.AvgTimeGap-proto.AvgTimeGap)/10), weightTiming, models.FeatureTiming)
	add(math.Max(0, weightValue-5*math.Abs(wallet.AvgTxValue-proto.AvgTxValue)), weightValue, models.FeatureValue)
	add(math.Max(0, weightRhythm-30*math.Abs(wallet.RhythmCV-proto.RhythmCV)), weightRhythm, models.FeatureRhythm)
	add(boolScore(wallet.HasPeeling == proto.HasPeeling, weightPeeling), weightPeeling, models.FeaturePeeling)
	add(boolScore(wallet.HasBurst == proto.HasBurst, weightBurst), weightBurst, models.FeatureBurst)

	return achieved / weightTotal, matched
}

func boolScore(equal bool, weight float64) float64 {
	if equal {
		return weight
	}
	return 0
}

// MatchPatterns compares a fingerprint with every prototype in the
// library and keeps those above the similarity floor, best first. Equal
// similarities keep library order.
func MatchPatterns(fv models.FeatureVector, lib models.PatternLibrary) []models.PatternMatch {
	matches := []models.PatternMatch{}
	for _, p := range lib.Patterns {
		sim, features := Similarity(fv, p.Features)
		if sim <= minKeptSimilarity {
			continue
		}
		matches = append(matches, models.PatternMatch{
			PatternID:       p.ID,
			PatternName:     p.Name,
			Similarity:      sim,
			MatchedFeatures: features,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	return matches
}

// AnalyzeWallet runs the full guard pass for one wallet.
func AnalyzeWallet(w *models.Wallet, txs []models.Transaction, lib models.PatternLibrary) models.GuardEnrichment {
	matches := MatchPatterns(ExtractFeatures(w, txs), lib)
	return assess(w.SuspicionScore, matches, len(txs))
}

// assess combines suspicion and the kept matches into the guard verdict.
func assess(suspicion int, matches []models.PatternMatch, txCount int) models.GuardEnrichment {
	best := 0.0
	if len(matches) > 0 {
		best = matches[0].Similarity
	}
	bonus := 0.0
	if len(matches) > multiMatchThreshold {
		bonus = multiMatchBonus
	}

	g := models.GuardEnrichment{
		Score:           int(math.Round(metrics.Clamp(float64(suspicion)*0.4+best*60+bonus, 0, 100))),
		MatchedPatterns: matches,
		Confidence:      metrics.Clamp(0.3+0.05*float64(txCount)+0.1*float64(len(matches)), 0, 1),
	}
	if suspicion >= zeroDayMinSuspicion && best < zeroDayMaxSimilarity {
		g.IsZeroDay = true
		g.ZeroDayReason = ZeroDayReason
	}
	return g
}

// EnrichGuard runs the guard for every wallet in the store.
func EnrichGuard(store *WalletStore, index map[string][]models.Transaction, lib models.PatternLibrary) {
	for _, w := range store.All() {
		g := AnalyzeWallet(w, index[w.Address], lib)
		w.Guard = &g
	}
}

// RankZeroDay lists every zero-day wallet, highest adaptive score first.
// Ties keep store order.
func RankZeroDay(store *WalletStore) []models.ZeroDayCandidate {
	out := []models.ZeroDayCandidate{}
	for _, w := range store.All() {
		if w.Guard == nil || !w.Guard.IsZeroDay {
			continue
		}
		out = append(out, models.ZeroDayCandidate{
			Address:       w.Address,
			AdaptiveScore: w.Guard.Score,
			Reason:        w.Guard.ZeroDayReason,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AdaptiveScore > out[j].AdaptiveScore
	})
	return out
}

// Learn folds a confirmed wallet into the library and returns the new
// library. The input library is left untouched.
//
// If a prototype named patternName exists, the example is appended and
// each numeric feature moves toward the wallet by w = 1/len(examples).
// Otherwise a new prototype is created from the wallet's features.
func Learn(lib models.PatternLibrary, fv models.FeatureVector, example models.PatternExample, patternName string, now time.Time, newID func() string) models.PatternLibrary {
	out := models.PatternLibrary{
		Patterns:  make([]models.LaunderingPattern, len(lib.Patterns), len(lib.Patterns)+1),
		UpdatedAt: now,
	}
	copy(out.Patterns, lib.Patterns)

	for i := range out.Patterns {
		p := &out.Patterns[i]
		if !strings.EqualFold(strings.TrimSpace(p.Name), strings.TrimSpace(patternName)) {
			continue
		}

		examples := make([]models.PatternExample, len(p.Examples), len(p.Examples)+1)
		copy(examples, p.Examples)
		p.Examples = append(examples, example)

		p.Features = foldFeatures(p.Features, fv, 1/float64(len(p.Examples)))
		p.UpdatedAt = now
		p.Confidence = math.Min(maxPatternConfidence, p.Confidence+learnConfidenceStep)
		return out
	}

	out.Patterns = append(out.Patterns, models.LaunderingPattern{
		ID:          newID(),
		Name:        strings.TrimSpace(patternName),
		Description: "Learned from investigator-confirmed wallets",
		CreatedAt:   now,
		UpdatedAt:   now,
		Confidence:  newPatternConfidence,
		Features:    fv,
		Examples:    []models.PatternExample{example},
	})
	return out
}

// foldFeatures blends one example into a prototype with weight w.
func foldFeatures(old, ex models.FeatureVector, w float64) models.FeatureVector {
	blend := func(a, b float64) float64 { return a*(1-w) + b*w }
	return models.FeatureVector{
		AvgFanOut:  blend(old.AvgFanOut, ex.AvgFanOut),
		AvgFanIn:   blend(old.AvgFanIn, ex.AvgFanIn),
		AvgTimeGap: blend(old.AvgTimeGap, ex.AvgTimeGap),
		AvgTxValue: blend(old.AvgTxValue, ex.AvgTxValue),
		RhythmCV:   blend(old.RhythmCV, ex.RhythmCV),
		HasPeeling: old.HasPeeling || ex.HasPeeling,
		HasBurst:   old.HasBurst || ex.HasBurst,
		TxCountMin: min(old.TxCountMin, ex.TxCountMin),
		TxCountMax: max(old.TxCountMax, ex.TxCountMax),
	}
}

package models

import "time"

// FeatureVector is the behavioral fingerprint the adaptive guard compares.
// For a single wallet TxCountMin == TxCountMax; prototypes widen the range
// as confirmed examples are folded in.
type FeatureVector struct {
	AvgFanOut  float64 `json:"avgFanOut"`
	AvgFanIn   float64 `json:"avgFanIn"`
	AvgTimeGap float64 `json:"avgTimeGap"` // seconds
	AvgTxValue float64 `json:"avgTxValue"`
	RhythmCV   float64 `json:"rhythmCv"`
	HasPeeling bool    `json:"hasPeeling"`
	HasBurst   bool    `json:"hasBurst"`
	TxCountMin int     `json:"txCountMin"`
	TxCountMax int     `json:"txCountMax"`
}

// PatternExample is one investigator-confirmed wallet folded into a prototype.
type PatternExample struct {
	Address     string    `json:"address"`
	ConfirmedAt time.Time `json:"confirmedAt"`
	ConfirmedBy string    `json:"confirmedBy"`
	Note        string    `json:"note,omitempty"`
}

// LaunderingPattern is a prototype of a known laundering technique.
type LaunderingPattern struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	Confidence  float64          `json:"confidence"` // 0-1
	IsBuiltIn   bool             `json:"isBuiltIn"`
	Features    FeatureVector    `json:"features"`
	Examples    []PatternExample `json:"examples"`
}

// PatternLibrary is the ordered collection of built-in and learned prototypes.
type PatternLibrary struct {
	Patterns  []LaunderingPattern `json:"patterns"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// MatchedFeature names a feature whose sub-score cleared its match threshold.
type MatchedFeature string

const (
	FeatureFanOut  MatchedFeature = "fan_out"
	FeatureFanIn   MatchedFeature = "fan_in"
	FeatureTiming  MatchedFeature = "timing"
	FeatureValue   MatchedFeature = "value"
	FeatureRhythm  MatchedFeature = "rhythm"
	FeaturePeeling MatchedFeature = "peeling"
	FeatureBurst   MatchedFeature = "burst"
)

// PatternMatch is the similarity of a wallet against one prototype.
type PatternMatch struct {
	PatternID       string           `json:"patternId"`
	PatternName     string           `json:"patternName"`
	Similarity      float64          `json:"similarity"` // 0-1
	MatchedFeatures []MatchedFeature `json:"matchedFeatures"`
}

// ZeroDayCandidate is one entry of the ranked alerting list.
type ZeroDayCandidate struct {
	Address       string `json:"address"`
	AdaptiveScore int    `json:"adaptiveScore"`
	Reason        string `json:"reason"`
}

package models

// Role is the structural role a wallet plays in a laundering flow.
type Role string

const (
	RoleNormal     Role = "normal"
	RoleMule       Role = "mule"       // many outs, few ins, funded
	RoleAggregator Role = "aggregator" // many ins, few outs, drained
	RoleSplitter   Role = "splitter"   // many outs, peeling or out-heavy
)

// RhythmClass classifies how machine-like a wallet's inter-tx gaps are.
type RhythmClass string

const (
	RhythmNormal           RhythmClass = "normal"
	RhythmSuspicious       RhythmClass = "suspicious"
	RhythmHighlySuspicious RhythmClass = "highly_suspicious"
)

// ManualFlag is an investigator verdict attached to a wallet.
type ManualFlag string

const (
	FlagNone                ManualFlag = ""
	FlagConfirmedLaundering ManualFlag = "confirmed_laundering"
	FlagSuspicious          ManualFlag = "suspicious"
	FlagCleared             ManualFlag = "cleared"
)

// Valid reports whether f is one of the known flags (including none).
func (f ManualFlag) Valid() bool {
	switch f {
	case FlagNone, FlagConfirmedLaundering, FlagSuspicious, FlagCleared:
		return true
	default:
		return false
	}
}

// Severity grades a detected temporal pattern.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// TemporalPatternType identifies the kind of timing anomaly.
type TemporalPatternType string

const (
	PatternBurst     TemporalPatternType = "burst"
	PatternPeriodic  TemporalPatternType = "periodic"
	PatternRapidFire TemporalPatternType = "rapid_fire"
)

// TemporalPattern is a single detected timing anomaly, kept for audit/display.
// Start and End are ages (Start is the older end of the range).
type TemporalPattern struct {
	Type        TemporalPatternType `json:"type"`
	Severity    Severity            `json:"severity"`
	Description string              `json:"description"`
	Start       int64               `json:"start"`
	End         int64               `json:"end"`
	TxHashes    []string            `json:"txHashes,omitempty"`
}

// TemporalEnrichment is written by the temporal analyzer.
type TemporalEnrichment struct {
	AttentionScore int               `json:"attentionScore"` // 0-100
	Patterns       []TemporalPattern `json:"patterns"`
	FirstSeen      int64             `json:"firstSeen"` // oldest age
	LastSeen       int64             `json:"lastSeen"`  // newest age
}

// GuardEnrichment is written by the adaptive guard.
type GuardEnrichment struct {
	Score           int            `json:"score"` // 0-100
	MatchedPatterns []PatternMatch `json:"matchedPatterns"`
	IsZeroDay       bool           `json:"isZeroDay"`
	ZeroDayReason   string         `json:"zeroDayReason,omitempty"`
	Confidence      float64        `json:"confidence"` // 0-1
}

// Wallet is the per-address analysis record. The suspicion scorer creates
// it; the temporal analyzer and adaptive guard enrich it in place.
type Wallet struct {
	Address           string      `json:"address"`
	TotalSent         float64     `json:"totalSent"`
	TotalReceived     float64     `json:"totalReceived"`
	OutCount          int         `json:"outCount"`
	InCount           int         `json:"inCount"`
	SuspicionScore    int         `json:"suspicionScore"` // 0-100
	SuspicionReasons  []string    `json:"suspicionReasons"`
	Rhythm            RhythmClass `json:"rhythm"`
	RhythmDescription string      `json:"rhythmDescription"`
	EntityType        EntityType  `json:"entityType,omitempty"`
	AvgTimeBetweenTx  float64     `json:"avgTimeBetweenTx"` // seconds

	ParticipatesInFanOut bool `json:"participatesInFanOut"`
	ParticipatesInFanIn  bool `json:"participatesInFanIn"`
	IsPeelingSource      bool `json:"isPeelingSource"`

	MaxTxCount int  `json:"maxTxCount"`
	Role       Role `json:"role"`

	Temporal   *TemporalEnrichment `json:"temporal,omitempty"`
	Guard      *GuardEnrichment    `json:"guard,omitempty"`
	ManualFlag ManualFlag          `json:"manualFlag,omitempty"`
}

package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rawblock/smurfing-engine/internal/graph"
	"github.com/rawblock/smurfing-engine/internal/heuristics"
	"github.com/rawblock/smurfing-engine/pkg/models"
)

var (
	// ErrNoLedger is returned by every query before a ledger is loaded.
	ErrNoLedger = errors.New("no ledger loaded")
	// ErrUnknownWallet is returned for addresses absent from the ledger.
	ErrUnknownWallet = errors.New("unknown wallet")
	// ErrUnknownSeed is returned for seed IDs not in the registry.
	ErrUnknownSeed = errors.New("unknown seed")
	// ErrInvalidFlag is returned for manual flags outside the known set.
	ErrInvalidFlag = errors.New("invalid manual flag")
)

// Summary describes the state after an analysis pass.
type Summary struct {
	Source       string    `json:"source"`
	Transactions int       `json:"transactions"`
	Wallets      int       `json:"wallets"`
	HighRisk     int       `json:"highRisk"` // suspicion ≥ 60
	ZeroDay      int       `json:"zeroDay"`
	NewAlerts    int       `json:"newAlerts"`
	AnalyzedAt   time.Time `json:"analyzedAt"`
}

// Session is the single investigation workspace the API drives: one
// loaded ledger, its analyzed wallets, the seed registry and the pattern
// library. Every analysis function underneath is synchronous; the session
// serializes access to them.
type Session struct {
	mu sync.RWMutex

	source  string
	ledger  []models.Transaction
	index   map[string][]models.Transaction
	graph   *graph.Graph
	store   *heuristics.WalletStore
	seeds   *heuristics.SeedRegistry
	library models.PatternLibrary
	summary Summary

	alerts *heuristics.AlertManager
	now    func() time.Time
	logger *zap.Logger
}

// NewSession creates an empty session. Seed colors are drawn from rnd;
// alerts may be nil.
func NewSession(logger *zap.Logger, alerts *heuristics.AlertManager, rnd *rand.Rand) *Session {
	now := time.Now
	return &Session{
		store:   heuristics.NewWalletStore(),
		seeds:   heuristics.NewSeedRegistry(rnd),
		library: heuristics.DefaultLibrary(now().UTC()),
		alerts:  alerts,
		now:     now,
		logger:  logger.Named("engine"),
	}
}

// Load replaces the ledger and runs a full analysis. Manual flags on
// addresses that appear in the new ledger survive the reload.
func (s *Session) Load(source string, txs []models.Transaction) (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flags := make(map[string]models.ManualFlag)
	for _, w := range s.store.All() {
		if w.ManualFlag != models.FlagNone {
			flags[w.Address] = w.ManualFlag
		}
	}

	if txs == nil {
		txs = []models.Transaction{}
	}
	s.source = source
	s.ledger = txs
	s.index = graph.IndexByAddress(txs)
	s.store = heuristics.NewWalletStore()
	s.logger.Info("ledger loaded", zap.String("source", source), zap.Int("transfers", len(txs)))

	sum := s.analyzeLocked()
	for addr, f := range flags {
		s.store.SetManualFlag(addr, f)
	}
	return sum, nil
}

// Analyze re-runs scoring, the temporal pass and the guard over the
// loaded ledger.
func (s *Session) Analyze() (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ledger == nil {
		return Summary{}, ErrNoLedger
	}
	return s.analyzeLocked(), nil
}

func (s *Session) analyzeLocked() Summary {
	start := s.now()

	s.graph = heuristics.ScoreWallets(s.ledger, s.store)
	heuristics.EnrichTemporal(s.store, s.index)
	zeroDay := s.guardLocked()

	sum := Summary{
		Source:       s.source,
		Transactions: len(s.ledger),
		Wallets:      s.store.Len(),
		ZeroDay:      len(zeroDay),
		AnalyzedAt:   s.now().UTC(),
	}
	for _, w := range s.store.All() {
		if w.SuspicionScore >= 60 {
			sum.HighRisk++
		}
	}
	if s.alerts != nil {
		sum.NewAlerts = s.alerts.EmitZeroDay(zeroDay)
	}
	s.summary = sum

	s.logger.Info("analysis complete",
		zap.Int("wallets", sum.Wallets),
		zap.Int("highRisk", sum.HighRisk),
		zap.Int("zeroDay", sum.ZeroDay),
		zap.Duration("took", s.now().Sub(start)))
	return sum
}

// guardLocked runs the adaptive guard against the current library.
func (s *Session) guardLocked() []models.ZeroDayCandidate {
	heuristics.EnrichGuard(s.store, s.index, s.library)
	return heuristics.RankZeroDay(s.store)
}

// Summary returns the result of the last analysis.
func (s *Session) Summary() (Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.ledger == nil {
		return Summary{}, ErrNoLedger
	}
	return s.summary, nil
}

// Wallets lists analyzed wallets with a suspicion score of at least
// minScore, highest first. limit ≤ 0 returns all of them.
func (s *Session) Wallets(minScore, limit int) ([]models.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.ledger == nil {
		return nil, ErrNoLedger
	}
	out := []models.Wallet{}
	for _, w := range s.store.All() {
		if w.SuspicionScore >= minScore {
			out = append(out, *w)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SuspicionScore > out[j].SuspicionScore
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Wallet returns one analyzed wallet.
func (s *Session) Wallet(address string) (models.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, err := s.walletLocked(address)
	if err != nil {
		return models.Wallet{}, err
	}
	return *w, nil
}

// WalletTransactions returns every transfer that involves address, in
// ledger order.
func (s *Session) WalletTransactions(address string) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, err := s.walletLocked(address)
	if err != nil {
		return nil, err
	}
	txs := s.index[w.Address]
	out := make([]models.Transaction, len(txs))
	copy(out, txs)
	return out, nil
}

func (s *Session) walletLocked(address string) (*models.Wallet, error) {
	if s.ledger == nil {
		return nil, ErrNoLedger
	}
	addr := normalizeAddress(address)
	w, ok := s.store.Get(addr)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWallet, addr)
	}
	return w, nil
}

// SetManualFlag records an investigator verdict and raises an alert.
func (s *Session) SetManualFlag(address string, flag models.ManualFlag) (models.Wallet, error) {
	if !flag.Valid() {
		return models.Wallet{}, fmt.Errorf("%w: %q", ErrInvalidFlag, flag)
	}

	s.mu.Lock()
	w, err := s.walletLocked(address)
	if err != nil {
		s.mu.Unlock()
		return models.Wallet{}, err
	}
	s.store.SetManualFlag(w.Address, flag)
	out := *w
	s.mu.Unlock()

	if s.alerts != nil {
		s.alerts.EmitManualFlag(out.Address, flag, out.SuspicionScore)
	}
	return out, nil
}

// Temporal returns the detailed timing analysis of one wallet.
func (s *Session) Temporal(address string) (heuristics.TemporalResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, err := s.walletLocked(address)
	if err != nil {
		return heuristics.TemporalResult{}, err
	}
	return heuristics.AnalyzeTemporal(w.Address, s.index[w.Address]), nil
}

// Heatmap buckets a wallet's transfers, or the whole ledger when address
// is empty, into the 7×24 activity grid.
func (s *Session) Heatmap(address string) ([]heuristics.HeatmapCell, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.ledger == nil {
		return nil, ErrNoLedger
	}
	if strings.TrimSpace(address) == "" {
		return heuristics.BuildHeatmap(s.ledger), nil
	}
	w, err := s.walletLocked(address)
	if err != nil {
		return nil, err
	}
	return heuristics.BuildHeatmap(s.index[w.Address]), nil
}

// DisplayGraph renders the whole ledger as nodes and links.
func (s *Session) DisplayGraph() (models.DisplayGraph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.ledger == nil {
		return models.DisplayGraph{}, ErrNoLedger
	}
	return heuristics.BuildDisplayGraph(s.graph, s.store), nil
}

// AddSeed registers a seed wallet. The address does not have to be in
// the current ledger. created is false when it was already a seed.
func (s *Session) AddSeed(address, label string) (seed models.Seed, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seeds.Add(address, label)
}

// RemoveSeed drops a seed by ID.
func (s *Session) RemoveSeed(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.seeds.Remove(id) {
		return fmt.Errorf("%w: %s", ErrUnknownSeed, id)
	}
	return nil
}

// ClearSeeds drops every seed.
func (s *Session) ClearSeeds() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeds.Clear()
}

// Seeds lists the registered seeds in insertion order.
func (s *Session) Seeds() []models.Seed {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seeds.List()
}

// Expand runs a k-hop subgraph expansion. seedIDs picks seeds from the
// registry; an empty list uses every registered seed.
func (s *Session) Expand(seedIDs []string, cfg heuristics.ExpansionConfig) (heuristics.ExpansionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.ledger == nil {
		return heuristics.ExpansionResult{}, ErrNoLedger
	}

	if len(seedIDs) == 0 {
		cfg.Seeds = s.seeds.List()
	} else {
		cfg.Seeds = make([]models.Seed, 0, len(seedIDs))
		for _, id := range seedIDs {
			seed, ok := s.seeds.Get(id)
			if !ok {
				return heuristics.ExpansionResult{}, fmt.Errorf("%w: %s", ErrUnknownSeed, id)
			}
			cfg.Seeds = append(cfg.Seeds, seed)
		}
	}
	if cfg.Direction == "" {
		cfg.Direction = models.DirectionForward
	}

	res := heuristics.ExpandSubgraph(cfg, s.ledger, s.store)
	s.logger.Debug("subgraph expanded",
		zap.Int("seeds", len(cfg.Seeds)),
		zap.Int("k", cfg.K),
		zap.Int("nodes", len(res.Subgraph.Nodes)),
		zap.Int("links", len(res.Subgraph.Links)))
	return res, nil
}

// Library returns the current pattern library.
func (s *Session) Library() models.PatternLibrary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.library
}

// ZeroDay lists the current zero-day candidates, highest score first.
func (s *Session) ZeroDay() ([]models.ZeroDayCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.ledger == nil {
		return nil, ErrNoLedger
	}
	return heuristics.RankZeroDay(s.store), nil
}

// LearnRequest confirms one wallet as an example of a named pattern.
type LearnRequest struct {
	Address     string `json:"address" binding:"required"`
	PatternName string `json:"patternName" binding:"required"`
	ConfirmedBy string `json:"confirmedBy"`
	Note        string `json:"note"`
}

// Learn folds a confirmed wallet into the pattern library, marks the
// wallet as confirmed laundering and re-runs the guard against the new
// library. It returns the prototype the wallet was folded into.
func (s *Session) Learn(req LearnRequest) (models.LaunderingPattern, error) {
	s.mu.Lock()

	w, err := s.walletLocked(req.Address)
	if err != nil {
		s.mu.Unlock()
		return models.LaunderingPattern{}, err
	}

	now := s.now().UTC()
	fv := heuristics.ExtractFeatures(w, s.index[w.Address])
	example := models.PatternExample{
		Address:     w.Address,
		ConfirmedAt: now,
		ConfirmedBy: req.ConfirmedBy,
		Note:        req.Note,
	}
	s.library = heuristics.Learn(s.library, fv, example, req.PatternName, now, uuid.NewString)
	s.store.SetManualFlag(w.Address, models.FlagConfirmedLaundering)

	zeroDay := s.guardLocked()
	s.summary.ZeroDay = len(zeroDay)

	var learned models.LaunderingPattern
	for _, p := range s.library.Patterns {
		if strings.EqualFold(strings.TrimSpace(p.Name), strings.TrimSpace(req.PatternName)) {
			learned = p
			break
		}
	}
	s.mu.Unlock()

	s.logger.Info("pattern learned",
		zap.String("pattern", learned.Name),
		zap.String("address", example.Address),
		zap.Int("examples", len(learned.Examples)),
		zap.Float64("confidence", learned.Confidence))
	if s.alerts != nil {
		s.alerts.EmitZeroDay(zeroDay)
	}
	return learned, nil
}

func normalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

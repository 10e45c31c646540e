package heuristics

import (
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rawblock/smurfing-engine/pkg/models"
)

// seedPalette avoids the green/yellow/red suspicion tiers so seeds stand
// out in a rendered subgraph.
var seedPalette = []string{
	ColorSeed,
	"#ec4899",
	"#06b6d4",
	"#f97316",
	"#14b8a6",
	"#6366f1",
	"#d946ef",
	"#0ea5e9",
}

// SeedRegistry holds the investigator's seed wallets in insertion order.
// Colors come from the injected random source; pass a fixed-seed
// *rand.Rand to get reproducible colors. Not safe for concurrent use.
type SeedRegistry struct {
	seeds []models.Seed
	rnd   *rand.Rand
	now   func() time.Time
}

// NewSeedRegistry creates an empty registry drawing colors from rnd.
func NewSeedRegistry(rnd *rand.Rand) *SeedRegistry {
	return &SeedRegistry{rnd: rnd, now: time.Now}
}

// Add registers address as a seed. Adding an address that is already a
// seed returns the existing entry and false.
func (r *SeedRegistry) Add(address, label string) (models.Seed, bool) {
	address = strings.ToLower(strings.TrimSpace(address))
	for _, s := range r.seeds {
		if s.Address == address {
			return s, false
		}
	}

	s := models.Seed{
		ID:        uuid.NewString(),
		Address:   address,
		Label:     label,
		CreatedAt: r.now().UTC(),
		Color:     seedPalette[r.rnd.Intn(len(seedPalette))],
	}
	r.seeds = append(r.seeds, s)
	return s, true
}

// Remove deletes the seed with the given ID.
func (r *SeedRegistry) Remove(id string) bool {
	for i, s := range r.seeds {
		if s.ID == id {
			r.seeds = append(r.seeds[:i], r.seeds[i+1:]...)
			return true
		}
	}
	return false
}

// Get looks a seed up by ID.
func (r *SeedRegistry) Get(id string) (models.Seed, bool) {
	for _, s := range r.seeds {
		if s.ID == id {
			return s, true
		}
	}
	return models.Seed{}, false
}

// List returns a copy of every seed.
func (r *SeedRegistry) List() []models.Seed {
	out := make([]models.Seed, len(r.seeds))
	copy(out, r.seeds)
	return out
}

// Clear drops every seed.
func (r *SeedRegistry) Clear() {
	r.seeds = nil
}

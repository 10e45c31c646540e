package rng

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Mode selects whether streams are reproducible across runs.
type Mode int

const (
	Deterministic Mode = iota
	Real
)

// Named streams. Each consumer draws from its own stream so adding a
// new consumer never shifts another one's sequence.
const (
	SeedColors = "seed-colors"
)

// ParseMode maps the RNG_MODE setting onto a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "real":
		return Real, nil
	case "deterministic", "det":
		return Deterministic, nil
	default:
		return Real, fmt.Errorf("unknown rng mode %q", s)
	}
}

// Factory hands out named *rand.Rand streams derived from one base seed.
type Factory struct {
	baseSeed int64
	mode     Mode

	mu      sync.Mutex
	streams map[string]*rand.Rand
}

// New creates a factory. In Real mode the seed argument is ignored and
// the wall clock is read once here.
func New(mode Mode, seed int64) *Factory {
	if mode == Real {
		seed = time.Now().UnixNano()
	}
	return &Factory{
		baseSeed: seed,
		mode:     mode,
		streams:  make(map[string]*rand.Rand),
	}
}

// R returns the named stream, creating it on first use. The returned
// *rand.Rand is not safe for concurrent use; callers that share it must
// serialize access themselves.
func (f *Factory) R(name string) *rand.Rand {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r, ok := f.streams[name]; ok {
		return r
	}
	r := rand.New(rand.NewSource(deriveSeed(f.baseSeed, name)))
	f.streams[name] = r
	return r
}

func deriveSeed(base int64, name string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return int64(h.Sum64()) ^ base
}

package rng

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicStreamsRepeat(t *testing.T) {
	a := New(Deterministic, 42).R(SeedColors)
	b := New(Deterministic, 42).R(SeedColors)

	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Int63(), b.Int63())
	}
}

func TestStreamIsCached(t *testing.T) {
	f := New(Deterministic, 1)
	assert.Same(t, f.R("x"), f.R("x"))
	assert.NotSame(t, f.R("x"), f.R("y"))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("deterministic")
	require.NoError(t, err)
	assert.Equal(t, Deterministic, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, Real, m)

	_, err = ParseMode("quantum")
	assert.Error(t, err)
}

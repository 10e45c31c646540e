package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GIN_MODE", "debug")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 120, cfg.RateLimitPerMin)
	assert.Equal(t, int32(18), cfg.ValueDecimals)
}

func TestLoadFromEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte(
		"LEDGER_CSV=/data/ledger.csv\nALLOWED_ORIGINS=http://a.test, http://b.test\nRNG_SEED=42\nRATE_LIMIT_BURST=notanumber\n",
	), 0o600))

	// godotenv never overrides variables the process already has
	t.Setenv("LEDGER_CSV", "/override.csv")
	t.Setenv("GIN_MODE", "debug")
	t.Setenv("RNG_SEED", "")
	t.Setenv("RATE_LIMIT_BURST", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	require.NoError(t, os.Unsetenv("RNG_SEED"))
	require.NoError(t, os.Unsetenv("RATE_LIMIT_BURST"))
	require.NoError(t, os.Unsetenv("ALLOWED_ORIGINS"))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/override.csv", cfg.LedgerCSV)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(42), cfg.RNGSeed)
	assert.Equal(t, 30, cfg.RateLimitBurst)
}

func TestLoadReleaseRequiresToken(t *testing.T) {
	t.Setenv("GIN_MODE", "release")
	t.Setenv("API_AUTH_TOKEN", "")

	_, err := Load(filepath.Join(t.TempDir(), "none.env"))
	assert.ErrorIs(t, err, ErrMissingAuthToken)
}

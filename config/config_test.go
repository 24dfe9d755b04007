package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solace/token-engine/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token-engine.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, time.Second, cfg.Wallet.RateLimit())
	assert.Equal(t, 100, cfg.Wallet.TransactionCap)
	assert.Equal(t, 10.0, cfg.Rewards.BasePost)
}

func TestLoad_PartialOverride(t *testing.T) {
	// Only the named keys change; everything else keeps its default.

	path := writeConfig(t, `
[server]
port = 9090

[wallet]
rate_limit_ms = 250

[rewards]
viral_post = 500
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 250*time.Millisecond, cfg.Wallet.RateLimit())
	assert.Equal(t, 100, cfg.Wallet.TransactionCap)
	assert.Equal(t, 500.0, cfg.Rewards.ViralPost)
	assert.Equal(t, 10.0, cfg.Rewards.BasePost)
}

func TestLoad_InvalidValuesRejected(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"bad port", "[server]\nport = 70000\n"},
		{"zero rate limit", "[wallet]\nrate_limit_ms = 0\n"},
		{"negative rate limit", "[wallet]\nrate_limit_ms = -5\n"},
		{"zero transaction cap", "[wallet]\ntransaction_cap = 0\n"},
		{"malformed toml", "[server\nport=1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

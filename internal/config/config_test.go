package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(envListenAddr, "")
	t.Setenv(envJournalPath, "")
	t.Setenv(envDrainTimeoutMS, "")
	t.Setenv(envLogLevel, "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, defaultListenAddr, cfg.Server.ListenAddr)
	assert.Equal(t, defaultJournalPath, cfg.Journal.Path)
	assert.Equal(t, 10*time.Second, cfg.DrainTimeout())
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
	assert.Equal(t, 24*time.Hour, cfg.Retention())
	assert.Equal(t, 10*time.Minute, cfg.PruneInterval())
}

func TestLoadFromTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "veil.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
listen_addr = ":9460"
rate_limit = 25.0
rate_burst = 50

[journal]
path = "/tmp/veil-test.db"
retention_hours = 48

[tasks]
drain_timeout_ms = 2500

[log]
level = "debug"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9460", cfg.Server.ListenAddr)
	assert.Equal(t, 25.0, cfg.Server.RateLimit)
	assert.Equal(t, 50, cfg.Server.RateBurst)
	assert.Equal(t, "/tmp/veil-test.db", cfg.Journal.Path)
	assert.Equal(t, 48*time.Hour, cfg.Retention())
	assert.Equal(t, 2500*time.Millisecond, cfg.DrainTimeout())
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
	// Unset sections keep their defaults.
	assert.Equal(t, defaultPruneIntervalMin, cfg.Journal.PruneIntervalMin)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, defaultListenAddr, cfg.Server.ListenAddr)
}

func TestLoadInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "veil.toml")
	require.NoError(t, os.WriteFile(path, []byte("not [valid"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(envListenAddr, ":7777")
	t.Setenv(envJournalPath, "/tmp/env.db")
	t.Setenv(envDrainTimeoutMS, "500")
	t.Setenv(envLogLevel, "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":7777", cfg.Server.ListenAddr)
	assert.Equal(t, "/tmp/env.db", cfg.Journal.Path)
	assert.Equal(t, 500*time.Millisecond, cfg.DrainTimeout())
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel())
}

func TestEnvInvalidDrainTimeout(t *testing.T) {
	t.Setenv(envDrainTimeoutMS, "not-a-number")

	_, err := Load("")
	require.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.input), "input %q", tt.input)
	}
}

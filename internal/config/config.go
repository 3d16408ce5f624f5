package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	defaultListenAddr       = ":8460"
	defaultJournalPath      = "veil.db"
	defaultDrainTimeoutMS   = 10000
	defaultRateLimit        = 50
	defaultRateBurst        = 100
	defaultRetentionHours   = 24
	defaultPruneIntervalMin = 10

	envListenAddr     = "VEIL_LISTEN_ADDR"
	envJournalPath    = "VEIL_JOURNAL_PATH"
	envDrainTimeoutMS = "VEIL_DRAIN_TIMEOUT_MS"
	envLogLevel       = "VEIL_LOG_LEVEL"
)

// Config holds daemon configuration, loaded from an optional TOML file with
// VEIL_* environment overrides.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Journal JournalConfig `toml:"journal"`
	Tasks   TasksConfig   `toml:"tasks"`
	Log     LogConfig     `toml:"log"`
}

// ServerConfig contains admin HTTP server settings.
type ServerConfig struct {
	ListenAddr string  `toml:"listen_addr"`
	RateLimit  float64 `toml:"rate_limit"`
	RateBurst  int     `toml:"rate_burst"`
}

// JournalConfig contains lifecycle journal settings.
type JournalConfig struct {
	Path             string `toml:"path"`
	RetentionHours   int    `toml:"retention_hours"`
	PruneIntervalMin int    `toml:"prune_interval_min"`
}

// TasksConfig contains task controller settings.
type TasksConfig struct {
	DrainTimeoutMS int `toml:"drain_timeout_ms"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns a Config with built-in defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr: defaultListenAddr,
			RateLimit:  defaultRateLimit,
			RateBurst:  defaultRateBurst,
		},
		Journal: JournalConfig{
			Path:             defaultJournalPath,
			RetentionHours:   defaultRetentionHours,
			PruneIntervalMin: defaultPruneIntervalMin,
		},
		Tasks: TasksConfig{
			DrainTimeoutMS: defaultDrainTimeoutMS,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the TOML file at path, if it exists, then
// applies environment overrides. An empty path skips the file entirely.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// No file is fine; defaults plus env apply.
		case err != nil:
			return cfg, fmt.Errorf("read config file: %w", err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv(envJournalPath); v != "" {
		cfg.Journal.Path = v
	}
	if v := os.Getenv(envDrainTimeoutMS); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("parse %s: %w", envDrainTimeoutMS, err)
		}
		cfg.Tasks.DrainTimeoutMS = ms
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.Log.Level = v
	}

	return cfg, nil
}

// DrainTimeout returns the TerminateAll deadline used at shutdown.
func (c Config) DrainTimeout() time.Duration {
	return time.Duration(c.Tasks.DrainTimeoutMS) * time.Millisecond
}

// Retention returns how long journal events are kept.
func (c Config) Retention() time.Duration {
	return time.Duration(c.Journal.RetentionHours) * time.Hour
}

// PruneInterval returns how often the journal pruner runs.
func (c Config) PruneInterval() time.Duration {
	return time.Duration(c.Journal.PruneIntervalMin) * time.Minute
}

// LogLevel parses the configured level, defaulting to info.
func (c Config) LogLevel() slog.Level {
	return ParseLevel(c.Log.Level)
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w. The level variable
// is shared with the config watcher so the level can change at runtime.
func NewLogger(w io.Writer, level *slog.LevelVar) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

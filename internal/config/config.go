// Package config loads and validates the per-project ctxengine
// configuration.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// CurrentVersion is the only config schema version this binary accepts.
const CurrentVersion = 1

// Config is the complete ctxengine configuration for one project.
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Scanner ScannerConfig `json:"scanner" mapstructure:"scanner"`
	Search  SearchConfig  `json:"search" mapstructure:"search"`
	Git     GitConfig     `json:"git" mapstructure:"git"`
	Watcher WatcherConfig `json:"watcher" mapstructure:"watcher"`
	Lock    LockConfig    `json:"lock" mapstructure:"lock"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// ScannerConfig controls directory walking and ignore precedence.
type ScannerConfig struct {
	// ExtraIgnore are additional glob patterns excluded beyond the
	// always-exclude list and .gitignore.
	ExtraIgnore []string `json:"extraIgnore" mapstructure:"extraIgnore"`
	// MaxFileSizeBytes drops larger files from the scan entirely; they
	// are not hashed, parsed or tracked.
	MaxFileSizeBytes int64 `json:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes"`
}

// SearchConfig holds search settings. MaxResults is the query command's
// default result cap; FTSEnabled is not read, and the FTS index is
// always used.
type SearchConfig struct {
	FTSEnabled bool `json:"ftsEnabled" mapstructure:"ftsEnabled"`
	MaxResults int  `json:"maxResults" mapstructure:"maxResults"`
}

// GitConfig holds git analyzer settings. Only Enabled is read:
// RecentWindowDays, MaxCommits and TimeoutMs are not, and the analyzer
// uses a fixed 90-day recency window, a fixed 15s timeout and the full
// history.
type GitConfig struct {
	Enabled          bool `json:"enabled" mapstructure:"enabled"`
	RecentWindowDays int  `json:"recentWindowDays" mapstructure:"recentWindowDays"`
	MaxCommits       int  `json:"maxCommits" mapstructure:"maxCommits"`
	TimeoutMs        int  `json:"timeoutMs" mapstructure:"timeoutMs"`
}

// WatcherConfig controls the filesystem watcher's debounce behavior.
type WatcherConfig struct {
	DebounceMs int `json:"debounceMs" mapstructure:"debounceMs"`
}

// LockConfig controls the cross-process writer lock.
type LockConfig struct {
	TimeoutMs       int `json:"timeoutMs" mapstructure:"timeoutMs"`
	RetryIntervalMs int `json:"retryIntervalMs" mapstructure:"retryIntervalMs"`
}

// LoggingConfig holds logger settings. The CLI does not read it: the
// logger's format follows the --json flag and its level is fixed at info.
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns ctxengine's built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Scanner: ScannerConfig{
			ExtraIgnore:      []string{},
			MaxFileSizeBytes: 2 << 20, // 2MB
		},
		Search: SearchConfig{
			FTSEnabled: true,
			MaxResults: 50,
		},
		Git: GitConfig{
			Enabled:          true,
			RecentWindowDays: 90,
			MaxCommits:       5000,
			TimeoutMs:        15000,
		},
		Watcher: WatcherConfig{
			DebounceMs: 250,
		},
		Lock: LockConfig{
			TimeoutMs:       30000,
			RetryIntervalMs: 200,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// Load reads configuration from <projectRoot>/.ctxengine/config.json,
// falling back to DefaultConfig when no file is present.
func Load(projectRoot string) (*Config, error) {
	v := viper.New()

	v.SetDefault("version", CurrentVersion)
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(projectRoot, ".ctxengine"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to <projectRoot>/.ctxengine/config.json.
func (c *Config) Save(projectRoot string) error {
	dir := filepath.Join(projectRoot, ".ctxengine")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0o644)
}

// Validate checks the configuration against invariants that would
// otherwise surface as confusing failures downstream.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ValidationError{Field: "version", Message: "unsupported config version"}
	}
	if c.Search.MaxResults <= 0 {
		return &ValidationError{Field: "search.maxResults", Message: "must be positive"}
	}
	if c.Lock.TimeoutMs <= 0 {
		return &ValidationError{Field: "lock.timeoutMs", Message: "must be positive"}
	}
	return nil
}

// ValidationError reports an invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

// Package config loads the engine configuration from YAML with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values exported for documentation and validation
const (
	DefaultBaseURL = "https://vllm.kernelvm.xyz/v1"
	DefaultModel   = "typix-medium-epo"

	DefaultTimeout       = 30 * time.Second
	DefaultMinTextLength = 8
	DefaultStaleTime     = 5 * time.Minute

	DefaultCacheNamespace  = "typix"
	DefaultFeedbackSubject = "typix.feedback"
)

// BackendConfig configures the correction backend client.
type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
	// RequestsPerSecond caps outgoing correction requests; zero keeps the
	// client default.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// AnalysisConfig configures the orchestrator.
type AnalysisConfig struct {
	MinTextLength int           `yaml:"min_text_length"`
	StaleTime     time.Duration `yaml:"stale_time"`
}

// StorageConfig configures the persisted cache store.
type StorageConfig struct {
	// Path of the SQLite database. Empty disables persistence; the cache
	// falls back to memory. ":memory:" uses an in-process database.
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// FeedbackConfig configures the feedback sink.
type FeedbackConfig struct {
	Enabled bool   `yaml:"enabled"`
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// Config represents the complete engine configuration.
type Config struct {
	Backend  BackendConfig  `yaml:"backend"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Storage  StorageConfig  `yaml:"storage"`
	Feedback FeedbackConfig `yaml:"feedback"`
}

// DefaultConfig returns the configuration defaults.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL: DefaultBaseURL,
			Model:   DefaultModel,
			Timeout: DefaultTimeout,
		},
		Analysis: AnalysisConfig{
			MinTextLength: DefaultMinTextLength,
			StaleTime:     DefaultStaleTime,
		},
		Storage: StorageConfig{
			Namespace: DefaultCacheNamespace,
		},
		Feedback: FeedbackConfig{
			Subject: DefaultFeedbackSubject,
		},
	}
}

// Load reads ~/.typix/config.yaml when present, applies env overrides and
// validates.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	if home != "" {
		path := filepath.Join(home, ".typix", "config.yaml")
		if err := loadAndMerge(cfg, path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading user config: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file path.
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := loadAndMerge(cfg, path); err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func loadAndMerge(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TYPIX_BASE_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("TYPIX_MODEL"); v != "" {
		cfg.Backend.Model = v
	}
	if v := os.Getenv("TYPIX_API_KEY"); v != "" {
		cfg.Backend.APIKey = v
	}
	if v := os.Getenv("TYPIX_MIN_TEXT_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analysis.MinTextLength = n
		}
	}
	if v := os.Getenv("TYPIX_STALE_TIME"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Analysis.StaleTime = d
		}
	}
	if v := os.Getenv("TYPIX_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("TYPIX_NATS_URL"); v != "" {
		cfg.Feedback.NATSURL = v
		cfg.Feedback.Enabled = true
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url cannot be empty")
	}
	if c.Backend.Model == "" {
		return fmt.Errorf("backend.model cannot be empty")
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("backend.timeout cannot be negative")
	}
	if c.Analysis.MinTextLength < 0 {
		return fmt.Errorf("analysis.min_text_length cannot be negative")
	}
	if c.Analysis.StaleTime < 0 {
		return fmt.Errorf("analysis.stale_time cannot be negative")
	}
	if c.Storage.Namespace == "" {
		c.Storage.Namespace = DefaultCacheNamespace
	}
	return nil
}

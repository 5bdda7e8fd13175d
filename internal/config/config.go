// Package config loads the process configuration from a YAML file plus
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk process configuration. User-tunable ranking knobs
// live in the settings row in the database; this file holds wiring only.
type Config struct {
	// DataDir is where the SQLite database lives.
	DataDir string `yaml:"data_dir"`

	// Addr is the HTTP listen address for the serve command.
	Addr string `yaml:"addr"`

	// LogLevel is "debug|info|warn|error".
	LogLevel string `yaml:"log_level"`

	Embedding Embedding `yaml:"embedding"`
	WebSearch WebSearch `yaml:"websearch"`
	Classify  Classify  `yaml:"classify"`
	Remote    Remote    `yaml:"remote"`
	Jobs      Jobs      `yaml:"jobs"`
}

// Embedding configures the embedding provider.
type Embedding struct {
	Provider string `yaml:"provider"` // "ollama" or "openai"; empty disables
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`
}

// WebSearch configures the query-augmentation provider.
type WebSearch struct {
	Provider string `yaml:"provider"` // "brave"; empty disables
	APIKey   string `yaml:"api_key"`
}

// Classify configures the chat classification provider.
type Classify struct {
	BaseURL string `yaml:"base_url"` // empty falls back to keyword rules
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// Remote configures the sync backend.
type Remote struct {
	BaseURL string `yaml:"base_url"` // empty disables sync
	APIKey  string `yaml:"api_key"`
	UserID  string `yaml:"user_id"`
}

// Jobs configures the periodic job schedule for the serve command.
type Jobs struct {
	BackfillInterval   time.Duration `yaml:"backfill_interval"`
	ReclassifyInterval time.Duration `yaml:"reclassify_interval"`
	SyncInterval       time.Duration `yaml:"sync_interval"`
	CleanupInterval    time.Duration `yaml:"cleanup_interval"`
}

// UnmarshalYAML accepts Go duration strings ("15m", "1h"). Unset fields keep
// whatever value the struct already holds.
func (j *Jobs) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		BackfillInterval   string `yaml:"backfill_interval"`
		ReclassifyInterval string `yaml:"reclassify_interval"`
		SyncInterval       string `yaml:"sync_interval"`
		CleanupInterval    string `yaml:"cleanup_interval"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	for _, f := range []struct {
		dst *time.Duration
		src string
		key string
	}{
		{&j.BackfillInterval, raw.BackfillInterval, "backfill_interval"},
		{&j.ReclassifyInterval, raw.ReclassifyInterval, "reclassify_interval"},
		{&j.SyncInterval, raw.SyncInterval, "sync_interval"},
		{&j.CleanupInterval, raw.CleanupInterval, "cleanup_interval"},
	} {
		if strings.TrimSpace(f.src) == "" {
			continue
		}
		d, err := time.ParseDuration(f.src)
		if err != nil {
			return fmt.Errorf("jobs.%s: %w", f.key, err)
		}
		*f.dst = d
	}
	return nil
}

// Default returns the out-of-the-box configuration.
func Default() *Config {
	return &Config{
		DataDir:  defaultDataDir(),
		Addr:     ":8374",
		LogLevel: "info",
		Embedding: Embedding{
			Provider: "ollama",
			Model:    "nomic-embed-text",
			BaseURL:  "http://localhost:11434",
		},
		Jobs: Jobs{
			BackfillInterval:   15 * time.Minute,
			ReclassifyInterval: 30 * time.Minute,
			SyncInterval:       5 * time.Minute,
			CleanupInterval:    24 * time.Hour,
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return "."
	}
	return filepath.Join(home, ".linkhoard")
}

// Load reads the YAML config at path, falling back to defaults when the file
// does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// No file is fine; env and defaults carry it.
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays LINKHOARD_* environment variables. Secrets are expected
// to arrive this way rather than sitting in the YAML file.
func (c *Config) applyEnv() {
	setenv(&c.DataDir, "LINKHOARD_DATA_DIR")
	setenv(&c.Addr, "LINKHOARD_ADDR")
	setenv(&c.LogLevel, "LINKHOARD_LOG_LEVEL")

	setenv(&c.Embedding.Provider, "LINKHOARD_EMBEDDING_PROVIDER")
	setenv(&c.Embedding.Model, "LINKHOARD_EMBEDDING_MODEL")
	setenv(&c.Embedding.BaseURL, "LINKHOARD_EMBEDDING_URL")
	setenv(&c.Embedding.APIKey, "LINKHOARD_EMBEDDING_API_KEY")

	setenv(&c.WebSearch.Provider, "LINKHOARD_WEBSEARCH_PROVIDER")
	setenv(&c.WebSearch.APIKey, "LINKHOARD_WEBSEARCH_API_KEY")

	setenv(&c.Classify.BaseURL, "LINKHOARD_CLASSIFY_URL")
	setenv(&c.Classify.APIKey, "LINKHOARD_CLASSIFY_API_KEY")
	setenv(&c.Classify.Model, "LINKHOARD_CLASSIFY_MODEL")

	setenv(&c.Remote.BaseURL, "LINKHOARD_REMOTE_URL")
	setenv(&c.Remote.APIKey, "LINKHOARD_REMOTE_API_KEY")
	setenv(&c.Remote.UserID, "LINKHOARD_USER_ID")
}

func setenv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return errors.New("missing data_dir")
	}
	if c.Remote.BaseURL != "" && strings.TrimSpace(c.Remote.UserID) == "" {
		return errors.New("remote.base_url set but remote.user_id missing")
	}
	return nil
}

// DBPath returns the SQLite database path under the data dir.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "linkhoard.db")
}

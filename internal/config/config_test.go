package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8374", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, 15*time.Minute, cfg.Jobs.BackfillInterval)
	assert.Equal(t, 30*time.Minute, cfg.Jobs.ReclassifyInterval)
	assert.Equal(t, 24*time.Hour, cfg.Jobs.CleanupInterval)
	assert.NotEmpty(t, cfg.DataDir)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /var/lib/linkhoard
addr: ":9000"
log_level: debug
embedding:
  provider: openai
  model: text-embedding-3-small
  base_url: https://api.openai.com/v1
remote:
  base_url: https://sync.example.com
  user_id: u-123
jobs:
  backfill_interval: 1h
  reclassify_interval: 2h
  sync_interval: 90s
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/linkhoard", cfg.DataDir)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, "u-123", cfg.Remote.UserID)
	assert.Equal(t, time.Hour, cfg.Jobs.BackfillInterval)
	assert.Equal(t, 2*time.Hour, cfg.Jobs.ReclassifyInterval)
	assert.Equal(t, 90*time.Second, cfg.Jobs.SyncInterval)
	// Unset fields keep their defaults.
	assert.Equal(t, 24*time.Hour, cfg.Jobs.CleanupInterval)

	assert.Equal(t, filepath.Join("/var/lib/linkhoard", "linkhoard.db"), cfg.DBPath())
}

func TestLoadEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /from-file\naddr: \":9000\"\n"), 0o600))

	t.Setenv("LINKHOARD_DATA_DIR", "/from-env")
	t.Setenv("LINKHOARD_EMBEDDING_API_KEY", "sk-secret")
	t.Setenv("LINKHOARD_REMOTE_URL", "https://sync.example.com")
	t.Setenv("LINKHOARD_USER_ID", "u-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	// Env wins over file; file wins over defaults.
	assert.Equal(t, "/from-env", cfg.DataDir)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "sk-secret", cfg.Embedding.APIKey)
	assert.Equal(t, "https://sync.example.com", cfg.Remote.BaseURL)
	assert.Equal(t, "u-env", cfg.Remote.UserID)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "empty data dir",
			mutate:  func(c *Config) { c.DataDir = "  " },
			wantErr: "data_dir",
		},
		{
			name:    "remote without user id",
			mutate:  func(c *Config) { c.Remote.BaseURL = "https://sync.example.com" },
			wantErr: "user_id",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

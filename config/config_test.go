package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8200/api/v1", cfg.APIPrefix)
	assert.Equal(t, "cookies", cfg.AccessTokenPersistStrategy)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, 30*time.Second, cfg.RefreshTimeout)
	assert.True(t, cfg.RefreshOnNetworkError)
	assert.False(t, cfg.OrderedReplay)
	assert.Equal(t, 5, cfg.Workers)
	assert.Equal(t, filepath.Join(home, ".esign", "esign.db"), cfg.Database.Path)
	assert.Equal(t, int64(0), cfg.Download.RateLimit)
}

func TestLoad_FileAndEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "esign.yaml")
	content := `api_prefix: https://esign.example.sn/api/v1
access_token_persist_strategy: localStorage
timeout: 15s
refresh_on_network_error: false
database:
  path: ~/data/esign.db
download:
  rate_limit: 1048576
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("ESIGN_WORKERS", "8")
	t.Setenv("ESIGN_DOWNLOAD_DIR", "/tmp/docs")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://esign.example.sn/api/v1", cfg.APIPrefix)
	assert.Equal(t, "local", cfg.AccessTokenPersistStrategy)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.False(t, cfg.RefreshOnNetworkError)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "/tmp/docs", cfg.Download.Dir)
	assert.Equal(t, int64(1048576), cfg.Download.RateLimit)
	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, "data", "esign.db"), cfg.Database.Path)
}

func TestLoad_MissingExplicitFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Workers)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	tests := map[string]string{
		"strategy":    "access_token_persist_strategy: indexeddb\n",
		"api prefix":  "api_prefix: /relative\n",
		"workers":     "workers: 0\n",
		"rate limit":  "download:\n  rate_limit: -1\n",
		"bad yaml":    "api_prefix: [\n",
		"bad timeout": "timeout: soon\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestSaveThenLoad(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := &Config{
		APIPrefix:                  "https://esign.example.sn/api/v1",
		AccessTokenPersistStrategy: "session",
		Timeout:                    20 * time.Second,
		RefreshTimeout:             5 * time.Second,
		OrderedReplay:              true,
		Workers:                    3,
		Database:                   DatabaseConfig{Path: "/var/lib/esign/esign.db"},
		Download:                   DownloadConfig{Dir: "/tmp", RateLimit: 512},
	}
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

// Package config handles application configuration using Viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/b13-niass/esign/pkg/validation"
	"github.com/b13-niass/esign/session"
	"github.com/spf13/viper"
)

const (
	envPrefix = "ESIGN"
	dirName   = ".esign"
)

// Config holds the application configuration.
//
// OrderedReplay replays requests queued behind a refresh one at a time in
// arrival order. When it is off they are released in arrival order but replay
// concurrently, so an earlier request may complete after a later one.
type Config struct {
	APIPrefix                  string         `mapstructure:"api_prefix"`
	AccessTokenPersistStrategy string         `mapstructure:"access_token_persist_strategy"`
	Timeout                    time.Duration  `mapstructure:"timeout"`
	RefreshTimeout             time.Duration  `mapstructure:"refresh_timeout"`
	RefreshOnNetworkError      bool           `mapstructure:"refresh_on_network_error"`
	OrderedReplay              bool           `mapstructure:"ordered_replay"`
	Workers                    int            `mapstructure:"workers"`
	Database                   DatabaseConfig `mapstructure:"database"`
	Download                   DownloadConfig `mapstructure:"download"`
}

// DatabaseConfig holds the session database location.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// DownloadConfig holds document download settings.
type DownloadConfig struct {
	Dir string `mapstructure:"dir"`
	// RateLimit is in bytes per second; 0 means unlimited.
	RateLimit int64 `mapstructure:"rate_limit"`
}

// Dir returns the directory holding the config file and the database.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, dirName)
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load reads configuration from file and environment. A missing config file
// is not an error; defaults apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(Dir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(configPath != "" && errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Database.Path = expandHome(cfg.Database.Path)
	cfg.Download.Dir = expandHome(cfg.Download.Dir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values and normalizes the token strategy.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIPrefix)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api_prefix must be an absolute URL, got %q", c.APIPrefix)
	}
	strategy, err := session.NormalizeStrategy(c.AccessTokenPersistStrategy)
	if err != nil {
		return err
	}
	c.AccessTokenPersistStrategy = strategy
	if c.Timeout < 0 || c.RefreshTimeout < 0 {
		return fmt.Errorf("timeouts cannot be negative")
	}
	if err := validation.ValidateThreadCount(c.Workers); err != nil {
		return fmt.Errorf("workers: %w", err)
	}
	if c.Download.RateLimit < 0 {
		return fmt.Errorf("download.rate_limit cannot be negative")
	}
	return nil
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("api_prefix", "http://localhost:8200/api/v1")
	v.SetDefault("access_token_persist_strategy", session.StrategyCookies)
	v.SetDefault("timeout", 60*time.Second)
	v.SetDefault("refresh_timeout", 30*time.Second)
	v.SetDefault("refresh_on_network_error", true)
	v.SetDefault("ordered_replay", false)
	v.SetDefault("workers", 5)
	v.SetDefault("database.path", filepath.Join(Dir(), "esign.db"))
	v.SetDefault("download.dir", ".")
	v.SetDefault("download.rate_limit", 0)
}

// Save writes the configuration to path as YAML.
func Save(cfg *Config, path string) error {
	v := viper.New()

	v.Set("api_prefix", cfg.APIPrefix)
	v.Set("access_token_persist_strategy", cfg.AccessTokenPersistStrategy)
	v.Set("timeout", cfg.Timeout.String())
	v.Set("refresh_timeout", cfg.RefreshTimeout.String())
	v.Set("refresh_on_network_error", cfg.RefreshOnNetworkError)
	v.Set("ordered_replay", cfg.OrderedReplay)
	v.Set("workers", cfg.Workers)
	v.Set("database.path", cfg.Database.Path)
	v.Set("download.dir", cfg.Download.Dir)
	v.Set("download.rate_limit", cfg.Download.RateLimit)

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return v.WriteConfigAs(path)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, p[1:])
	}
	return p
}

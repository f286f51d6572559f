// Package common provides application-level configuration and shared helpers
// for the rotopress services.
package common

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// AppConfig holds the process-wide configuration for rotopress
type AppConfig struct {
	// HTTP control surface
	ListenAddr  string `mapstructure:"listen_addr"`  // Address for the serve command (e.g., ":8080")
	ExternalURL string `mapstructure:"external_url"` // Public base URL used for OAuth redirects; empty means derive from request

	// Storage layout
	DataDir      string `mapstructure:"data_dir"`      // Root directory for per-account state files
	AccountsFile string `mapstructure:"accounts_file"` // Path to the accounts JSON document

	// Network timeouts
	ProbeTimeout    time.Duration `mapstructure:"probe_timeout"`    // Existence probe per-call timeout
	FeedTimeout     time.Duration `mapstructure:"feed_timeout"`     // Line-feed fetch timeout
	DownloadTimeout time.Duration `mapstructure:"download_timeout"` // Video/thumbnail download timeout

	// Operator inspection
	ScanLimit int `mapstructure:"scan_limit"` // Default number of entries returned by a scan

	Debug bool `mapstructure:"debug"` // Enable debug logging
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *AppConfig {
	return &AppConfig{
		ListenAddr:      ":8080",
		DataDir:         "data",
		AccountsFile:    "accounts.json",
		ProbeTimeout:    12 * time.Second,
		FeedTimeout:     30 * time.Second,
		DownloadTimeout: 90 * time.Second,
		ScanLimit:       50,
	}
}

// LoadConfig reads the application configuration via viper. A non-empty path
// points at an explicit config file; otherwise rotopress.yaml is looked up in
// the working directory. Environment variables prefixed with ROTOPRESS_
// override file values. Missing config files are not an error; defaults apply.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()

	def := DefaultConfig()
	v.SetDefault("listen_addr", def.ListenAddr)
	v.SetDefault("external_url", def.ExternalURL)
	v.SetDefault("data_dir", def.DataDir)
	v.SetDefault("accounts_file", def.AccountsFile)
	v.SetDefault("probe_timeout", def.ProbeTimeout)
	v.SetDefault("feed_timeout", def.FeedTimeout)
	v.SetDefault("download_timeout", def.DownloadTimeout)
	v.SetDefault("scan_limit", def.ScanLimit)
	v.SetDefault("debug", def.Debug)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("rotopress")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ROTOPRESS")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && path != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *AppConfig) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr cannot be empty")
	}

	if c.DataDir == "" {
		return fmt.Errorf("data_dir cannot be empty")
	}

	if c.AccountsFile == "" {
		return fmt.Errorf("accounts_file cannot be empty")
	}

	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("probe_timeout must be positive")
	}

	if c.FeedTimeout <= 0 {
		return fmt.Errorf("feed_timeout must be positive")
	}

	if c.DownloadTimeout <= 0 {
		return fmt.Errorf("download_timeout must be positive")
	}

	if c.ScanLimit < 1 {
		return fmt.Errorf("scan_limit must be at least 1")
	}

	return nil
}

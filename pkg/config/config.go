// Package config provides configuration loading and validation for crypto-intel.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Default provider endpoints. Overridable per provider for testing.
const (
	DefaultBloombergBaseURL   = "https://api.bloomberg.com"
	DefaultTradingViewBaseURL = "https://scanner.tradingview.com"
	DefaultGlassnodeBaseURL   = "https://api.glassnode.com"
	DefaultDefiLlamaBaseURL   = "https://api.llama.fi"
)

// Load loads configuration from YAML file and environment variables.
func Load(path string) (*Config, error) {
	// Validate and sanitize path
	cleanPath := filepath.Clean(path)
	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	// Read config file
	data, err := os.ReadFile(absPath) // #nosec G304 -- Path sanitized with filepath.Clean and filepath.Abs
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in YAML
	expanded := os.ExpandEnv(string(data))

	// Parse YAML
	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Apply defaults
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns a configuration with all defaults applied and no
// credentials set. Only keyless providers will be active.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// applyDefaults sets default values for optional fields.
func applyDefaults(cfg *Config) {
	// Provider endpoint defaults
	if cfg.Providers.Bloomberg.BaseURL == "" {
		cfg.Providers.Bloomberg.BaseURL = DefaultBloombergBaseURL
	}
	if cfg.Providers.TradingView.BaseURL == "" {
		cfg.Providers.TradingView.BaseURL = DefaultTradingViewBaseURL
	}
	if cfg.Providers.Glassnode.BaseURL == "" {
		cfg.Providers.Glassnode.BaseURL = DefaultGlassnodeBaseURL
	}
	if cfg.Providers.DefiLlama.BaseURL == "" {
		cfg.Providers.DefiLlama.BaseURL = DefaultDefiLlamaBaseURL
	}

	// Aggregator defaults
	if cfg.Aggregator.RequestTimeout.ToDuration() == 0 {
		cfg.Aggregator.RequestTimeout = Duration(10 * time.Second)
	}

	// Server defaults
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}

	// Metrics defaults
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9091"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

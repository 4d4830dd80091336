package config

import "time"

// Config is the root configuration structure
type Config struct {
	Providers  ProvidersConfig  `yaml:"providers"`
	Aggregator AggregatorConfig `yaml:"aggregator"`
	Server     ServerConfig     `yaml:"server"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ProvidersConfig holds per-provider credentials and endpoints.
// A provider with no credentials configured is simply absent from
// the active adapter set; it is not an error.
type ProvidersConfig struct {
	Bloomberg   BloombergConfig   `yaml:"bloomberg"`
	TradingView TradingViewConfig `yaml:"tradingview"`
	Glassnode   GlassnodeConfig   `yaml:"glassnode"`
	DefiLlama   DefiLlamaConfig   `yaml:"defillama"`
}

// BloombergConfig configures the Bloomberg adapter
type BloombergConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// TradingViewConfig configures the TradingView adapter
type TradingViewConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	BaseURL  string `yaml:"base_url"`
}

// GlassnodeConfig configures the Glassnode adapter
type GlassnodeConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// DefiLlamaConfig configures the DefiLlama adapter.
// DefiLlama requires no credentials, so it is active unless disabled.
type DefiLlamaConfig struct {
	Disabled bool   `yaml:"disabled"`
	BaseURL  string `yaml:"base_url"`
}

// AggregatorConfig configures the fan-out aggregator
type AggregatorConfig struct {
	RequestTimeout Duration `yaml:"request_timeout"`
}

// ServerConfig configures the HTTP API server
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// MetricsConfig configures Prometheus metrics
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Duration is a wrapper around time.Duration for YAML parsing
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	td, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(td)
	return nil
}

// ToDuration converts Duration to time.Duration
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}

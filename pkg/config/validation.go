package config

import "fmt"

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
	"fatal": true,
}

// Validate checks the configuration for inconsistencies that would
// produce a broken aggregator rather than a degraded one.
func (c *Config) Validate() error {
	if c.Aggregator.RequestTimeout.ToDuration() <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, c.Aggregator.RequestTimeout.ToDuration())
	}

	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("%w: %s", ErrInvalidLogLevel, c.Logging.Level)
	}

	// TradingView needs both halves of the credential pair. One half
	// alone is a config mistake, not a disabled provider.
	tv := c.Providers.TradingView
	if (tv.Username == "") != (tv.Password == "") {
		return fmt.Errorf("%w: tradingview requires both username and password", ErrIncompleteCredentials)
	}

	return nil
}

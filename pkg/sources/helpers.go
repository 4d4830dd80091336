package sources

import (
	"sort"
	"strings"

	"tc.com/crypto-intel/pkg/logging"
)

// GetLoggerFromConfig extracts the logger from a config map or returns a
// noop logger. Factories use this to pick up the logger injected by the
// aggregator without widening their signatures.
func GetLoggerFromConfig(config map[string]interface{}) *logging.Logger {
	if loggerInterface, ok := config["logger"]; ok {
		if logger, ok := loggerInterface.(*logging.Logger); ok {
			return logger
		}
	}

	// return default noop logger if logger not found
	return logging.NewNoopLogger()
}

// GetStringFromConfig extracts a string value from a config map.
func GetStringFromConfig(config map[string]interface{}, key string) string {
	if v, ok := config[key].(string); ok {
		return v
	}
	return ""
}

// ParseSentimentLabel maps a provider sentiment string to a signal
// label. Anything unrecognized is absent, never fabricated neutral.
func ParseSentimentLabel(s string) SignalLabel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bullish":
		return SignalBullish
	case "bearish":
		return SignalBearish
	case "neutral":
		return SignalNeutral
	default:
		return SignalAbsent
	}
}

// sortPricesAscending orders snapshots by ascending timestamp, keeping
// the provider's relative order for exact ties.
func sortPricesAscending(prices []PriceSnapshot) {
	sort.SliceStable(prices, func(i, j int) bool {
		return prices[i].Timestamp.Before(prices[j].Timestamp)
	})
}

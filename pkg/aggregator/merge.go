package aggregator

import (
	"tc.com/crypto-intel/pkg/logging"
	"tc.com/crypto-intel/pkg/metrics"
	"tc.com/crypto-intel/pkg/sources"
)

// onChainIndicatorNames marks indicator names contributed by on-chain
// analytics providers; their presence sets the OnChainMetrics flag.
var onChainIndicatorNames = map[string]bool{
	"NVT":              true,
	"MVRV":             true,
	"SOPR":             true,
	"Active_Addresses": true,
	"Exchange_Flow":    true,
}

// defiIndicatorNames marks indicator names contributed by DeFi
// fundamentals providers; their presence sets the DeFiMetrics flag.
var defiIndicatorNames = map[string]bool{
	"TVL":         true,
	"Volume_24h":  true,
	"Fees_24h":    true,
	"Revenue_24h": true,
}

// providerSnapshot pairs a provider's snapshot with its registration
// index, the deterministic tie-breaker throughout the merge.
type providerSnapshot struct {
	index    int
	snapshot sources.MarketSnapshot
}

// merge reduces the responding providers' snapshots into one canonical
// record. Inputs must be ordered by ascending registration index.
func merge(symbol string, responses []providerSnapshot, logger *logging.Logger) *CryptoRecord {
	record := &CryptoRecord{
		Symbol:     symbol,
		Name:       DisplayName(symbol),
		Snapshots:  make([]sources.MarketSnapshot, 0, len(responses)),
		Indicators: make(map[string]sources.TechnicalIndicator, 8),
	}

	for _, response := range responses {
		record.Snapshots = append(record.Snapshots, response.snapshot)
	}

	mergeIndicators(record, responses, logger)
	record.Sentiment = fuseSentiment(responses)
	mergeFundamentals(record, responses)

	for _, response := range responses {
		if response.snapshot.Timestamp.After(record.LastUpdated) {
			record.LastUpdated = response.snapshot.Timestamp
		}
	}

	return record
}

// mergeIndicators pools every indicator across providers and keeps, per
// name, the entry with the latest timestamp. Exact timestamp ties go to
// the provider registered earlier. Entries without a name are malformed
// and skipped.
func mergeIndicators(record *CryptoRecord, responses []providerSnapshot, logger *logging.Logger) {
	for _, response := range responses {
		for _, candidate := range response.snapshot.Indicators {
			if candidate.Name == "" {
				logger.Warn("Skipping unnamed indicator during merge",
					"symbol", record.Symbol, "source", candidate.Source)
				continue
			}

			current, exists := record.Indicators[candidate.Name]
			if !exists {
				record.Indicators[candidate.Name] = candidate
				continue
			}

			// Responses arrive in ascending registration order, so on an
			// exact timestamp tie the already stored entry wins.
			if candidate.Timestamp.After(current.Timestamp) {
				record.Indicators[candidate.Name] = candidate
			}
			metrics.RecordIndicatorDedupDrop(candidate.Name)
		}
	}
}

// fuseSentiment averages the non-absent sentiment labels into one.
// Bullish counts +1, bearish -1, neutral 0; absent labels are excluded
// from the denominator entirely. No suppliers means absent.
func fuseSentiment(responses []providerSnapshot) sources.SignalLabel {
	sum, count := 0, 0
	for _, response := range responses {
		switch response.snapshot.Sentiment {
		case sources.SignalBullish:
			sum++
			count++
		case sources.SignalBearish:
			sum--
			count++
		case sources.SignalNeutral:
			count++
		}
	}

	if count == 0 {
		metrics.RecordSentimentFusion("absent")
		return sources.SignalAbsent
	}

	average := float64(sum) / float64(count)
	var fused sources.SignalLabel
	switch {
	case average > 0.3:
		fused = sources.SignalBullish
	case average < -0.3:
		fused = sources.SignalBearish
	default:
		fused = sources.SignalNeutral
	}

	metrics.RecordSentimentFusion(string(fused))
	return fused
}

// mergeFundamentals takes the first non-absent market cap and
// volatility in registration order and flags on-chain and DeFi metric
// presence.
func mergeFundamentals(record *CryptoRecord, responses []providerSnapshot) {
	for _, response := range responses {
		snapshot := response.snapshot

		if record.Fundamentals.MarketCap == nil && snapshot.Price.MarketCap != nil {
			mc := *snapshot.Price.MarketCap
			record.Fundamentals.MarketCap = &mc
		}
		if record.Fundamentals.Volatility == nil && snapshot.Volatility != nil {
			vol := *snapshot.Volatility
			record.Fundamentals.Volatility = &vol
		}

		for _, ind := range snapshot.Indicators {
			if onChainIndicatorNames[ind.Name] {
				record.Fundamentals.OnChainMetrics = true
			}
			if defiIndicatorNames[ind.Name] {
				record.Fundamentals.DeFiMetrics = true
			}
		}
	}
}

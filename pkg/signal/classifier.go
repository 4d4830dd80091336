package signal

import (
	"strings"
	"time"

	"tc.com/crypto-intel/pkg/aggregator"
	"tc.com/crypto-intel/pkg/sources"
)

// classifierOrigin labels signals produced by the commentary classifier.
const classifierOrigin = "AI_Agent"

// Classify derives a trading signal from a merged record and the
// narration text describing it. The keyword rules are order dependent:
// a "strong buy" phrasing must resolve before the plain "buy" rule is
// considered.
func Classify(record *aggregator.CryptoRecord, rationale string) *TradingSignal {
	text := strings.ToLower(rationale)

	var (
		signalType SignalType
		strength   SignalStrength
	)
	switch {
	case strings.Contains(text, "buy") && strings.Contains(text, "strong"):
		signalType, strength = StrongBuy, StrengthVeryStrong
	case strings.Contains(text, "buy"):
		signalType, strength = Buy, StrengthStrong
	case strings.Contains(text, "sell") && strings.Contains(text, "strong"):
		signalType, strength = StrongSell, StrengthVeryStrong
	case strings.Contains(text, "sell"):
		signalType, strength = Sell, StrengthStrong
	default:
		signalType, strength = Hold, StrengthModerate
	}

	confidence := 0.4
	switch {
	case strings.Contains(text, "high"):
		confidence = 0.8
	case strings.Contains(text, "medium"):
		confidence = 0.6
	}

	return &TradingSignal{
		Symbol:     record.Symbol,
		Type:       signalType,
		Strength:   strength,
		Confidence: confidence,
		Rationale:  rationale,
		Indicators: indicatorLabels(record),
		Factors:    fundamentalFactors(record),
		Timestamp:  time.Now().UTC(),
		Origin:     classifierOrigin,
	}
}

func indicatorLabels(record *aggregator.CryptoRecord) map[string]sources.SignalLabel {
	labels := make(map[string]sources.SignalLabel, len(record.Indicators))
	for name, ind := range record.Indicators {
		labels[name] = ind.Signal
	}
	return labels
}

func fundamentalFactors(record *aggregator.CryptoRecord) map[string]string {
	factors := map[string]string{
		"technical_signal": record.TechnicalSignal(),
		"sentiment":        string(record.Sentiment),
	}
	if record.Fundamentals.MarketCap != nil {
		factors["market_cap"] = record.Fundamentals.MarketCap.String()
	}
	if record.Fundamentals.Volatility != nil {
		factors["volatility"] = record.Fundamentals.Volatility.String()
	}
	if record.Fundamentals.OnChainMetrics {
		factors["on_chain_metrics"] = "present"
	}
	if record.Fundamentals.DeFiMetrics {
		factors["defi_metrics"] = "present"
	}
	return factors
}

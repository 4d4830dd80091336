package aggregator

import (
	"time"

	"github.com/shopspring/decimal"
	"tc.com/crypto-intel/pkg/sources"
)

// displayNames maps canonical symbols to human-readable asset names.
// Unknown symbols fall back to the symbol itself.
var displayNames = map[string]string{
	"BTC":  "Bitcoin",
	"ETH":  "Ethereum",
	"LTC":  "Litecoin",
	"BCH":  "Bitcoin Cash",
	"XRP":  "XRP",
	"ADA":  "Cardano",
	"DOT":  "Polkadot",
	"LINK": "Chainlink",
	"UNI":  "Uniswap",
	"AAVE": "Aave",
	"SOL":  "Solana",
	"DOGE": "Dogecoin",
}

// Fundamentals carries the derived fundamental attributes of a merged
// record. MarketCap and Volatility take the first non-absent value in
// provider registration order; the flags record whether any provider
// contributed on-chain or DeFi metrics.
type Fundamentals struct {
	MarketCap      *decimal.Decimal `json:"market_cap,omitempty"`
	Volatility     *decimal.Decimal `json:"volatility,omitempty"`
	OnChainMetrics bool             `json:"on_chain_metrics"`
	DeFiMetrics    bool             `json:"defi_metrics"`
}

// CryptoRecord is the canonical merged view of one symbol across all
// responding providers. Rebuilt fresh on every aggregation call and
// never mutated afterwards. Snapshots keeps the raw per-provider inputs
// for audit; Indicators and Sentiment are the derived fields.
type CryptoRecord struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`

	// Snapshots holds one entry per provider that returned data, in
	// provider registration order.
	Snapshots []sources.MarketSnapshot `json:"snapshots"`

	// Indicators holds exactly one entry per indicator name, always the
	// most recently timestamped across providers.
	Indicators map[string]sources.TechnicalIndicator `json:"indicators"`

	Sentiment    sources.SignalLabel `json:"sentiment,omitempty"`
	Fundamentals Fundamentals        `json:"fundamentals"`
	LastUpdated  time.Time           `json:"last_updated"`
}

// LatestPrice returns the representative price, the freshest quote
// across providers. Zero if no snapshots are present.
func (r *CryptoRecord) LatestPrice() decimal.Decimal {
	best := r.latestSnapshot()
	if best == nil {
		return decimal.Zero
	}
	return best.Price.Price
}

// PriceChange24h returns the percentage change of the representative
// price against a reference price from roughly 24 hours earlier, or nil
// when no usable reference exists in the snapshot set.
func (r *CryptoRecord) PriceChange24h() *decimal.Decimal {
	best := r.latestSnapshot()
	if best == nil {
		return nil
	}

	cutoff := best.Price.Timestamp.Add(-24 * time.Hour)
	var reference *sources.PriceSnapshot
	for i := range r.Snapshots {
		candidate := &r.Snapshots[i].Price
		if candidate.Timestamp.After(cutoff) {
			continue
		}
		if reference == nil || candidate.Timestamp.After(reference.Timestamp) {
			reference = candidate
		}
	}

	if reference == nil || reference.Price.IsZero() {
		return nil
	}

	change := best.Price.Price.Sub(reference.Price).
		Div(reference.Price).
		Mul(decimal.NewFromInt(100))
	return &change
}

// TechnicalSignal reduces the deduplicated indicator map to a coarse
// recommendation by majority of per-indicator signal labels.
func (r *CryptoRecord) TechnicalSignal() string {
	bullish, bearish := 0, 0
	for _, ind := range r.Indicators {
		switch ind.Signal {
		case sources.SignalBullish:
			bullish++
		case sources.SignalBearish:
			bearish++
		}
	}

	switch {
	case bullish > bearish:
		return "buy"
	case bearish > bullish:
		return "sell"
	default:
		return "hold"
	}
}

func (r *CryptoRecord) latestSnapshot() *sources.MarketSnapshot {
	var best *sources.MarketSnapshot
	for i := range r.Snapshots {
		candidate := &r.Snapshots[i]
		if best == nil || candidate.Price.Timestamp.After(best.Price.Timestamp) {
			best = candidate
		}
	}
	return best
}

// DisplayName returns the human-readable name for a canonical symbol.
func DisplayName(symbol string) string {
	if name, ok := displayNames[symbol]; ok {
		return name
	}
	return symbol
}

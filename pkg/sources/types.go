package sources

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SignalLabel is the coarse direction derived from an indicator value or
// a provider's sentiment feed.
type SignalLabel string

const (
	SignalBullish SignalLabel = "bullish"
	SignalBearish SignalLabel = "bearish"
	SignalNeutral SignalLabel = "neutral"
	// SignalAbsent marks a snapshot whose provider supplied no sentiment.
	// Absent is excluded from sentiment fusion entirely.
	SignalAbsent SignalLabel = ""
)

// PriceSnapshot is one provider's quote for a symbol at a point in time.
// Immutable once constructed.
type PriceSnapshot struct {
	Symbol    string           `json:"symbol"`
	Price     decimal.Decimal  `json:"price"`
	Volume    decimal.Decimal  `json:"volume"`
	MarketCap *decimal.Decimal `json:"market_cap,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Source    string           `json:"source"`
}

// TechnicalIndicator is a named metric with its derived signal label.
// The label is always a pure function of (Name, Value) through the
// owning provider's rule table, never set independently.
type TechnicalIndicator struct {
	Name      string          `json:"name"`
	Value     decimal.Decimal `json:"value"`
	Signal    SignalLabel     `json:"signal"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source"`
}

// MarketSnapshot is one provider's full view of a symbol: price,
// indicators, and optional sentiment/volatility. One per provider per
// aggregation call.
type MarketSnapshot struct {
	Symbol     string               `json:"symbol"`
	Price      PriceSnapshot        `json:"price"`
	Indicators []TechnicalIndicator `json:"indicators"`
	Sentiment  SignalLabel          `json:"sentiment,omitempty"`
	Volatility *decimal.Decimal     `json:"volatility,omitempty"`
	Timestamp  time.Time            `json:"timestamp"`
	Source     string               `json:"source"`
}

// SearchResult is a lightweight descriptor returned by provider search.
type SearchResult struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Score  decimal.Decimal `json:"score"`
	Source string          `json:"source"`
}

// Source is the capability set every provider adapter must implement.
//
// Absent data is a normal outcome, not an error: GetPrice and
// GetMarketData return nil when the provider has nothing for the symbol,
// and the list operations return empty slices. Transport, auth, and
// malformed-response conditions are recovered inside the adapter and
// reported the same way, with a diagnostic log entry.
type Source interface {
	// GetPrice returns the current price, or nil if the provider has no
	// data for the symbol.
	GetPrice(ctx context.Context, symbol string) (*PriceSnapshot, error)

	// GetHistoricalPrices returns price history ordered by ascending
	// timestamp; empty if unavailable.
	GetHistoricalPrices(ctx context.Context, symbol string, start, end time.Time) ([]PriceSnapshot, error)

	// GetIndicators returns the requested indicators, silently omitting
	// any the provider cannot compute. It never fabricates values.
	GetIndicators(ctx context.Context, symbol string, names []string) ([]TechnicalIndicator, error)

	// GetMarketData composes price, indicators, and sentiment into one
	// snapshot, or nil if price alone is unavailable.
	GetMarketData(ctx context.Context, symbol string) (*MarketSnapshot, error)

	// Search returns lightweight result descriptors for a free-text query.
	Search(ctx context.Context, query string) ([]SearchResult, error)

	// SourceID returns the stable provider identifier.
	SourceID() string

	// Close releases held network resources. Idempotent.
	Close() error
}

// SourceFactory is a function that creates a new Source instance
type SourceFactory func(config map[string]interface{}) (Source, error)

package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"tc.com/crypto-intel/pkg/metrics"
)

// defaultIndicators is the indicator set requested for a full market
// snapshot from technical-analysis providers.
var defaultIndicators = []string{"RSI", "MACD", "SMA_20", "SMA_50", "BB_upper", "BB_lower"}

// bloombergRules classifies technical indicators with market-analysis
// thresholds. RSI over 70 is overbought; MACD and SMA deltas follow sign.
var bloombergRules = RuleTable{
	"RSI":    OverboughtRule(70, 30),
	"MACD":   PositiveRule(),
	"SMA_20": PositiveRule(),
	"SMA_50": PositiveRule(),
}

// BloombergSource fetches market data from the Bloomberg crypto REST API.
type BloombergSource struct {
	*BaseSource

	rules RuleTable
}

type bloombergPriceResponse struct {
	Price     *float64 `json:"price"`
	Volume    float64  `json:"volume"`
	MarketCap *float64 `json:"market_cap"`
}

type bloombergHistoricalResponse struct {
	Prices []struct {
		Price     float64  `json:"price"`
		Volume    float64  `json:"volume"`
		MarketCap *float64 `json:"market_cap"`
		Timestamp string   `json:"timestamp"`
	} `json:"prices"`
}

type bloombergTechnicalResponse struct {
	Indicators []struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
	} `json:"indicators"`
}

type bloombergSentimentResponse struct {
	Sentiment  string   `json:"sentiment"`
	Volatility *float64 `json:"volatility"`
}

type bloombergSearchResponse struct {
	Results []struct {
		Symbol string  `json:"symbol"`
		Name   string  `json:"name"`
		Score  float64 `json:"score"`
	} `json:"results"`
}

// NewBloombergSource creates a new Bloomberg source. Requires an API key.
func NewBloombergSource(config map[string]interface{}) (Source, error) {
	logger := GetLoggerFromConfig(config)

	apiKey := GetStringFromConfig(config, "api_key")
	if apiKey == "" {
		return nil, fmt.Errorf("%w: bloomberg", ErrAPIKeyRequired)
	}

	baseURL := GetStringFromConfig(config, "base_url")
	if baseURL == "" {
		baseURL = "https://api.bloomberg.com"
	}

	headers := map[string]string{
		"Authorization": "Bearer " + apiKey,
		"Content-Type":  "application/json",
	}

	// Bloomberg accepts canonical symbols directly; no translation table.
	base := NewBaseSource("bloomberg", baseURL, headers, nil, logger)

	return &BloombergSource{
		BaseSource: base,
		rules:      bloombergRules,
	}, nil
}

// GetPrice returns the current Bloomberg quote, or nil if unavailable.
func (s *BloombergSource) GetPrice(ctx context.Context, symbol string) (*PriceSnapshot, error) {
	providerSymbol, ok := s.ProviderSymbol(symbol)
	if !ok {
		s.LogAbsent("price", symbol, nil)
		return nil, nil
	}

	var resp bloombergPriceResponse
	endpoint := fmt.Sprintf("/v1/marketdata/crypto/%s/price", providerSymbol)
	if err := s.GetJSON(ctx, endpoint, nil, &resp); err != nil {
		s.LogAbsent("price", symbol, err)
		return nil, nil
	}

	if resp.Price == nil {
		s.LogAbsent("price", symbol, nil)
		return nil, nil
	}

	snapshot := &PriceSnapshot{
		Symbol:    providerSymbol,
		Price:     decimal.NewFromFloat(*resp.Price),
		Volume:    decimal.NewFromFloat(resp.Volume),
		Timestamp: Now(),
		Source:    s.SourceID(),
	}
	if resp.MarketCap != nil {
		mc := decimal.NewFromFloat(*resp.MarketCap)
		snapshot.MarketCap = &mc
	}

	metrics.RecordProviderSuccess(s.SourceID())
	return snapshot, nil
}

// GetHistoricalPrices returns daily candles between start and end,
// ascending by timestamp.
func (s *BloombergSource) GetHistoricalPrices(ctx context.Context, symbol string, start, end time.Time) ([]PriceSnapshot, error) {
	providerSymbol, ok := s.ProviderSymbol(symbol)
	if !ok {
		s.LogAbsent("historical", symbol, nil)
		return nil, nil
	}

	params := url.Values{}
	params.Set("start_date", start.UTC().Format(time.RFC3339))
	params.Set("end_date", end.UTC().Format(time.RFC3339))
	params.Set("interval", "1d")

	var resp bloombergHistoricalResponse
	endpoint := fmt.Sprintf("/v1/marketdata/crypto/%s/historical", providerSymbol)
	if err := s.GetJSON(ctx, endpoint, params, &resp); err != nil {
		s.LogAbsent("historical", symbol, err)
		return nil, nil
	}

	prices := make([]PriceSnapshot, 0, len(resp.Prices))
	for _, entry := range resp.Prices {
		ts, err := time.Parse(time.RFC3339, entry.Timestamp)
		if err != nil {
			s.Logger().Warn("Skipping history entry with bad timestamp",
				"source", s.SourceID(), "symbol", symbol, "timestamp", entry.Timestamp)
			continue
		}

		snapshot := PriceSnapshot{
			Symbol:    providerSymbol,
			Price:     decimal.NewFromFloat(entry.Price),
			Volume:    decimal.NewFromFloat(entry.Volume),
			Timestamp: ts,
			Source:    s.SourceID(),
		}
		if entry.MarketCap != nil {
			mc := decimal.NewFromFloat(*entry.MarketCap)
			snapshot.MarketCap = &mc
		}
		prices = append(prices, snapshot)
	}

	sortPricesAscending(prices)
	return prices, nil
}

// GetIndicators returns the requested technical indicators, omitting any
// Bloomberg cannot compute.
func (s *BloombergSource) GetIndicators(ctx context.Context, symbol string, names []string) ([]TechnicalIndicator, error) {
	providerSymbol, ok := s.ProviderSymbol(symbol)
	if !ok {
		s.LogAbsent("indicators", symbol, nil)
		return nil, nil
	}

	params := url.Values{}
	params.Set("indicators", strings.Join(names, ","))

	var resp bloombergTechnicalResponse
	endpoint := fmt.Sprintf("/v1/marketdata/crypto/%s/technical", providerSymbol)
	if err := s.GetJSON(ctx, endpoint, params, &resp); err != nil {
		s.LogAbsent("indicators", symbol, err)
		return nil, nil
	}

	now := Now()
	result := make([]TechnicalIndicator, 0, len(resp.Indicators))
	for _, entry := range resp.Indicators {
		value := decimal.NewFromFloat(entry.Value)
		result = append(result, TechnicalIndicator{
			Name:      entry.Name,
			Value:     value,
			Signal:    s.rules.Apply(entry.Name, value),
			Timestamp: now,
			Source:    s.SourceID(),
		})
	}

	return result, nil
}

// GetMarketData composes price, indicators, and sentiment into one
// snapshot. Absent if price alone is unavailable.
func (s *BloombergSource) GetMarketData(ctx context.Context, symbol string) (*MarketSnapshot, error) {
	price, err := s.GetPrice(ctx, symbol)
	if err != nil || price == nil {
		return nil, err
	}

	techIndicators, err := s.GetIndicators(ctx, symbol, defaultIndicators)
	if err != nil {
		return nil, err
	}

	snapshot := &MarketSnapshot{
		Symbol:     price.Symbol,
		Price:      *price,
		Indicators: techIndicators,
		Timestamp:  Now(),
		Source:     s.SourceID(),
	}

	// Sentiment is optional; a failed fetch degrades to absent.
	var sentiment bloombergSentimentResponse
	endpoint := fmt.Sprintf("/v1/marketdata/crypto/%s/sentiment", price.Symbol)
	if err := s.GetJSON(ctx, endpoint, nil, &sentiment); err != nil {
		s.Logger().Debug("No sentiment from provider",
			"source", s.SourceID(), "symbol", symbol, "error", err.Error())
	} else {
		snapshot.Sentiment = ParseSentimentLabel(sentiment.Sentiment)
		if sentiment.Volatility != nil {
			vol := decimal.NewFromFloat(*sentiment.Volatility)
			snapshot.Volatility = &vol
		}
	}

	return snapshot, nil
}

// Search looks up symbols matching the query.
func (s *BloombergSource) Search(ctx context.Context, query string) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("query", query)

	var resp bloombergSearchResponse
	if err := s.GetJSON(ctx, "/v1/marketdata/crypto/search", params, &resp); err != nil {
		s.LogAbsent("search", query, err)
		return nil, nil
	}

	results := make([]SearchResult, 0, len(resp.Results))
	for _, entry := range resp.Results {
		results = append(results, SearchResult{
			Symbol: entry.Symbol,
			Name:   entry.Name,
			Score:  decimal.NewFromFloat(entry.Score),
			Source: s.SourceID(),
		})
	}

	return results, nil
}

// Register the source in init
func init() {
	Register("bloomberg", NewBloombergSource)
}

package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"tc.com/crypto-intel/pkg/indicators"
	"tc.com/crypto-intel/pkg/metrics"
)

// tradingviewRules classifies scanner indicators. Bollinger band levels
// carry a fixed direction regardless of value: price touching the upper
// band is read as overextension, the lower band as exhaustion.
var tradingviewRules = RuleTable{
	"RSI":      OverboughtRule(70, 30),
	"MACD":     PositiveRule(),
	"SMA_20":   PositiveRule(),
	"SMA_50":   PositiveRule(),
	"BB_upper": ConstantRule(SignalBearish),
	"BB_lower": ConstantRule(SignalBullish),
}

// TradingViewSource fetches quotes and scanner indicators from the
// TradingView scanner API. Credentials are optional; without them the
// source still serves public scanner data.
type TradingViewSource struct {
	*BaseSource

	rules RuleTable
}

type tradingviewScanRequest struct {
	Symbols tradingviewSymbols `json:"symbols"`
	Columns []string           `json:"columns"`
}

type tradingviewSymbols struct {
	Tickers []string `json:"tickers"`
}

type tradingviewScanResponse struct {
	Data []struct {
		Symbol string     `json:"s"`
		Values []*float64 `json:"d"`
	} `json:"data"`
}

type tradingviewHistoryRequest struct {
	Symbol     string `json:"symbol"`
	Resolution string `json:"resolution"`
	From       int64  `json:"from"`
	To         int64  `json:"to"`
}

type tradingviewHistoryResponse struct {
	Status     string    `json:"s"`
	Timestamps []int64   `json:"t"`
	Closes     []float64 `json:"c"`
	Volumes    []float64 `json:"v"`
}

type tradingviewSentimentResponse struct {
	Sentiment  string   `json:"sentiment"`
	Volatility *float64 `json:"volatility"`
}

type tradingviewSearchResponse struct {
	Results []struct {
		Symbol string  `json:"symbol"`
		Name   string  `json:"description"`
		Score  float64 `json:"score"`
	} `json:"results"`
}

// NewTradingViewSource creates a new TradingView source. Username and
// password are optional but must be supplied together.
func NewTradingViewSource(config map[string]interface{}) (Source, error) {
	logger := GetLoggerFromConfig(config)

	username := GetStringFromConfig(config, "username")
	password := GetStringFromConfig(config, "password")
	if (username == "") != (password == "") {
		return nil, fmt.Errorf("%w: tradingview", ErrCredentialsRequired)
	}

	baseURL := GetStringFromConfig(config, "base_url")
	if baseURL == "" {
		baseURL = "https://scanner.tradingview.com"
	}

	headers := map[string]string{
		"Content-Type": "application/json",
	}
	if username != "" {
		headers["X-Username"] = username
		headers["X-Password"] = password
	}

	// Ticker shaping is positional (BINANCE:<SYM>USDT), not a lookup.
	base := NewBaseSource("tradingview", baseURL, headers, nil, logger)

	return &TradingViewSource{
		BaseSource: base,
		rules:      tradingviewRules,
	}, nil
}

// tickerFor renders the exchange-qualified scanner ticker for a
// canonical symbol.
func tickerFor(symbol string) string {
	return "BINANCE:" + symbol + "USDT"
}

// GetPrice returns the current scanner quote, or nil if unavailable.
func (s *TradingViewSource) GetPrice(ctx context.Context, symbol string) (*PriceSnapshot, error) {
	canonical, ok := s.ProviderSymbol(symbol)
	if !ok {
		s.LogAbsent("price", symbol, nil)
		return nil, nil
	}

	req := tradingviewScanRequest{
		Symbols: tradingviewSymbols{Tickers: []string{tickerFor(canonical)}},
		Columns: []string{"close", "volume", "market_cap_basic"},
	}

	var resp tradingviewScanResponse
	if err := s.PostJSON(ctx, "/crypto/scan", req, &resp); err != nil {
		s.LogAbsent("price", symbol, err)
		return nil, nil
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Values) < 2 || resp.Data[0].Values[0] == nil {
		s.LogAbsent("price", symbol, nil)
		return nil, nil
	}

	values := resp.Data[0].Values
	snapshot := &PriceSnapshot{
		Symbol:    canonical,
		Price:     decimal.NewFromFloat(*values[0]),
		Timestamp: Now(),
		Source:    s.SourceID(),
	}
	if values[1] != nil {
		snapshot.Volume = decimal.NewFromFloat(*values[1])
	}
	if len(values) > 2 && values[2] != nil {
		mc := decimal.NewFromFloat(*values[2])
		snapshot.MarketCap = &mc
	}

	metrics.RecordProviderSuccess(s.SourceID())
	return snapshot, nil
}

// GetHistoricalPrices returns daily closes between start and end,
// ascending by timestamp.
func (s *TradingViewSource) GetHistoricalPrices(ctx context.Context, symbol string, start, end time.Time) ([]PriceSnapshot, error) {
	canonical, ok := s.ProviderSymbol(symbol)
	if !ok {
		s.LogAbsent("historical", symbol, nil)
		return nil, nil
	}

	req := tradingviewHistoryRequest{
		Symbol:     tickerFor(canonical),
		Resolution: "1D",
		From:       start.Unix(),
		To:         end.Unix(),
	}

	var resp tradingviewHistoryResponse
	if err := s.PostJSON(ctx, "/crypto/history", req, &resp); err != nil {
		s.LogAbsent("historical", symbol, err)
		return nil, nil
	}

	if resp.Status != "ok" || len(resp.Timestamps) != len(resp.Closes) {
		s.LogAbsent("historical", symbol, nil)
		return nil, nil
	}

	prices := make([]PriceSnapshot, 0, len(resp.Closes))
	for i, ts := range resp.Timestamps {
		snapshot := PriceSnapshot{
			Symbol:    canonical,
			Price:     decimal.NewFromFloat(resp.Closes[i]),
			Timestamp: time.Unix(ts, 0).UTC(),
			Source:    s.SourceID(),
		}
		if i < len(resp.Volumes) {
			snapshot.Volume = decimal.NewFromFloat(resp.Volumes[i])
		}
		prices = append(prices, snapshot)
	}

	sortPricesAscending(prices)
	return prices, nil
}

// GetIndicators returns scanner indicator values. Values the scanner
// leaves null are recomputed locally from daily history where possible;
// anything still missing is omitted.
func (s *TradingViewSource) GetIndicators(ctx context.Context, symbol string, names []string) ([]TechnicalIndicator, error) {
	canonical, ok := s.ProviderSymbol(symbol)
	if !ok {
		s.LogAbsent("indicators", symbol, nil)
		return nil, nil
	}

	req := tradingviewScanRequest{
		Symbols: tradingviewSymbols{Tickers: []string{tickerFor(canonical)}},
		Columns: scannerColumns(names),
	}

	var resp tradingviewScanResponse
	if err := s.PostJSON(ctx, "/crypto/indicators", req, &resp); err != nil {
		s.LogAbsent("indicators", symbol, err)
		return nil, nil
	}

	values := make(map[string]decimal.Decimal, len(names))
	if len(resp.Data) > 0 {
		for i, name := range names {
			if i >= len(resp.Data[0].Values) || resp.Data[0].Values[i] == nil {
				continue
			}
			values[name] = decimal.NewFromFloat(*resp.Data[0].Values[i])
		}
	}

	s.fillMissingIndicators(ctx, canonical, names, values)

	now := Now()
	result := make([]TechnicalIndicator, 0, len(names))
	for _, name := range names {
		value, ok := values[name]
		if !ok {
			continue
		}
		result = append(result, TechnicalIndicator{
			Name:      name,
			Value:     value,
			Signal:    s.rules.Apply(name, value),
			Timestamp: now,
			Source:    s.SourceID(),
		})
	}

	return result, nil
}

// scannerColumns maps indicator names to scanner column identifiers.
func scannerColumns(names []string) []string {
	columns := make([]string, len(names))
	for i, name := range names {
		switch name {
		case "BB_upper":
			columns[i] = "BB.upper"
		case "BB_lower":
			columns[i] = "BB.lower"
		case "SMA_20":
			columns[i] = "SMA20"
		case "SMA_50":
			columns[i] = "SMA50"
		default:
			columns[i] = name
		}
	}
	return columns
}

// fillMissingIndicators computes RSI and SMAs locally from daily closes
// for any requested name the scanner did not return.
func (s *TradingViewSource) fillMissingIndicators(ctx context.Context, canonical string, names []string, values map[string]decimal.Decimal) {
	needed := false
	for _, name := range names {
		if _, ok := values[name]; ok {
			continue
		}
		switch name {
		case "RSI", "SMA_20", "SMA_50":
			needed = true
		}
	}
	if !needed {
		return
	}

	end := Now()
	history, err := s.GetHistoricalPrices(ctx, canonical, end.AddDate(0, 0, -90), end)
	if err != nil || len(history) == 0 {
		return
	}

	closes := make([]decimal.Decimal, len(history))
	for i, snapshot := range history {
		closes[i] = snapshot.Price
	}

	for _, name := range names {
		if _, ok := values[name]; ok {
			continue
		}

		var (
			value   decimal.Decimal
			calcErr error
		)
		switch name {
		case "RSI":
			value, calcErr = indicators.RSI(closes, 14)
		case "SMA_20":
			value, calcErr = indicators.SMA(closes, 20)
		case "SMA_50":
			value, calcErr = indicators.SMA(closes, 50)
		default:
			continue
		}
		if calcErr != nil {
			s.Logger().Debug("Local indicator fallback failed",
				"source", s.SourceID(), "symbol", canonical, "indicator", name, "error", calcErr.Error())
			continue
		}
		values[name] = value
	}
}

// GetMarketData composes price, indicators, and sentiment into one
// snapshot. Absent if price alone is unavailable.
func (s *TradingViewSource) GetMarketData(ctx context.Context, symbol string) (*MarketSnapshot, error) {
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

	var sentiment tradingviewSentimentResponse
	req := map[string]string{"symbol": tickerFor(price.Symbol)}
	if err := s.PostJSON(ctx, "/crypto/sentiment", req, &sentiment); err != nil {
		s.Logger().Debug("No sentiment from provider",
			"source", s.SourceID(), "symbol", symbol, "error", err.Error())
	} else {
		snapshot.Sentiment = ParseSentimentLabel(sentiment.Sentiment)
		if sentiment.Volatility != nil {
			vol := decimal.NewFromFloat(*sentiment.Volatility)
			snapshot.Volatility = &vol
		}
	}

	// Volatility fallback from daily closes keeps the field populated
	// when the sentiment endpoint omits it.
	if snapshot.Volatility == nil {
		end := Now()
		if history, err := s.GetHistoricalPrices(ctx, price.Symbol, end.AddDate(0, 0, -30), end); err == nil && len(history) >= 2 {
			closes := make([]decimal.Decimal, len(history))
			for i, h := range history {
				closes[i] = h.Price
			}
			if vol, err := indicators.RealizedVolatility(closes); err == nil {
				snapshot.Volatility = &vol
			}
		}
	}

	return snapshot, nil
}

// Search looks up tickers matching the query.
func (s *TradingViewSource) Search(ctx context.Context, query string) ([]SearchResult, error) {
	req := map[string]string{"query": query, "type": "crypto"}

	var resp tradingviewSearchResponse
	if err := s.PostJSON(ctx, "/crypto/search", req, &resp); err != nil {
		s.LogAbsent("search", query, err)
		return nil, nil
	}

	results := make([]SearchResult, 0, len(resp.Results))
	for _, entry := range resp.Results {
		symbol := entry.Symbol
		if idx := strings.Index(symbol, ":"); idx >= 0 {
			symbol = symbol[idx+1:]
		}
		results = append(results, SearchResult{
			Symbol: NormalizeSymbol(symbol),
			Name:   entry.Name,
			Score:  decimal.NewFromFloat(entry.Score),
			Source: s.SourceID(),
		})
	}

	return results, nil
}

// Register the source in init
func init() {
	Register("tradingview", NewTradingViewSource)
}

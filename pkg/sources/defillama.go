package sources

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"tc.com/crypto-intel/pkg/metrics"
)

// defillamaSlugs maps canonical symbols to DefiLlama protocol slugs and
// coin identifiers. DefiLlama's coverage is protocol-centric; base-layer
// assets map to their wrapped or native representations.
var defillamaSlugs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"UNI":   "uniswap",
	"AAVE":  "aave",
	"LINK":  "chainlink",
	"CRV":   "curve-dex",
	"MKR":   "makerdao",
	"COMP":  "compound-finance",
	"SUSHI": "sushiswap",
	"LDO":   "lido",
	"SNX":   "synthetix",
	"GMX":   "gmx",
}

// defillamaIndicators is the fundamentals set composing a full market
// snapshot.
var defillamaIndicators = []string{"TVL", "Volume_24h", "Fees_24h", "Revenue_24h"}

// defillamaRules classifies protocol fundamentals by absolute scale.
// Thresholds are in USD.
var defillamaRules = RuleTable{
	"TVL":         GrowthRule(1e9, 1e8),
	"Volume_24h":  GrowthRule(1e8, 1e7),
	"Fees_24h":    GrowthRule(1e6, 1e5),
	"Revenue_24h": GrowthRule(5e5, 5e4),
}

// DefiLlamaSource fetches DeFi protocol fundamentals from the public
// DefiLlama API. No credentials required.
type DefiLlamaSource struct {
	*BaseSource

	rules RuleTable
}

type defillamaPriceResponse struct {
	Coins map[string]struct {
		Price     float64 `json:"price"`
		Timestamp int64   `json:"timestamp"`
		Symbol    string  `json:"symbol"`
	} `json:"coins"`
}

type defillamaProtocolResponse struct {
	Name      string   `json:"name"`
	Symbol    string   `json:"symbol"`
	TVL       *float64 `json:"tvl"`
	Volume24h *float64 `json:"volume24h"`
	Fees24h   *float64 `json:"fees24h"`
	Revenue   *float64 `json:"revenue24h"`
	MCap      *float64 `json:"mcap"`
}

type defillamaChartResponse struct {
	Coins map[string]struct {
		Prices []struct {
			Timestamp int64   `json:"timestamp"`
			Price     float64 `json:"price"`
		} `json:"prices"`
	} `json:"coins"`
}

type defillamaProtocolListEntry struct {
	Name   string   `json:"name"`
	Symbol string   `json:"symbol"`
	Slug   string   `json:"slug"`
	TVL    *float64 `json:"tvl"`
}

// NewDefiLlamaSource creates a new DefiLlama source.
func NewDefiLlamaSource(config map[string]interface{}) (Source, error) {
	logger := GetLoggerFromConfig(config)

	baseURL := GetStringFromConfig(config, "base_url")
	if baseURL == "" {
		baseURL = "https://api.llama.fi"
	}

	base := NewBaseSource("defillama", baseURL, nil, defillamaSlugs, logger)

	return &DefiLlamaSource{
		BaseSource: base,
		rules:      defillamaRules,
	}, nil
}

// coinID renders the coingecko-namespaced coin identifier DefiLlama's
// price endpoints key responses by.
func coinID(slug string) string {
	return "coingecko:" + slug
}

// GetPrice returns the current coin price, or nil if unavailable.
func (s *DefiLlamaSource) GetPrice(ctx context.Context, symbol string) (*PriceSnapshot, error) {
	slug, ok := s.ProviderSymbol(symbol)
	if !ok {
		s.LogAbsent("price", symbol, nil)
		return nil, nil
	}

	var resp defillamaPriceResponse
	endpoint := fmt.Sprintf("/prices/current/%s", coinID(slug))
	if err := s.GetJSON(ctx, endpoint, nil, &resp); err != nil {
		s.LogAbsent("price", symbol, err)
		return nil, nil
	}

	coin, ok := resp.Coins[coinID(slug)]
	if !ok {
		s.LogAbsent("price", symbol, nil)
		return nil, nil
	}

	ts := Now()
	if coin.Timestamp > 0 {
		ts = time.Unix(coin.Timestamp, 0).UTC()
	}

	metrics.RecordProviderSuccess(s.SourceID())

	return &PriceSnapshot{
		Symbol:    NormalizeSymbol(symbol),
		Price:     decimal.NewFromFloat(coin.Price),
		Volume:    decimal.Zero,
		Timestamp: ts,
		Source:    s.SourceID(),
	}, nil
}

// GetHistoricalPrices returns daily prices between start and end,
// ascending by timestamp.
func (s *DefiLlamaSource) GetHistoricalPrices(ctx context.Context, symbol string, start, end time.Time) ([]PriceSnapshot, error) {
	slug, ok := s.ProviderSymbol(symbol)
	if !ok {
		s.LogAbsent("historical", symbol, nil)
		return nil, nil
	}

	span := end.Sub(start)
	if span <= 0 {
		return nil, nil
	}
	days := int(span.Hours()/24) + 1

	params := url.Values{}
	params.Set("start", fmt.Sprintf("%d", start.Unix()))
	params.Set("span", fmt.Sprintf("%d", days))
	params.Set("period", "1d")

	var resp defillamaChartResponse
	endpoint := fmt.Sprintf("/chart/%s", coinID(slug))
	if err := s.GetJSON(ctx, endpoint, params, &resp); err != nil {
		s.LogAbsent("historical", symbol, err)
		return nil, nil
	}

	coin, ok := resp.Coins[coinID(slug)]
	if !ok {
		s.LogAbsent("historical", symbol, nil)
		return nil, nil
	}

	canonical := NormalizeSymbol(symbol)
	prices := make([]PriceSnapshot, 0, len(coin.Prices))
	for _, point := range coin.Prices {
		ts := time.Unix(point.Timestamp, 0).UTC()
		if ts.Before(start) || ts.After(end) {
			continue
		}
		prices = append(prices, PriceSnapshot{
			Symbol:    canonical,
			Price:     decimal.NewFromFloat(point.Price),
			Volume:    decimal.Zero,
			Timestamp: ts,
			Source:    s.SourceID(),
		})
	}

	sortPricesAscending(prices)
	return prices, nil
}

// GetIndicators fetches protocol fundamentals. Names outside the
// fundamentals set are silently omitted.
func (s *DefiLlamaSource) GetIndicators(ctx context.Context, symbol string, names []string) ([]TechnicalIndicator, error) {
	slug, ok := s.ProviderSymbol(symbol)
	if !ok {
		s.LogAbsent("indicators", symbol, nil)
		return nil, nil
	}

	var resp defillamaProtocolResponse
	endpoint := fmt.Sprintf("/protocols/%s", slug)
	if err := s.GetJSON(ctx, endpoint, nil, &resp); err != nil {
		s.LogAbsent("indicators", symbol, err)
		return nil, nil
	}

	fundamentals := map[string]*float64{
		"TVL":         resp.TVL,
		"Volume_24h":  resp.Volume24h,
		"Fees_24h":    resp.Fees24h,
		"Revenue_24h": resp.Revenue,
	}

	now := Now()
	result := make([]TechnicalIndicator, 0, len(names))
	for _, name := range names {
		raw, ok := fundamentals[name]
		if !ok || raw == nil {
			continue
		}
		value := decimal.NewFromFloat(*raw)
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

// GetMarketData composes price and protocol fundamentals. Sentiment is
// derived from the fundamentals scale. Absent if price alone is
// unavailable.
func (s *DefiLlamaSource) GetMarketData(ctx context.Context, symbol string) (*MarketSnapshot, error) {
	price, err := s.GetPrice(ctx, symbol)
	if err != nil || price == nil {
		return nil, err
	}

	fundamentals, err := s.GetIndicators(ctx, symbol, defillamaIndicators)
	if err != nil {
		return nil, err
	}

	return &MarketSnapshot{
		Symbol:     price.Symbol,
		Price:      *price,
		Indicators: fundamentals,
		Sentiment:  deriveDeFiSentiment(fundamentals),
		Timestamp:  Now(),
		Source:     s.SourceID(),
	}, nil
}

// deriveDeFiSentiment reduces fundamentals to a sentiment label by
// majority of per-indicator signals. No fundamentals means absent.
func deriveDeFiSentiment(fundamentals []TechnicalIndicator) SignalLabel {
	if len(fundamentals) == 0 {
		return SignalAbsent
	}

	bullish, bearish := 0, 0
	for _, f := range fundamentals {
		switch f.Signal {
		case SignalBullish:
			bullish++
		case SignalBearish:
			bearish++
		}
	}

	switch {
	case bullish > bearish:
		return SignalBullish
	case bearish > bullish:
		return SignalBearish
	default:
		return SignalNeutral
	}
}

// Search matches the query against the protocol list, returning the top
// ten by TVL descending.
func (s *DefiLlamaSource) Search(ctx context.Context, query string) ([]SearchResult, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, nil
	}

	var protocols []defillamaProtocolListEntry
	if err := s.GetJSON(ctx, "/protocols", nil, &protocols); err != nil {
		s.LogAbsent("search", query, err)
		return nil, nil
	}

	matched := make([]defillamaProtocolListEntry, 0, 16)
	for _, p := range protocols {
		if strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Symbol), needle) {
			matched = append(matched, p)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		left, right := 0.0, 0.0
		if matched[i].TVL != nil {
			left = *matched[i].TVL
		}
		if matched[j].TVL != nil {
			right = *matched[j].TVL
		}
		return left > right
	})

	if len(matched) > 10 {
		matched = matched[:10]
	}

	results := make([]SearchResult, 0, len(matched))
	for _, p := range matched {
		result := SearchResult{
			Symbol: strings.ToUpper(p.Symbol),
			Name:   p.Name,
			Source: s.SourceID(),
		}
		if p.TVL != nil {
			result.Score = decimal.NewFromFloat(*p.TVL)
		}
		results = append(results, result)
	}

	return results, nil
}

// Register the source in init
func init() {
	Register("defillama", NewDefiLlamaSource)
}

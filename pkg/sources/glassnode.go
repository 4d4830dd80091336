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

// glassnodeAssets maps canonical symbols (and common full names) to
// Glassnode asset codes. Glassnode covers a fixed asset set; anything
// outside the table is absent, not an error.
var glassnodeAssets = map[string]string{
	"BTC":         "BTC",
	"BITCOIN":     "BTC",
	"ETH":         "ETH",
	"ETHEREUM":    "ETH",
	"LTC":         "LTC",
	"LITECOIN":    "LTC",
	"BCH":         "BCH",
	"BITCOINCASH": "BCH",
	"XRP":         "XRP",
	"RIPPLE":      "XRP",
	"ADA":         "ADA",
	"CARDANO":     "ADA",
	"DOT":         "DOT",
	"POLKADOT":    "DOT",
	"LINK":        "LINK",
	"CHAINLINK":   "LINK",
	"UNI":         "UNI",
	"UNISWAP":     "UNI",
	"AAVE":        "AAVE",
}

// glassnodeIndicators is the on-chain metric set composing a full
// market snapshot.
var glassnodeIndicators = []string{"NVT", "MVRV", "SOPR", "Active_Addresses", "Exchange_Flow"}

// glassnodeMetricPaths maps indicator names to Glassnode metric endpoints.
var glassnodeMetricPaths = map[string]string{
	"NVT":              "market/market_cap_nvt",
	"MVRV":             "market/market_cap_mvrv",
	"SOPR":             "market/sopr",
	"Active_Addresses": "addresses/active_count",
	"Exchange_Flow":    "transactions/transfers_volume_exchanges_entities",
}

// glassnodeRules classifies on-chain metrics. Thresholds carry on-chain
// semantics and deliberately differ from the technical providers' rules
// for identically named indicators.
var glassnodeRules = RuleTable{
	"NVT":              OverboughtRule(50, 20),
	"MVRV":             OverboughtRule(3, 1),
	"SOPR":             OverboughtRule(1.05, 0.95),
	"Active_Addresses": PositiveRule(),
	// Negative net exchange flow means coins leaving exchanges.
	"Exchange_Flow": NegativeRule(),
}

// GlassnodeSource fetches on-chain analytics from the Glassnode API.
type GlassnodeSource struct {
	*BaseSource

	rules RuleTable
}

// glassnodePoint is one element of Glassnode's metric time series.
type glassnodePoint struct {
	T int64   `json:"t"`
	V float64 `json:"v"`
}

// NewGlassnodeSource creates a new Glassnode source. Requires an API key.
func NewGlassnodeSource(config map[string]interface{}) (Source, error) {
	logger := GetLoggerFromConfig(config)

	apiKey := GetStringFromConfig(config, "api_key")
	if apiKey == "" {
		return nil, fmt.Errorf("%w: glassnode", ErrAPIKeyRequired)
	}

	baseURL := GetStringFromConfig(config, "base_url")
	if baseURL == "" {
		baseURL = "https://api.glassnode.com"
	}

	headers := map[string]string{
		"X-API-KEY":    apiKey,
		"Content-Type": "application/json",
	}

	base := NewBaseSource("glassnode", baseURL, headers, glassnodeAssets, logger)

	return &GlassnodeSource{
		BaseSource: base,
		rules:      glassnodeRules,
	}, nil
}

func glassnodeParams(asset string) url.Values {
	params := url.Values{}
	params.Set("a", asset)
	params.Set("f", "JSON")
	params.Set("timestamp_format", "unix")
	return params
}

// GetPrice returns the latest USD close for the asset, or nil if the
// asset is unsupported or the series is empty.
func (s *GlassnodeSource) GetPrice(ctx context.Context, symbol string) (*PriceSnapshot, error) {
	asset, ok := s.ProviderSymbol(symbol)
	if !ok {
		s.LogAbsent("price", symbol, nil)
		return nil, nil
	}

	var series []glassnodePoint
	if err := s.GetJSON(ctx, "/v1/metrics/market/price_usd_close", glassnodeParams(asset), &series); err != nil {
		s.LogAbsent("price", symbol, err)
		return nil, nil
	}

	if len(series) == 0 {
		s.LogAbsent("price", symbol, nil)
		return nil, nil
	}

	latest := series[len(series)-1]
	metrics.RecordProviderSuccess(s.SourceID())

	// Glassnode's price endpoint carries no volume.
	return &PriceSnapshot{
		Symbol:    asset,
		Price:     decimal.NewFromFloat(latest.V),
		Volume:    decimal.Zero,
		Timestamp: time.Unix(latest.T, 0).UTC(),
		Source:    s.SourceID(),
	}, nil
}

// GetHistoricalPrices returns daily USD closes within [start, end],
// ascending by timestamp.
func (s *GlassnodeSource) GetHistoricalPrices(ctx context.Context, symbol string, start, end time.Time) ([]PriceSnapshot, error) {
	asset, ok := s.ProviderSymbol(symbol)
	if !ok {
		s.LogAbsent("historical", symbol, nil)
		return nil, nil
	}

	params := glassnodeParams(asset)
	params.Set("s", fmt.Sprintf("%d", start.Unix()))
	params.Set("i", "24h")

	var series []glassnodePoint
	if err := s.GetJSON(ctx, "/v1/metrics/market/price_usd_close", params, &series); err != nil {
		s.LogAbsent("historical", symbol, err)
		return nil, nil
	}

	prices := make([]PriceSnapshot, 0, len(series))
	for _, point := range series {
		ts := time.Unix(point.T, 0).UTC()
		if ts.Before(start) || ts.After(end) {
			continue
		}
		prices = append(prices, PriceSnapshot{
			Symbol:    asset,
			Price:     decimal.NewFromFloat(point.V),
			Volume:    decimal.Zero,
			Timestamp: ts,
			Source:    s.SourceID(),
		})
	}

	sortPricesAscending(prices)
	return prices, nil
}

// GetIndicators fetches the requested on-chain metrics. Names without a
// Glassnode metric mapping are silently omitted.
func (s *GlassnodeSource) GetIndicators(ctx context.Context, symbol string, names []string) ([]TechnicalIndicator, error) {
	asset, ok := s.ProviderSymbol(symbol)
	if !ok {
		s.LogAbsent("indicators", symbol, nil)
		return nil, nil
	}

	now := Now()
	result := make([]TechnicalIndicator, 0, len(names))

	for _, name := range names {
		metricPath, ok := glassnodeMetricPaths[name]
		if !ok {
			continue
		}

		params := glassnodeParams(asset)
		params.Set("i", "24h")

		var series []glassnodePoint
		endpoint := "/v1/metrics/" + metricPath
		if err := s.GetJSON(ctx, endpoint, params, &series); err != nil {
			s.Logger().Debug("Metric unavailable",
				"source", s.SourceID(), "symbol", symbol, "metric", name, "error", err.Error())
			continue
		}
		if len(series) == 0 {
			continue
		}

		value := decimal.NewFromFloat(series[len(series)-1].V)
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

// GetMarketData composes price, on-chain indicators, and on-chain
// sentiment. Absent if price alone is unavailable.
func (s *GlassnodeSource) GetMarketData(ctx context.Context, symbol string) (*MarketSnapshot, error) {
	price, err := s.GetPrice(ctx, symbol)
	if err != nil || price == nil {
		return nil, err
	}

	onchainIndicators, err := s.GetIndicators(ctx, symbol, glassnodeIndicators)
	if err != nil {
		return nil, err
	}

	return &MarketSnapshot{
		Symbol:     price.Symbol,
		Price:      *price,
		Indicators: onchainIndicators,
		Sentiment:  deriveOnChainSentiment(onchainIndicators),
		Timestamp:  Now(),
		Source:     s.SourceID(),
	}, nil
}

// deriveOnChainSentiment reduces SOPR and MVRV readings to a sentiment
// label. High SOPR with stretched MVRV marks profit-taking into
// overvaluation; depressed readings mark capitulation.
func deriveOnChainSentiment(onchainIndicators []TechnicalIndicator) SignalLabel {
	var sopr, mvrv *decimal.Decimal
	for i := range onchainIndicators {
		switch onchainIndicators[i].Name {
		case "SOPR":
			sopr = &onchainIndicators[i].Value
		case "MVRV":
			mvrv = &onchainIndicators[i].Value
		}
	}

	if sopr == nil || mvrv == nil {
		return SignalAbsent
	}

	switch {
	case sopr.GreaterThan(decimal.NewFromFloat(1.05)) && mvrv.GreaterThan(decimal.NewFromFloat(2.0)):
		return SignalBearish
	case sopr.LessThan(decimal.NewFromFloat(0.95)) && mvrv.LessThan(decimal.NewFromFloat(1.5)):
		return SignalBullish
	default:
		return SignalNeutral
	}
}

// Search matches the query against Glassnode's supported asset set.
func (s *GlassnodeSource) Search(_ context.Context, query string) ([]SearchResult, error) {
	needle := strings.ToUpper(strings.TrimSpace(query))
	if needle == "" {
		return nil, nil
	}

	seen := make(map[string]bool)
	results := make([]SearchResult, 0, 4)
	for alias, asset := range glassnodeAssets {
		if !strings.Contains(alias, needle) || seen[asset] {
			continue
		}
		seen[asset] = true
		results = append(results, SearchResult{
			Symbol: asset,
			Name:   asset,
			Source: s.SourceID(),
		})
	}

	return results, nil
}

// Register the source in init
func init() {
	Register("glassnode", NewGlassnodeSource)
}

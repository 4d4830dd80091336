// Package aggregator fans symbol requests out to every configured
// provider adapter concurrently, isolates individual failures, and
// merges the partial results into one canonical record.
package aggregator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tc.com/crypto-intel/pkg/config"
	"tc.com/crypto-intel/pkg/logging"
	"tc.com/crypto-intel/pkg/metrics"
	"tc.com/crypto-intel/pkg/sources"
)

const defaultRequestTimeout = 10 * time.Second

// Aggregator coordinates the active provider adapters. The adapter set
// is fixed at construction; registration order is the deterministic
// tie-breaker for all merge decisions.
type Aggregator struct {
	sources []sources.Source
	timeout time.Duration
	logger  *logging.Logger
}

// New builds the aggregator from configuration. A provider without
// usable credentials is simply left out of the active set; only an
// entirely empty set is an error.
func New(cfg *config.Config, logger *logging.Logger) (*Aggregator, error) {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}

	type candidate struct {
		name    string
		enabled bool
		config  map[string]interface{}
	}

	providers := cfg.Providers
	candidates := []candidate{
		{
			name:    "bloomberg",
			enabled: providers.Bloomberg.APIKey != "",
			config: map[string]interface{}{
				"api_key":  providers.Bloomberg.APIKey,
				"base_url": providers.Bloomberg.BaseURL,
			},
		},
		{
			name:    "tradingview",
			enabled: providers.TradingView.Username != "" && providers.TradingView.Password != "",
			config: map[string]interface{}{
				"username": providers.TradingView.Username,
				"password": providers.TradingView.Password,
				"base_url": providers.TradingView.BaseURL,
			},
		},
		{
			name:    "glassnode",
			enabled: providers.Glassnode.APIKey != "",
			config: map[string]interface{}{
				"api_key":  providers.Glassnode.APIKey,
				"base_url": providers.Glassnode.BaseURL,
			},
		},
		{
			name:    "defillama",
			enabled: !providers.DefiLlama.Disabled,
			config: map[string]interface{}{
				"base_url": providers.DefiLlama.BaseURL,
			},
		},
	}

	active := make([]sources.Source, 0, len(candidates))
	for _, c := range candidates {
		if !c.enabled {
			logger.Debug("Provider not configured, skipping", "provider", c.name)
			continue
		}

		c.config["logger"] = logger
		source, err := sources.Create(c.name, c.config)
		if err != nil {
			return nil, fmt.Errorf("failed to create source %s: %w", c.name, err)
		}

		logger.Info("Registered source", "provider", c.name)
		active = append(active, source)
	}

	if len(active) == 0 {
		return nil, ErrNoActiveSources
	}

	timeout := cfg.Aggregator.RequestTimeout.ToDuration()
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return &Aggregator{
		sources: active,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// NewFromSources builds an aggregator over an explicit adapter set, in
// the given registration order.
func NewFromSources(srcs []sources.Source, timeout time.Duration, logger *logging.Logger) *Aggregator {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Aggregator{
		sources: srcs,
		timeout: timeout,
		logger:  logger,
	}
}

// fanOut runs fn once per registered source concurrently and waits for
// every task to settle. Each task gets its own bounded deadline; a
// panic or error in one task is logged and isolated, never cancelling
// siblings. The returned function values are indexed by registration
// order.
func (a *Aggregator) fanOut(ctx context.Context, operation string, fn func(ctx context.Context, src sources.Source) error) {
	var wg sync.WaitGroup
	for _, src := range a.sources {
		wg.Add(1)
		go func(src sources.Source) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					a.logger.Error("Source panicked",
						"source", src.SourceID(), "operation", operation, "panic", fmt.Sprint(r))
					metrics.RecordProviderFailure(src.SourceID(), operation)
				}
			}()

			taskCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			if err := fn(taskCtx, src); err != nil {
				a.logger.Error("Source failed",
					"source", src.SourceID(), "operation", operation, "error", err.Error())
				metrics.RecordProviderFailure(src.SourceID(), operation)
			}
		}(src)
	}
	wg.Wait()
}

// FetchCryptoData fans a market-data request out to every source and
// merges the responses. Returns nil when zero sources produced a
// usable snapshot.
func (a *Aggregator) FetchCryptoData(ctx context.Context, symbol string) (*CryptoRecord, error) {
	canonical := sources.NormalizeSymbol(symbol)
	if canonical == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}

	started := time.Now()
	results := make([]*sources.MarketSnapshot, len(a.sources))
	indexes := a.sourceIndexes()

	a.fanOut(ctx, "market_data", func(taskCtx context.Context, src sources.Source) error {
		snapshot, err := src.GetMarketData(taskCtx, canonical)
		if err != nil {
			return err
		}
		results[indexes[src.SourceID()]] = snapshot
		return nil
	})

	responses := make([]providerSnapshot, 0, len(results))
	for i, snapshot := range results {
		if snapshot == nil {
			continue
		}
		responses = append(responses, providerSnapshot{index: i, snapshot: *snapshot})
	}

	metrics.RecordAggregation("crypto_data", time.Since(started))

	if len(responses) == 0 {
		a.logger.Warn("No source returned data", "symbol", canonical)
		return nil, nil
	}

	record := merge(canonical, responses, a.logger)
	a.logger.Info("Aggregated market data",
		"symbol", canonical,
		"sources", len(responses),
		"indicators", len(record.Indicators),
		"sentiment", string(record.Sentiment))

	return record, nil
}

// FetchPriceData fans a price-only request out to every source and
// returns the quotes in registration order. Sources without data are
// omitted.
func (a *Aggregator) FetchPriceData(ctx context.Context, symbol string) ([]sources.PriceSnapshot, error) {
	canonical := sources.NormalizeSymbol(symbol)
	if canonical == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}

	started := time.Now()
	results := make([]*sources.PriceSnapshot, len(a.sources))
	indexes := a.sourceIndexes()

	a.fanOut(ctx, "price", func(taskCtx context.Context, src sources.Source) error {
		snapshot, err := src.GetPrice(taskCtx, canonical)
		if err != nil {
			return err
		}
		results[indexes[src.SourceID()]] = snapshot
		return nil
	})

	metrics.RecordAggregation("price", time.Since(started))

	prices := make([]sources.PriceSnapshot, 0, len(results))
	for _, snapshot := range results {
		if snapshot == nil {
			continue
		}
		prices = append(prices, *snapshot)
	}

	return prices, nil
}

// FetchHistoricalData fans a history request out to every source,
// concatenates the results in registration order, and re-sorts the
// combined sequence by ascending timestamp. The stable sort keeps
// registration order for exact timestamp ties regardless of which task
// finished first.
func (a *Aggregator) FetchHistoricalData(ctx context.Context, symbol string, start, end time.Time) ([]sources.PriceSnapshot, error) {
	canonical := sources.NormalizeSymbol(symbol)
	if canonical == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}

	started := time.Now()
	results := make([][]sources.PriceSnapshot, len(a.sources))
	indexes := a.sourceIndexes()

	a.fanOut(ctx, "historical", func(taskCtx context.Context, src sources.Source) error {
		history, err := src.GetHistoricalPrices(taskCtx, canonical, start, end)
		if err != nil {
			return err
		}
		results[indexes[src.SourceID()]] = history
		return nil
	})

	metrics.RecordAggregation("historical", time.Since(started))

	var combined []sources.PriceSnapshot
	for _, history := range results {
		combined = append(combined, history...)
	}

	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].Timestamp.Before(combined[j].Timestamp)
	})

	return combined, nil
}

// Search fans the query out to every source. Every registered provider
// appears as a key in the result; a failed provider contributes an
// empty list, never a missing key.
func (a *Aggregator) Search(ctx context.Context, query string) (map[string][]sources.SearchResult, error) {
	started := time.Now()
	results := make([][]sources.SearchResult, len(a.sources))
	indexes := a.sourceIndexes()

	a.fanOut(ctx, "search", func(taskCtx context.Context, src sources.Source) error {
		found, err := src.Search(taskCtx, query)
		if err != nil {
			return err
		}
		results[indexes[src.SourceID()]] = found
		return nil
	})

	metrics.RecordAggregation("search", time.Since(started))

	combined := make(map[string][]sources.SearchResult, len(a.sources))
	for i, src := range a.sources {
		if results[i] == nil {
			combined[src.SourceID()] = []sources.SearchResult{}
			continue
		}
		combined[src.SourceID()] = results[i]
	}

	return combined, nil
}

// AvailableSources returns the active provider identifiers in
// registration order.
func (a *Aggregator) AvailableSources() []string {
	ids := make([]string, len(a.sources))
	for i, src := range a.sources {
		ids[i] = src.SourceID()
	}
	return ids
}

// Close shuts every source down, continuing through individual
// failures. The first error is returned after all sources were given
// the chance to close.
func (a *Aggregator) Close() error {
	var firstErr error
	for _, src := range a.sources {
		if err := src.Close(); err != nil {
			a.logger.Error("Failed to close source", "source", src.SourceID(), "error", err.Error())
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (a *Aggregator) sourceIndexes() map[string]int {
	indexes := make(map[string]int, len(a.sources))
	for i, src := range a.sources {
		indexes[src.SourceID()] = i
	}
	return indexes
}

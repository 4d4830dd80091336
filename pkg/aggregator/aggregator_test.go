package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"tc.com/crypto-intel/pkg/config"
	"tc.com/crypto-intel/pkg/logging"
	"tc.com/crypto-intel/pkg/sources"
)

// stubSource is a configurable in-memory Source for aggregator tests.
type stubSource struct {
	id         string
	snapshot   *sources.MarketSnapshot
	price      *sources.PriceSnapshot
	history    []sources.PriceSnapshot
	results    []sources.SearchResult
	err        error
	panics     bool
	delay      time.Duration
	closeCalls int
}

func (s *stubSource) GetPrice(ctx context.Context, _ string) (*sources.PriceSnapshot, error) {
	if s.panics {
		panic("stub panic")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.price, s.err
}

func (s *stubSource) GetHistoricalPrices(_ context.Context, _ string, _, _ time.Time) ([]sources.PriceSnapshot, error) {
	if s.panics {
		panic("stub panic")
	}
	return s.history, s.err
}

func (s *stubSource) GetIndicators(_ context.Context, _ string, _ []string) ([]sources.TechnicalIndicator, error) {
	return nil, s.err
}

func (s *stubSource) GetMarketData(ctx context.Context, _ string) (*sources.MarketSnapshot, error) {
	if s.panics {
		panic("stub panic")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.snapshot, s.err
}

func (s *stubSource) Search(_ context.Context, _ string) ([]sources.SearchResult, error) {
	if s.panics {
		panic("stub panic")
	}
	return s.results, s.err
}

func (s *stubSource) SourceID() string { return s.id }

func (s *stubSource) Close() error {
	s.closeCalls++
	return s.err
}

func marketSnapshot(source string, price float64, ts time.Time, indicators ...sources.TechnicalIndicator) *sources.MarketSnapshot {
	s := snapshotAt(source, price, ts, indicators...)
	return &s
}

func TestFetchCryptoDataMergesAcrossSources(t *testing.T) {
	agg := NewFromSources([]sources.Source{
		&stubSource{id: "a", snapshot: marketSnapshot("a", 50000, t0,
			indicatorAt("RSI", 75, sources.SignalBearish, t0, "a"))},
		&stubSource{id: "b", snapshot: marketSnapshot("b", 50010, t0.Add(5*time.Second),
			indicatorAt("RSI", 20, sources.SignalBullish, t0.Add(5*time.Second), "b"))},
	}, time.Second, logging.NewNoopLogger())

	record, err := agg.FetchCryptoData(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record == nil {
		t.Fatal("expected record")
	}
	if !record.LatestPrice().Equal(decimal.NewFromFloat(50010)) {
		t.Errorf("price = %s, want freshest 50010", record.LatestPrice())
	}
	if rsi := record.Indicators["RSI"]; rsi.Source != "b" {
		t.Errorf("RSI from %s, want later provider b", rsi.Source)
	}
}

func TestFetchCryptoDataAbsentWhenAllSourcesEmpty(t *testing.T) {
	agg := NewFromSources([]sources.Source{
		&stubSource{id: "a"},
		&stubSource{id: "b", err: context.DeadlineExceeded},
	}, time.Second, logging.NewNoopLogger())

	record, err := agg.FetchCryptoData(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("total failure must surface as absent, not error: %v", err)
	}
	if record != nil {
		t.Fatalf("expected absent record, got %+v", record)
	}
}

func TestFetchCryptoDataIsolatesFailures(t *testing.T) {
	agg := NewFromSources([]sources.Source{
		&stubSource{id: "healthy", snapshot: marketSnapshot("healthy", 50000, t0)},
		&stubSource{id: "broken", err: context.DeadlineExceeded},
		&stubSource{id: "panicky", panics: true},
	}, time.Second, logging.NewNoopLogger())

	record, err := agg.FetchCryptoData(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record == nil {
		t.Fatal("healthy source must still produce a record")
	}
	if len(record.Snapshots) != 1 || record.Snapshots[0].Source != "healthy" {
		t.Errorf("snapshots = %+v, want only the healthy source", record.Snapshots)
	}
}

func TestFetchCryptoDataTimesOutSlowSource(t *testing.T) {
	agg := NewFromSources([]sources.Source{
		&stubSource{id: "fast", snapshot: marketSnapshot("fast", 50000, t0)},
		&stubSource{id: "slow", delay: time.Second, snapshot: marketSnapshot("slow", 50010, t0)},
	}, 50*time.Millisecond, logging.NewNoopLogger())

	record, err := agg.FetchCryptoData(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record == nil {
		t.Fatal("expected record from fast source")
	}
	if len(record.Snapshots) != 1 || record.Snapshots[0].Source != "fast" {
		t.Errorf("snapshots = %+v, want only the fast source", record.Snapshots)
	}
}

func TestFetchCryptoDataInvalidSymbol(t *testing.T) {
	agg := NewFromSources([]sources.Source{&stubSource{id: "a"}}, time.Second, logging.NewNoopLogger())

	if _, err := agg.FetchCryptoData(context.Background(), "   "); err == nil {
		t.Fatal("expected error for unparseable symbol")
	}
}

func TestFetchPriceDataKeepsRegistrationOrder(t *testing.T) {
	priceAt := func(source string, price float64) *sources.PriceSnapshot {
		return &sources.PriceSnapshot{Symbol: "BTC", Price: decimal.NewFromFloat(price), Timestamp: t0, Source: source}
	}

	agg := NewFromSources([]sources.Source{
		&stubSource{id: "a", price: priceAt("a", 50000), delay: 20 * time.Millisecond},
		&stubSource{id: "b"},
		&stubSource{id: "c", price: priceAt("c", 50010)},
	}, time.Second, logging.NewNoopLogger())

	prices, err := agg.FetchPriceData(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prices) != 2 {
		t.Fatalf("len = %d, want 2 (empty source omitted)", len(prices))
	}
	if prices[0].Source != "a" || prices[1].Source != "c" {
		t.Errorf("order = [%s %s], want registration order despite a finishing last", prices[0].Source, prices[1].Source)
	}
}

func TestFetchHistoricalDataGloballySorted(t *testing.T) {
	historyAt := func(source string, times ...time.Time) []sources.PriceSnapshot {
		history := make([]sources.PriceSnapshot, len(times))
		for i, ts := range times {
			history[i] = sources.PriceSnapshot{Symbol: "BTC", Price: decimal.NewFromInt(1), Timestamp: ts, Source: source}
		}
		return history
	}

	t1, t2, t3 := t0, t0.Add(time.Hour), t0.Add(2*time.Hour)
	agg := NewFromSources([]sources.Source{
		&stubSource{id: "a", history: historyAt("a", t1, t3)},
		&stubSource{id: "b", history: historyAt("b", t2)},
	}, time.Second, logging.NewNoopLogger())

	combined, err := agg.FetchHistoricalData(context.Background(), "BTC", t1, t3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(combined) != 3 {
		t.Fatalf("len = %d, want 3", len(combined))
	}
	want := []string{"a", "b", "a"}
	for i, snapshot := range combined {
		if snapshot.Source != want[i] {
			t.Fatalf("position %d from %s, want %s (ascending interleave)", i, snapshot.Source, want[i])
		}
	}
}

func TestSearchAlwaysIncludesEveryProviderKey(t *testing.T) {
	agg := NewFromSources([]sources.Source{
		&stubSource{id: "a", results: []sources.SearchResult{{Symbol: "BTC", Source: "a"}}},
		&stubSource{id: "broken", err: context.DeadlineExceeded},
		&stubSource{id: "panicky", panics: true},
	}, time.Second, logging.NewNoopLogger())

	results, err := agg.Search(context.Background(), "bitcoin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("keys = %d, want every provider present", len(results))
	}
	if len(results["a"]) != 1 {
		t.Errorf("a = %+v, want one result", results["a"])
	}
	for _, id := range []string{"broken", "panicky"} {
		list, ok := results[id]
		if !ok {
			t.Errorf("provider %s missing from result map", id)
		}
		if len(list) != 0 {
			t.Errorf("provider %s = %+v, want empty list", id, list)
		}
	}
}

func TestAvailableSourcesRegistrationOrder(t *testing.T) {
	agg := NewFromSources([]sources.Source{
		&stubSource{id: "bloomberg"},
		&stubSource{id: "tradingview"},
		&stubSource{id: "defillama"},
	}, time.Second, logging.NewNoopLogger())

	got := agg.AvailableSources()
	want := []string{"bloomberg", "tradingview", "defillama"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sources = %v, want %v", got, want)
		}
	}
}

func TestCloseContinuesThroughFailures(t *testing.T) {
	failing := &stubSource{id: "a", err: context.DeadlineExceeded}
	healthy := &stubSource{id: "b"}

	agg := NewFromSources([]sources.Source{failing, healthy}, time.Second, logging.NewNoopLogger())

	if err := agg.Close(); err == nil {
		t.Error("expected first close error to surface")
	}
	if healthy.closeCalls != 1 {
		t.Error("close must continue past a failing source")
	}
}

func TestNewRequiresAtLeastOneProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Providers.DefiLlama.Disabled = true

	if _, err := New(cfg, logging.NewNoopLogger()); err == nil {
		t.Fatal("expected error with no active providers")
	}
}

func TestNewActivatesProvidersFromCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.Providers.Bloomberg.APIKey = "key"

	agg, err := New(cfg, logging.NewNoopLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer agg.Close()

	got := agg.AvailableSources()
	want := []string{"bloomberg", "defillama"}
	if len(got) != len(want) {
		t.Fatalf("sources = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sources = %v, want %v", got, want)
		}
	}
}

// End-to-end scenario: two responding adapters disagreeing, one failing.
func TestAggregationScenario(t *testing.T) {
	tsA := time.Unix(100, 0).UTC()
	tsB := time.Unix(105, 0).UTC()

	snapA := marketSnapshot("a", 50000, tsA, indicatorAt("RSI", 75, sources.SignalBearish, tsA, "a"))
	snapA.Sentiment = sources.SignalBearish
	snapB := marketSnapshot("b", 50010, tsB, indicatorAt("RSI", 20, sources.SignalBullish, tsB, "b"))
	snapB.Sentiment = sources.SignalBullish

	agg := NewFromSources([]sources.Source{
		&stubSource{id: "a", snapshot: snapA},
		&stubSource{id: "b", snapshot: snapB},
		&stubSource{id: "c", err: context.DeadlineExceeded},
	}, time.Second, logging.NewNoopLogger())

	record, err := agg.FetchCryptoData(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record == nil {
		t.Fatal("expected record")
	}

	if !record.LatestPrice().Equal(decimal.NewFromFloat(50010)) {
		t.Errorf("price = %s, want 50010", record.LatestPrice())
	}
	rsi := record.Indicators["RSI"]
	if !rsi.Value.Equal(decimal.NewFromFloat(20)) || rsi.Signal != sources.SignalBullish {
		t.Errorf("RSI = %+v, want later bullish 20", rsi)
	}
	if len(record.Snapshots) != 2 {
		t.Errorf("snapshots = %d, want 2", len(record.Snapshots))
	}
	// {bearish, bullish} averages to 0, inside the neutral band.
	if record.Sentiment != sources.SignalNeutral {
		t.Errorf("sentiment = %q, want neutral", record.Sentiment)
	}
}

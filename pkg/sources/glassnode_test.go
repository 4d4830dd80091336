package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newGlassnodeForTest(t *testing.T, handler http.Handler) *GlassnodeSource {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	src, err := NewGlassnodeSource(map[string]interface{}{
		"api_key":  "test-key",
		"base_url": ts.URL,
	})
	if err != nil {
		t.Fatalf("failed to create source: %v", err)
	}
	t.Cleanup(func() { _ = src.Close() })

	return src.(*GlassnodeSource)
}

func TestGlassnodeRequiresAPIKey(t *testing.T) {
	if _, err := NewGlassnodeSource(map[string]interface{}{}); err == nil {
		t.Fatal("expected error without api_key")
	}
}

func TestGlassnodeGetPrice(t *testing.T) {
	var gotKey, gotAsset string
	src := newGlassnodeForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-KEY")
		gotAsset = r.URL.Query().Get("a")
		_, _ = w.Write([]byte(`[{"t": 1756166400, "v": 49500.25}, {"t": 1756252800, "v": 50100.75}]`))
	}))

	// Full asset names resolve through the symbol table too.
	snapshot, err := src.GetPrice(context.Background(), "bitcoin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot == nil {
		t.Fatal("expected snapshot")
	}
	if gotKey != "test-key" {
		t.Errorf("X-API-KEY = %q, want test-key", gotKey)
	}
	if gotAsset != "BTC" {
		t.Errorf("asset param = %q, want BTC", gotAsset)
	}
	if !snapshot.Price.Equal(decimal.NewFromFloat(50100.75)) {
		t.Errorf("price = %s, want latest series value 50100.75", snapshot.Price)
	}
	if snapshot.Timestamp != time.Unix(1756252800, 0).UTC() {
		t.Errorf("timestamp = %v, want series timestamp", snapshot.Timestamp)
	}
}

func TestGlassnodeUnsupportedSymbolAbsent(t *testing.T) {
	called := false
	src := newGlassnodeForTest(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	snapshot, err := src.GetPrice(context.Background(), "SHIB")
	if err != nil || snapshot != nil {
		t.Fatalf("expected absent result, got %v, %v", snapshot, err)
	}
	if called {
		t.Error("unsupported symbol must not hit the network")
	}
}

func TestGlassnodeGetIndicators(t *testing.T) {
	responses := map[string]string{
		"/v1/metrics/market/market_cap_nvt":  `[{"t": 1, "v": 60}]`,
		"/v1/metrics/market/market_cap_mvrv": `[{"t": 1, "v": 0.8}]`,
		"/v1/metrics/market/sopr":            `[{"t": 1, "v": 1.0}]`,
	}
	src := newGlassnodeForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := responses[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(body))
	}))

	result, err := src.GetIndicators(context.Background(), "BTC", []string{"NVT", "MVRV", "SOPR", "Active_Addresses", "NOT_A_METRIC"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Active_Addresses 404s and NOT_A_METRIC has no mapping; both omitted.
	if len(result) != 3 {
		t.Fatalf("len = %d, want 3", len(result))
	}

	signals := make(map[string]SignalLabel, len(result))
	for _, ind := range result {
		signals[ind.Name] = ind.Signal
	}
	if signals["NVT"] != SignalBearish {
		t.Errorf("NVT 60 = %s, want bearish", signals["NVT"])
	}
	if signals["MVRV"] != SignalBullish {
		t.Errorf("MVRV 0.8 = %s, want bullish", signals["MVRV"])
	}
	if signals["SOPR"] != SignalNeutral {
		t.Errorf("SOPR 1.0 = %s, want neutral", signals["SOPR"])
	}
}

func TestDeriveOnChainSentiment(t *testing.T) {
	indicator := func(name string, value float64) TechnicalIndicator {
		return TechnicalIndicator{Name: name, Value: decimal.NewFromFloat(value)}
	}

	tests := []struct {
		name     string
		inputs   []TechnicalIndicator
		expected SignalLabel
	}{
		{
			"profit taking into overvaluation",
			[]TechnicalIndicator{indicator("SOPR", 1.10), indicator("MVRV", 2.5)},
			SignalBearish,
		},
		{
			"capitulation",
			[]TechnicalIndicator{indicator("SOPR", 0.90), indicator("MVRV", 1.2)},
			SignalBullish,
		},
		{
			"mixed readings",
			[]TechnicalIndicator{indicator("SOPR", 1.10), indicator("MVRV", 1.2)},
			SignalNeutral,
		},
		{
			"missing MVRV",
			[]TechnicalIndicator{indicator("SOPR", 1.10)},
			SignalAbsent,
		},
		{
			"no inputs",
			nil,
			SignalAbsent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deriveOnChainSentiment(tt.inputs); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestGlassnodeSearch(t *testing.T) {
	src := newGlassnodeForTest(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("search must not hit the network")
	}))

	results, err := src.Search(context.Background(), "bitcoin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found := make(map[string]bool, len(results))
	for _, r := range results {
		if found[r.Symbol] {
			t.Errorf("duplicate symbol %s in results", r.Symbol)
		}
		found[r.Symbol] = true
	}
	if !found["BTC"] {
		t.Errorf("results = %+v, want BTC present", results)
	}
	if !found["BCH"] {
		// "BITCOINCASH" also contains "BITCOIN".
		t.Errorf("results = %+v, want BCH present", results)
	}
}

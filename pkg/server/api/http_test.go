package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"tc.com/crypto-intel/pkg/aggregator"
	"tc.com/crypto-intel/pkg/logging"
	"tc.com/crypto-intel/pkg/sources"
)

type stubSource struct {
	id       string
	snapshot *sources.MarketSnapshot
	price    *sources.PriceSnapshot
}

func (s *stubSource) GetPrice(context.Context, string) (*sources.PriceSnapshot, error) {
	return s.price, nil
}

func (s *stubSource) GetHistoricalPrices(context.Context, string, time.Time, time.Time) ([]sources.PriceSnapshot, error) {
	return nil, nil
}

func (s *stubSource) GetIndicators(context.Context, string, []string) ([]sources.TechnicalIndicator, error) {
	return nil, nil
}

func (s *stubSource) GetMarketData(context.Context, string) (*sources.MarketSnapshot, error) {
	return s.snapshot, nil
}

func (s *stubSource) Search(context.Context, string) ([]sources.SearchResult, error) {
	return nil, nil
}

func (s *stubSource) SourceID() string { return s.id }
func (s *stubSource) Close() error     { return nil }

func newTestServer() *Server {
	ts := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	price := sources.PriceSnapshot{
		Symbol:    "BTC",
		Price:     decimal.NewFromFloat(50000),
		Timestamp: ts,
		Source:    "stub",
	}
	snapshot := &sources.MarketSnapshot{
		Symbol:    "BTC",
		Price:     price,
		Sentiment: sources.SignalBullish,
		Timestamp: ts,
		Source:    "stub",
	}

	agg := aggregator.NewFromSources([]sources.Source{
		&stubSource{id: "stub", snapshot: snapshot, price: &price},
	}, time.Second, logging.NewNoopLogger())

	return NewServer(":0", agg, logging.NewNoopLogger())
}

func TestHandleHealth(t *testing.T) {
	server := newTestServer()
	rec := httptest.NewRecorder()

	server.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "OK" {
		t.Errorf("body = %q, want OK", rec.Body.String())
	}
}

func TestHandleCrypto(t *testing.T) {
	server := newTestServer()
	rec := httptest.NewRecorder()

	server.handleCrypto(rec, httptest.NewRequest(http.MethodGet, "/v1/crypto?symbol=btc-usd", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var record aggregator.CryptoRecord
	if err := json.NewDecoder(rec.Body).Decode(&record); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if record.Symbol != "BTC" {
		t.Errorf("symbol = %s, want BTC", record.Symbol)
	}
	if len(record.Snapshots) != 1 {
		t.Errorf("snapshots = %d, want 1", len(record.Snapshots))
	}
}

func TestHandleCryptoMissingSymbol(t *testing.T) {
	server := newTestServer()
	rec := httptest.NewRecorder()

	server.handleCrypto(rec, httptest.NewRequest(http.MethodGet, "/v1/crypto", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleCryptoNotFound(t *testing.T) {
	agg := aggregator.NewFromSources([]sources.Source{
		&stubSource{id: "empty"},
	}, time.Second, logging.NewNoopLogger())
	server := NewServer(":0", agg, logging.NewNoopLogger())
	rec := httptest.NewRecorder()

	server.handleCrypto(rec, httptest.NewRequest(http.MethodGet, "/v1/crypto?symbol=BTC", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandlePrices(t *testing.T) {
	server := newTestServer()
	rec := httptest.NewRecorder()

	server.handlePrices(rec, httptest.NewRequest(http.MethodGet, "/v1/prices?symbol=BTC", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var prices []sources.PriceSnapshot
	if err := json.NewDecoder(rec.Body).Decode(&prices); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(prices) != 1 || prices[0].Source != "stub" {
		t.Errorf("prices = %+v, want one stub quote", prices)
	}
}

func TestHandleHistoryRejectsBadDays(t *testing.T) {
	server := newTestServer()

	for _, days := range []string{"0", "-5", "9999", "abc"} {
		rec := httptest.NewRecorder()
		server.handleHistory(rec, httptest.NewRequest(http.MethodGet, "/v1/history?symbol=BTC&days="+days, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("days=%s status = %d, want 400", days, rec.Code)
		}
	}
}

func TestHandleSearch(t *testing.T) {
	server := newTestServer()
	rec := httptest.NewRecorder()

	server.handleSearch(rec, httptest.NewRequest(http.MethodGet, "/v1/search?q=bitcoin", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var results map[string][]sources.SearchResult
	if err := json.NewDecoder(rec.Body).Decode(&results); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if _, ok := results["stub"]; !ok {
		t.Errorf("results = %+v, want stub key present", results)
	}
}

func TestHandleSignal(t *testing.T) {
	server := newTestServer()
	rec := httptest.NewRecorder()

	server.handleSignal(rec, httptest.NewRequest(http.MethodGet, "/v1/signal?symbol=BTC&rationale=strong+buy", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		Type   string `json:"type"`
		Origin string `json:"origin"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if payload.Type != "strong_buy" {
		t.Errorf("type = %s, want strong_buy", payload.Type)
	}
	if payload.Origin != "AI_Agent" {
		t.Errorf("origin = %s, want AI_Agent", payload.Origin)
	}
}

func TestHandleSources(t *testing.T) {
	server := newTestServer()
	rec := httptest.NewRecorder()

	server.handleSources(rec, httptest.NewRequest(http.MethodGet, "/v1/sources", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var payload map[string][]string
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(payload["sources"]) != 1 || payload["sources"][0] != "stub" {
		t.Errorf("sources = %+v, want [stub]", payload["sources"])
	}
}

// Package api provides the HTTP API endpoints for the market data service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"tc.com/crypto-intel/pkg/aggregator"
	"tc.com/crypto-intel/pkg/logging"
	"tc.com/crypto-intel/pkg/metrics"
	"tc.com/crypto-intel/pkg/signal"
)

const requestTimeout = 30 * time.Second

// Server represents the HTTP API server.
type Server struct {
	addr       string
	aggregator *aggregator.Aggregator
	server     *http.Server
	logger     *logging.Logger
}

// NewServer creates a new HTTP API server.
func NewServer(addr string, agg *aggregator.Aggregator, logger *logging.Logger) *Server {
	return &Server{
		addr:       addr,
		aggregator: agg,
		logger:     logger,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/crypto", s.handleCrypto)
	mux.HandleFunc("/v1/prices", s.handlePrices)
	mux.HandleFunc("/v1/history", s.handleHistory)
	mux.HandleFunc("/v1/search", s.handleSearch)
	mux.HandleFunc("/v1/signal", s.handleSignal)
	mux.HandleFunc("/v1/sources", s.handleSources)

	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("Starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		s.logger.Info("Stopping HTTP server")
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleHealth handles /health endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	defer func() {
		metrics.RecordHTTPRequest("/health", "200", time.Since(start))
	}()

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleCrypto handles /v1/crypto?symbol=BTC, returning the full merged
// record.
func (s *Server) handleCrypto(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "200"
	defer func() {
		metrics.RecordHTTPRequest(r.URL.Path, status, time.Since(start))
	}()

	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		status = "400"
		http.Error(w, "Missing symbol parameter", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	record, err := s.aggregator.FetchCryptoData(ctx, symbol)
	if err != nil {
		status = "400"
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if record == nil {
		status = "404"
		http.Error(w, "No data available for symbol", http.StatusNotFound)
		return
	}

	s.sendJSON(w, record)
}

// handlePrices handles /v1/prices?symbol=BTC, returning per-provider
// quotes.
func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "200"
	defer func() {
		metrics.RecordHTTPRequest(r.URL.Path, status, time.Since(start))
	}()

	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		status = "400"
		http.Error(w, "Missing symbol parameter", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	prices, err := s.aggregator.FetchPriceData(ctx, symbol)
	if err != nil {
		status = "400"
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(prices) == 0 {
		status = "404"
		http.Error(w, "No prices available for symbol", http.StatusNotFound)
		return
	}

	s.sendJSON(w, prices)
}

// handleHistory handles /v1/history?symbol=BTC&days=30, returning the
// combined ascending price history.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "200"
	defer func() {
		metrics.RecordHTTPRequest(r.URL.Path, status, time.Since(start))
	}()

	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		status = "400"
		http.Error(w, "Missing symbol parameter", http.StatusBadRequest)
		return
	}

	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &days); err != nil || days <= 0 || days > 365 {
			status = "400"
			http.Error(w, "Invalid days parameter", http.StatusBadRequest)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	end := time.Now().UTC()
	history, err := s.aggregator.FetchHistoricalData(ctx, symbol, end.AddDate(0, 0, -days), end)
	if err != nil {
		status = "400"
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.sendJSON(w, history)
}

// handleSearch handles /v1/search?q=bitcoin, returning per-provider
// result lists.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "200"
	defer func() {
		metrics.RecordHTTPRequest(r.URL.Path, status, time.Since(start))
	}()

	query := r.URL.Query().Get("q")
	if query == "" {
		status = "400"
		http.Error(w, "Missing q parameter", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	results, err := s.aggregator.Search(ctx, query)
	if err != nil {
		status = "500"
		http.Error(w, "Search failed", http.StatusInternalServerError)
		return
	}

	s.sendJSON(w, results)
}

// handleSignal handles /v1/signal?symbol=BTC&rationale=..., classifying
// the merged record with the supplied commentary.
func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "200"
	defer func() {
		metrics.RecordHTTPRequest(r.URL.Path, status, time.Since(start))
	}()

	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		status = "400"
		http.Error(w, "Missing symbol parameter", http.StatusBadRequest)
		return
	}
	rationale := r.URL.Query().Get("rationale")

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	record, err := s.aggregator.FetchCryptoData(ctx, symbol)
	if err != nil {
		status = "400"
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if record == nil {
		status = "404"
		http.Error(w, "No data available for symbol", http.StatusNotFound)
		return
	}

	s.sendJSON(w, signal.Classify(record, rationale))
}

// handleSources handles /v1/sources, listing active provider identifiers.
func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		metrics.RecordHTTPRequest(r.URL.Path, "200", time.Since(start))
	}()

	s.sendJSON(w, map[string][]string{"sources": s.aggregator.AvailableSources()})
}

// sendJSON sends a JSON response.
func (s *Server) sendJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}

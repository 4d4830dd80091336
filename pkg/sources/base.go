package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"tc.com/crypto-intel/pkg/logging"
	"tc.com/crypto-intel/pkg/metrics"
)

const defaultHTTPTimeout = 10 * time.Second

// BaseSource provides the plumbing shared by all provider adapters:
// one long-lived HTTP client, auth header injection, symbol translation,
// and idempotent shutdown. Adapters embed it and keep only their
// provider-specific request shaping and parsing.
type BaseSource struct {
	id        string
	baseURL   string
	headers   map[string]string
	symbols   map[string]string // canonical symbol -> provider-specific identifier; nil means identity
	client    *http.Client
	logger    *logging.Logger
	closeOnce sync.Once
}

// NewBaseSource creates the shared adapter core.
// symbols may be nil for providers that accept canonical symbols directly.
func NewBaseSource(id, baseURL string, headers map[string]string, symbols map[string]string, logger *logging.Logger) *BaseSource {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &BaseSource{
		id:      id,
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: headers,
		symbols: symbols,
		client: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
		logger: logger,
	}
}

// SourceID returns the stable provider identifier.
func (b *BaseSource) SourceID() string {
	return b.id
}

// Logger returns the adapter logger.
func (b *BaseSource) Logger() *logging.Logger {
	return b.logger
}

// BaseURL returns the provider endpoint root.
func (b *BaseSource) BaseURL() string {
	return b.baseURL
}

// ProviderSymbol translates a raw symbol to the provider-specific
// identifier. The input is normalized first so every adapter resolves
// "btc-usd", "BTC_USD" and "BTC" identically. The second return is false
// when the provider has no mapping for the symbol; adapters must then
// return absent/empty rather than guessing.
func (b *BaseSource) ProviderSymbol(symbol string) (string, bool) {
	canonical := NormalizeSymbol(symbol)
	if canonical == "" {
		return "", false
	}
	if b.symbols == nil {
		return canonical, true
	}
	providerID, ok := b.symbols[canonical]
	return providerID, ok
}

// GetJSON performs an authenticated GET against the provider and decodes
// the JSON response into out. Non-200 statuses and malformed bodies are
// returned as errors; adapters convert them to absent results at the
// contract boundary.
func (b *BaseSource) GetJSON(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	reqURL := b.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return b.do(req, endpoint, out)
}

// PostJSON performs an authenticated POST with a JSON body and decodes
// the JSON response into out.
func (b *BaseSource) PostJSON(ctx context.Context, endpoint string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+endpoint, strings.NewReader(string(payload)))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return b.do(req, endpoint, out)
}

func (b *BaseSource) do(req *http.Request, endpoint string, out interface{}) error {
	for key, value := range b.headers {
		req.Header.Set(key, value)
	}

	metrics.RecordProviderRequest(b.id, endpoint)

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s", ErrRateLimitExceeded, endpoint)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d on %s", ErrUnexpectedStatus, resp.StatusCode, endpoint)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidResponse, endpoint, err)
	}

	return nil
}

// LogAbsent emits the diagnostic entry for a recovered provider failure.
// "No data" and transport failures are identical at the contract level
// but distinguished here by log verbosity.
func (b *BaseSource) LogAbsent(operation, symbol string, err error) {
	if err != nil {
		b.logger.Error("Provider request failed",
			"source", b.id,
			"operation", operation,
			"symbol", symbol,
			"error", err.Error())
	} else {
		b.logger.Debug("No data from provider",
			"source", b.id,
			"operation", operation,
			"symbol", symbol)
	}
	metrics.RecordProviderFailure(b.id, operation)
}

// Close releases the adapter's network resources. Idempotent.
func (b *BaseSource) Close() error {
	b.closeOnce.Do(func() {
		b.client.CloseIdleConnections()
		b.logger.Debug("Closed source", "source", b.id)
	})
	return nil
}

// Now returns the current UTC timestamp used to stamp snapshots.
func Now() time.Time {
	return time.Now().UTC()
}

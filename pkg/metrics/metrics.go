// Package metrics provides Prometheus metrics for the aggregation system.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ProviderRequestsTotal is a counter of requests issued to providers.
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_requests_total",
			Help: "Total number of requests issued to data providers",
		},
		[]string{"provider", "operation"},
	)

	// ProviderFailuresTotal is a counter of failed provider requests.
	ProviderFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_failures_total",
			Help: "Total number of provider requests that failed or returned no data",
		},
		[]string{"provider", "operation"},
	)

	// ProviderHealth is a gauge of the last observed provider outcome.
	ProviderHealth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "provider_health",
			Help: "Last observed provider outcome (1=usable data, 0=failure or empty)",
		},
		[]string{"provider"},
	)

	// AggregationDuration is a histogram of full fan-out aggregation duration.
	AggregationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aggregation_duration_seconds",
			Help:    "Duration of fan-out aggregation calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// IndicatorDedupDropsTotal is a counter of indicators discarded during merge.
	IndicatorDedupDropsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indicator_dedup_drops_total",
			Help: "Total number of indicator entries superseded during deduplication",
		},
		[]string{"indicator"},
	)

	// SentimentFusionsTotal is a counter of fused sentiment outcomes.
	SentimentFusionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentiment_fusions_total",
			Help: "Total number of sentiment fusion results by label",
		},
		[]string{"label"},
	)

	// HTTPRequestsTotal is a counter of total HTTP API requests.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"endpoint", "status"},
	)

	// HTTPRequestDuration is a histogram of HTTP API request latencies.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"endpoint"},
	)
)

// Init initializes Prometheus metrics registry.
func Init() {
	prometheus.MustRegister(
		ProviderRequestsTotal,
		ProviderFailuresTotal,
		ProviderHealth,
		AggregationDuration,
		IndicatorDedupDropsTotal,
		SentimentFusionsTotal,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	)
}

// ServeHTTP serves Prometheus metrics on the specified address.
func ServeHTTP(addr string) error {
	http.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:         addr,
		Handler:      http.DefaultServeMux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server.ListenAndServe()
}

// RecordProviderRequest records a request issued to a provider.
func RecordProviderRequest(provider, operation string) {
	ProviderRequestsTotal.WithLabelValues(provider, operation).Inc()
}

// RecordProviderFailure records a provider request that yielded no usable data.
func RecordProviderFailure(provider, operation string) {
	ProviderFailuresTotal.WithLabelValues(provider, operation).Inc()
	ProviderHealth.WithLabelValues(provider).Set(0)
}

// RecordProviderSuccess records a provider request that yielded usable data.
func RecordProviderSuccess(provider string) {
	ProviderHealth.WithLabelValues(provider).Set(1)
}

// RecordAggregation records a completed fan-out aggregation.
func RecordAggregation(operation string, duration time.Duration) {
	AggregationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordIndicatorDedupDrop records an indicator entry superseded during merge.
func RecordIndicatorDedupDrop(indicator string) {
	IndicatorDedupDropsTotal.WithLabelValues(indicator).Inc()
}

// RecordSentimentFusion records the label produced by sentiment fusion.
func RecordSentimentFusion(label string) {
	SentimentFusionsTotal.WithLabelValues(label).Inc()
}

// RecordHTTPRequest records an HTTP API request.
func RecordHTTPRequest(endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

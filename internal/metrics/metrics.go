// Package metrics holds the Prometheus collectors updated by the adapters and
// the aggregation pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Provider error reasons.
const (
	ReasonMissingCredential = "missing_credential"
	ReasonTransport         = "transport"
	ReasonStatus            = "status"
	ReasonDecode            = "decode"
	ReasonProviderError     = "provider_error"
	ReasonNotFound          = "not_found"
)

var (
	// ItemsFetched counts normalized items returned per source kind.
	ItemsFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "packfeed_items_fetched_total",
		Help: "Number of content items produced by each adapter.",
	}, []string{"source"})

	// ProviderErrors counts faults absorbed at the adapter boundary.
	ProviderErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "packfeed_provider_errors_total",
		Help: "Number of provider faults converted into empty results.",
	}, []string{"source", "reason"})

	// FetchDuration observes how long each aggregation stage took.
	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "packfeed_fetch_duration_seconds",
		Help:    "Duration of each adapter call made by the aggregation pipeline.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	// PipelineFailures counts aggregation requests that ended in a stage error.
	PipelineFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "packfeed_pipeline_failures_total",
		Help: "Number of aggregation requests that failed unexpectedly.",
	})

	// HTTPRequests counts requests served by the content API.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "packfeed_http_requests_total",
		Help: "Number of HTTP requests served, by route and status code.",
	}, []string{"route", "status"})
)

// ProviderError records one absorbed provider fault.
func ProviderError(source, reason string) {
	ProviderErrors.WithLabelValues(source, reason).Inc()
}

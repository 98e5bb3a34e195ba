package monitoring

import (
	"strconv"
	"time"

	"cohortcast/internal/core/domain"
	"cohortcast/pkg/circuitbreaker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cohortcast"

type PrometheusCollector struct {
	tokensIssued       *prometheus.CounterVec
	issueFailures      *prometheus.CounterVec
	validations        *prometheus.CounterVec
	vendorRequests     *prometheus.CounterVec
	vendorDuration     *prometheus.HistogramVec
	cacheLookups       *prometheus.CounterVec
	breakerState       prometheus.Gauge
	httpRequests       *prometheus.CounterVec
	httpRequestSeconds *prometheus.HistogramVec
}

// NewPrometheusCollector registers the service metrics with reg. Passing
// prometheus.DefaultRegisterer exposes them on the default /metrics handler.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)

	return &PrometheusCollector{
		tokensIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Participant credentials issued, by role",
		}, []string{"role"}),

		issueFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_issue_failures_total",
			Help:      "Rejected credential requests, by error code",
		}, []string{"code"}),

		validations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_validations_total",
			Help:      "Credential validations, by result",
		}, []string{"result"}),

		vendorRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vendor_requests_total",
			Help:      "Calls to the streaming platform REST API",
		}, []string{"operation", "status"}),

		vendorDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vendor_request_duration_seconds",
			Help:      "Latency of calls to the streaming platform REST API",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"operation"}),

		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recordings_cache_lookups_total",
			Help:      "Recordings list cache lookups, by result",
		}, []string{"result"}),

		breakerState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "vendor_circuit_breaker_state",
			Help:      "Vendor circuit breaker state (0 closed, 1 open, 2 half-open)",
		}),

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served",
		}, []string{"method", "route", "status"}),

		httpRequestSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (p *PrometheusCollector) RecordTokenIssued(role domain.Role) {
	p.tokensIssued.WithLabelValues(string(role)).Inc()
}

func (p *PrometheusCollector) RecordIssueFailure(code string) {
	p.issueFailures.WithLabelValues(code).Inc()
}

// RecordValidation counts a validation outcome: "valid", "expired" or "invalid".
func (p *PrometheusCollector) RecordValidation(result string) {
	p.validations.WithLabelValues(result).Inc()
}

// ObserveVendorRequest records one platform call. status 0 means the request
// never got a response.
func (p *PrometheusCollector) ObserveVendorRequest(operation string, status int, duration time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	p.vendorRequests.WithLabelValues(operation, label).Inc()
	p.vendorDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (p *PrometheusCollector) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.cacheLookups.WithLabelValues(result).Inc()
}

func (p *PrometheusCollector) SetBreakerState(state circuitbreaker.State) {
	p.breakerState.Set(float64(state))
}

func (p *PrometheusCollector) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpRequestSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// UnmatchedRoute is the label value used for requests that do not
// match the relay route, keeping cardinality bounded.
const UnmatchedRoute = "unmatched"

// Upstream call outcomes used as label values.
const (
	OutcomeSuccess        = "success"
	OutcomeHTTPError      = "http_error"
	OutcomeTransportError = "transport_error"
	OutcomeEmptyBody      = "empty_body"
)

// Metrics holds all Prometheus metrics for the relay.
type Metrics struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	activeRequests      prometheus.Gauge
	upstreamTotal       *prometheus.CounterVec
	upstreamDuration    *prometheus.HistogramVec
	displayNameStripped prometheus.Counter
	merchantIdentifier  prometheus.Gauge
	buildInfo           *prometheus.GaugeVec
	startTime           prometheus.Gauge
	registry            *prometheus.Registry
}

// NewMetrics creates a new Metrics instance backed by its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "applepay_relay"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of inbound HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Inbound HTTP request duration in seconds",
			Buckets: []float64{
				.005, .01, .025, .05, .1,
				.25, .5, 1, 2.5, 5, 10, 30,
			},
		},
		[]string{"method", "route", "status"},
	)

	m.activeRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_requests",
			Help:      "Number of inbound requests currently being served",
		},
	)

	m.upstreamTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help: "Total number of merchant validation calls " +
				"by outcome and upstream status",
		},
		[]string{"outcome", "status"},
	)

	m.upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Merchant validation call duration in seconds",
			Buckets: []float64{
				.05, .1, .25, .5, 1,
				2.5, 5, 10, 30, 60,
			},
		},
		[]string{"outcome"},
	)

	m.displayNameStripped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "display_name_stripped_total",
			Help: "Number of merchant sessions relayed with " +
				"displayName removed",
		},
	)

	m.merchantIdentifier = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "merchant_identifier_loaded",
			Help: "Whether a merchant identifier was extracted " +
				"from the certificate (1=yes, 0=no)",
		},
	)

	m.buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information for the relay",
		},
		[]string{"version", "commit", "build_time"},
	)

	m.startTime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "start_time_seconds",
			Help:      "Start time of the relay in unix seconds",
		},
	)

	m.registerCollectors()

	m.startTime.SetToCurrentTime()

	return m
}

func (m *Metrics) registerCollectors() {
	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.activeRequests,
		m.upstreamTotal,
		m.upstreamDuration,
		m.displayNameStripped,
		m.merchantIdentifier,
		m.buildInfo,
		m.startTime,
	)

	m.registry.MustRegister(collectors.NewGoCollector())
	m.registry.MustRegister(
		collectors.NewProcessCollector(
			collectors.ProcessCollectorOpts{},
		),
	)
}

// RecordRequest records a completed inbound request.
// The route parameter should be the matched route pattern, not the
// raw request path.
func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = UnmatchedRoute
	}
	statusStr := strconv.Itoa(status)

	m.requestsTotal.WithLabelValues(method, route, statusStr).Inc()
	m.requestDuration.WithLabelValues(method, route, statusStr).Observe(duration.Seconds())
}

// IncrementActiveRequests increments the active requests gauge.
func (m *Metrics) IncrementActiveRequests() {
	m.activeRequests.Inc()
}

// DecrementActiveRequests decrements the active requests gauge.
func (m *Metrics) DecrementActiveRequests() {
	m.activeRequests.Dec()
}

// RecordUpstream records one merchant validation call. A zero status
// means no HTTP response was received.
func (m *Metrics) RecordUpstream(outcome string, status int, duration time.Duration) {
	statusStr := "none"
	if status > 0 {
		statusStr = strconv.Itoa(status)
	}

	m.upstreamTotal.WithLabelValues(outcome, statusStr).Inc()
	m.upstreamDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordDisplayNameStripped counts a session relayed without displayName.
func (m *Metrics) RecordDisplayNameStripped() {
	m.displayNameStripped.Inc()
}

// SetMerchantIdentifierLoaded reports whether the merchant identifier
// could be extracted at startup.
func (m *Metrics) SetMerchantIdentifierLoaded(loaded bool) {
	value := 0.0
	if loaded {
		value = 1.0
	}
	m.merchantIdentifier.Set(value)
}

// SetBuildInfo sets the build information metric.
func (m *Metrics) SetBuildInfo(version, commit, buildTime string) {
	m.buildInfo.WithLabelValues(version, commit, buildTime).Set(1)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(
		m.registry,
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	)
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

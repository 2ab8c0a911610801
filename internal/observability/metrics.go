package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/token-service/internal/domain"
)

// Outcome labels.
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds the Prometheus collectors of one service instance.
type Metrics struct {
	registry *prometheus.Registry

	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Errors          *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec
	Issued          *prometheus.CounterVec
	WriteBacks      *prometheus.CounterVec
}

// NewMetrics creates the collectors on a private registry.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"path", "method", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method"}),
		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Failed HTTP requests by error code.",
		}, []string{"path", "method", "code"}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credential_cache_lookups_total",
			Help:      "Credential store lookups by kind and result.",
		}, []string{"kind", "result"}),
		Issued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credentials_issued_total",
			Help:      "Credentials signed on cache miss by kind and result.",
		}, []string{"kind", "result"}),
		WriteBacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credential_write_backs_total",
			Help:      "Background credential store writes by kind and result.",
		}, []string{"kind", "result"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordRequest counts a finished request.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError counts a request that ended in a domain error.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(path, method, code).Inc()
}

// RecordCacheLookup counts a store lookup outcome.
func (m *Metrics) RecordCacheLookup(kind domain.CredentialKind, result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(string(kind), result).Inc()
}

// RecordIssue counts a signing attempt.
func (m *Metrics) RecordIssue(kind domain.CredentialKind, result string) {
	if m == nil {
		return
	}
	m.Issued.WithLabelValues(string(kind), result).Inc()
}

// RecordWriteBack counts a background store write.
func (m *Metrics) RecordWriteBack(kind domain.CredentialKind, result string) {
	if m == nil {
		return
	}
	m.WriteBacks.WithLabelValues(string(kind), result).Inc()
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ContentReads       *prometheus.CounterVec
	ContentWrites      *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec
	DegradedServes     *prometheus.CounterVec
	AuditDropped       prometheus.Counter
	RequestDuration    *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return newWith(prometheus.DefaultRegisterer)
}

// NewForTesting registers on a private registry so parallel tests do not
// collide on duplicate metric names.
func NewForTesting() *Metrics {
	return newWith(prometheus.NewRegistry())
}

func newWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ContentReads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pitchroom_content_reads_total",
			Help: "Total document reads served, by logical path.",
		}, []string{"path"}),
		ContentWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pitchroom_content_writes_total",
			Help: "Total document writes accepted, by logical path.",
		}, []string{"path"}),
		ValidationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pitchroom_validation_failures_total",
			Help: "Schema validation failures, by logical path.",
		}, []string{"path"}),
		DegradedServes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pitchroom_content_degraded_serves_total",
			Help: "Documents served unvalidated under the permissive policy.",
		}, []string{"path"}),
		AuditDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "pitchroom_audit_events_dropped_total",
			Help: "Audit events dropped because the buffer was full.",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pitchroom_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

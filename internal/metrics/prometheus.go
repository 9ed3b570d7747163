package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bachelorbari"

// PrometheusRecorder exports metrics through a dedicated registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	registrations   *prometheus.CounterVec
	logins          *prometheus.CounterVec
	tokensMinted    prometheus.Counter
	authCache       *prometheus.CounterVec
	auditPublished  *prometheus.CounterVec
	auditProcessed  *prometheus.CounterVec
	auditBatchSize  prometheus.Histogram
	auditQueueDepth prometheus.Gauge
	requestDuration *prometheus.HistogramVec
}

// NewPrometheus creates a recorder with Go runtime and process collectors.
func NewPrometheus() *PrometheusRecorder {
	reg := prometheus.NewRegistry()

	p := &PrometheusRecorder{
		registry: reg,
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Registration attempts by outcome.",
		}, []string{"status"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"status"}),
		tokensMinted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_minted_total",
			Help:      "Bearer tokens issued.",
		}),
		authCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_cache_lookups_total",
			Help:      "Bearer auth cache lookups by result.",
		}, []string{"result"}),
		auditPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_events_published_total",
			Help:      "Activity records appended to the audit stream.",
		}, []string{"status"}),
		auditProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_events_processed_total",
			Help:      "Activity records handled by the audit worker.",
		}, []string{"status"}),
		auditBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "audit_batch_size",
			Help:      "Records per audit worker batch.",
			Buckets:   []float64{1, 5, 10, 50, 100, 500},
		}),
		auditQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "audit_queue_depth",
			Help:      "Pending plus undelivered audit stream entries.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.registrations,
		p.logins,
		p.tokensMinted,
		p.authCache,
		p.auditPublished,
		p.auditProcessed,
		p.auditBatchSize,
		p.auditQueueDepth,
		p.requestDuration,
	)

	return p
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Registry returns the underlying registry.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusRecorder) IncRegistration(status string) {
	p.registrations.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) IncLogin(status string) {
	p.logins.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) IncTokenMinted() {
	p.tokensMinted.Inc()
}

func (p *PrometheusRecorder) IncAuthCacheHit() {
	p.authCache.WithLabelValues("hit").Inc()
}

func (p *PrometheusRecorder) IncAuthCacheMiss() {
	p.authCache.WithLabelValues("miss").Inc()
}

func (p *PrometheusRecorder) IncAuditEventPublished(status string) {
	p.auditPublished.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) IncAuditEventProcessed(status string) {
	p.auditProcessed.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) ObserveAuditBatchSize(size int) {
	p.auditBatchSize.Observe(float64(size))
}

func (p *PrometheusRecorder) SetAuditQueueDepth(depth int64) {
	p.auditQueueDepth.Set(float64(depth))
}

func (p *PrometheusRecorder) ObserveRequestDuration(method string, status int, duration time.Duration) {
	p.requestDuration.WithLabelValues(method, strconv.Itoa(status)).Observe(duration.Seconds())
}

// Package metrics provides Prometheus instrumentation for the storefront API and the
// settlement worker.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gamevault-settlement/internal/domain/shared"
)

const namespace = "gamevault"

// Metrics holds every collector registered by the service
type Metrics struct {
	gatherer prometheus.Gatherer

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	retriesTotal      *prometheus.CounterVec
	purchasesTotal    *prometheus.CounterVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	outboxPublishedTotal *prometheus.CounterVec
	callbacksTotal       *prometheus.CounterVec
	topUpsExpiredTotal   prometheus.Counter
}

// New registers the service collectors, plus the Go runtime and process collectors, on reg
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &Metrics{
		gatherer: reg,
		operationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "operations_total",
			Help:      "Settlement operations partitioned by operation and result code.",
		}, []string{"operation", "result"}),
		operationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "operation_duration_seconds",
			Help:      "Settlement operation latency in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
		retriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "retries_total",
			Help:      "Units of work retried after lock contention.",
		}, []string{"operation"}),
		purchasesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "purchases_total",
			Help:      "Purchases partitioned by result code.",
		}, []string{"result"}),
		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests partitioned by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"method", "route"}),
		outboxPublishedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "published_total",
			Help:      "Outbox messages projected to the read store partitioned by result.",
		}, []string{"result"}),
		callbacksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "topup",
			Name:      "callbacks_total",
			Help:      "Gateway results consumed by the worker partitioned by result code.",
		}, []string{"result"}),
		topUpsExpiredTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "topup",
			Name:      "expired_total",
			Help:      "Pending top-ups moved to EXPIRED by the sweeper.",
		}),
	}
}

// ObserveOperation records a finished settlement operation
func (m *Metrics) ObserveOperation(operation string, err error, elapsed time.Duration) {
	result := shared.ErrorCode(err)
	m.operationsTotal.WithLabelValues(operation, result).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
	if operation == "purchase" {
		m.purchasesTotal.WithLabelValues(result).Inc()
	}
}

// ObserveRetry records a contention retry
func (m *Metrics) ObserveRetry(operation string) {
	m.retriesTotal.WithLabelValues(operation).Inc()
}

// ObserveHTTPRequest records a served request. route is the matched pattern, not the raw path.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveOutboxPublish records one projection attempt
func (m *Metrics) ObserveOutboxPublish(err error) {
	if err != nil {
		m.outboxPublishedTotal.WithLabelValues("error").Inc()
		return
	}
	m.outboxPublishedTotal.WithLabelValues("ok").Inc()
}

// ObserveCallback records one consumed gateway result
func (m *Metrics) ObserveCallback(err error) {
	m.callbacksTotal.WithLabelValues(shared.ErrorCode(err)).Inc()
}

// ObserveExpired records top-ups moved to EXPIRED
func (m *Metrics) ObserveExpired(n int64) {
	m.topUpsExpiredTotal.Add(float64(n))
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

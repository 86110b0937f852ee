// Package metrics exposes Prometheus instrumentation for the catalog server.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "brickcat"

var (
	registerOnce sync.Once

	connectionsAccepted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "connections_total",
			Help:      "Connections accepted by the query server.",
		},
	)
	connectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "connections_active",
			Help:      "Connections currently served by a handler.",
		},
	)
	connectionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "connection_errors_total",
			Help:      "Handlers that ended on a transport or codec error.",
		},
		[]string{"reason"},
	)
	queries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "queries_total",
			Help:      "Queries answered, by query and outcome.",
		},
		[]string{"query", "outcome"},
	)
	queryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "query_duration_seconds",
			Help:      "Time from decoding a query to sending its last response.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"query"},
	)
	streamedKeys = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "streamed_keys_total",
			Help:      "Keys sent in response to enumeration queries.",
		},
		[]string{"kind"},
	)
	catalogRecords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "records",
			Help:      "Records held by the loaded catalog.",
		},
		[]string{"kind"},
	)
	catalogInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "info",
			Help:      "Always 1, labelled with the fingerprint of the loaded catalog.",
		},
		[]string{"fingerprint"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			connectionsAccepted,
			connectionsActive,
			connectionErrors,
			queries,
			queryDuration,
			streamedKeys,
			catalogRecords,
			catalogInfo,
		)
	})
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}

// ConnectionOpened records an accepted connection. The returned func marks it closed.
func ConnectionOpened() func() {
	RegisterMetrics()
	connectionsAccepted.Inc()
	connectionsActive.Inc()
	var once sync.Once
	return func() { once.Do(connectionsActive.Dec) }
}

func RecordConnectionError(reason string) {
	RegisterMetrics()
	connectionErrors.WithLabelValues(reason).Inc()
}

func RecordQuery(query, outcome string, duration time.Duration) {
	RegisterMetrics()
	queries.WithLabelValues(query, outcome).Inc()
	queryDuration.WithLabelValues(query).Observe(duration.Seconds())
}

func RecordStreamedKeys(kind string, n int) {
	RegisterMetrics()
	streamedKeys.WithLabelValues(kind).Add(float64(n))
}

// SetCatalog publishes the size and fingerprint of the served catalog.
func SetCatalog(fingerprint string, parts, colors, elements int) {
	RegisterMetrics()
	catalogRecords.WithLabelValues("parts").Set(float64(parts))
	catalogRecords.WithLabelValues("colors").Set(float64(colors))
	catalogRecords.WithLabelValues("elements").Set(float64(elements))
	catalogInfo.Reset()
	catalogInfo.WithLabelValues(fingerprint).Set(1)
}

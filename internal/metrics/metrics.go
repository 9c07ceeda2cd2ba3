package metrics

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const MetricsSubsystem = "ledger"

// Metrics contains metrics exposed by the listing ledger.
type Metrics struct {
	// Number of ledger operations, labeled by operation and result.
	Operations metrics.Counter
	// Time spent inside a ledger operation, including external calls.
	OperationSeconds metrics.Histogram
	// Total value of completed sales.
	SalesVolume metrics.Counter
	// Total value paid out to sellers.
	Withdrawn metrics.Counter
	// Number of events published by the workers, labeled by type.
	EventsPublished metrics.Counter
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
func PrometheusMetrics(namespace string) *Metrics {
	return &Metrics{
		Operations: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "operations_total",
			Help:      "Number of ledger operations.",
		}, []string{"operation", "result"}),
		OperationSeconds: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "operation_seconds",
			Help:      "Duration of ledger operations.",
			Buckets:   stdprometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"operation"}),
		SalesVolume: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "sales_volume",
			Help:      "Sum of listing prices of completed purchases.",
		}, []string{}),
		Withdrawn: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "withdrawn_total",
			Help:      "Sum of proceeds paid out.",
		}, []string{}),
		EventsPublished: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "events_published_total",
			Help:      "Number of events handed to publishers.",
		}, []string{"type"}),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Operations:       discard.NewCounter(),
		OperationSeconds: discard.NewHistogram(),
		SalesVolume:      discard.NewCounter(),
		Withdrawn:        discard.NewCounter(),
		EventsPublished:  discard.NewCounter(),
	}
}

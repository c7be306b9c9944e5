package light

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"

	prometheus "github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "light"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of accepted client messages.
	Updates metrics.Counter
	// Number of rejected client messages, by error kind.
	Rejections metrics.Counter
	// Number of clients frozen for misbehaviour.
	FrozenClients metrics.Counter
	// Latest verified height of a client.
	LatestHeight metrics.Gauge
	// Time spent verifying a client message.
	VerificationSeconds metrics.Histogram
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
// Optionally, labels can be provided along with their values ("foo",
// "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	return &Metrics{
		Updates: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "updates",
			Help:      "Number of accepted client messages.",
		}, withLabels(labels, "client_type")).With(labelsAndValues...),
		Rejections: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "rejections",
			Help:      "Number of rejected client messages, by error kind.",
		}, withLabels(labels, "client_type", "kind")).With(labelsAndValues...),
		FrozenClients: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "frozen_clients",
			Help:      "Number of clients frozen for misbehaviour.",
		}, withLabels(labels, "client_type")).With(labelsAndValues...),
		LatestHeight: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "latest_height",
			Help:      "Latest verified revision height of a client.",
		}, withLabels(labels, "client_id")).With(labelsAndValues...),
		VerificationSeconds: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "verification_seconds",
			Help:      "Time spent verifying a client message.",
			Buckets:   stdprometheus.ExponentialBuckets(0.001, 4, 8),
		}, withLabels(labels, "client_type")).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Updates:             discard.NewCounter(),
		Rejections:          discard.NewCounter(),
		FrozenClients:       discard.NewCounter(),
		LatestHeight:        discard.NewGauge(),
		VerificationSeconds: discard.NewHistogram(),
	}
}

func withLabels(labels []string, extra ...string) []string {
	res := make([]string, 0, len(labels)+len(extra))
	return append(append(res, labels...), extra...)
}

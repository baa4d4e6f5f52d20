// Package observability provides the metrics and logger shared by the services.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "metar"

// Metrics holds the Prometheus counters and histograms for decoding and ingestion.
type Metrics struct {
	ReportsDecoded     *prometheus.CounterVec // labels: outcome={parsed,failed}
	DecodeDuration     prometheus.Histogram
	FailuresByExpected *prometheus.CounterVec // labels: label

	// Ingestion metrics.
	MessagesConsumed  prometheus.Counter
	MessagesPublished prometheus.Counter
	SinkErrors        *prometheus.CounterVec // labels: sink

	// Stations whose latest observation is older than the stale threshold.
	StaleStations prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ReportsDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_decoded_total",
			Help:      "Reports decoded, by outcome.",
		}, []string{"outcome"}),
		DecodeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decode_duration_seconds",
			Help:      "Time spent decoding a single report.",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
		FailuresByExpected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_failures_expected_total",
			Help:      "Labels expected at the failure offset of reports that did not decode.",
		}, []string{"label"}),
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Raw report messages received from the feed.",
		}),
		MessagesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_published_total",
			Help:      "Decoded reports published back to the feed.",
		}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Failures writing decoded reports, by sink.",
		}, []string{"sink"}),
		StaleStations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stale_stations",
			Help:      "Stations with no observation newer than the stale threshold.",
		}),
	}

	prometheus.MustRegister(
		m.ReportsDecoded,
		m.DecodeDuration,
		m.FailuresByExpected,
		m.MessagesConsumed,
		m.MessagesPublished,
		m.SinkErrors,
		m.StaleStations,
	)

	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so
// tests can build as many as they like.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ReportsDecoded:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "reports_decoded_total"}, []string{"outcome"}),
		DecodeDuration:     prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "decode_duration_seconds"}),
		FailuresByExpected: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "decode_failures_expected_total"}, []string{"label"}),
		MessagesConsumed:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "messages_consumed_total"}),
		MessagesPublished:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "messages_published_total"}),
		SinkErrors:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "sink_errors_total"}, []string{"sink"}),
		StaleStations:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "stale_stations"}),
	}
}

// ObserveDecode records the outcome of one decode. expected is the label set
// of a failure and is ignored when parsed is true.
func (m *Metrics) ObserveDecode(parsed bool, seconds float64, expected []string) {
	m.DecodeDuration.Observe(seconds)
	if parsed {
		m.ReportsDecoded.WithLabelValues("parsed").Inc()
		return
	}
	m.ReportsDecoded.WithLabelValues("failed").Inc()
	for _, label := range expected {
		m.FailuresByExpected.WithLabelValues(label).Inc()
	}
}

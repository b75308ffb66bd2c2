package objectstream

// Prometheus instrumentation for the writer/persister pipeline, wired the
// way progressdb-ProgressDB and marmos91/dittofs register their own
// subsystem metrics: a small struct of pre-created collectors, registered
// once against a caller-supplied registry.

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups the counters/gauges this module exposes. The zero value is
// not usable; construct with NewMetrics.
type Metrics struct {
	BytesWritten    prometheus.Counter
	MessagesWritten prometheus.Counter
	Dropped         prometheus.Counter
	QueueDepth      prometheus.Gauge
}

// NewMetrics creates and registers the collectors against reg. Passing a
// fresh prometheus.NewRegistry() per Writer is recommended for hosts that
// create multiple independent streams; passing prometheus.DefaultRegisterer
// is fine for a single-stream process.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objectstream_bytes_written_total",
			Help:      "Total bytes written to the sink.",
		}),
		MessagesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objectstream_messages_written_total",
			Help:      "Total top-level messages written.",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objectstream_dropped_total",
			Help:      "Total messages dropped due to backpressure.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "objectstream_queue_depth",
			Help:      "Current number of entries waiting in the writer's SPSC queue.",
		}),
	}
	reg.MustRegister(m.BytesWritten, m.MessagesWritten, m.Dropped, m.QueueDepth)
	return m
}

package importer

import (
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks import progress. All metrics use the firestore_import_
// prefix. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// DocumentsWritten counts documents committed to the sink.
	DocumentsWritten prometheus.Counter

	// BatchesCommitted counts batches by result ("ok", "error").
	BatchesCommitted *prometheus.CounterVec

	// CollectionsImported counts collections whose documents were all written.
	CollectionsImported prometheus.Counter

	// Duration is the wall time of the last Import call.
	Duration prometheus.Gauge

	// LastSuccess is the unix time of the last successful Import call.
	LastSuccess prometheus.Gauge
}

// NewMetrics creates import metrics on a private registry so a run can
// dump them to a textfile without pulling in the Go runtime collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		DocumentsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "firestore_import_documents_written_total",
			Help: "Total documents written to Firestore",
		}),
		BatchesCommitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "firestore_import_batches_total",
			Help: "Total write batches by result",
		}, []string{"result"}),
		CollectionsImported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "firestore_import_collections_total",
			Help: "Total collections fully written",
		}),
		Duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "firestore_import_duration_seconds",
			Help: "Duration of the last import in seconds",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "firestore_import_last_success_timestamp_seconds",
			Help: "Unix time of the last successful import",
		}),
	}

	m.registry.MustRegister(
		m.DocumentsWritten,
		m.BatchesCommitted,
		m.CollectionsImported,
		m.Duration,
		m.LastSuccess,
	)
	return m
}

// WriteTextfile writes the metrics in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.Wrapf(err, "writing metrics to %s", path)
	}
	return nil
}

func (m *Metrics) batch(n int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.BatchesCommitted.WithLabelValues("error").Inc()
		return
	}
	m.BatchesCommitted.WithLabelValues("ok").Inc()
	m.DocumentsWritten.Add(float64(n))
}

func (m *Metrics) collection() {
	if m == nil {
		return
	}
	m.CollectionsImported.Inc()
}

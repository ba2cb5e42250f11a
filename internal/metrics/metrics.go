// Package metrics records per-run pipeline metrics in a private Prometheus
// registry and writes them in the node_exporter textfile format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "crimelens"

// Run holds the collectors for one command invocation.
type Run struct {
	reg *prometheus.Registry

	rowsLoaded    prometheus.Counter
	rowsSkipped   prometheus.Counter
	stageSeconds  *prometheus.GaugeVec
	charts        prometheus.Counter
	filesUploaded *prometheus.CounterVec
	rowsUploaded  prometheus.Counter
	lastSuccess   prometheus.Gauge
}

// New builds a registry with every run collector registered.
func New() *Run {
	r := &Run{reg: prometheus.NewRegistry()}
	r.rowsLoaded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "rows_loaded_total",
		Help: "Incident rows kept after preprocessing.",
	})
	r.rowsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "rows_skipped_total",
		Help: "Rows dropped while loading or preprocessing.",
	})
	r.stageSeconds = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Name: "stage_duration_seconds",
		Help: "Wall time of each pipeline stage.",
	}, []string{"stage"})
	r.charts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "charts_rendered_total",
		Help: "Chart images written.",
	})
	r.filesUploaded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "files_uploaded_total",
		Help: "Files processed by the warehouse upload, by outcome.",
	}, []string{"status"})
	r.rowsUploaded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "rows_uploaded_total",
		Help: "Rows the warehouse reported loaded.",
	})
	r.lastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "last_success_timestamp_seconds",
		Help: "Unix time the run finished successfully.",
	})
	r.reg.MustRegister(r.rowsLoaded, r.rowsSkipped, r.stageSeconds, r.charts,
		r.filesUploaded, r.rowsUploaded, r.lastSuccess)
	return r
}

// Registry exposes the underlying registry.
func (r *Run) Registry() *prometheus.Registry { return r.reg }

// Rows records the kept and skipped row counts of a load.
func (r *Run) Rows(loaded, skipped int) {
	r.rowsLoaded.Add(float64(loaded))
	r.rowsSkipped.Add(float64(skipped))
}

// Stage starts timing a stage; call the returned func when it ends.
func (r *Run) Stage(name string) func() {
	start := time.Now()
	return func() {
		r.stageSeconds.WithLabelValues(name).Set(time.Since(start).Seconds())
	}
}

// Charts counts rendered chart images.
func (r *Run) Charts(n int) { r.charts.Add(float64(n)) }

// File records one upload outcome.
func (r *Run) File(rows int64, err error) {
	if err != nil {
		r.filesUploaded.WithLabelValues("failed").Inc()
		return
	}
	r.filesUploaded.WithLabelValues("loaded").Inc()
	r.rowsUploaded.Add(float64(rows))
}

// Done marks the run successful.
func (r *Run) Done() { r.lastSuccess.SetToCurrentTime() }

// WriteFile writes the registry to path. An empty path is a no-op.
func (r *Run) WriteFile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.reg)
}

// Package metrics holds the pipeline's Prometheus collectors. They register
// with the default registry on first use.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "member_import"

type collectors struct {
	previewTotal    *prometheus.CounterVec
	previewRows     *prometheus.CounterVec
	commitRows      *prometheus.CounterVec
	batchTotal      *prometheus.CounterVec
	commitLatency   *prometheus.HistogramVec
	activationTotal *prometheus.CounterVec
	emailTotal      *prometheus.CounterVec
}

var collectorsSingleton = sync.OnceValue(func() *collectors {
	return &collectors{
		previewTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "preview_total",
			Help:      "Total number of preview requests by result.",
		}, []string{"result"}),
		previewRows: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "preview_rows_total",
			Help:      "Total number of previewed rows by validity.",
		}, []string{"validity"}),
		commitRows: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commit_rows_total",
			Help:      "Total number of rows handled by commits, by outcome.",
		}, []string{"outcome"}),
		batchTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_total",
			Help:      "Total number of import batches that reached a terminal status.",
		}, []string{"status"}),
		commitLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "commit_duration_seconds",
			Help:      "Duration of import commits.",
			Buckets: []float64{
				0.05, 0.1, 0.25, 0.5,
				1, 2.5, 5, 10,
				30, 60, 120,
			},
		}, []string{"status"}),
		activationTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activation_total",
			Help:      "Total number of activation lifecycle events.",
		}, []string{"event"}),
		emailTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activation_email_requests_total",
			Help:      "Total number of activation email requests by result.",
		}, []string{"result"}),
	}
})

func get() *collectors {
	return collectorsSingleton()
}

func ObservePreview(result string) {
	get().previewTotal.WithLabelValues(result).Inc()
}

func ObservePreviewRows(valid, invalid int) {
	c := get()
	c.previewRows.WithLabelValues("valid").Add(float64(valid))
	c.previewRows.WithLabelValues("invalid").Add(float64(invalid))
}

// ObserveCommitRow outcome is one of success, failed, skipped, duplicate.
func ObserveCommitRow(outcome string) {
	get().commitRows.WithLabelValues(outcome).Inc()
}

func ObserveBatch(status string, elapsed time.Duration) {
	c := get()
	c.batchTotal.WithLabelValues(status).Inc()
	c.commitLatency.WithLabelValues(status).Observe(elapsed.Seconds())
}

func ObserveActivation(event string) {
	get().activationTotal.WithLabelValues(event).Inc()
}

func ObserveEmailRequest(result string) {
	get().emailTotal.WithLabelValues(result).Inc()
}

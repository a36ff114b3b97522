package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxPublisherMetrics counts what the publisher did with each claimed outbox row.
type OutboxPublisherMetrics struct {
	rows    *prometheus.CounterVec
	batches prometheus.Histogram
}

func NewOutboxPublisherMetrics(reg prometheus.Registerer) *OutboxPublisherMetrics {
	if reg == nil {
		return &OutboxPublisherMetrics{}
	}
	m := &OutboxPublisherMetrics{
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outbox_rows_total",
			Help: "Outbox rows handled by the publisher, by transport and outcome.",
		}, []string{"transport", "outcome"}),
		batches: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "outbox_batch_duration_seconds",
			Help:    "Wall time of publisher batches that claimed at least one row.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.rows, m.batches)
	return m
}

// ObserveBatch records one non-empty batch. counts maps outcome to rows.
func (m *OutboxPublisherMetrics) ObserveBatch(transport string, counts map[string]int, elapsed time.Duration) {
	if m == nil || m.rows == nil {
		return
	}
	transport = normalizeLabel(transport)
	for outcome, n := range counts {
		if n > 0 {
			m.rows.WithLabelValues(transport, normalizeLabel(outcome)).Add(float64(n))
		}
	}
	m.batches.Observe(elapsed.Seconds())
}

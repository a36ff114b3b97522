package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	pkgerrors "github.com/harvestlink/market-backend/pkg/errors"
)

// OrderLifecycleMetrics counts order operations by outcome and times them.
type OrderLifecycleMetrics struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewOrderLifecycleMetrics registers the order lifecycle collectors on reg.
func NewOrderLifecycleMetrics(reg prometheus.Registerer) *OrderLifecycleMetrics {
	if reg == nil {
		return &OrderLifecycleMetrics{}
	}
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_lifecycle_total",
		Help: "Order lifecycle operations by outcome.",
	}, []string{"operation", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orders_lifecycle_duration_seconds",
		Help:    "Latency of order lifecycle operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(total, duration)
	return &OrderLifecycleMetrics{total: total, duration: duration}
}

// ObserveOrderOperation records one call of operation. A nil err counts as success,
// otherwise the outcome is the lower-cased error code.
func (m *OrderLifecycleMetrics) ObserveOrderOperation(operation string, err error, elapsed time.Duration) {
	if m == nil || m.total == nil {
		return
	}
	operation = normalizeLabel(operation)
	m.total.WithLabelValues(operation, Outcome(err)).Inc()
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// Outcome maps err onto the outcome label.
func Outcome(err error) string {
	if err == nil {
		return "success"
	}
	if typed := pkgerrors.As(err); typed != nil {
		return strings.ToLower(string(typed.Code()))
	}
	return strings.ToLower(string(pkgerrors.CodeInternal))
}

package notify

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sandeepkv93/salahd/internal/model"
)

type Metrics struct {
	scheduled *prometheus.CounterVec
	cancelled *prometheus.CounterVec
	skipped   *prometheus.CounterVec
	failures  *prometheus.CounterVec
	delivered *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		scheduled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salahd",
			Subsystem: "notifications",
			Name:      "scheduled_total",
			Help:      "Notification events armed with the transport.",
		}, []string{"kind"}),
		cancelled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salahd",
			Subsystem: "notifications",
			Name:      "cancelled_total",
			Help:      "Notification events cancelled.",
		}, []string{"kind"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salahd",
			Subsystem: "notifications",
			Name:      "skipped_total",
			Help:      "Notification events skipped because their fire time had passed.",
		}, []string{"kind"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salahd",
			Subsystem: "notifications",
			Name:      "transport_failures_total",
			Help:      "Transport operations that failed.",
		}, []string{"op"}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salahd",
			Subsystem: "notifications",
			Name:      "delivered_total",
			Help:      "Fired notifications handed to a deliverer.",
		}, []string{"deliverer", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.scheduled, m.cancelled, m.skipped, m.failures, m.delivered)
	}
	return m
}

func (m *Metrics) incScheduled(k model.EventKind) {
	if m != nil {
		m.scheduled.WithLabelValues(string(k)).Inc()
	}
}

func (m *Metrics) incCancelled(k model.EventKind) {
	if m != nil {
		m.cancelled.WithLabelValues(string(k)).Inc()
	}
}

func (m *Metrics) incSkipped(k model.EventKind) {
	if m != nil {
		m.skipped.WithLabelValues(string(k)).Inc()
	}
}

func (m *Metrics) incFailure(op string) {
	if m != nil {
		m.failures.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) incDelivered(name string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.delivered.WithLabelValues(name, result).Inc()
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

// LifecycleMetrics counts order transitions, tracking fan-out failures and
// refund settlements.
type LifecycleMetrics struct {
	transitions       *prometheus.CounterVec
	rejected          *prometheus.CounterVec
	broadcastFailures *prometheus.CounterVec
	settlements       *prometheus.CounterVec
}

func NewLifecycleMetrics(reg prometheus.Registerer) *LifecycleMetrics {
	if reg == nil {
		return &LifecycleMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Applied order status transitions.",
	}, []string{"from", "to", "role"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_rejected_total",
		Help: "Order status transitions refused by the lifecycle rules.",
	}, []string{"to", "role"})
	broadcastFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracking_broadcast_failures_total",
		Help: "Tracking events that failed to reach a sink.",
	}, []string{"sink"})
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "refund_settlements_total",
		Help: "Refund settlement attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(transitions, rejected, broadcastFailures, settlements)
	return &LifecycleMetrics{
		transitions:       transitions,
		rejected:          rejected,
		broadcastFailures: broadcastFailures,
		settlements:       settlements,
	}
}

func (m *LifecycleMetrics) IncTransition(from, to, role string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to), normalizeLabel(role)).Inc()
}

func (m *LifecycleMetrics) IncRejectedTransition(to, role string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(to), normalizeLabel(role)).Inc()
}

func (m *LifecycleMetrics) IncBroadcastFailure(sink string) {
	if m == nil || m.broadcastFailures == nil {
		return
	}
	m.broadcastFailures.WithLabelValues(normalizeLabel(sink)).Inc()
}

// IncSettlement records a settlement outcome: completed or failed.
func (m *LifecycleMetrics) IncSettlement(outcome string) {
	if m == nil || m.settlements == nil {
		return
	}
	m.settlements.WithLabelValues(normalizeLabel(outcome)).Inc()
}

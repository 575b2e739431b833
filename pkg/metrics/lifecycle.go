package metrics

import "github.com/prometheus/client_golang/prometheus"

// LifecycleMetrics counts subscription transitions and push notifications.
type LifecycleMetrics struct {
	transitions   *prometheus.CounterVec
	notifications *prometheus.CounterVec
	denials       *prometheus.CounterVec
}

// NewLifecycleMetrics registers the lifecycle metrics on the provided registerer.
func NewLifecycleMetrics(reg prometheus.Registerer) *LifecycleMetrics {
	if reg == nil {
		return &LifecycleMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "subscription_transitions_total",
		Help: "Subscription transitions executed, by kind and outcome.",
	}, []string{"transition", "outcome"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "push_notifications_total",
		Help: "Push notifications received, by type and outcome.",
	}, []string{"type", "outcome"})
	denials := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "entitlement_denials_total",
		Help: "Operations refused by the entitlement policy.",
	}, []string{"operation"})
	reg.MustRegister(transitions, notifications, denials)
	return &LifecycleMetrics{
		transitions:   transitions,
		notifications: notifications,
		denials:       denials,
	}
}

// IncTransition counts one transition attempt.
func (l *LifecycleMetrics) IncTransition(transition, outcome string) {
	if l == nil || l.transitions == nil {
		return
	}
	l.transitions.WithLabelValues(normalizeLabel(transition), normalizeLabel(outcome)).Inc()
}

// IncNotification counts one push notification.
func (l *LifecycleMetrics) IncNotification(kind, outcome string) {
	if l == nil || l.notifications == nil {
		return
	}
	l.notifications.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

// IncDenial counts one refused operation.
func (l *LifecycleMetrics) IncDenial(operation string) {
	if l == nil || l.denials == nil {
		return
	}
	l.denials.WithLabelValues(normalizeLabel(operation)).Inc()
}

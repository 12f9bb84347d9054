package metrics

import "github.com/prometheus/client_golang/prometheus"

// DomainMetrics counts order-lifecycle and delivery outcomes.
type DomainMetrics struct {
	transitions    *prometheus.CounterVec
	reconciliation *prometheus.CounterVec
	liveDrops      prometheus.Counter
	pushFailures   prometheus.Counter
	outbox         *prometheus.CounterVec
}

// NewDomainMetrics registers the domain counters on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewDomainMetrics(reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		return &DomainMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Order status transitions by source and target status.",
	}, []string{"from", "to"})
	reconciliation := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_reconciliation_total",
		Help: "Payment reconciliation outcomes per registration.",
	}, []string{"outcome"})
	liveDrops := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "live_events_dropped_total",
		Help: "Live operator events dropped for slow subscribers.",
	})
	pushFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "push_failures_total",
		Help: "Device push deliveries that failed.",
	})
	outbox := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_total",
		Help: "Outbox publish attempts by result.",
	}, []string{"result"})
	reg.MustRegister(transitions, reconciliation, liveDrops, pushFailures, outbox)
	return &DomainMetrics{
		transitions:    transitions,
		reconciliation: reconciliation,
		liveDrops:      liveDrops,
		pushFailures:   pushFailures,
		outbox:         outbox,
	}
}

func (d *DomainMetrics) IncTransition(from, to string) {
	if d == nil || d.transitions == nil {
		return
	}
	d.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// IncReconciliation records one of settled, unmatched, abandoned, failed.
func (d *DomainMetrics) IncReconciliation(outcome string) {
	if d == nil || d.reconciliation == nil {
		return
	}
	d.reconciliation.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (d *DomainMetrics) IncLiveDrop() {
	if d == nil || d.liveDrops == nil {
		return
	}
	d.liveDrops.Inc()
}

func (d *DomainMetrics) IncPushFailure() {
	if d == nil || d.pushFailures == nil {
		return
	}
	d.pushFailures.Inc()
}

func (d *DomainMetrics) IncOutbox(result string) {
	if d == nil || d.outbox == nil {
		return
	}
	d.outbox.WithLabelValues(normalizeLabel(result)).Inc()
}

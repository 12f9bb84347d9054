package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestDomainMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDomainMetrics(reg)

	m.IncTransition("pending", "confirmed")
	m.IncTransition("pending", "confirmed")
	m.IncReconciliation("settled")
	m.IncOutbox("published")
	m.IncLiveDrop()
	m.IncPushFailure()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "order_transitions_total", "to", "confirmed"); err != nil || got != 2 {
		t.Fatalf("expected 2 transitions, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "payment_reconciliation_total", "outcome", "settled"); err != nil || got != 1 {
		t.Fatalf("expected 1 settled, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_publish_total", "result", "published"); err != nil || got != 1 {
		t.Fatalf("expected 1 published, got %f err=%v", got, err)
	}
	if mf := findMetricFamily(mfs, "live_events_dropped_total"); mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("expected one live drop")
	}
}

func TestNilDomainMetricsIsNoop(t *testing.T) {
	var m *DomainMetrics
	m.IncTransition("a", "b")
	m.IncReconciliation("x")
	m.IncLiveDrop()
	m.IncPushFailure()
	m.IncOutbox("y")

	NewDomainMetrics(nil).IncLiveDrop()
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gatherCounter(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if matchLabels(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func matchLabels(metric *dto.Metric, labels map[string]string) bool {
	seen := map[string]string{}
	for _, pair := range metric.GetLabel() {
		seen[pair.GetName()] = pair.GetValue()
	}
	for k, v := range labels {
		if seen[k] != v {
			return false
		}
	}
	return true
}

func TestFollowupMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewFollowupMetrics(reg)

	m.ObserveIngest("missed", "accepted")
	m.ObserveIngest("missed", "accepted")
	m.ObservePrompt("incoming")
	m.ObserveAction("send_whatsapp", "ok")
	m.ObserveDispatch("whatsapp", true, "ok")
	m.ObservePipelineLatency("send_whatsapp", 0.05)

	got := gatherCounter(t, reg, "clientcheck_callevents_ingested_total", map[string]string{
		"call_type": "missed", "outcome": "accepted",
	})
	if got != 2 {
		t.Fatalf("expected 2 ingested, got %v", got)
	}

	got = gatherCounter(t, reg, "clientcheck_notify_prompts_total", map[string]string{"call_type": "incoming"})
	if got != 1 {
		t.Fatalf("expected 1 prompt, got %v", got)
	}

	got = gatherCounter(t, reg, "clientcheck_dispatch_sends_total", map[string]string{
		"channel": "whatsapp", "fallback": "true", "status": "ok",
	})
	if got != 1 {
		t.Fatalf("expected 1 dispatch, got %v", got)
	}
}

func TestFollowupMetricsNilReceiver(t *testing.T) {
	var m *FollowupMetrics

	// Components treat metrics as optional; nil must be safe everywhere.
	m.ObserveIngest("missed", "accepted")
	m.ObservePrompt("incoming")
	m.ObserveAction("no_client", "ok")
	m.ObserveDispatch("sms", false, "error")
	m.ObservePipelineLatency("no_client", 0.01)
}

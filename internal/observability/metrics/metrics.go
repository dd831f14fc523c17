package metrics

import "github.com/prometheus/client_golang/prometheus"

// FollowupMetrics exposes counters/histograms for the call follow-up flows.
type FollowupMetrics struct {
	callsIngested   *prometheus.CounterVec
	promptsShown    *prometheus.CounterVec
	actionsHandled  *prometheus.CounterVec
	dispatchTotal   *prometheus.CounterVec
	pipelineLatency *prometheus.HistogramVec
}

func NewFollowupMetrics(reg prometheus.Registerer) *FollowupMetrics {
	m := &FollowupMetrics{
		callsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clientcheck",
			Subsystem: "callevents",
			Name:      "ingested_total",
			Help:      "Total raw call records received, by outcome",
		}, []string{"call_type", "outcome"}),
		promptsShown: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clientcheck",
			Subsystem: "notify",
			Name:      "prompts_total",
			Help:      "Total decision prompts displayed, by call type",
		}, []string{"call_type"}),
		actionsHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clientcheck",
			Subsystem: "followup",
			Name:      "actions_total",
			Help:      "Total notification action events processed",
		}, []string{"action", "status"}),
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clientcheck",
			Subsystem: "dispatch",
			Name:      "sends_total",
			Help:      "Total outbound channel invocations",
		}, []string{"channel", "fallback", "status"}),
		pipelineLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clientcheck",
			Subsystem: "followup",
			Name:      "pipeline_latency_seconds",
			Help:      "Latency of background action pipeline runs",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.callsIngested, m.promptsShown, m.actionsHandled, m.dispatchTotal, m.pipelineLatency)
	return m
}

func (m *FollowupMetrics) ObserveIngest(callType, outcome string) {
	if m == nil {
		return
	}
	m.callsIngested.WithLabelValues(callType, outcome).Inc()
}

func (m *FollowupMetrics) ObservePrompt(callType string) {
	if m == nil {
		return
	}
	m.promptsShown.WithLabelValues(callType).Inc()
}

func (m *FollowupMetrics) ObserveAction(action, status string) {
	if m == nil {
		return
	}
	m.actionsHandled.WithLabelValues(action, status).Inc()
}

func (m *FollowupMetrics) ObserveDispatch(channel string, fallback bool, status string) {
	if m == nil {
		return
	}
	label := "false"
	if fallback {
		label = "true"
	}
	m.dispatchTotal.WithLabelValues(channel, label, status).Inc()
}

func (m *FollowupMetrics) ObservePipelineLatency(action string, seconds float64) {
	if m == nil {
		return
	}
	m.pipelineLatency.WithLabelValues(action).Observe(seconds)
}

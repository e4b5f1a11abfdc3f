package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics exposes counters/histograms for the inbound-message
// orchestration pipeline. All methods are nil-safe so components can run
// without a registry in tests.
type PipelineMetrics struct {
	inboundTotal  *prometheus.CounterVec
	turnOutcomes  *prometheus.CounterVec
	turnLatency   *prometheus.HistogramVec
	toolCalls     *prometheus.CounterVec
	outboundTotal *prometheus.CounterVec
	calendarJobs  *prometheus.CounterVec
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zapai",
			Subsystem: "gateway",
			Name:      "inbound_webhook_total",
			Help:      "Total inbound provider webhooks",
		}, []string{"event_type", "status"}),
		turnOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zapai",
			Subsystem: "engine",
			Name:      "turn_outcomes_total",
			Help:      "Conversation turn outcomes (processed, skipped, no_reply)",
		}, []string{"outcome"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "zapai",
			Subsystem: "engine",
			Name:      "turn_duration_seconds",
			Help:      "Duration of conversation turns including the quiet window",
			Buckets:   []float64{1, 5, 10, 12, 15, 20, 30, 60},
		}, []string{"outcome"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zapai",
			Subsystem: "engine",
			Name:      "tool_calls_total",
			Help:      "Tool invocations requested by the model",
		}, []string{"tool", "status"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zapai",
			Subsystem: "outbound",
			Name:      "sends_total",
			Help:      "Outbound provider send attempts",
		}, []string{"status"}),
		calendarJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zapai",
			Subsystem: "calendar",
			Name:      "sync_jobs_total",
			Help:      "Calendar sync jobs by terminal status",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.turnOutcomes, m.turnLatency, m.toolCalls, m.outboundTotal, m.calendarJobs)
	return m
}

func (m *PipelineMetrics) ObserveInbound(eventType, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(eventType, status).Inc()
}

func (m *PipelineMetrics) ObserveTurn(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.turnOutcomes.WithLabelValues(outcome).Inc()
	m.turnLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *PipelineMetrics) ObserveToolCall(tool, status string) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, status).Inc()
}

func (m *PipelineMetrics) ObserveOutbound(status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(status).Inc()
}

func (m *PipelineMetrics) ObserveCalendarJob(status string) {
	if m == nil {
		return
	}
	m.calendarJobs.WithLabelValues(status).Inc()
}

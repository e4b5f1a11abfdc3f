package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPipelineMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPipelineMetrics(reg)
	m.ObserveInbound("messages.upsert", "ok")
	m.ObserveInbound("messages.upsert", "ok")
	m.ObserveTurn("processed", 11.2)
	m.ObserveToolCall("create_appointment", "ok")
	m.ObserveOutbound("sent")
	m.ObserveCalendarJob("dead_letter")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if got := counterValue(families, "zapai_gateway_inbound_webhook_total"); got != 2 {
		t.Fatalf("expected 2 inbound webhooks, got %v", got)
	}
	if got := counterValue(families, "zapai_engine_turn_outcomes_total"); got != 1 {
		t.Fatalf("expected 1 turn outcome, got %v", got)
	}
	if got := counterValue(families, "zapai_engine_tool_calls_total"); got != 1 {
		t.Fatalf("expected 1 tool call, got %v", got)
	}
}

func TestPipelineMetricsNilSafe(t *testing.T) {
	var m *PipelineMetrics
	m.ObserveInbound("event", "status")
	m.ObserveTurn("skipped", 10.0)
	m.ObserveToolCall("list_services", "error")
	m.ObserveOutbound("failed")
	m.ObserveCalendarJob("retried")
}

func counterValue(families []*dto.MetricFamily, name string) float64 {
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		var total float64
		for _, metric := range mf.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
		return total
	}
	return -1
}

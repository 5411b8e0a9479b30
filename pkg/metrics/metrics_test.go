package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewManagerRegistersOnCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewManager(
		WithNamespace("testns"),
		WithSubsystem("testsub"),
		WithPrometheusRegistry(reg),
	)
	if m == nil {
		t.Fatal("manager is nil")
	}

	m.eventsHandled.Inc()
	m.flairUpdates.Inc()
	m.evaluationLatency.Observe(12.5)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("no metric families registered")
	}
}

func TestGlobalHelpers(t *testing.T) {
	// The global manager is wired in init; helpers must not panic.
	RecordEventHandled()
	RecordEventSkipped("debounced")
	RecordEventFailed()
	UpdateLiveQueueDepth(3)
	UpdateCatchUpQueueDepth(7)
	UpdateMonitoringEpoch(2)
	RecordRescan()
	RecordEvaluation()
	RecordNewcomerVerdict()
	RecordFlairUpdate()
	RecordEvaluationLatency(5)
	RecordHistoryCacheHit()
	RecordHistoryRefresh()
	RecordHistoryFetchLatency(42)
	UpdateTrackedUsers(10)
	RecordHTTPRequest("stats", "GET", "200")
	RecordHTTPRequestDuration("stats", "GET", "200", 1.5)

	if GetRegistry() == nil {
		t.Fatal("registry is nil")
	}
}

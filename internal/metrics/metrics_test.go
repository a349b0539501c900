package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func gatherNames(t *testing.T, r *prometheus.Registry) map[string]bool {
	t.Helper()
	mfs, err := r.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := make(map[string]bool, len(mfs))
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	return names
}

func TestRegisterAndRecord(t *testing.T) {
	r := prometheus.NewRegistry()
	if err := Register(r); err != nil {
		t.Fatalf("register: %v", err)
	}
	// Registering twice must be a no-op.
	if err := Register(r); err != nil {
		t.Fatalf("second register: %v", err)
	}

	IncRestart("survival", "crash-detected", "graceful")
	IncProbeFailure("survival", "network")
	IncDuplicate("survival")
	IncWarning("survival")
	RecordTransition("survival", "healthy", "degraded")
	SetHealthState("survival", "degraded", true)

	names := gatherNames(t, r)
	for _, want := range []string{
		"craftwatch_server_restarts_total",
		"craftwatch_server_probe_failures_total",
		"craftwatch_server_duplicate_processes_total",
		"craftwatch_server_restart_warnings_total",
		"craftwatch_server_health_transitions_total",
		"craftwatch_server_health_state",
	} {
		if !names[want] {
			t.Errorf("metric %s not gathered", want)
		}
	}
}

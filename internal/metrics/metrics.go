package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	restarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "craftwatch",
			Subsystem: "server",
			Name:      "restarts_total",
			Help:      "Number of restart attempts by reason and outcome.",
		}, []string{"server", "reason", "outcome"},
	)
	probeFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "craftwatch",
			Subsystem: "server",
			Name:      "probe_failures_total",
			Help:      "Number of failed liveness probes by probe kind.",
		}, []string{"server", "probe"},
	)
	duplicateProcesses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "craftwatch",
			Subsystem: "server",
			Name:      "duplicate_processes_total",
			Help:      "Number of polls that found more than one matching server process.",
		}, []string{"server"},
	)
	warningsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "craftwatch",
			Subsystem: "server",
			Name:      "restart_warnings_total",
			Help:      "Number of restart warning broadcasts sent to connected users.",
		}, []string{"server"},
	)
	healthTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "craftwatch",
			Subsystem: "server",
			Name:      "health_transitions_total",
			Help:      "Number of health state transitions.",
		}, []string{"server", "from", "to"},
	)
	healthState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "craftwatch",
			Subsystem: "server",
			Name:      "health_state",
			Help:      "Current health state per server (1 = active state, 0 = inactive).",
		}, []string{"server", "state"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{restarts, probeFailures, duplicateProcesses, warningsSent, healthTransitions, healthState}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler serving Prometheus metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Helpers below no-op until Register has been called.

func IncRestart(server, reason, outcome string) {
	if regOK.Load() {
		restarts.WithLabelValues(server, reason, outcome).Inc()
	}
}

func IncProbeFailure(server, probe string) {
	if regOK.Load() {
		probeFailures.WithLabelValues(server, probe).Inc()
	}
}

func IncDuplicate(server string) {
	if regOK.Load() {
		duplicateProcesses.WithLabelValues(server).Inc()
	}
}

func IncWarning(server string) {
	if regOK.Load() {
		warningsSent.WithLabelValues(server).Inc()
	}
}

func RecordTransition(server, from, to string) {
	if regOK.Load() {
		healthTransitions.WithLabelValues(server, from, to).Inc()
	}
}

func SetHealthState(server, state string, active bool) {
	if regOK.Load() {
		var v float64
		if active {
			v = 1
		}
		healthState.WithLabelValues(server, state).Set(v)
	}
}

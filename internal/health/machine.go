package health

import (
	"time"

	"github.com/stevestech/craftwatch/internal/probe"
)

// State is the combined health classification for one server.
type State int

const (
	StateStarting State = iota
	StateHealthy
	StateDegraded
	StateUnresponsive
	StateDead
	StateRestarting
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateHealthy:
		return "healthy"
	case StateDegraded:
		return "degraded"
	case StateUnresponsive:
		return "unresponsive"
	case StateDead:
		return "dead"
	case StateRestarting:
		return "restarting"
	default:
		return "unknown"
	}
}

// States returns every state name; used to keep gauges complete.
func States() []State {
	return []State{StateStarting, StateHealthy, StateDegraded, StateUnresponsive, StateDead, StateRestarting}
}

// Record is one server's health record. The supervisor loop is its only
// writer; everyone else gets copies.
type Record struct {
	State         State
	Since         time.Time // entered current state
	LastProcessOK time.Time
	LastNetworkOK time.Time
	ProcessFails  int // consecutive, reset on success
	NetworkFails  int // consecutive, reset on success
}

// Action is a side-effect request produced by a transition.
type Action int

const (
	ActionNone Action = iota
	ActionRestartDead
	ActionRestartUnresponsive
)

// Input carries one poll cycle's probe results into the transition
// function. Network is ignored unless NetworkChecked is set; probing is
// skipped below the startup grace, while a restart is in flight, and
// for servers with the responsiveness check disabled. NetworkEnabled
// distinguishes "not probed this cycle" from "never probed": a server
// without network checking goes Healthy on process liveness alone.
type Input struct {
	Process        probe.ProcessState
	Network        probe.NetworkState
	NetworkChecked bool
	NetworkEnabled bool
	Now            time.Time
}

// Reset returns a fresh record in StateStarting, used right after a launch.
func Reset(now time.Time) Record {
	return Record{State: StateStarting, Since: now}
}

// Next is the transition function: (record, probe results) -> (record,
// side-effect request). It is pure so the hysteresis and the
// immediate-dead-on-crash rules are testable in isolation.
func Next(rec Record, in Input, failThreshold int) (Record, Action) {
	// A crashed process cannot recover on the next poll: any state goes
	// straight to dead, bypassing hysteresis. The restart request fires
	// once, on the transition.
	if in.Process == probe.ProcessAbsent {
		rec.ProcessFails++
		if rec.State == StateDead || rec.State == StateRestarting {
			return rec, ActionNone
		}
		rec.State = StateDead
		rec.Since = in.Now
		return rec, ActionRestartDead
	}

	rec.ProcessFails = 0
	rec.LastProcessOK = in.Now

	netOK := !in.NetworkChecked || in.Network == probe.NetworkResponsive
	if in.NetworkChecked {
		if in.Network == probe.NetworkResponsive {
			rec.NetworkFails = 0
			rec.LastNetworkOK = in.Now
		} else {
			rec.NetworkFails++
		}
	}

	switch rec.State {
	case StateStarting:
		// Healthy once both probes have succeeded after launch; a server
		// without network checking qualifies on process liveness alone.
		if !in.NetworkEnabled || (in.NetworkChecked && in.Network == probe.NetworkResponsive) {
			rec.State = StateHealthy
			rec.Since = in.Now
		} else if rec.NetworkFails >= failThreshold {
			// Launched but never answered: deadlocked on startup.
			rec.State = StateUnresponsive
			rec.Since = in.Now
			return rec, ActionRestartUnresponsive
		}
	case StateHealthy:
		if !netOK {
			rec.State = StateDegraded
			rec.Since = in.Now
		}
	case StateDegraded:
		if netOK {
			// Hysteresis: a transient failure followed by a success never
			// escalates.
			rec.State = StateHealthy
			rec.Since = in.Now
		} else if rec.NetworkFails >= failThreshold {
			// Process alive, network gone quiet for the whole threshold
			// window: the deadlock signature.
			rec.State = StateUnresponsive
			rec.Since = in.Now
			return rec, ActionRestartUnresponsive
		}
	case StateDead:
		// Operator brought a process back by hand; start observing it.
		rec.State = StateStarting
		rec.Since = in.Now
	case StateUnresponsive, StateRestarting:
		// Held until the restart controller reports back.
	}
	return rec, ActionNone
}

// MarkRestarting moves the record into StateRestarting while a restart
// sequence is in flight.
func MarkRestarting(rec Record, now time.Time) Record {
	rec.State = StateRestarting
	rec.Since = now
	return rec
}

// MarkDead pins the record to StateDead, used when a restart sequence
// fails and automatic recovery halts.
func MarkDead(rec Record, now time.Time) Record {
	rec.State = StateDead
	rec.Since = now
	return rec
}

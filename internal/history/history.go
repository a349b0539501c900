package history

import (
	"context"
	"time"
)

// Reason records why a restart sequence was triggered.
type Reason string

const (
	ReasonCrash        Reason = "crash-detected"
	ReasonUnresponsive Reason = "unresponsive"
	ReasonManual       Reason = "manual"
	ReasonScheduled    Reason = "scheduled"
)

// Outcome records how a restart sequence ended.
type Outcome string

const (
	OutcomeGraceful     Outcome = "graceful"
	OutcomeForced       Outcome = "forced"
	OutcomeStopFailed   Outcome = "stop-failed"   // process survived forced termination
	OutcomeLaunchFailed Outcome = "launch-failed" // new instance failed to start
)

// Event is the append-only record of one restart attempt. Every
// attempt, successful or failed, produces exactly one event.
type Event struct {
	Server     string    `json:"server"`
	Reason     Reason    `json:"reason"`
	Outcome    Outcome   `json:"outcome"`
	OccurredAt time.Time `json:"occurred_at"`
	OldPID     int32     `json:"old_pid,omitempty"`
	NewPID     int32     `json:"new_pid,omitempty"`
	Warnings   int       `json:"warnings"` // warning broadcasts sent before the stop
	Detail     string    `json:"detail,omitempty"`
}

// Sink is a destination for restart events. Implementations must be
// safe for concurrent use; failures to deliver are the sink's problem,
// never the restart controller's.
type Sink interface {
	Send(ctx context.Context, e Event) error
}

package restart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/stevestech/craftwatch/internal/config"
	"github.com/stevestech/craftwatch/internal/history"
	"github.com/stevestech/craftwatch/internal/metrics"
	"github.com/stevestech/craftwatch/internal/probe"
	"github.com/stevestech/craftwatch/internal/session"
)

var (
	// ErrInFlight means another restart or stop sequence holds the
	// server; the trigger is a no-op.
	ErrInFlight = errors.New("restart already in flight")
	// ErrForcedStopFailed means the process survived SIGKILL. Automatic
	// recovery halts for the server; an operator has to intervene.
	ErrForcedStopFailed = errors.New("process survived forced termination")
	// ErrLaunchFailed means the new instance never showed up in the
	// process table. The server stays down; no retry loop.
	ErrLaunchFailed = errors.New("new instance failed to start")
)

// ProcessChecker is the slice of the process probe the controller needs.
type ProcessChecker interface {
	Scan(ctx context.Context) probe.ProcessReport
}

// Controller executes the graceful-then-forced restart sequence for one
// server: warning broadcasts, console stop, SIGKILL escalation,
// relaunch, and exactly one RestartEvent per attempt. At most one
// sequence runs per server at any time.
type Controller struct {
	spec  config.Spec
	sess  session.Session
	sig   session.Signaller
	check ProcessChecker
	sinks []history.Sink
	log   *slog.Logger

	inFlight atomic.Bool

	// Pacing knobs, shrunk by tests.
	confirmInterval time.Duration // between exit-confirmation probes
	killConfirm     time.Duration // wait after SIGKILL
	launchConfirm   time.Duration // wait for the new process to appear
}

func New(spec config.Spec, sess session.Session, sig session.Signaller, check ProcessChecker, sinks []history.Sink, log *slog.Logger) *Controller {
	return &Controller{
		spec:            spec,
		sess:            sess,
		sig:             sig,
		check:           check,
		sinks:           sinks,
		log:             log.With("server", spec.Name),
		confirmInterval: time.Second,
		killConfirm:     10 * time.Second,
		launchConfirm:   15 * time.Second,
	}
}

// InFlight reports whether a restart or stop sequence is currently running.
func (c *Controller) InFlight() bool { return c.inFlight.Load() }

// SetConfirmation adjusts how long the controller waits when confirming
// process exit after SIGKILL and process appearance after a launch, and
// the polling interval for both. Zero values leave the current setting.
func (c *Controller) SetConfirmation(interval, killWait, launchWait time.Duration) {
	if interval > 0 {
		c.confirmInterval = interval
	}
	if killWait > 0 {
		c.killConfirm = killWait
	}
	if launchWait > 0 {
		c.launchConfirm = launchWait
	}
}

// Restart runs the full sequence. A concurrent trigger for the same
// server returns ErrInFlight and does nothing. Every attempt,
// successful or not, records exactly one RestartEvent.
func (c *Controller) Restart(ctx context.Context, reason history.Reason) (history.Event, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return history.Event{}, ErrInFlight
	}
	defer c.inFlight.Store(false)

	evt := history.Event{Server: c.spec.Name, Reason: reason, OccurredAt: time.Now().UTC()}
	err := c.run(ctx, reason, &evt)
	c.record(&evt)
	return evt, err
}

func (c *Controller) run(ctx context.Context, reason history.Reason, evt *history.Event) error {
	rep := c.check.Scan(ctx)
	if len(rep.PIDs) > 0 {
		evt.OldPID = rep.PIDs[0]
	}

	if rep.State.Alive() {
		// A crashed server has nobody left to warn.
		if reason != history.ReasonCrash {
			evt.Warnings = c.warn(ctx)
		}
		outcome, err := c.stopProcess(ctx)
		evt.Outcome = outcome
		if err != nil {
			evt.Detail = err.Error()
			return err
		}
	} else {
		// Nothing running: straight to relaunch.
		evt.Outcome = history.OutcomeGraceful
	}

	pid, err := c.launch(ctx)
	if err != nil {
		evt.Outcome = history.OutcomeLaunchFailed
		evt.Detail = err.Error()
		return err
	}
	evt.NewPID = pid
	return nil
}

// warn broadcasts the restart countdown at the configured lead times,
// largest first. Context cancellation compresses the countdown rather
// than abandoning the restart.
func (c *Controller) warn(ctx context.Context) int {
	leads := append([]time.Duration(nil), c.spec.WarningLeads...)
	sort.Slice(leads, func(i, j int) bool { return leads[i] > leads[j] })
	sent := 0
	for i, lead := range leads {
		msg := fmt.Sprintf("An automated restart will occur in %s.", formatLead(lead))
		if err := c.sess.Broadcast(ctx, msg); err != nil {
			c.log.Warn("warning broadcast failed", "error", err)
		} else {
			sent++
			metrics.IncWarning(c.spec.Name)
		}
		wait := lead
		if i+1 < len(leads) {
			wait = lead - leads[i+1]
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			c.log.Warn("supervision shutting down, compressing restart countdown")
			return sent
		}
	}
	return sent
}

// stopProcess tries the cooperative console stop first and escalates to
// SIGKILL when the process outlives the graceful timeout. Exit is
// always confirmed through the process probe, never assumed.
func (c *Controller) stopProcess(ctx context.Context) (history.Outcome, error) {
	if err := c.sess.SendCommand(ctx, "stop"); err != nil {
		c.log.Warn("console stop failed, falling back to SIGTERM", "error", err)
		for _, pid := range c.check.Scan(ctx).PIDs {
			if err := c.sig.Terminate(pid); err != nil {
				c.log.Warn("SIGTERM failed", "pid", pid, "error", err)
			}
		}
	}
	if c.waitGone(ctx, c.spec.GracefulTimeout) {
		c.quitSession(ctx)
		return history.OutcomeGraceful, nil
	}

	c.log.Warn("graceful stop timed out, sending SIGKILL", "timeout", c.spec.GracefulTimeout)
	for _, pid := range c.check.Scan(ctx).PIDs {
		if err := c.sig.Kill(pid); err != nil {
			c.log.Warn("SIGKILL failed", "pid", pid, "error", err)
		}
	}
	if c.waitGone(ctx, c.killConfirm) {
		c.quitSession(ctx)
		return history.OutcomeForced, nil
	}
	return history.OutcomeStopFailed, ErrForcedStopFailed
}

// quitSession tears down the now-empty session once the process is
// confirmed gone. A stale session left behind would swallow console
// input stuffed into the next instance.
func (c *Controller) quitSession(ctx context.Context) {
	if err := c.sess.Quit(ctx); err != nil {
		c.log.Debug("session teardown", "error", err)
	}
}

// launch starts a fresh instance and waits for it to appear in the
// process table.
func (c *Controller) launch(ctx context.Context) (int32, error) {
	if err := c.sess.Launch(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}
	deadline := time.Now().Add(c.launchConfirm)
	for {
		rep := c.check.Scan(ctx)
		if rep.State.Alive() {
			return rep.PIDs[0], nil
		}
		if time.Now().After(deadline) {
			return 0, fmt.Errorf("%w: no matching process within %s", ErrLaunchFailed, c.launchConfirm)
		}
		time.Sleep(c.confirmInterval)
	}
}

// waitGone polls the process probe until it reports absent or the
// timeout elapses. Deliberately not interruptible by ctx: a half-stopped
// server must not be abandoned mid-confirmation on shutdown.
func (c *Controller) waitGone(ctx context.Context, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if c.check.Scan(ctx).State == probe.ProcessAbsent {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(c.confirmInterval)
	}
}

// Stop runs only the shutdown half of the sequence, for operator
// stop requests. No RestartEvent is recorded; nothing is relaunched.
func (c *Controller) Stop(ctx context.Context) (history.Outcome, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return "", ErrInFlight
	}
	defer c.inFlight.Store(false)

	if !c.check.Scan(ctx).State.Alive() {
		return history.OutcomeGraceful, nil
	}
	return c.stopProcess(ctx)
}

// Launch starts the server without a preceding stop, for operator start
// requests on a server that is down.
func (c *Controller) Launch(ctx context.Context) (int32, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return 0, ErrInFlight
	}
	defer c.inFlight.Store(false)
	return c.launch(ctx)
}

// record delivers the event to every sink. Sink failures are logged and
// swallowed; the restart outcome stands regardless.
func (c *Controller) record(evt *history.Event) {
	metrics.IncRestart(evt.Server, string(evt.Reason), string(evt.Outcome))
	for _, s := range c.sinks {
		if err := s.Send(context.Background(), *evt); err != nil {
			c.log.Warn("history sink rejected restart event", "error", err)
		}
	}
	lvl := slog.LevelInfo
	if evt.Outcome == history.OutcomeStopFailed || evt.Outcome == history.OutcomeLaunchFailed {
		lvl = slog.LevelError
	}
	c.log.Log(context.Background(), lvl, "restart attempt finished",
		"reason", evt.Reason, "outcome", evt.Outcome,
		"old_pid", evt.OldPID, "new_pid", evt.NewPID, "warnings", evt.Warnings)
}

func formatLead(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	return fmt.Sprintf("%d seconds", int(d/time.Second))
}

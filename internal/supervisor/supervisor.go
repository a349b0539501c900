package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/stevestech/craftwatch/internal/config"
	"github.com/stevestech/craftwatch/internal/health"
	"github.com/stevestech/craftwatch/internal/history"
	"github.com/stevestech/craftwatch/internal/logger"
	"github.com/stevestech/craftwatch/internal/metrics"
	"github.com/stevestech/craftwatch/internal/probe"
	"github.com/stevestech/craftwatch/internal/restart"
	"github.com/stevestech/craftwatch/internal/session"
)

// ProcessProbe and NetworkPinger are the probe slices the loop needs;
// tests substitute scripted fakes.
type ProcessProbe interface {
	Scan(ctx context.Context) probe.ProcessReport
	Uptime(ctx context.Context, pid int32) (time.Duration, error)
}

type NetworkPinger interface {
	Ping(ctx context.Context) probe.NetworkReport
}

// Options configures a Supervisor.
type Options struct {
	Logger   *slog.Logger
	Sinks    []history.Sink // external restart-event sinks
	RingSize int            // in-memory event buffer for the operator API
	Log      logger.Config  // session output capture

	// Factories, overridable in tests. Nil means the real screen/probe
	// implementations.
	NewSession   func(spec config.Spec, log *slog.Logger) session.Session
	NewSignaller func() session.Signaller
	NewProbe     func(spec config.Spec) ProcessProbe
	NewPinger    func(spec config.Spec) NetworkPinger
}

// Supervisor owns one monitoring task per configured server. Polling
// across servers is fully independent; a blocked probe on one server
// never delays another's schedule.
type Supervisor struct {
	mu      sync.RWMutex
	entries map[string]*entry

	log   *slog.Logger
	sinks []history.Sink
	ring  *history.Ring
	opts  Options

	wg      sync.WaitGroup
	cancel  context.CancelFunc
	started bool
}

// entry pairs one server's health record with its restart controller.
// The record is written only under the entry mutex; the supervisor loop
// and the operator API funnel every restart through the controller's
// own mutual exclusion.
type entry struct {
	spec config.Spec
	proc ProcessProbe
	net  NetworkPinger
	ctrl *restart.Controller

	mu         sync.RWMutex
	rec        health.Record
	desired    bool
	halted     bool // automatic recovery halted pending operator action
	restarts   int
	launchedAt time.Time
	checked    bool // first poll done (running servers get adopted there)
}

func New(opts Options) *Supervisor {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.NewSession == nil {
		opts.NewSession = func(spec config.Spec, log *slog.Logger) session.Session {
			return session.NewScreen(spec.Name, spec.Dir, spec.StartScript, spec.Users, log, opts.Log.SessionWriter(spec.Name))
		}
	}
	if opts.NewSignaller == nil {
		opts.NewSignaller = func() session.Signaller { return session.OSSignaller{} }
	}
	if opts.NewProbe == nil {
		opts.NewProbe = func(spec config.Spec) ProcessProbe { return probe.NewProcessProbe(spec.Match) }
	}
	if opts.NewPinger == nil {
		opts.NewPinger = func(spec config.Spec) NetworkPinger {
			return probe.NewNetworkProbe(spec.Host, spec.Port, spec.ProbeTimeout)
		}
	}
	ring := history.NewRing(opts.RingSize)
	return &Supervisor{
		entries: make(map[string]*entry),
		log:     opts.Logger,
		sinks:   append([]history.Sink{ring}, opts.Sinks...),
		ring:    ring,
		opts:    opts,
	}
}

// Add registers a server for supervision. Must be called before Start.
func (s *Supervisor) Add(spec config.Spec) error {
	spec.ApplyDefaults()
	if err := spec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("supervisor already started")
	}
	if _, ok := s.entries[spec.Name]; ok {
		return fmt.Errorf("duplicate server name %q", spec.Name)
	}
	proc := s.opts.NewProbe(spec)
	e := &entry{
		spec:    spec,
		proc:    proc,
		net:     s.opts.NewPinger(spec),
		desired: spec.AutoStart,
		rec:     health.Reset(time.Now()),
	}
	sess := s.opts.NewSession(spec, s.log)
	e.ctrl = restart.New(spec, sess, s.opts.NewSignaller(), proc, s.sinks, s.log)
	s.entries[spec.Name] = e
	return nil
}

// Start launches one monitoring goroutine per server. It returns
// immediately; Shutdown waits for the loops to drain.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	cctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	for _, e := range s.entries {
		s.wg.Add(1)
		go s.loop(cctx, e)
	}
	s.mu.Unlock()
}

// Shutdown stops all polling and waits for the loops to finish their
// current cycle. An in-flight restart completes its current step (the
// forced-kill confirmation in particular) rather than abandoning a
// half-stopped server.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// loop is one server's poll-and-react cycle. Ticker ticks that land
// while a restart sequence is running are coalesced, not queued.
func (s *Supervisor) loop(ctx context.Context, e *entry) {
	defer s.wg.Done()
	s.check(ctx, e)
	t := time.NewTicker(e.spec.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.check(ctx, e)
		}
	}
}

// check runs one poll cycle: probes, health transition, dispatch.
func (s *Supervisor) check(ctx context.Context, e *entry) {
	if e.ctrl.InFlight() {
		// An operator-triggered sequence owns the server right now;
		// routine polling resumes afterwards.
		return
	}
	now := time.Now()
	rep := e.proc.Scan(ctx)
	if rep.Err != nil {
		// Fail open: an unreadable process table reads as absent, never
		// silently as alive.
		s.log.Warn("process probe unavailable", "server", e.spec.Name, "error", rep.Err)
		metrics.IncProbeFailure(e.spec.Name, "process")
	}
	if rep.State == probe.ProcessAliveDuplicate {
		s.log.Warn("multiple matching server processes",
			"server", e.spec.Name, "pids", rep.PIDs,
			"hint", "failed prior restart or operator-launched duplicate")
		metrics.IncDuplicate(e.spec.Name)
	}

	e.mu.Lock()
	if !e.checked {
		e.checked = true
		// A server found already running is adopted rather than stopped,
		// even when it is not configured to auto-start.
		if !e.desired && rep.State.Alive() {
			e.desired = true
			s.log.Info("adopting already-running server", "server", e.spec.Name, "pids", rep.PIDs)
		}
	}
	if e.halted && rep.State.Alive() {
		// Operator brought the process back by hand; resume recovery.
		e.halted = false
		s.log.Info("server process is back, resuming automatic recovery", "server", e.spec.Name)
	}
	desired := e.desired
	halted := e.halted
	rec := e.rec
	e.mu.Unlock()

	if !desired {
		if rep.State.Alive() {
			s.log.Info("server should be offline, stopping", "server", e.spec.Name)
			if _, err := e.ctrl.Stop(ctx); err != nil && !errors.Is(err, restart.ErrInFlight) {
				s.log.Error("stop of unwanted server failed", "server", e.spec.Name, "error", err)
			}
		}
		return
	}

	in := health.Input{
		Process:        rep.State,
		Now:            now,
		NetworkEnabled: e.spec.NetworkCheck,
	}
	var up time.Duration
	var upKnown bool
	if rep.State.Alive() {
		up, upKnown = s.uptime(ctx, e, rep)
		if e.spec.NetworkCheck && (!upKnown || up >= e.spec.StartupGrace) {
			nr := e.net.Ping(ctx)
			in.Network = nr.State
			in.NetworkChecked = true
			if nr.State != probe.NetworkResponsive {
				metrics.IncProbeFailure(e.spec.Name, "network")
				s.log.Debug("network probe failed", "server", e.spec.Name,
					"result", nr.State, "error", nr.Err)
			}
		}
	}

	newRec, action := health.Next(rec, in, e.spec.FailThreshold)
	if newRec.State != rec.State {
		s.log.Info("health transition", "server", e.spec.Name,
			"from", rec.State, "to", newRec.State,
			"network_fails", newRec.NetworkFails)
		metrics.RecordTransition(e.spec.Name, rec.State.String(), newRec.State.String())
		metrics.SetHealthState(e.spec.Name, rec.State.String(), false)
		metrics.SetHealthState(e.spec.Name, newRec.State.String(), true)
	}
	e.mu.Lock()
	e.rec = newRec
	e.mu.Unlock()

	var reason history.Reason
	switch action {
	case health.ActionRestartDead:
		reason = history.ReasonCrash
	case health.ActionRestartUnresponsive:
		reason = history.ReasonUnresponsive
	default:
		// Scheduled restart once uptime exceeds the configured bound.
		if e.spec.RestartAfter > 0 && upKnown && up >= e.spec.RestartAfter &&
			(newRec.State == health.StateHealthy || newRec.State == health.StateDegraded) {
			reason = history.ReasonScheduled
		}
	}
	if reason == "" {
		return
	}
	if halted {
		s.log.Debug("automatic recovery halted, skipping restart",
			"server", e.spec.Name, "reason", reason)
		return
	}
	_, _ = s.runRestart(ctx, e, reason)
}

// runRestart funnels both health-triggered and operator-triggered
// restarts through the controller and applies the outcome to the
// health record. A failed sequence leaves the server dead and halts
// automatic recovery; restart storms are worse than a down server.
func (s *Supervisor) runRestart(ctx context.Context, e *entry, reason history.Reason) (history.Event, error) {
	now := time.Now()
	e.mu.Lock()
	prev := e.rec
	e.rec = health.MarkRestarting(e.rec, now)
	e.mu.Unlock()
	metrics.RecordTransition(e.spec.Name, prev.State.String(), health.StateRestarting.String())
	metrics.SetHealthState(e.spec.Name, prev.State.String(), false)
	metrics.SetHealthState(e.spec.Name, health.StateRestarting.String(), true)

	evt, err := e.ctrl.Restart(ctx, reason)
	if errors.Is(err, restart.ErrInFlight) {
		// The trigger was a no-op; put the record back so a server held by
		// a concurrent stop does not report restarting forever.
		e.mu.Lock()
		e.rec = prev
		e.mu.Unlock()
		metrics.RecordTransition(e.spec.Name, health.StateRestarting.String(), prev.State.String())
		metrics.SetHealthState(e.spec.Name, health.StateRestarting.String(), false)
		metrics.SetHealthState(e.spec.Name, prev.State.String(), true)
		return evt, err
	}

	now = time.Now()
	e.mu.Lock()
	e.restarts++
	if err != nil {
		e.halted = true
		e.rec = health.MarkDead(e.rec, now)
		e.mu.Unlock()
		s.log.Error("restart failed, automatic recovery halted pending operator action",
			"server", e.spec.Name, "reason", reason, "outcome", evt.Outcome, "error", err)
		metrics.SetHealthState(e.spec.Name, health.StateRestarting.String(), false)
		metrics.SetHealthState(e.spec.Name, health.StateDead.String(), true)
		return evt, err
	}
	e.rec = health.Reset(now)
	e.launchedAt = now
	e.mu.Unlock()
	metrics.SetHealthState(e.spec.Name, health.StateRestarting.String(), false)
	metrics.SetHealthState(e.spec.Name, health.StateStarting.String(), true)
	return evt, nil
}

// uptime prefers the process creation time; a server adopted without a
// known launch moment counts as past any grace period.
func (s *Supervisor) uptime(ctx context.Context, e *entry, rep probe.ProcessReport) (time.Duration, bool) {
	if len(rep.PIDs) > 0 {
		if up, err := e.proc.Uptime(ctx, rep.PIDs[0]); err == nil {
			return up, true
		}
	}
	e.mu.RLock()
	launched := e.launchedAt
	e.mu.RUnlock()
	if launched.IsZero() {
		return 0, false
	}
	return time.Since(launched), true
}

func (s *Supervisor) entry(name string) (*entry, error) {
	s.mu.RLock()
	e := s.entries[name]
	s.mu.RUnlock()
	if e == nil {
		return nil, fmt.Errorf("unknown server: %s", name)
	}
	return e, nil
}

package supervisor

import (
	"context"
	"sort"
	"time"

	"github.com/stevestech/craftwatch/internal/health"
	"github.com/stevestech/craftwatch/internal/history"
)

// ServerStatus is the operator-facing snapshot of one server.
type ServerStatus struct {
	Name            string    `json:"name"`
	DesiredOnline   bool      `json:"desired_online"`
	Health          string    `json:"health"`
	Since           time.Time `json:"since"`
	PIDs            []int32   `json:"pids,omitempty"`
	NetworkFails    int       `json:"network_fails"`
	Restarts        int       `json:"restarts"`
	Halted          bool      `json:"halted"`
	RestartInFlight bool      `json:"restart_in_flight"`
	LastProcessOK   time.Time `json:"last_process_ok,omitempty"`
	LastNetworkOK   time.Time `json:"last_network_ok,omitempty"`
	Uptime          string    `json:"uptime,omitempty"`
}

// Status returns the current snapshot for one server, including a live
// process scan so a just-issued query reflects reality rather than the
// last poll.
func (s *Supervisor) Status(ctx context.Context, name string) (ServerStatus, error) {
	e, err := s.entry(name)
	if err != nil {
		return ServerStatus{}, err
	}
	return s.snapshot(ctx, e), nil
}

// StatusAll returns snapshots for every server, sorted by name.
func (s *Supervisor) StatusAll(ctx context.Context) []ServerStatus {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()
	out := make([]ServerStatus, 0, len(entries))
	for _, e := range entries {
		out = append(out, s.snapshot(ctx, e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Supervisor) snapshot(ctx context.Context, e *entry) ServerStatus {
	rep := e.proc.Scan(ctx)
	e.mu.RLock()
	st := ServerStatus{
		Name:            e.spec.Name,
		DesiredOnline:   e.desired,
		Health:          e.rec.State.String(),
		Since:           e.rec.Since,
		PIDs:            rep.PIDs,
		NetworkFails:    e.rec.NetworkFails,
		Restarts:        e.restarts,
		Halted:          e.halted,
		RestartInFlight: e.ctrl.InFlight(),
		LastProcessOK:   e.rec.LastProcessOK,
		LastNetworkOK:   e.rec.LastNetworkOK,
	}
	e.mu.RUnlock()
	if up, ok := s.uptime(ctx, e, rep); ok && rep.State.Alive() {
		st.Uptime = up.Round(time.Second).String()
	}
	return st
}

// Names lists the supervised servers, sorted.
func (s *Supervisor) Names() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.entries))
	for n := range s.entries {
		names = append(names, n)
	}
	s.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Restart triggers an operator restart for one server. It shares the
// per-server sequence lock with health-triggered restarts, so a restart
// already in flight surfaces as restart.ErrInFlight.
func (s *Supervisor) Restart(ctx context.Context, name string) (history.Event, error) {
	e, err := s.entry(name)
	if err != nil {
		return history.Event{}, err
	}
	return s.runRestart(ctx, e, history.ReasonManual)
}

// StartServer marks the server desired-online and launches it if no
// matching process exists. Also clears a halted flag, which is the
// operator's way of re-arming automatic recovery after a failed restart.
func (s *Supervisor) StartServer(ctx context.Context, name string) error {
	e, err := s.entry(name)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.desired = true
	e.halted = false
	e.mu.Unlock()

	if e.proc.Scan(ctx).State.Alive() {
		return nil
	}
	if _, err := e.ctrl.Launch(ctx); err != nil {
		return err
	}
	now := time.Now()
	e.mu.Lock()
	e.rec = health.Reset(now)
	e.launchedAt = now
	e.mu.Unlock()
	return nil
}

// StopServer marks the server desired-offline and stops the running
// process, if any, with the usual graceful-then-forced escalation.
func (s *Supervisor) StopServer(ctx context.Context, name string) error {
	e, err := s.entry(name)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.desired = false
	e.mu.Unlock()

	if !e.proc.Scan(ctx).State.Alive() {
		return nil
	}
	_, err = e.ctrl.Stop(ctx)
	return err
}

// Events returns recent restart events for one server (or all servers
// when name is empty), newest first.
func (s *Supervisor) Events(name string, limit int) []history.Event {
	return s.ring.Recent(name, limit)
}

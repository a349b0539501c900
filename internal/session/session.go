// Package session wraps the detachable terminal sessions that host the
// supervised server consoles, and the signal delivery used to stop
// their processes. The supervision core only sees these interfaces.
package session

import "context"

// Session manages one server's named, re-attachable console session.
type Session interface {
	// Launch starts the server's start script inside a fresh detached
	// session, enabling multiuser access for the configured accounts.
	Launch(ctx context.Context) error
	// SendCommand types a command into the server console.
	SendCommand(ctx context.Context, command string) error
	// Broadcast sends a chat message to all connected users. Best
	// effort; delivery is not confirmed.
	Broadcast(ctx context.Context, message string) error
	// Quit tears the session down. Needed before relaunching: a stale
	// session with extra windows would otherwise swallow console input.
	Quit(ctx context.Context) error
}

// Signaller delivers shutdown signals to a process found by the process
// probe. Exit confirmation always comes from re-probing, never from the
// signal call itself.
type Signaller interface {
	// Terminate requests a cooperative shutdown (SIGTERM).
	Terminate(pid int32) error
	// Kill forces unconditional termination (SIGKILL).
	Kill(pid int32) error
}

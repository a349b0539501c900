package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"time"
)

// stuffDelay paces console input; stuffing commands into a screen
// session too quickly drops input.
const stuffDelay = time.Second

// Screen runs one server inside a GNU screen session named after the
// server, optionally in multiuser mode with an ACL per authorised user.
type Screen struct {
	name        string
	dir         string
	startScript string
	users       []string
	log         *slog.Logger
	out         io.Writer // captured output of screen invocations, optional
}

func NewScreen(name, dir, startScript string, users []string, log *slog.Logger, out io.Writer) *Screen {
	return &Screen{name: name, dir: dir, startScript: startScript, users: users, log: log, out: out}
}

// Launch quits any stale session left over from a previous instance,
// then starts the server's start script in a fresh detached session.
func (s *Screen) Launch(ctx context.Context) error {
	_ = s.Quit(ctx)
	script := filepath.Join(s.dir, s.startScript)
	if err := s.run(ctx, "-d", "-m", "-S", s.name, script); err != nil {
		return fmt.Errorf("launch session %s: %w", s.name, err)
	}
	if len(s.users) > 0 {
		if err := s.run(ctx, "-S", s.name, "-X", "multiuser", "on"); err != nil {
			return fmt.Errorf("enable multiuser on %s: %w", s.name, err)
		}
		for _, u := range s.users {
			if err := s.run(ctx, "-S", s.name, "-X", "acladd", u); err != nil {
				return fmt.Errorf("authorise %s on %s: %w", u, s.name, err)
			}
		}
	}
	return nil
}

// SendCommand stuffs a command into window 0 of the session. The
// leading and trailing carriage returns clear any half-typed input and
// execute the command.
func (s *Screen) SendCommand(ctx context.Context, command string) error {
	select {
	case <-time.After(stuffDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.run(ctx, "-p", "0", "-S", s.name, "-X", "stuff", "\r"+command+"\r")
}

func (s *Screen) Broadcast(ctx context.Context, message string) error {
	return s.SendCommand(ctx, "say "+message)
}

func (s *Screen) Quit(ctx context.Context) error {
	return s.run(ctx, "-S", s.name, "-X", "quit")
}

func (s *Screen) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "screen", args...)
	cmd.Dir = s.dir
	out, err := cmd.CombinedOutput()
	if len(out) > 0 {
		if s.out != nil {
			_, _ = s.out.Write(out)
		}
		s.log.Debug("screen output", "session", s.name, "args", args, "output", string(out))
	}
	if err != nil {
		return fmt.Errorf("screen %v: %w", args, err)
	}
	return nil
}

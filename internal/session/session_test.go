package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

func TestSendCommandHonorsCancelledContext(t *testing.T) {
	s := NewScreen("survival", "/srv/survival", "start.sh", nil, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Must bail out during the input pacing delay, before touching screen.
	if err := s.SendCommand(ctx, "stop"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestOSSignallerUnknownPID(t *testing.T) {
	sig := OSSignaller{}
	if err := sig.Terminate(999999999); err == nil {
		t.Fatal("expected error terminating a non-existent pid")
	}
	if err := sig.Kill(999999999); err == nil {
		t.Fatal("expected error killing a non-existent pid")
	}
}

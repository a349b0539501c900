package history

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func sendN(t *testing.T, r *Ring, server string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		e := Event{
			Server:     server,
			Reason:     ReasonCrash,
			Outcome:    OutcomeGraceful,
			OccurredAt: time.Now().UTC(),
			Detail:     fmt.Sprintf("%s-%d", server, i),
		}
		if err := r.Send(context.Background(), e); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
}

func TestRingNewestFirst(t *testing.T) {
	r := NewRing(8)
	sendN(t, r, "alpha", 3)
	out := r.Recent("alpha", 0)
	if len(out) != 3 {
		t.Fatalf("got %d events, want 3", len(out))
	}
	if out[0].Detail != "alpha-2" || out[2].Detail != "alpha-0" {
		t.Fatalf("order = %s..%s, want newest first", out[0].Detail, out[2].Detail)
	}
}

func TestRingOverwritesOldest(t *testing.T) {
	r := NewRing(4)
	sendN(t, r, "alpha", 6)
	out := r.Recent("alpha", 0)
	if len(out) != 4 {
		t.Fatalf("got %d events, want capacity 4", len(out))
	}
	if out[0].Detail != "alpha-5" || out[3].Detail != "alpha-2" {
		t.Fatalf("window = %s..%s, want the 4 most recent", out[0].Detail, out[3].Detail)
	}
}

func TestRingFiltersByServer(t *testing.T) {
	r := NewRing(8)
	sendN(t, r, "alpha", 2)
	sendN(t, r, "beta", 2)
	if got := len(r.Recent("alpha", 0)); got != 2 {
		t.Fatalf("alpha events = %d, want 2", got)
	}
	if got := len(r.Recent("", 0)); got != 4 {
		t.Fatalf("all events = %d, want 4", got)
	}
}

func TestRingLimit(t *testing.T) {
	r := NewRing(8)
	sendN(t, r, "alpha", 5)
	out := r.Recent("alpha", 2)
	if len(out) != 2 {
		t.Fatalf("got %d events, want limit 2", len(out))
	}
	if out[0].Detail != "alpha-4" {
		t.Fatalf("first = %s, want the newest", out[0].Detail)
	}
}

func TestRingEmptyIsEmpty(t *testing.T) {
	r := NewRing(0) // default capacity
	if out := r.Recent("", 10); len(out) != 0 {
		t.Fatalf("got %d events from an empty ring", len(out))
	}
}

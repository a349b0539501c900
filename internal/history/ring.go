package history

import (
	"context"
	"sync"
)

// Ring is an in-memory sink keeping the most recent events for the
// operator API. It never fails and never blocks.
type Ring struct {
	mu     sync.Mutex
	events []Event
	next   int
	filled bool
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 256
	}
	return &Ring{events: make([]Event, capacity)}
}

func (r *Ring) Send(_ context.Context, e Event) error {
	r.mu.Lock()
	r.events[r.next] = e
	r.next = (r.next + 1) % len(r.events)
	if r.next == 0 {
		r.filled = true
	}
	r.mu.Unlock()
	return nil
}

// Recent returns up to limit events for the named server (all servers
// when server is empty), newest first.
func (r *Ring) Recent(server string, limit int) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.next
	if r.filled {
		n = len(r.events)
	}
	var out []Event
	for i := 0; i < n; i++ {
		// Walk backwards from the most recently written slot.
		idx := (r.next - 1 - i + len(r.events)) % len(r.events)
		e := r.events[idx]
		if server != "" && e.Server != server {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stevestech/craftwatch/internal/history"
)

func testEvent(server string) history.Event {
	return history.Event{
		Server:     server,
		Reason:     history.ReasonUnresponsive,
		Outcome:    history.OutcomeForced,
		OccurredAt: time.Now().UTC(),
		OldPID:     4100,
		NewPID:     4242,
		Warnings:   3,
	}
}

func TestSQLiteSink_Integration(t *testing.T) {
	dbPath := t.TempDir() + "/test.db"

	sink, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create sink: %v", err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			t.Errorf("Failed to close sink: %v", err)
		}
	}()

	ctx := context.Background()
	if err := sink.Send(ctx, testEvent("alpha")); err != nil {
		t.Fatalf("Failed to send event: %v", err)
	}
	if err := sink.Send(ctx, testEvent("beta")); err != nil {
		t.Fatalf("Failed to send second event: %v", err)
	}

	var count int
	if err := sink.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM restart_history").Scan(&count); err != nil {
		t.Fatalf("Failed to query count: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 events, got %d", count)
	}

	var outcome string
	err = sink.db.QueryRowContext(ctx,
		"SELECT outcome FROM restart_history WHERE server = ?", "alpha").Scan(&outcome)
	if err != nil {
		t.Fatalf("Failed to read back event: %v", err)
	}
	if outcome != string(history.OutcomeForced) {
		t.Errorf("Expected outcome forced, got %s", outcome)
	}
}

func TestSQLiteSink_InMemory(t *testing.T) {
	sink, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create in-memory sink: %v", err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			t.Errorf("Failed to close sink: %v", err)
		}
	}()

	if err := sink.Send(context.Background(), testEvent("mem")); err != nil {
		t.Fatalf("Failed to send event: %v", err)
	}
}

func TestSQLiteSink_SchemePrefix(t *testing.T) {
	sink, err := New("sqlite://:memory:")
	if err != nil {
		t.Fatalf("Failed to create sink from sqlite:// DSN: %v", err)
	}
	defer func() { _ = sink.Close() }()

	if err := sink.Send(context.Background(), testEvent("prefixed")); err != nil {
		t.Fatalf("Failed to send event: %v", err)
	}
}

func TestSQLiteSink_EmptyDSN(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Error("Expected error for empty DSN, got nil")
	}
}

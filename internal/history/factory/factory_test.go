package factory

import (
	"context"
	"testing"
	"time"

	"github.com/stevestech/craftwatch/internal/history"
)

func TestNewSinkFromDSN_EmptyDSN(t *testing.T) {
	if _, err := NewSinkFromDSN(""); err == nil {
		t.Error("Expected error for empty DSN, got nil")
	}
	if _, err := NewSinkFromDSN("   "); err == nil {
		t.Error("Expected error for blank DSN, got nil")
	}
}

func TestNewSinkFromDSN_UnsupportedScheme(t *testing.T) {
	if _, err := NewSinkFromDSN("redis://localhost:6379"); err == nil {
		t.Error("Expected error for unsupported scheme, got nil")
	}
}

func TestNewSinkFromDSN_SQLiteMemory(t *testing.T) {
	sink, err := NewSinkFromDSN("sqlite://:memory:")
	if err != nil {
		t.Fatalf("Failed to create sqlite sink: %v", err)
	}
	e := history.Event{
		Server:     "alpha",
		Reason:     history.ReasonManual,
		Outcome:    history.OutcomeGraceful,
		OccurredAt: time.Now().UTC(),
	}
	if err := sink.Send(context.Background(), e); err != nil {
		t.Fatalf("Failed to send through factory-built sink: %v", err)
	}
}

func TestNewSinkFromDSN_BarePathIsSQLite(t *testing.T) {
	path := t.TempDir() + "/history.db"
	sink, err := NewSinkFromDSN(path)
	if err != nil {
		t.Fatalf("Failed to create sink from bare path: %v", err)
	}
	e := history.Event{
		Server:     "alpha",
		Reason:     history.ReasonCrash,
		Outcome:    history.OutcomeLaunchFailed,
		OccurredAt: time.Now().UTC(),
		Detail:     "no matching process within 15s",
	}
	if err := sink.Send(context.Background(), e); err != nil {
		t.Fatalf("Failed to send: %v", err)
	}
}

func TestNewSinkFromDSN_OpenSearch(t *testing.T) {
	// The OpenSearch sink is lazy; building it must not require a server.
	sink, err := NewSinkFromDSN("opensearch://localhost:9200/restart-history")
	if err != nil {
		t.Fatalf("Failed to create opensearch sink: %v", err)
	}
	if sink == nil {
		t.Fatal("nil sink")
	}
}

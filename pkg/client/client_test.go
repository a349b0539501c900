package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func apiStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		if name == "" {
			_ = json.NewEncoder(w).Encode([]ServerStatus{{Name: "survival", Health: "healthy"}})
			return
		}
		if name != "survival" {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "unknown server: " + name})
			return
		}
		_ = json.NewEncoder(w).Encode(ServerStatus{Name: "survival", Health: "healthy", DesiredOnline: true})
	})
	mux.HandleFunc("/api/restart", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(RestartEvent{
			Server:     r.URL.Query().Get("name"),
			Reason:     "manual",
			Outcome:    "graceful",
			OccurredAt: time.Now().UTC(),
		})
	})
	mux.HandleFunc("/api/stop", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientStatus(t *testing.T) {
	srv := apiStub(t)
	c := New(Config{BaseURL: srv.URL + "/api"})

	st, err := c.Status(context.Background(), "survival")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Health != "healthy" || !st.DesiredOnline {
		t.Fatalf("status = %+v", st)
	}

	if _, err := c.Status(context.Background(), "nope"); err == nil {
		t.Fatal("expected error for unknown server")
	}

	all, err := c.StatusAll(context.Background())
	if err != nil || len(all) != 1 {
		t.Fatalf("status all = %v, %v", all, err)
	}
}

func TestClientRestart(t *testing.T) {
	srv := apiStub(t)
	c := New(Config{BaseURL: srv.URL + "/api"})

	evt, err := c.Restart(context.Background(), "survival")
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if evt.Server != "survival" || evt.Outcome != "graceful" {
		t.Fatalf("event = %+v", evt)
	}
}

func TestClientStopAndReachability(t *testing.T) {
	srv := apiStub(t)
	c := New(Config{BaseURL: srv.URL + "/api"})

	if err := c.Stop(context.Background(), "survival"); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !c.IsReachable(context.Background()) {
		t.Fatal("daemon stub not reachable")
	}

	dead := New(Config{BaseURL: "http://127.0.0.1:1/api", Timeout: 200 * time.Millisecond})
	if dead.IsReachable(context.Background()) {
		t.Fatal("reachability false positive")
	}
}

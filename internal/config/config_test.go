package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "craftwatch.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
[log]
path = "/var/log/craftwatch/craftwatch.log"
dir = "/var/log/craftwatch/sessions"
level = "debug"

[http]
listen = "127.0.0.1:8080"
base_path = "/api"

[history]
dsn = "sqlite:///var/lib/craftwatch/history.db"

[[servers]]
name = "survival"
dir = "/srv/survival"
start_script = "start.sh"
match = "survival/server.jar"
host = "127.0.0.1"
port = 25565
auto_start = true
network_check = true
users = ["alice", "bob"]
poll_interval = "30s"
startup_grace = "2m"
probe_timeout = "5s"
fail_threshold = 5
graceful_timeout = "90s"
warning_leads = ["10m", "5m", "1m"]
restart_after = "24h"

[[servers]]
name = "creative"
dir = "/srv/creative"
start_script = "run.sh"
match = "creative/server.jar"
`)
	fc, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if fc.Log.Level != "debug" || fc.HTTP.Listen != "127.0.0.1:8080" {
		t.Fatalf("top-level sections not parsed: %+v %+v", fc.Log, fc.HTTP)
	}
	if fc.History.DSN == "" {
		t.Fatal("history DSN not parsed")
	}
	if len(fc.Servers) != 2 {
		t.Fatalf("servers = %d, want 2", len(fc.Servers))
	}

	s := fc.Servers[0]
	if s.PollInterval != 30*time.Second || s.StartupGrace != 2*time.Minute {
		t.Fatalf("durations not parsed: poll=%v grace=%v", s.PollInterval, s.StartupGrace)
	}
	if s.FailThreshold != 5 || s.GracefulTimeout != 90*time.Second {
		t.Fatalf("thresholds not parsed: %+v", s)
	}
	if len(s.WarningLeads) != 3 || s.WarningLeads[0] != 10*time.Minute {
		t.Fatalf("warning leads = %v", s.WarningLeads)
	}
	if s.RestartAfter != 24*time.Hour {
		t.Fatalf("restart_after = %v", s.RestartAfter)
	}
	if len(s.Users) != 2 {
		t.Fatalf("users = %v", s.Users)
	}

	// Second server exercises the defaults.
	c := fc.Servers[1]
	if c.PollInterval != DefaultPollInterval || c.FailThreshold != DefaultFailThreshold {
		t.Fatalf("defaults not applied: poll=%v threshold=%d", c.PollInterval, c.FailThreshold)
	}
	if c.GracefulTimeout != DefaultGracefulTimeout {
		t.Fatalf("graceful default = %v", c.GracefulTimeout)
	}
	if c.Host != "localhost" {
		t.Fatalf("host default = %q", c.Host)
	}
	if len(c.WarningLeads) == 0 {
		t.Fatal("warning leads default not applied")
	}
}

func TestLoadRejectsDuplicateNames(t *testing.T) {
	path := writeConfig(t, `
[[servers]]
name = "survival"
dir = "/srv/a"
start_script = "start.sh"
match = "a.jar"

[[servers]]
name = "survival"
dir = "/srv/b"
start_script = "start.sh"
match = "b.jar"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected duplicate-name error")
	}
}

func TestLoadRejectsMissingFields(t *testing.T) {
	path := writeConfig(t, `
[[servers]]
name = "survival"
dir = "/srv/a"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for missing start_script")
	}
}

func TestValidateNetworkCheckNeedsPort(t *testing.T) {
	s := Spec{Name: "x", Dir: "/srv/x", StartScript: "start.sh", Match: "x.jar", NetworkCheck: true}
	s.ApplyDefaults()
	if err := s.Validate(); err == nil {
		t.Fatal("expected error for network_check without port")
	}
	s.Port = 25565
	if err := s.Validate(); err != nil {
		t.Fatalf("unexpected error with port set: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

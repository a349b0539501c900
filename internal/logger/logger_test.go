package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "craftwatch.log")
	log := Config{Path: path, Level: "info"}.Setup()
	log.Info("supervisor started", "servers", 2)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "supervisor started") {
		t.Fatalf("log file missing message: %q", data)
	}
}

func TestSetupLevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "craftwatch.log")
	log := Config{Path: path, Level: "warn"}.Setup()
	log.Debug("noise")
	log.Info("also noise")
	log.Warn("kept")

	data, _ := os.ReadFile(path)
	s := string(data)
	if strings.Contains(s, "noise") {
		t.Fatalf("level filter leaked: %q", s)
	}
	if !strings.Contains(s, "kept") {
		t.Fatalf("warn message missing: %q", s)
	}
}

func TestSetupStderrFallback(t *testing.T) {
	log := Config{}.Setup()
	if log == nil {
		t.Fatal("nil logger")
	}
	// Must not panic with attributes of every kind.
	log.Info("check", "n", 1, "d", 2.5, "b", true)
}

func TestLevelParsing(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"junk":  slog.LevelInfo,
	}
	for in, want := range cases {
		if got := (Config{Level: in}).level(); got != want {
			t.Errorf("level(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSessionWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sessions")
	w := Config{Dir: dir}.SessionWriter("survival")
	if w == nil {
		t.Fatal("nil writer with dir set")
	}
	if _, err := w.Write([]byte("console output\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = w.Close()

	data, err := os.ReadFile(filepath.Join(dir, "survival.session.log"))
	if err != nil {
		t.Fatalf("read session log: %v", err)
	}
	if !strings.Contains(string(data), "console output") {
		t.Fatalf("session log content: %q", data)
	}
}

func TestSessionWriterWithoutDir(t *testing.T) {
	if w := (Config{}).SessionWriter("survival"); w != nil {
		t.Fatal("expected nil writer without a session dir")
	}
}

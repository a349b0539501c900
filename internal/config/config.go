package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/stevestech/craftwatch/internal/logger"
)

// Spec describes one supervised game server. Immutable once loaded;
// the supervisor owns it for the lifetime of that server's monitoring task.
type Spec struct {
	Name        string `toml:"name" mapstructure:"name"`
	Dir         string `toml:"dir" mapstructure:"dir"`                   // server files directory
	StartScript string `toml:"start_script" mapstructure:"start_script"` // launched inside the session
	Match       string `toml:"match" mapstructure:"match"`               // command-line token identifying the server process

	// Network liveness endpoint.
	Host string `toml:"host" mapstructure:"host"`
	Port int    `toml:"port" mapstructure:"port"`

	// Desired state and session access.
	AutoStart bool     `toml:"auto_start" mapstructure:"auto_start"`
	Users     []string `toml:"users" mapstructure:"users"` // authorised accounts for the multiuser session

	// Thresholds.
	PollInterval    time.Duration   `toml:"poll_interval" mapstructure:"poll_interval"`
	StartupGrace    time.Duration   `toml:"startup_grace" mapstructure:"startup_grace"` // no network probing below this uptime
	ProbeTimeout    time.Duration   `toml:"probe_timeout" mapstructure:"probe_timeout"`
	FailThreshold   int             `toml:"fail_threshold" mapstructure:"fail_threshold"` // consecutive network failures before unresponsive
	GracefulTimeout time.Duration   `toml:"graceful_timeout" mapstructure:"graceful_timeout"`
	WarningLeads    []time.Duration `toml:"warning_leads" mapstructure:"warning_leads"` // broadcast lead times before a voluntary stop
	RestartAfter    time.Duration   `toml:"restart_after" mapstructure:"restart_after"` // scheduled restart once uptime exceeds this; 0 disables
	NetworkCheck    bool            `toml:"network_check" mapstructure:"network_check"`
}

// Defaults matching the thresholds the wrapper has always used.
const (
	DefaultPollInterval    = 60 * time.Second
	DefaultStartupGrace    = 30 * time.Second
	DefaultProbeTimeout    = 10 * time.Second
	DefaultFailThreshold   = 3
	DefaultGracefulTimeout = 60 * time.Second
)

// ApplyDefaults fills in zero-valued thresholds.
func (s *Spec) ApplyDefaults() {
	if s.Host == "" {
		s.Host = "localhost"
	}
	if s.PollInterval <= 0 {
		s.PollInterval = DefaultPollInterval
	}
	if s.StartupGrace <= 0 {
		s.StartupGrace = DefaultStartupGrace
	}
	if s.ProbeTimeout <= 0 {
		s.ProbeTimeout = DefaultProbeTimeout
	}
	if s.FailThreshold <= 0 {
		s.FailThreshold = DefaultFailThreshold
	}
	if s.GracefulTimeout <= 0 {
		s.GracefulTimeout = DefaultGracefulTimeout
	}
	if len(s.WarningLeads) == 0 {
		s.WarningLeads = []time.Duration{60 * time.Second, 30 * time.Second, 10 * time.Second}
	}
}

// Validate checks the parts the supervisor cannot guess.
func (s *Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("server requires name")
	}
	if s.Dir == "" {
		return fmt.Errorf("server %s requires dir", s.Name)
	}
	if s.StartScript == "" {
		return fmt.Errorf("server %s requires start_script", s.Name)
	}
	if s.Match == "" {
		return fmt.Errorf("server %s requires match token", s.Name)
	}
	if s.NetworkCheck && s.Port <= 0 {
		return fmt.Errorf("server %s enables network_check but has no port", s.Name)
	}
	return nil
}

// HTTPConfig configures the embedded control API.
type HTTPConfig struct {
	Listen   string `toml:"listen" mapstructure:"listen"`
	BasePath string `toml:"base_path" mapstructure:"base_path"`
}

// HistoryConfig configures the restart-event sink.
type HistoryConfig struct {
	DSN string `toml:"dsn" mapstructure:"dsn"`
}

// FileConfig represents the top-level TOML structure.
type FileConfig struct {
	Log     logger.Config `toml:"log" mapstructure:"log"`
	HTTP    HTTPConfig    `toml:"http" mapstructure:"http"`
	History HistoryConfig `toml:"history" mapstructure:"history"`
	Servers []Spec        `toml:"servers" mapstructure:"servers"`
}

// Load parses a TOML config file, applies per-server defaults and
// validates every server entry.
func Load(path string) (*FileConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(fc.Servers))
	for i := range fc.Servers {
		s := &fc.Servers[i]
		s.ApplyDefaults()
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("duplicate server name %q", s.Name)
		}
		seen[s.Name] = true
	}
	return &fc, nil
}

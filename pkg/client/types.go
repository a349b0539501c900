package client

import "time"

// ServerStatus mirrors the supervisor's status snapshot as served by
// the control API.
type ServerStatus struct {
	Name            string    `json:"name"`
	DesiredOnline   bool      `json:"desired_online"`
	Health          string    `json:"health"`
	Since           time.Time `json:"since"`
	PIDs            []int32   `json:"pids,omitempty"`
	NetworkFails    int       `json:"network_fails"`
	Restarts        int       `json:"restarts"`
	Halted          bool      `json:"halted"`
	RestartInFlight bool      `json:"restart_in_flight"`
	LastProcessOK   time.Time `json:"last_process_ok,omitempty"`
	LastNetworkOK   time.Time `json:"last_network_ok,omitempty"`
	Uptime          string    `json:"uptime,omitempty"`
}

// RestartEvent mirrors one recorded restart attempt.
type RestartEvent struct {
	Server     string    `json:"server"`
	Reason     string    `json:"reason"`
	Outcome    string    `json:"outcome"`
	OccurredAt time.Time `json:"occurred_at"`
	OldPID     int32     `json:"old_pid,omitempty"`
	NewPID     int32     `json:"new_pid,omitempty"`
	Warnings   int       `json:"warnings"`
	Detail     string    `json:"detail,omitempty"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client talks to a running craftwatch daemon over its control API.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Config holds client configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger // Optional logger for client operations
}

// DefaultConfig returns default client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8080/api",
		Timeout: 10 * time.Second,
	}
}

// New creates a new craftwatch API client
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:8080/api"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Client{
		baseURL: config.BaseURL,
		logger:  config.Logger,
		client:  &http.Client{Timeout: config.Timeout},
	}
}

// IsReachable checks if the daemon is running and reachable
func (c *Client) IsReachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("daemon unreachable", "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode != http.StatusNotFound
}

// Status returns the supervisor's view of one server.
func (c *Client) Status(ctx context.Context, name string) (ServerStatus, error) {
	var st ServerStatus
	u := c.baseURL + "/status?name=" + url.QueryEscape(name)
	err := c.getJSON(ctx, u, &st)
	return st, err
}

// StatusAll returns every supervised server's status.
func (c *Client) StatusAll(ctx context.Context) ([]ServerStatus, error) {
	var sts []ServerStatus
	err := c.getJSON(ctx, c.baseURL+"/status", &sts)
	return sts, err
}

// Start marks a server desired-online and launches it if needed.
func (c *Client) Start(ctx context.Context, name string) error {
	return c.post(ctx, "/start", name, nil)
}

// Stop marks a server desired-offline and stops the running process.
func (c *Client) Stop(ctx context.Context, name string) error {
	return c.post(ctx, "/stop", name, nil)
}

// Restart triggers a warned restart and returns the recorded event.
func (c *Client) Restart(ctx context.Context, name string) (RestartEvent, error) {
	var evt RestartEvent
	err := c.post(ctx, "/restart", name, &evt)
	return evt, err
}

// Events returns recent restart events, newest first. An empty name
// selects all servers.
func (c *Client) Events(ctx context.Context, name string, limit int) ([]RestartEvent, error) {
	q := url.Values{}
	if name != "" {
		q.Set("name", name)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	u := c.baseURL + "/events"
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}
	var evts []RestartEvent
	err := c.getJSON(ctx, u, &evts)
	return evts, err
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if err := c.handleErrorResponse(resp); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) post(ctx context.Context, path, name string, out any) error {
	u := c.baseURL + path + "?name=" + url.QueryEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("HTTP request failed", "error", err, "url", u)
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if err := c.handleErrorResponse(resp); err != nil {
		return err
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) handleErrorResponse(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	var errorResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errorResp); err != nil || errorResp.Error == "" {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	c.logger.Error("API request failed", "error", errorResp.Error, "status", resp.StatusCode)
	return fmt.Errorf("API error: %s", errorResp.Error)
}

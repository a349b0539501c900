package craftwatch

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	cfg "github.com/stevestech/craftwatch/internal/config"
	"github.com/stevestech/craftwatch/internal/history"
	"github.com/stevestech/craftwatch/internal/history/factory"
	"github.com/stevestech/craftwatch/internal/logger"
	"github.com/stevestech/craftwatch/internal/metrics"
	iapi "github.com/stevestech/craftwatch/internal/server"
	"github.com/stevestech/craftwatch/internal/supervisor"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Spec = cfg.Spec

type ServerStatus = supervisor.ServerStatus

type RestartEvent = history.Event

type HistorySink = history.Sink

type LogConfig = logger.Config

// Supervisor is a thin facade over internal/supervisor.Supervisor.
// It provides a stable public API for embedding.
type Supervisor struct{ inner *supervisor.Supervisor }

// Options mirrors the pieces of the supervisor an embedder may tune.
type Options struct {
	Log   LogConfig
	Sinks []HistorySink
}

func New(opts Options) *Supervisor {
	return &Supervisor{inner: supervisor.New(supervisor.Options{
		Logger: opts.Log.Setup(),
		Sinks:  opts.Sinks,
		Log:    opts.Log,
	})}
}

func (s *Supervisor) Add(spec Spec) error          { return s.inner.Add(spec) }
func (s *Supervisor) Start(ctx context.Context)    { s.inner.Start(ctx) }
func (s *Supervisor) Shutdown()                    { s.inner.Shutdown() }
func (s *Supervisor) Names() []string              { return s.inner.Names() }
func (s *Supervisor) Status(ctx context.Context, name string) (ServerStatus, error) {
	return s.inner.Status(ctx, name)
}
func (s *Supervisor) StatusAll(ctx context.Context) []ServerStatus {
	return s.inner.StatusAll(ctx)
}
func (s *Supervisor) Restart(ctx context.Context, name string) (RestartEvent, error) {
	return s.inner.Restart(ctx, name)
}
func (s *Supervisor) StartServer(ctx context.Context, name string) error {
	return s.inner.StartServer(ctx, name)
}
func (s *Supervisor) StopServer(ctx context.Context, name string) error {
	return s.inner.StopServer(ctx, name)
}
func (s *Supervisor) Events(name string, limit int) []RestartEvent {
	return s.inner.Events(name, limit)
}

func LoadConfig(path string) (*cfg.FileConfig, error) {
	return cfg.Load(path)
}

// NewHistorySink builds a restart-event sink from a DSN
// (sqlite path, postgres://, clickhouse://, opensearch://).
func NewHistorySink(dsn string) (HistorySink, error) {
	return factory.NewSinkFromDSN(dsn)
}

// NewHTTPServer starts an HTTP server exposing the control API for the
// given supervisor.
func NewHTTPServer(addr, basePath string, s *Supervisor) (*http.Server, error) {
	return iapi.NewServer(addr, basePath, s.inner)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the
// default registry. It returns any immediate listen error; otherwise it
// runs the server in the caller goroutine.
func ServeMetrics(addr string) error {
	http.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           nil,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}

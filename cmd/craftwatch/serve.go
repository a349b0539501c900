package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stevestech/craftwatch"
)

// createServeCommand creates the serve subcommand
func createServeCommand(globalFlags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve [config.toml]",
		Short: "Start the craftwatch supervisor",
		Long: `Start the supervisor daemon. All servers, thresholds and the control
API are loaded from the TOML config file.

Examples:
  craftwatch serve                     # uses --config
  craftwatch serve /etc/craftwatch.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := globalFlags.ConfigPath
			if len(args) > 0 {
				configPath = args[0]
			}
			return runServe(configPath)
		},
	}
}

func runServe(configPath string) error {
	if configPath == "" {
		return fmt.Errorf("config file required. Use --config=craftwatch.toml or provide as argument")
	}
	cfg, err := craftwatch.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if len(cfg.Servers) == 0 {
		return fmt.Errorf("no servers configured in %s", configPath)
	}

	var sinks []craftwatch.HistorySink
	if cfg.History.DSN != "" {
		sink, err := craftwatch.NewHistorySink(cfg.History.DSN)
		if err != nil {
			return fmt.Errorf("failed to open history sink: %w", err)
		}
		sinks = append(sinks, sink)
	}

	sup := craftwatch.New(craftwatch.Options{Log: cfg.Log, Sinks: sinks})
	for _, spec := range cfg.Servers {
		if err := sup.Add(spec); err != nil {
			return fmt.Errorf("failed to add server %s: %w", spec.Name, err)
		}
	}

	if err := craftwatch.RegisterMetricsDefault(); err != nil {
		fmt.Printf("Warning: failed to register metrics: %v\n", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sup.Start(ctx)
	fmt.Printf("Supervising %d server(s)\n", len(cfg.Servers))

	var server interface{ Close() error }
	if cfg.HTTP.Listen != "" {
		server, err = craftwatch.NewHTTPServer(cfg.HTTP.Listen, cfg.HTTP.BasePath, sup)
		if err != nil {
			return fmt.Errorf("failed to create HTTP server: %w", err)
		}
		fmt.Printf("Control API listening on %s%s\n", cfg.HTTP.Listen, cfg.HTTP.BasePath)
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("Shutting down...")
	if server != nil {
		_ = server.Close()
	}
	sup.Shutdown()
	return nil
}

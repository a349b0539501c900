package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds minimal global/persistent flags for CLI commands
type GlobalFlags struct {
	ConfigPath string
}

// APIFlags holds daemon connection flags shared by the client commands
type APIFlags struct {
	APIUrl     string
	APITimeout time.Duration
}

// EventsFlags holds flags for the events command
type EventsFlags struct {
	APIFlags
	Limit int
}

func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	apiFlags := &APIFlags{}
	eventsFlags := &EventsFlags{}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createServeCommand(globalFlags),
		createStatusCommand(apiFlags),
		createStartCommand(apiFlags),
		createStopCommand(apiFlags),
		createRestartCommand(apiFlags),
		createEventsCommand(eventsFlags),
	)
	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "craftwatch",
		Short: "Game server supervision tool",
		Long: `Craftwatch keeps configured game servers alive: it probes the OS
process table and the server's network port, restarts crashed or
unresponsive servers with in-game warnings, and exposes a control API.

Examples:
  craftwatch serve --config=craftwatch.toml   # Start the supervisor
  craftwatch status                           # All servers, via the daemon
  craftwatch restart survival                 # Warned restart of one server`,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "craftwatch.toml", "path to TOML config file")
	return root
}

func addAPIFlags(cmd *cobra.Command, flags *APIFlags) {
	cmd.Flags().StringVar(&flags.APIUrl, "api-url", "", "daemon URL (default http://localhost:8080/api)")
	cmd.Flags().DurationVar(&flags.APITimeout, "api-timeout", 10*time.Second, "request timeout")
}

func createStatusCommand(flags *APIFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [server]",
		Short: "Show server health",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			c := NewAPIClient(flags.APIUrl, flags.APITimeout)
			out, err := c.Status(name)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	addAPIFlags(cmd, flags)
	return cmd
}

func createStartCommand(flags *APIFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start <server>",
		Short: "Mark a server desired-online and launch it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewAPIClient(flags.APIUrl, flags.APITimeout)
			return c.Start(args[0])
		},
	}
	addAPIFlags(cmd, flags)
	return cmd
}

func createStopCommand(flags *APIFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop <server>",
		Short: "Mark a server desired-offline and stop it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewAPIClient(flags.APIUrl, flags.APITimeout)
			return c.Stop(args[0])
		},
	}
	addAPIFlags(cmd, flags)
	return cmd
}

func createRestartCommand(flags *APIFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restart <server>",
		Short: "Restart a server with the usual warning countdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewAPIClient(flags.APIUrl, flags.APITimeout)
			out, err := c.Restart(args[0])
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	addAPIFlags(cmd, flags)
	return cmd
}

func createEventsCommand(flags *EventsFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events [server]",
		Short: "Show recent restart events, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			c := NewAPIClient(flags.APIUrl, flags.APITimeout)
			out, err := c.Events(name, flags.Limit)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	addAPIFlags(cmd, &flags.APIFlags)
	cmd.Flags().IntVar(&flags.Limit, "limit", 20, "maximum events to show")
	return cmd
}

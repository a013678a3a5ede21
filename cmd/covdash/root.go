package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/coverage.report/internal/backend"
	"github.com/banshee-data/coverage.report/internal/config"
	"github.com/banshee-data/coverage.report/internal/fsutil"
	"github.com/banshee-data/coverage.report/internal/httputil"
)

// app carries the global flags and the state every subcommand shares.
type app struct {
	fs fsutil.FileSystem

	configPath string
	backendURL string
	timeout    time.Duration

	cfg    *config.DashboardConfig
	client *backend.Client
}

func newRootCmd(fsys fsutil.FileSystem) *cobra.Command {
	a := &app{fs: fsys}
	root := &cobra.Command{
		Use:   "covdash",
		Short: "Coverage telemetry dashboard and backend client",
		Long: `covdash serves the coverage telemetry dashboard over a coverage REST
backend, and exposes the same operations on the command line: manage
coverage events, upload mapping sheets, inspect indicators and drill into
tool, project and stepping coverage.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to a .json, .yaml or .yml config file")
	root.PersistentFlags().StringVar(&a.backendURL, "backend", "", "Coverage backend base URL (overrides config)")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 0, "Per-request backend timeout, e.g. 5s (overrides config)")

	root.AddCommand(
		a.newServeCmd(),
		a.newEventsCmd(),
		a.newTemplateCmd(),
		a.newMappingCmd(),
		a.newIndicatorsCmd(),
		a.newDrilldownCmd(),
		newVersionCmd(),
	)
	return root
}

// setup merges the config file with flag overrides and builds the backend
// client.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg := config.EmptyConfig()
	if a.configPath != "" {
		loaded, err := config.LoadConfig(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("backend") {
		cfg.SetBackendURL(a.backendURL)
	}
	if cmd.Flags().Changed("timeout") {
		cfg.SetRequestTimeout(a.timeout)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	client, err := backend.New(cfg.GetBackendURL(), httputil.NewTimeoutClient(cfg.GetRequestTimeout()))
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.client = client
	return nil
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

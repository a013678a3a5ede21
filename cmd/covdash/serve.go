package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/banshee-data/coverage.report/internal/dashboard"
	"github.com/banshee-data/coverage.report/internal/version"
)

func (a *app) newServeCmd() *cobra.Command {
	var (
		listen    string
		maxUpload int64
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard",
		Example: `  # Serve on :8080 against a local backend
  covdash serve --backend http://127.0.0.1:8000

  # Serve with a config file and a different listen address
  covdash serve -c covdash.yaml --listen 127.0.0.1:9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("listen") {
				a.cfg.SetListen(listen)
			}
			if cmd.Flags().Changed("max-upload") {
				a.cfg.SetMaxUploadBytes(maxUpload)
			}
			if err := a.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			srv, err := dashboard.NewServer(a.client, a.cfg)
			if err != nil {
				return fmt.Errorf("build dashboard: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Print(version.String())
			return srv.Start(ctx, a.cfg.GetListen())
		},
	}
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Listen address (default from config, else :8080)")
	cmd.Flags().Int64Var(&maxUpload, "max-upload", 0, "Maximum upload size in bytes (default from config, else 32MiB)")
	return cmd
}

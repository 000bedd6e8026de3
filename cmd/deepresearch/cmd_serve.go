package main

import (
	"github.com/spf13/cobra"

	"github.com/leofalp/deepresearch/internal/server"
	"github.com/leofalp/deepresearch/internal/utils"
)

func newServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the research API over HTTP",
		Long: `Starts the HTTP API (POST /api/agent/run), report pages (/reports/:id),
run checkpoints (/runs/:id) and Prometheus metrics (/metrics).

The server shuts down gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			application, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer utils.CloseWithLog(application)

			srv, err := server.New(server.Config{
				Runner:      application.workflow,
				Reports:     application.store,
				Checkpoints: application.store,
				Gatherer:    application.registry,
				Observer:    application.observer,
			})
			if err != nil {
				return err
			}
			return srv.ListenAndServe(cmd.Context(), cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

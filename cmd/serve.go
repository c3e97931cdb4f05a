package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/findthatcharity/orgid-cli/internal/server"
	"github.com/findthatcharity/orgid-cli/internal/wizard"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the upload wizard HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		env, err := initPipeline(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		sessions, err := wizard.NewSessions(cfg.Server.MaxSessions)
		if err != nil {
			return err
		}

		srv := server.New(cfg.Server, sessions, env.Pipeline, env.Client, env.Catalogue)
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

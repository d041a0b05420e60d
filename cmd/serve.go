// File: cmd/serve.go
package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/circuitscope-cli/internal/observability"
	"github.com/xkilldash9x/circuitscope-cli/internal/server"
)

// newServeCmd creates and configures the `serve` command.
func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Starts the local HTTP facade",
		Long: `Starts an HTTP server exposing the audit, BOM, search and firmware flows
for local tooling. The server runs until interrupted.`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlag("server.listen_addr", cmd.Flags().Lookup("listen"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if addr := viper.GetString("server.listen_addr"); addr != "" {
				cfg.Server.ListenAddr = addr
			}

			orch, closeClient, err := buildOrchestrator()
			if err != nil {
				return err
			}
			defer closeClient()

			srv := server.New(orch, cfg.Server, observability.GetLogger())
			return srv.Run(ctx)
		},
	}

	serveCmd.Flags().StringP("listen", "l", "", "Listen address (overrides config/env).")

	return serveCmd
}

package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tableforge-labs/tableforge/internal/config"
	"github.com/tableforge-labs/tableforge/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Serve exposes the transform engine over HTTP: run stored or ad-hoc
configs, browse datasets and schemas, and validate configs. With --watch the
configs directory is reloaded on change.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appCfg := currentConfig()
			logger := config.GetLogger(cmd.Context())

			runner, resolver, err := newRunner(cmd, appCfg)
			if err != nil {
				return err
			}
			store, err := server.NewConfigStore(appCfg.ConfigsDir)
			if err != nil {
				return err
			}

			srv := server.NewServer(server.Config{
				Runner:   runner,
				Resolver: resolver,
				Store:    store,
				Cache:    resolver,
				Port:     appCfg.Server.Port,
				Watch:    appCfg.Server.Watch,
				Logger:   logger,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.Serve(ctx); err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}
	return cmd
}

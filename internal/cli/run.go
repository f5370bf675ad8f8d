package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/switchboard/internal/app"
)

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Boot, serve plugins until interrupted, then shut down",
		Long: `Run boots the application and keeps plugins loaded until SIGINT or
SIGTERM. With plugins.watch enabled, edited plugins are reloaded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return opts.withApp(ctx, func(ctx context.Context, a *app.Application) error {
				logger := a.Logger()
				logger.Info().
					Int("plugins", len(a.Plugins().Plugins())).
					Bool("watch", a.Config().Plugins.Watch).
					Msg("running")
				<-ctx.Done()
				logger.Info().Msg("stopping")
				return nil
			})
		},
	}
}

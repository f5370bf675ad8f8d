package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/switchboard/internal/app"
)

func newEmitCmd(opts *options) *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "emit EVENT TYPE",
		Short: "Emit an event to the loaded plugins",
		Long: `Emit boots the application, emits EVENT for TYPE and prints "continue"
or "stopped". The exit status is 2 when a handler stopped the event.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			subj, err := parseJSON("subject", subject)
			if err != nil {
				return err
			}

			return opts.withApp(commandContext(cmd), func(ctx context.Context, a *app.Application) error {
				if a.Events().Emit(ctx, args[0], args[1], subj) {
					fmt.Fprintln(cmd.OutOrStdout(), "continue")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "stopped")
				return &ExitError{Code: ExitCodeStopped, Msg: "event stopped"}
			})
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Event subject as JSON")
	return cmd
}

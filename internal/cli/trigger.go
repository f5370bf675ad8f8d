package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dshills/switchboard/internal/app"
)

func newTriggerCmd(opts *options) *cobra.Command {
	var (
		params  string
		initial string
		indent  bool
	)

	cmd := &cobra.Command{
		Use:   "trigger HOOK TYPE",
		Short: "Trigger a plugin hook and print the final value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parseJSON("params", params)
			if err != nil {
				return err
			}
			seed, err := parseJSON("initial", initial)
			if err != nil {
				return err
			}

			return opts.withApp(commandContext(cmd), func(ctx context.Context, a *app.Application) error {
				result := a.Hooks().Trigger(ctx, args[0], args[1], p, seed)
				out, err := formatJSON(result, indent)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&params, "params", "", "Hook params as JSON")
	cmd.Flags().StringVar(&initial, "initial", "", "Initial return value as JSON")
	cmd.Flags().BoolVar(&indent, "pretty", false, "Indent the result")
	return cmd
}

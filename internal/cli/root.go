// Package cli implements the switchboard command line.
package cli

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dshills/switchboard/internal/app"
	"github.com/dshills/switchboard/internal/config"
	"github.com/dshills/switchboard/internal/logging"
)

// options is the state shared by the root command and its subcommands.
type options struct {
	configPath string
	verbosity  int

	cfg    *config.Config
	logger zerolog.Logger
	closer io.Closer
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	opts := &options{logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "switchboard",
		Short: "Event and plugin hook dispatcher",
		Long: `switchboard dispatches named events and plugin hooks to prioritized
handlers. Handlers come from Lua plugins discovered in the plugin directory.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			opts.close()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file (toml or yaml)")
	rootCmd.PersistentFlags().CountVarP(&opts.verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")

	rootCmd.AddCommand(newEmitCmd(opts))
	rootCmd.AddCommand(newTriggerCmd(opts))
	rootCmd.AddCommand(newListCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// setup loads configuration and configures logging. A -v count above the
// configured verbosity wins.
func (o *options) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.verbosity > cfg.Log.Verbosity {
		cfg.Log.Verbosity = o.verbosity
	}
	o.cfg = cfg

	o.logger, o.closer = logging.SetupLogger(logging.Options{
		Verbosity: cfg.Log.Verbosity,
		File:      cfg.Log.File,
		Out:       cmd.ErrOrStderr(),
	})
	o.logger.Debug().
		Str("command", cmd.Name()).
		Str("config", cfg.Path).
		Msg("Command started")
	return nil
}

func (o *options) close() {
	if o.closer != nil {
		_ = o.closer.Close()
		o.closer = nil
	}
}

// withApp boots an application, runs fn and shuts the application down.
// A handler failure surfacing as a panic, shutdown handlers included, is
// returned as an error.
func (o *options) withApp(ctx context.Context, fn func(ctx context.Context, a *app.Application) error) (err error) {
	a, err := app.New(o.cfg, app.WithLogger(o.logger))
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, shutdown(context.WithoutCancel(ctx), a))
	}()
	defer recoverDispatch(&err)

	if err := a.Boot(ctx); err != nil {
		return err
	}
	return fn(ctx, a)
}

func shutdown(ctx context.Context, a *app.Application) (err error) {
	defer recoverDispatch(&err)
	return a.Shutdown(ctx)
}

func recoverDispatch(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if e, ok := r.(error); ok {
		*err = e
		return
	}
	panic(r)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		var exit *ExitError
		if errors.As(err, &exit) {
			return exit.Code
		}
		PrintError(os.Stderr, err)
		return ExitCodeFailure
	}
	return ExitCodeOK
}

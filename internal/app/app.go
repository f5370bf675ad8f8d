// Package app wires configuration, logging, both registries and the
// plugin manager into one application with a boot/shutdown lifecycle.
package app

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/dshills/switchboard/internal/config"
	"github.com/dshills/switchboard/internal/event"
	"github.com/dshills/switchboard/internal/hook"
	"github.com/dshills/switchboard/internal/logging"
	"github.com/dshills/switchboard/internal/plugin"
)

// System lifecycle events, all emitted with object type "system".
const (
	SystemType    = "system"
	BootEvent     = "boot"
	InitEvent     = "init"
	ShutdownEvent = "shutdown"
)

// Application owns the registries and plugins for one process.
type Application struct {
	mu sync.Mutex

	config *config.Config
	logger zerolog.Logger

	events  *event.Registry
	hooks   *hook.Registry
	plugins *plugin.Manager
	watcher *plugin.Watcher

	booted   atomic.Bool
	shutdown atomic.Bool
}

// Option configures an Application.
type Option func(*Application)

// WithLogger sets the base logger. Log lines pass through the
// (debug, log) hook before they are written.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Application) {
		a.logger = l
	}
}

// New builds an application from cfg. Nothing runs until Boot.
func New(cfg *config.Config, opts ...Option) (*Application, error) {
	if cfg == nil {
		return nil, &InitError{Component: "config", Err: ErrNilConfig}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &InitError{Component: "config", Err: err}
	}

	a := &Application{
		config: cfg,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.hooks = hook.NewRegistry(
		hook.WithLogger(component(a.logger, "hooks")),
		hook.WithPolicy(cfg.Policy()),
		hook.WithDefaultPriority(cfg.Dispatch.DefaultPriority),
		hook.WithNilAbstains(cfg.Hooks.NilAbstains),
	)

	a.events = event.NewRegistry(
		event.WithLogger(component(a.logger, "events")),
		event.WithPolicy(cfg.Policy()),
		event.WithDefaultPriority(cfg.Dispatch.DefaultPriority),
	)

	// The registries log directly; everything else is offered to
	// (debug, log) first.
	a.logger = logging.NewHookBridge(a.hooks).Attach(a.logger)

	a.plugins = plugin.NewManager(a.events, a.hooks, []string{cfg.Plugins.Dir},
		plugin.WithLogger(component(a.logger, "plugins")),
		plugin.WithCallTimeout(cfg.CallTimeout()),
		plugin.WithFilter(cfg.PluginEnabled),
	)

	return a, nil
}

func component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

// Config returns the configuration.
func (a *Application) Config() *config.Config {
	return a.config
}

// Logger returns the application logger.
func (a *Application) Logger() zerolog.Logger {
	return a.logger
}

// Events returns the event registry.
func (a *Application) Events() *event.Registry {
	return a.events
}

// Hooks returns the hook registry.
func (a *Application) Hooks() *hook.Registry {
	return a.hooks
}

// Plugins returns the plugin manager.
func (a *Application) Plugins() *plugin.Manager {
	return a.plugins
}

// Booted reports whether Boot has run.
func (a *Application) Booted() bool {
	return a.booted.Load()
}

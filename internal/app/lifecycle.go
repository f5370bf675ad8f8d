package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/switchboard/internal/plugin"
)

// Boot loads plugins, starts the plugin watcher when configured, then
// emits (boot, system) and (init, system). Plugins that fail to load are
// logged and skipped. Boot returns ErrBootVetoed when an init handler
// stops the event; boot handlers cannot veto.
func (a *Application) Boot(ctx context.Context) error {
	if !a.booted.CompareAndSwap(false, true) {
		return ErrAlreadyBooted
	}

	if err := a.plugins.LoadAll(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("some plugins failed to load")
	}

	if a.config.Plugins.Watch {
		w, err := plugin.NewWatcher(context.WithoutCancel(ctx), a.plugins,
			plugin.WithDebounce(a.config.Debounce()),
			plugin.WithWatchLogger(component(a.logger, "watcher")),
		)
		if err != nil {
			return &InitError{Component: "watcher", Err: err}
		}
		a.mu.Lock()
		a.watcher = w
		a.mu.Unlock()
	}

	a.events.Emit(ctx, BootEvent, SystemType, nil)
	if !a.events.Emit(ctx, InitEvent, SystemType, nil) {
		return ErrBootVetoed
	}

	a.logger.Info().
		Int("plugins", len(a.plugins.Plugins())).
		Int("handlers", a.events.Len()+a.hooks.Len()).
		Msg("booted")
	return nil
}

// Shutdown emits (shutdown, system), stops the watcher and unloads every
// plugin. Only the first call does anything. The watcher is stopped and
// plugins unloaded even when a shutdown handler panics; the panic then
// continues.
func (a *Application) Shutdown(ctx context.Context) (err error) {
	if !a.shutdown.CompareAndSwap(false, true) {
		return nil
	}
	defer func() {
		err = errors.Join(err, a.release(ctx))
	}()

	a.events.Emit(ctx, ShutdownEvent, SystemType, nil)
	return nil
}

// release stops the watcher and unloads every plugin.
func (a *Application) release(ctx context.Context) error {
	var errs []error
	a.mu.Lock()
	w := a.watcher
	a.watcher = nil
	a.mu.Unlock()
	if w != nil {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close watcher: %w", err))
		}
	}

	if err := a.plugins.UnloadAll(ctx); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info().Msg("shut down")
	return errors.Join(errs...)
}

// Reset removes every registration from both registries. Loaded plugins
// stay loaded but lose their handlers.
func (a *Application) Reset() {
	a.events.Reset()
	a.hooks.Reset()
}

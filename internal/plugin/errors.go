package plugin

import (
	"errors"
	"fmt"

	"github.com/dshills/switchboard/internal/priority"
)

// Plugin system errors.
var (
	// ErrPluginNotFound is returned when a plugin cannot be located.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrNoEntryPoint is returned when a plugin directory has no script to run.
	ErrNoEntryPoint = errors.New("plugin has no entry point (init.lua or manifest main)")

	// ErrAlreadyLoaded is returned when loading a plugin that is loaded.
	ErrAlreadyLoaded = errors.New("plugin is already loaded")

	// ErrNotLoaded is returned when unloading a plugin that is not loaded.
	ErrNotLoaded = errors.New("plugin is not loaded")

	// ErrInvalidManifest is returned when plugin.yaml fails validation.
	ErrInvalidManifest = errors.New("invalid plugin manifest")
)

// HandlerError reports a Lua handler that failed during dispatch.
type HandlerError struct {
	Plugin string
	Key    priority.Key
	Err    error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("plugin %s: handler for %s failed: %v", e.Plugin, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// LoadError reports a plugin that could not be loaded.
type LoadError struct {
	Plugin string
	Err    error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load plugin %s: %v", e.Plugin, e.Err)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

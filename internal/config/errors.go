package config

import (
	"errors"
	"fmt"
)

// Errors returned by configuration loading.
var (
	// ErrFileNotFound indicates an explicitly requested config file is missing.
	ErrFileNotFound = errors.New("config file not found")

	// ErrUnsupportedFormat indicates a config file extension with no parser.
	ErrUnsupportedFormat = errors.New("unsupported config format")

	// ErrInvalidConfig indicates a setting failed validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// LoadError wraps a failure in one configuration layer.
type LoadError struct {
	// Layer is "defaults", "file" or "env".
	Layer string

	// Path is the file involved, if any.
	Path string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to load %s config from %s: %v", e.Layer, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to load %s config: %v", e.Layer, e.Err)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

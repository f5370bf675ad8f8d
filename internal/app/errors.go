package app

import "errors"

// Application errors.
var (
	// ErrNilConfig indicates New was called without a configuration.
	ErrNilConfig = errors.New("configuration is nil")

	// ErrAlreadyBooted indicates Boot was called twice.
	ErrAlreadyBooted = errors.New("application already booted")

	// ErrBootVetoed indicates an (init, system) handler stopped the event.
	ErrBootVetoed = errors.New("boot vetoed by an init handler")
)

// InitError represents an initialization error.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return "init " + e.Component + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}

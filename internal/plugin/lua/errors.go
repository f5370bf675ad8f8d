package lua

import "errors"

// Errors for Lua state operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrTimeout is returned when a call exceeds the state's timeout.
	ErrTimeout = errors.New("lua execution timeout")

	// ErrModuleNotAllowed is raised inside Lua when require names a
	// module the sandbox does not expose.
	ErrModuleNotAllowed = errors.New("module is not available")
)

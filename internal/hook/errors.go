package hook

import (
	"errors"
	"fmt"
)

// ErrTypeMismatch is returned by TriggerAs when the final value does not
// have the requested type.
var ErrTypeMismatch = errors.New("hook value has unexpected type")

// TypeError describes a TriggerAs type mismatch.
type TypeError struct {
	// Hook and Type identify the trigger.
	Hook string
	Type string

	// Want is the requested Go type.
	Want string

	// Got is the value the handlers produced.
	Got any
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	return fmt.Sprintf("hook %s:%s produced %T, want %s", e.Hook, e.Type, e.Got, e.Want)
}

// Is allows errors.Is to match TypeError with ErrTypeMismatch.
func (e *TypeError) Is(target error) bool {
	return target == ErrTypeMismatch
}

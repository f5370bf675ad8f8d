package event

import (
	"context"

	"github.com/dshills/switchboard/internal/priority"
)

// Event is what a handler receives when an event is emitted.
type Event struct {
	// Name is the event, usually a verb: "create", "update", "init".
	Name string

	// ObjectType is the kind of object concerned: "user", "system".
	ObjectType string

	// Subject is the optional object the event is about.
	Subject any
}

// Key returns the bucket key the event was emitted for.
func (e Event) Key() priority.Key {
	return priority.Key{Primary: e.Name, Secondary: e.ObjectType}
}

// Result is a handler's verdict on an event.
type Result int

const (
	// Continue lets dispatch move on to the next handler. It is the zero
	// value, so a handler with nothing to say continues.
	Continue Result = iota

	// Stop vetoes the event. No further handler runs and Emit returns false.
	Stop
)

// String returns a human-readable result name.
func (r Result) String() string {
	switch r {
	case Continue:
		return "continue"
	case Stop:
		return "stop"
	default:
		return "unknown"
	}
}

// Handler observes events and may veto them.
//
// Handlers are compared with == when unregistering, so implementations must
// be comparable. Pointer receivers are the usual choice.
type Handler interface {
	HandleEvent(ctx context.Context, evt Event) Result
}

// funcHandler gives a closure pointer identity.
type funcHandler struct {
	fn func(ctx context.Context, evt Event) Result
}

func (h *funcHandler) HandleEvent(ctx context.Context, evt Event) Result {
	return h.fn(ctx, evt)
}

// Func wraps fn as a Handler. Every call returns a distinct handler, so keep
// the result to unregister it later. Func(nil) returns nil.
func Func(fn func(ctx context.Context, evt Event) Result) Handler {
	if fn == nil {
		return nil
	}
	return &funcHandler{fn: fn}
}

// Observer wraps a function that never vetoes.
func Observer(fn func(ctx context.Context, evt Event)) Handler {
	if fn == nil {
		return nil
	}
	return &funcHandler{fn: func(ctx context.Context, evt Event) Result {
		fn(ctx, evt)
		return Continue
	}}
}

package hook

import (
	"context"

	"github.com/dshills/switchboard/internal/priority"
)

// Invocation is what a handler receives when a hook is triggered.
type Invocation struct {
	// Name is the hook, usually a verb: "prepare", "permissions_check".
	Name string

	// Type narrows the hook: "menu", "user".
	Type string

	// Value is the running value: the initial value or the latest
	// replacement.
	Value any

	// Params carries extra, read-only context from the caller.
	Params any
}

// Key returns the bucket key the hook was triggered for.
func (inv Invocation) Key() priority.Key {
	return priority.Key{Primary: inv.Name, Secondary: inv.Type}
}

// Outcome is a handler's answer. The zero value abstains.
type Outcome struct {
	value   any
	replace bool
}

// Abstain leaves the running value unchanged.
func Abstain() Outcome {
	return Outcome{}
}

// Replace sets the running value to v, even when v is nil.
func Replace(v any) Outcome {
	return Outcome{value: v, replace: true}
}

// Value returns the replacement and whether there is one.
func (o Outcome) Value() (any, bool) {
	return o.value, o.replace
}

// Abstained reports whether the outcome leaves the value alone.
func (o Outcome) Abstained() bool {
	return !o.replace
}

// Handler filters a hook's value.
//
// Handlers are compared with == when unregistering, so implementations must
// be comparable. Pointer receivers are the usual choice.
type Handler interface {
	HandleHook(ctx context.Context, inv Invocation) Outcome
}

type funcHandler struct {
	fn func(ctx context.Context, inv Invocation) Outcome
}

func (h *funcHandler) HandleHook(ctx context.Context, inv Invocation) Outcome {
	return h.fn(ctx, inv)
}

// Func wraps fn as a Handler. Every call returns a distinct handler, so keep
// the result to unregister it later. Func(nil) returns nil.
func Func(fn func(ctx context.Context, inv Invocation) Outcome) Handler {
	if fn == nil {
		return nil
	}
	return &funcHandler{fn: fn}
}

// Filter wraps a function in the "nil means no opinion" style: a nil
// return abstains, anything else replaces.
func Filter(fn func(ctx context.Context, inv Invocation) any) Handler {
	if fn == nil {
		return nil
	}
	return &funcHandler{fn: func(ctx context.Context, inv Invocation) Outcome {
		v := fn(ctx, inv)
		if v == nil {
			return Abstain()
		}
		return Replace(v)
	}}
}

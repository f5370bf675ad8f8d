package hook

import (
	"context"
	"reflect"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/dshills/switchboard/internal/priority"
)

// Registry holds hook handlers keyed by (hook, type) and threads values
// through them. It is safe for concurrent use; no lock is held while a
// handler runs.
type Registry struct {
	handlers        *priority.Map[Handler]
	logger          zerolog.Logger
	defaultPriority int
	nilAbstains     bool

	// Stats
	triggered atomic.Uint64
	replaced  atomic.Uint64
	invoked   atomic.Uint64
}

// NewRegistry creates an empty hook registry.
func NewRegistry(opts ...Option) *Registry {
	cfg := defaultRegistryConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Registry{
		handlers:        priority.New[Handler](priority.WithPolicy(cfg.policy)),
		logger:          cfg.logger,
		defaultPriority: cfg.defaultPriority,
		nilAbstains:     cfg.nilAbstains,
	}
}

// Register adds h for (hook, typ). Either may be priority.Wildcard. It
// returns false when a key part is empty, h is nil or not comparable, or
// the requested slot is taken under the reject policy.
func (r *Registry) Register(hook, typ string, h Handler, opts ...RegisterOption) bool {
	cfg := registerConfig{priority: r.defaultPriority}
	for _, opt := range opts {
		opt(&cfg)
	}

	slot, ok := r.handlers.RegisterAt(hook, typ, h, cfg.priority)
	if !ok {
		r.logger.Debug().
			Str("hook", hook).
			Str("type", typ).
			Int("priority", cfg.priority).
			Msg("hook handler rejected")
		return false
	}

	r.logger.Debug().
		Str("hook", hook).
		Str("type", typ).
		Int("priority", slot).
		Msg("hook handler registered")
	return true
}

// Unregister removes every registration of h under exactly (hook, typ).
// Unknown handlers and buckets are ignored.
func (r *Registry) Unregister(hook, typ string, h Handler) {
	if removed := r.handlers.Unregister(hook, typ, h); removed > 0 {
		r.logger.Debug().
			Str("hook", hook).
			Str("type", typ).
			Int("removed", removed).
			Msg("hook handler unregistered")
	}
}

// Trigger passes initial through every handler that applies to
// (hook, typ), in priority.Chain order, and returns the final value.
// Handlers that abstain leave the value unchanged. With nothing registered
// initial is returned as is.
//
// Panics raised by handlers are not recovered.
func (r *Registry) Trigger(ctx context.Context, hook, typ string, params, initial any) any {
	r.triggered.Add(1)
	value := initial

	for _, key := range priority.Chain(hook, typ) {
		for _, h := range r.handlers.Lookup(key.Primary, key.Secondary) {
			r.invoked.Add(1)
			out := h.HandleHook(ctx, Invocation{
				Name:   hook,
				Type:   typ,
				Value:  value,
				Params: params,
			})

			next, ok := out.Value()
			if !ok || (next == nil && r.nilAbstains) {
				continue
			}
			r.replaced.Add(1)
			value = next
		}
	}

	r.logger.Trace().
		Str("hook", hook).
		Str("type", typ).
		Msg("hook triggered")
	return value
}

// TriggerAs triggers the hook and asserts the final value to T. A nil
// final value yields the zero T without error when T is an interface,
// pointer, map, slice, func or chan type.
func TriggerAs[T any](ctx context.Context, r *Registry, hook, typ string, params any, initial T) (T, error) {
	v := r.Trigger(ctx, hook, typ, params, initial)

	if out, ok := v.(T); ok {
		return out, nil
	}

	var zero T
	if v == nil && nilable(reflect.TypeOf(&zero).Elem()) {
		return zero, nil
	}
	return zero, &TypeError{
		Hook: hook,
		Type: typ,
		Want: reflect.TypeOf(&zero).Elem().String(),
		Got:  v,
	}
}

func nilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	}
	return false
}

// Handlers returns the handlers registered under exactly (hook, typ), in
// priority order.
func (r *Registry) Handlers(hook, typ string) []Handler {
	return r.handlers.Lookup(hook, typ)
}

// Entries returns the bucket's handlers with their effective priorities.
func (r *Registry) Entries(hook, typ string) []priority.Entry[Handler] {
	return r.handlers.Entries(hook, typ)
}

// Buckets returns every non-empty (hook, type) key, sorted.
func (r *Registry) Buckets() []priority.Key {
	return r.handlers.Keys()
}

// Len returns the number of registered handlers.
func (r *Registry) Len() int {
	return r.handlers.Len()
}

// Purge removes every handler, in any bucket, for which match returns true.
func (r *Registry) Purge(match func(Handler) bool) int {
	removed := r.handlers.RemoveIf(func(_ priority.Key, h Handler) bool {
		return match(h)
	})
	if removed > 0 {
		r.logger.Debug().Int("removed", removed).Msg("hook handlers purged")
	}
	return removed
}

// Reset removes all handlers and zeroes the stats.
func (r *Registry) Reset() {
	r.handlers.Reset()
	r.triggered.Store(0)
	r.replaced.Store(0)
	r.invoked.Store(0)
}

// Stats describes dispatch activity since creation or the last Reset.
type Stats struct {
	Triggered uint64
	Replaced  uint64
	Invoked   uint64
}

// Stats returns a snapshot of the dispatch counters.
func (r *Registry) Stats() Stats {
	return Stats{
		Triggered: r.triggered.Load(),
		Replaced:  r.replaced.Load(),
		Invoked:   r.invoked.Load(),
	}
}

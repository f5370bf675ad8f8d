package event

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/dshills/switchboard/internal/priority"
)

// Registry holds event handlers keyed by (event, object type) and emits
// events to them. It is safe for concurrent use; no lock is held while a
// handler runs, so handlers may register, unregister and emit freely.
type Registry struct {
	handlers        *priority.Map[Handler]
	logger          zerolog.Logger
	defaultPriority int

	// Stats
	emitted atomic.Uint64
	stopped atomic.Uint64
	invoked atomic.Uint64
}

// NewRegistry creates an empty event registry.
func NewRegistry(opts ...Option) *Registry {
	cfg := defaultRegistryConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Registry{
		handlers:        priority.New[Handler](priority.WithPolicy(cfg.policy)),
		logger:          cfg.logger,
		defaultPriority: cfg.defaultPriority,
	}
}

// On registers h for (event, objectType). Either may be priority.Wildcard.
// It returns false when a key part is empty, h is nil or not comparable, or
// the requested slot is taken under the reject policy.
func (r *Registry) On(event, objectType string, h Handler, opts ...OnOption) bool {
	cfg := onConfig{priority: r.defaultPriority}
	for _, opt := range opts {
		opt(&cfg)
	}

	slot, ok := r.handlers.RegisterAt(event, objectType, h, cfg.priority)
	if !ok {
		r.logger.Debug().
			Str("event", event).
			Str("type", objectType).
			Int("priority", cfg.priority).
			Msg("event handler rejected")
		return false
	}

	r.logger.Debug().
		Str("event", event).
		Str("type", objectType).
		Int("priority", slot).
		Msg("event handler registered")
	return true
}

// Off removes every registration of h under exactly (event, objectType).
// Unknown handlers and buckets are ignored.
func (r *Registry) Off(event, objectType string, h Handler) {
	if removed := r.handlers.Unregister(event, objectType, h); removed > 0 {
		r.logger.Debug().
			Str("event", event).
			Str("type", objectType).
			Int("removed", removed).
			Msg("event handler unregistered")
	}
}

// Emit runs the handlers for (event, objectType) and the wildcard buckets
// that apply, in priority.Chain order. The first handler returning Stop
// ends dispatch and Emit returns false. Otherwise, including when nothing
// is registered, Emit returns true.
//
// Panics raised by handlers are not recovered.
func (r *Registry) Emit(ctx context.Context, event, objectType string, subject any) bool {
	r.emitted.Add(1)
	evt := Event{Name: event, ObjectType: objectType, Subject: subject}

	for _, key := range priority.Chain(event, objectType) {
		// Each bucket is read when dispatch reaches it, so a handler
		// registered by an earlier handler into a later bucket still runs.
		for _, h := range r.handlers.Lookup(key.Primary, key.Secondary) {
			r.invoked.Add(1)
			if h.HandleEvent(ctx, evt) == Stop {
				r.stopped.Add(1)
				r.logger.Trace().
					Str("event", event).
					Str("type", objectType).
					Stringer("bucket", key).
					Msg("event stopped by handler")
				return false
			}
		}
	}
	return true
}

// Handlers returns the handlers registered under exactly (event,
// objectType), in priority order.
func (r *Registry) Handlers(event, objectType string) []Handler {
	return r.handlers.Lookup(event, objectType)
}

// Entries returns the bucket's handlers with their effective priorities.
func (r *Registry) Entries(event, objectType string) []priority.Entry[Handler] {
	return r.handlers.Entries(event, objectType)
}

// Buckets returns every non-empty (event, object type) key, sorted.
func (r *Registry) Buckets() []priority.Key {
	return r.handlers.Keys()
}

// Len returns the number of registered handlers.
func (r *Registry) Len() int {
	return r.handlers.Len()
}

// Purge removes every handler, in any bucket, for which match returns
// true. Plugin unloading uses it to drop everything a plugin registered.
func (r *Registry) Purge(match func(Handler) bool) int {
	removed := r.handlers.RemoveIf(func(_ priority.Key, h Handler) bool {
		return match(h)
	})
	if removed > 0 {
		r.logger.Debug().Int("removed", removed).Msg("event handlers purged")
	}
	return removed
}

// Reset removes all handlers and zeroes the stats.
func (r *Registry) Reset() {
	r.handlers.Reset()
	r.emitted.Store(0)
	r.stopped.Store(0)
	r.invoked.Store(0)
}

// Stats describes dispatch activity since creation or the last Reset.
type Stats struct {
	Emitted uint64
	Stopped uint64
	Invoked uint64
}

// Stats returns a snapshot of the dispatch counters.
func (r *Registry) Stats() Stats {
	return Stats{
		Emitted: r.emitted.Load(),
		Stopped: r.stopped.Load(),
		Invoked: r.invoked.Load(),
	}
}

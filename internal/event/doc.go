// Package event provides the vetoable notification registry.
//
// Events announce that something happened, or is about to: a user was
// created, the system finished booting. Handlers may observe an event and
// may veto it, but cannot change it.
//
// # Registration
//
// Handlers register under an (event, object type) pair. Either part may be
// the wildcard "all":
//
//	events := event.NewRegistry()
//	events.On("create", "user", audit)                        // one event
//	events.On("all", "user", cache, event.AtPriority(100))    // every user event
//	events.On("all", "all", tracer, event.AtPriority(priority.Late))
//
// Priorities order handlers inside one bucket. A taken slot is probed
// upward, so two handlers asking for 500 end up at 500 and 501 in
// registration order.
//
// # Emitting
//
//	if !events.Emit(ctx, "delete", "user", u) {
//	    // some handler vetoed the delete
//	}
//
// Buckets run in a fixed order: (event, type), (all, type), (event, all),
// (all, all). Priorities are never compared across buckets. The first
// handler returning Stop ends dispatch for every remaining bucket.
//
// # Handlers
//
// A Handler is any comparable value with a HandleEvent method. Use Func or
// Observer to adapt a closure; keep the returned value to unregister it:
//
//	h := event.Func(func(ctx context.Context, evt event.Event) event.Result {
//	    if evt.Subject == nil {
//	        return event.Stop
//	    }
//	    return event.Continue
//	})
//	events.On("update", "user", h)
//	defer events.Off("update", "user", h)
//
// # Thread Safety
//
// The Registry is safe for concurrent use. Handlers run synchronously in the
// emitting goroutine with no lock held and may emit recursively. A panic in
// a handler propagates to the caller of Emit.
package event

// Package hook provides the value-filtering plugin hook registry.
//
// A hook is an extension point that computes a value. Every handler
// registered for the hook sees the running value and may replace it; no
// handler can stop the others from running. Trigger returns whatever value
// is left after the last handler.
//
//	hooks := hook.NewRegistry()
//	hooks.Register("menu", "site", hook.Func(func(ctx context.Context, inv hook.Invocation) hook.Outcome {
//	    items, _ := inv.Value.([]string)
//	    return hook.Replace(append(items, "blog"))
//	}))
//
//	items := hooks.Trigger(ctx, "menu", "site", nil, []string{"home"})
//
// Buckets are visited in the same order as events: (hook, type),
// (all, type), (hook, all), (all, all), each in ascending priority.
//
// # Abstaining
//
// A handler with no opinion returns Abstain, the zero Outcome. Replace(nil)
// is a real replacement that sets the running value to nil. Registries built
// WithNilAbstains(true) treat Replace(nil) as Abstain instead, for handlers
// written against "nil means no opinion".
//
// # Typed Triggers
//
// TriggerAs checks the final value against the initial value's type:
//
//	limit, err := hook.TriggerAs(ctx, hooks, "limit", "upload", nil, 10)
package hook

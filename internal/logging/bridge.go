package logging

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/dshills/switchboard/internal/hook"
)

// Hook and type triggered for every log line that passes the level filter.
const (
	DebugHook = "debug"
	LogType   = "log"
)

// MaxHookDepth bounds nested hook runs for handlers that log without
// passing their context along.
const MaxHookDepth = 8

// HookBridge is a zerolog.Hook that offers every log line to the
// ("debug", "log") plugin hook. Params are a map with "level" and "msg";
// the initial value is true. A final value of false discards the line.
//
// The hook runs with the context set on the event with Ctx, marked as
// inside the bridge. Lines logged with that context, as handlers do when
// they log with the ctx they were given, skip the hook and are written
// normally. Lines from other goroutines are filtered as usual, even while
// the hook is running elsewhere. A handler that logs without its context
// re-enters the hook, at most MaxHookDepth levels deep in total.
//
// A handler failing with an error value keeps the line and records the
// failure in its "hook_error" field.
type HookBridge struct {
	hooks *hook.Registry
	depth atomic.Int32
}

type bridgeKey struct{ b *HookBridge }

// NewHookBridge creates a bridge onto hooks.
func NewHookBridge(hooks *hook.Registry) *HookBridge {
	return &HookBridge{hooks: hooks}
}

// Run implements zerolog.Hook.
func (b *HookBridge) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	if b.hooks == nil || level == zerolog.NoLevel || level == zerolog.Disabled {
		return
	}

	ctx := e.GetCtx()
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Value(bridgeKey{b}) != nil {
		return
	}
	if b.depth.Add(1) > MaxHookDepth {
		b.depth.Add(-1)
		return
	}
	defer b.depth.Add(-1)

	params := map[string]any{
		"level": level.String(),
		"msg":   msg,
	}
	keep, err := b.trigger(context.WithValue(ctx, bridgeKey{b}, true), params)
	if err != nil {
		e.AnErr("hook_error", err)
		return
	}
	if v, ok := keep.(bool); ok && !v {
		e.Discard()
	}
}

func (b *HookBridge) trigger(ctx context.Context, params map[string]any) (keep any, err error) {
	defer func() {
		if r := recover(); r != nil {
			failure, ok := r.(error)
			if !ok {
				panic(r)
			}
			err = fmt.Errorf("%s:%s hook: %w", DebugHook, LogType, failure)
		}
	}()
	return b.hooks.Trigger(ctx, DebugHook, LogType, params, true), nil
}

// Attach returns a copy of logger whose lines pass through the bridge.
func (b *HookBridge) Attach(logger zerolog.Logger) zerolog.Logger {
	return logger.Hook(b)
}

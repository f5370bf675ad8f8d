package plugin

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/switchboard/internal/event"
	"github.com/dshills/switchboard/internal/hook"
	plua "github.com/dshills/switchboard/internal/plugin/lua"
	"github.com/dshills/switchboard/internal/priority"
)

// APIModule is the name scripts require to reach the registries.
const APIModule = "sb"

// Runtime serializes Lua execution for every host that shares it.
//
// Hosts dispatch into each other, so a lock per host would be taken in
// call order and two goroutines dispatching in opposite directions could
// deadlock. One lock for all hosts avoids that. A call that re-enters
// from inside an active call (directly or through other plugins) must not
// lock again; the entered marker on the context lets it through.
type Runtime struct {
	mu sync.Mutex
}

// NewRuntime creates a runtime for a set of hosts.
func NewRuntime() *Runtime {
	return &Runtime{}
}

// enteredKey marks a context as already inside a call on rt.
type enteredKey struct{ rt *Runtime }

// acquire locks rt unless ctx shows the caller already holds it.
func (rt *Runtime) acquire(ctx context.Context) (context.Context, func()) {
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Value(enteredKey{rt}) != nil {
		return ctx, func() {}
	}
	rt.mu.Lock()
	return context.WithValue(ctx, enteredKey{rt}, true), rt.mu.Unlock
}

// Host runs one plugin's Lua state against the shared registries.
type Host struct {
	runtime *Runtime

	manifest *Manifest

	events  *event.Registry
	hooks   *hook.Registry
	logger  zerolog.Logger
	timeout time.Duration

	// state and callCtx belong to whoever holds the runtime lock.
	// callCtx is the context of the innermost active call.
	state   *plua.State
	callCtx context.Context

	// mu guards the fields below for readers outside the runtime lock.
	// Writers hold both.
	mu          sync.Mutex
	id          uuid.UUID
	pluginState State
	err         error
}

// NewHost creates an unloaded host. A nil runtime gives the host one of
// its own.
func NewHost(m *Manifest, rt *Runtime, events *event.Registry, hooks *hook.Registry, logger zerolog.Logger, timeout time.Duration) *Host {
	if rt == nil {
		rt = NewRuntime()
	}
	return &Host{
		runtime:  rt,
		manifest: m,
		events:   events,
		hooks:    hooks,
		logger:   logger.With().Str("plugin", m.Name).Logger(),
		timeout:  timeout,
	}
}

// Name returns the plugin name.
func (h *Host) Name() string {
	return h.manifest.Name
}

// Manifest returns the plugin manifest.
func (h *Host) Manifest() *Manifest {
	return h.manifest
}

// ID identifies the current load; it changes on every Load.
func (h *Host) ID() uuid.UUID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.id
}

// State returns the lifecycle state.
func (h *Host) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pluginState
}

// Err returns the load error, if any.
func (h *Host) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

func (h *Host) setState(s State, err error) {
	h.mu.Lock()
	h.pluginState = s
	h.err = err
	h.mu.Unlock()
}

// enter takes the runtime for a call on this host and records the call's
// context. The returned context carries the entered marker.
func (h *Host) enter(ctx context.Context) (context.Context, func()) {
	ctx, release := h.runtime.acquire(ctx)
	prev := h.callCtx
	h.callCtx = ctx
	return ctx, func() {
		h.callCtx = prev
		release()
	}
}

// Load starts a fresh Lua state and runs the entry script. Handlers the
// script registered before failing are removed again.
func (h *Host) Load(ctx context.Context) error {
	ctx, leave := h.enter(ctx)
	defer leave()

	if h.pluginState == StateLoaded {
		return ErrAlreadyLoaded
	}

	id := uuid.New()
	h.mu.Lock()
	h.id = id
	h.mu.Unlock()

	h.state = plua.NewState(
		plua.WithTimeout(h.timeout),
		plua.WithPrint(func(line string) {
			h.logger.Info().Ctx(h.activeContext()).Str("source", "print").Msg(line)
		}),
	)
	h.state.Preload(APIModule, h.openAPI)
	if err := h.state.DoString(`sb = require("` + APIModule + `")`); err != nil {
		return h.failLoad(ctx, err)
	}

	if err := h.state.DoFile(h.manifest.MainPath()); err != nil {
		return h.failLoad(ctx, err)
	}

	h.setState(StateLoaded, nil)
	h.logger.Info().Ctx(ctx).
		Str("instance", id.String()).
		Str("version", h.manifest.Version).
		Msg("plugin loaded")
	return nil
}

func (h *Host) failLoad(ctx context.Context, err error) error {
	h.purge()
	h.state.Close()
	h.state = nil
	loadErr := &LoadError{Plugin: h.Name(), Err: err}
	h.setState(StateError, loadErr)
	h.logger.Error().Ctx(ctx).Err(err).Msg("plugin failed to load")
	return loadErr
}

// Unload calls deactivate() when the script defines it, removes the
// plugin's handlers and closes its state. Unloading an unloaded host is a
// no-op.
func (h *Host) Unload(ctx context.Context) error {
	ctx, leave := h.enter(ctx)
	defer leave()

	if h.state == nil {
		h.setState(StateUnloaded, nil)
		return nil
	}

	if fn := h.state.Global("deactivate"); fn != nil {
		if _, err := h.state.Call(fn); err != nil {
			h.logger.Warn().Ctx(ctx).Err(err).Msg("deactivate failed")
		}
	}

	removed := h.purge()
	h.state.Close()
	h.state = nil
	h.setState(StateUnloaded, nil)

	h.logger.Info().Ctx(ctx).
		Str("instance", h.id.String()).
		Int("handlers", removed).
		Msg("plugin unloaded")
	return nil
}

// purge drops every handler this host registered from both registries.
func (h *Host) purge() int {
	owned := func(v any) bool {
		lh, ok := v.(luaHandler)
		return ok && lh.host == h
	}
	n := h.events.Purge(func(eh event.Handler) bool { return owned(eh) })
	n += h.hooks.Purge(func(hh hook.Handler) bool { return owned(hh) })
	return n
}

// call invokes fn with Go arguments and returns its first result.
func (h *Host) call(ctx context.Context, fn *lua.LFunction, args ...any) (lua.LValue, error) {
	_, leave := h.enter(ctx)
	defer leave()

	if h.state == nil || h.state.Closed() {
		return lua.LNil, plua.ErrStateClosed
	}

	largs := make([]lua.LValue, len(args))
	for i, arg := range args {
		largs[i] = plua.ToLua(h.state.L, arg)
	}

	results, err := h.state.Call(fn, largs...)
	if err != nil {
		return lua.LNil, err
	}
	if len(results) == 0 {
		return lua.LNil, nil
	}
	return results[0], nil
}

// activeContext returns the context of the active call.
func (h *Host) activeContext() context.Context {
	if h.callCtx == nil {
		return context.Background()
	}
	return h.callCtx
}

// handlerFailed panics with a HandlerError, except for calls that raced
// an unload, which are skipped.
func (h *Host) handlerFailed(ctx context.Context, key priority.Key, err error) {
	if errors.Is(err, plua.ErrStateClosed) {
		h.logger.Debug().Ctx(ctx).Str("key", key.String()).Msg("skipping handler of unloaded plugin")
		return
	}
	panic(&HandlerError{Plugin: h.Name(), Key: key, Err: err})
}

// Owner returns the name of the plugin that registered h, if a plugin did.
func Owner(h any) (string, bool) {
	lh, ok := h.(luaHandler)
	if !ok {
		return "", false
	}
	return lh.host.Name(), true
}

// luaHandler is a Lua function registered by a host. It is comparable,
// so the same function registered twice unregisters by value.
type luaHandler struct {
	host *Host
	fn   *lua.LFunction
}

// HandleEvent calls fn(event, type, subject). A false return stops the event.
func (lh luaHandler) HandleEvent(ctx context.Context, evt event.Event) event.Result {
	ret, err := lh.host.call(ctx, lh.fn, evt.Name, evt.ObjectType, evt.Subject)
	if err != nil {
		lh.host.handlerFailed(ctx, evt.Key(), err)
		return event.Continue
	}
	if ret == lua.LFalse {
		return event.Stop
	}
	return event.Continue
}

// HandleHook calls fn(hook, type, value, params). A nil return abstains.
func (lh luaHandler) HandleHook(ctx context.Context, inv hook.Invocation) hook.Outcome {
	ret, err := lh.host.call(ctx, lh.fn, inv.Name, inv.Type, inv.Value, inv.Params)
	if err != nil {
		lh.host.handlerFailed(ctx, inv.Key(), err)
		return hook.Abstain()
	}
	if ret == lua.LNil {
		return hook.Abstain()
	}
	return hook.Replace(plua.ToGo(ret))
}

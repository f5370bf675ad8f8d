package plugin

import (
	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/switchboard/internal/event"
	"github.com/dshills/switchboard/internal/hook"
	plua "github.com/dshills/switchboard/internal/plugin/lua"
	"github.com/dshills/switchboard/internal/priority"
)

// openAPI is the loader for the sb module.
func (h *Host) openAPI(L *lua.LState) int {
	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"on":              h.luaOn,
		"off":             h.luaOff,
		"emit":            h.luaEmit,
		"register_hook":   h.luaRegisterHook,
		"unregister_hook": h.luaUnregisterHook,
		"trigger":         h.luaTrigger,
		"log":             h.luaLog,
	})
	mod.RawSetString("ALL", lua.LString(priority.Wildcard))
	mod.RawSetString("plugin", lua.LString(h.Name()))
	L.Push(mod)
	return 1
}

// registrationPriority reads the optional priority argument at idx,
// falling back to the manifest priority. ok is false when neither is set.
func (h *Host) registrationPriority(L *lua.LState, idx int) (p int, ok bool) {
	if L.GetTop() >= idx && L.Get(idx) != lua.LNil {
		return L.CheckInt(idx), true
	}
	if h.manifest.Priority != nil {
		return *h.manifest.Priority, true
	}
	return 0, false
}

// sb.on(event, type, fn [, priority]) -> bool
func (h *Host) luaOn(L *lua.LState) int {
	name, typ, fn := L.CheckString(1), L.CheckString(2), L.CheckFunction(3)

	var opts []event.OnOption
	if p, ok := h.registrationPriority(L, 4); ok {
		opts = append(opts, event.AtPriority(p))
	}

	L.Push(lua.LBool(h.events.On(name, typ, luaHandler{host: h, fn: fn}, opts...)))
	return 1
}

// sb.off(event, type, fn)
func (h *Host) luaOff(L *lua.LState) int {
	h.events.Off(L.CheckString(1), L.CheckString(2), luaHandler{host: h, fn: L.CheckFunction(3)})
	return 0
}

// sb.emit(event, type [, subject]) -> bool
func (h *Host) luaEmit(L *lua.LState) int {
	name, typ := L.CheckString(1), L.CheckString(2)
	subject := plua.ToGo(L.Get(3))

	L.Push(lua.LBool(h.events.Emit(h.activeContext(), name, typ, subject)))
	return 1
}

// sb.register_hook(hook, type, fn [, priority]) -> bool
func (h *Host) luaRegisterHook(L *lua.LState) int {
	name, typ, fn := L.CheckString(1), L.CheckString(2), L.CheckFunction(3)

	var opts []hook.RegisterOption
	if p, ok := h.registrationPriority(L, 4); ok {
		opts = append(opts, hook.AtPriority(p))
	}

	L.Push(lua.LBool(h.hooks.Register(name, typ, luaHandler{host: h, fn: fn}, opts...)))
	return 1
}

// sb.unregister_hook(hook, type, fn)
func (h *Host) luaUnregisterHook(L *lua.LState) int {
	h.hooks.Unregister(L.CheckString(1), L.CheckString(2), luaHandler{host: h, fn: L.CheckFunction(3)})
	return 0
}

// sb.trigger(hook, type [, params [, initial]]) -> value
func (h *Host) luaTrigger(L *lua.LState) int {
	name, typ := L.CheckString(1), L.CheckString(2)
	params := plua.ToGo(L.Get(3))
	initial := plua.ToGo(L.Get(4))

	result := h.hooks.Trigger(h.activeContext(), name, typ, params, initial)
	L.Push(plua.ToLua(L, result))
	return 1
}

// sb.log(level, msg). Unknown levels log at info.
func (h *Host) luaLog(L *lua.LState) int {
	level, err := zerolog.ParseLevel(L.CheckString(1))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	h.logger.WithLevel(level).Ctx(h.activeContext()).Msg(L.CheckString(2))
	return 0
}

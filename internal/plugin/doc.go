// Package plugin loads Lua scripts that register event and hook handlers.
//
// # Layout
//
// A plugin directory holds single-file and directory plugins:
//
//	plugins/
//	├── audit.lua            # single-file plugin "audit"
//	└── motd/
//	    ├── plugin.yaml      # optional manifest
//	    └── init.lua         # entry point
//
// The manifest is optional:
//
//	name: motd
//	version: 1.0.0
//	description: Message of the day
//	main: init.lua
//	priority: 200
//
// priority, when set, is the default priority for every handler the
// plugin registers.
//
// # Lua API
//
// Each plugin runs in its own sandboxed state with an sb module, also
// available as the global sb:
//
//	sb.on(event, type, fn [, priority])           -- bool
//	sb.off(event, type, fn)
//	sb.emit(event, type [, subject])              -- bool
//	sb.register_hook(hook, type, fn [, priority]) -- bool
//	sb.unregister_hook(hook, type, fn)
//	sb.trigger(hook, type [, params [, initial]]) -- value
//	sb.log(level, msg)
//	sb.ALL                                        -- "all"
//
// Event handlers are called as fn(event, type, subject); returning false
// stops the event. Hook handlers are called as fn(hook, type, value,
// params); returning nil or nothing leaves the value unchanged, anything
// else replaces it.
//
// A Lua error inside a handler panics with a *HandlerError, which the
// registries let propagate to the dispatching caller.
//
// # Lifecycle
//
// Loading runs the entry script. Unloading calls the optional global
// deactivate(), removes every handler the plugin registered and closes
// its state. The Manager owns all hosts; a Watcher reloads plugins whose
// files change.
package plugin

package lua

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// removedGlobals load code from outside the plugin's own script.
var removedGlobals = []string{"dofile", "loadfile", "load", "loadstring", "module"}

// builtinModules may be required without being preloaded.
var builtinModules = map[string]bool{
	"string": true,
	"table":  true,
	"math":   true,
}

// sandbox strips file loading and installs a whitelisting require.
func sandbox(s *State) {
	L := s.L

	for _, name := range removedGlobals {
		L.SetGlobal(name, lua.LNil)
	}

	if pkg, ok := L.GetGlobal("package").(*lua.LTable); ok {
		L.SetField(pkg, "path", lua.LString(""))
		L.SetField(pkg, "cpath", lua.LString(""))
	}

	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		if s.print == nil {
			return 0
		}
		n := L.GetTop()
		parts := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		s.print(strings.Join(parts, "\t"))
		return 0
	}))

	require := L.GetGlobal("require")
	L.SetGlobal("require", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if !builtinModules[name] && !s.modules[name] {
			L.RaiseError("%s: %q", ErrModuleNotAllowed, name)
			return 0
		}
		L.Push(require)
		L.Push(lua.LString(name))
		L.Call(1, 1)
		return 1
	}))
}

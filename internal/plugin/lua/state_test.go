package lua

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	lua "github.com/yuin/gopher-lua"
)

func TestStateDoStringAndCall(t *testing.T) {
	s := NewState()
	defer s.Close()

	if err := s.DoString(`function add(a, b) return a + b, "sum" end`); err != nil {
		t.Fatalf("DoString: %v", err)
	}

	fn := s.Global("add")
	if fn == nil {
		t.Fatal("Global(add) = nil")
	}

	results, err := s.Call(fn, lua.LNumber(2), lua.LNumber(3))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0] != lua.LNumber(5) || results[1] != lua.LString("sum") {
		t.Errorf("results = %v, want [5 sum]", results)
	}
	if s.Depth() != 0 {
		t.Errorf("Depth after call = %d", s.Depth())
	}
}

func TestStateCallNoResults(t *testing.T) {
	s := NewState()
	defer s.Close()

	if err := s.DoString(`function noop() end`); err != nil {
		t.Fatal(err)
	}
	results, err := s.Call(s.Global("noop"))
	if err != nil {
		t.Fatal(err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("results = %#v, want empty slice", results)
	}
}

func TestStateGlobalNotFunction(t *testing.T) {
	s := NewState()
	defer s.Close()

	if err := s.DoString(`answer = 42`); err != nil {
		t.Fatal(err)
	}
	if s.Global("answer") != nil {
		t.Error("Global returned a function for a number")
	}
	if s.Global("missing") != nil {
		t.Error("Global returned a function for a missing name")
	}
}

func TestStateRuntimeError(t *testing.T) {
	s := NewState()
	defer s.Close()

	err := s.DoString(`error("boom")`)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("err = %v, want boom", err)
	}

	// the state stays usable
	if err := s.DoString(`x = 1`); err != nil {
		t.Errorf("DoString after error: %v", err)
	}
}

func TestStateDoFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.lua")
	if err := os.WriteFile(path, []byte(`loaded = true`), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewState()
	defer s.Close()

	if err := s.DoFile(path); err != nil {
		t.Fatalf("DoFile: %v", err)
	}
	if s.L.GetGlobal("loaded") != lua.LTrue {
		t.Error("script did not run")
	}

	if err := s.DoFile(filepath.Join(dir, "missing.lua")); err == nil {
		t.Error("DoFile(missing) should fail")
	}
}

func TestSandboxRemovesLoaders(t *testing.T) {
	s := NewState()
	defer s.Close()

	for _, name := range removedGlobals {
		if s.L.GetGlobal(name) != lua.LNil {
			t.Errorf("global %s should be removed", name)
		}
	}
	if s.L.GetGlobal("io") != lua.LNil {
		t.Error("io library should not be opened")
	}
	if s.L.GetGlobal("os") != lua.LNil {
		t.Error("os library should not be opened")
	}
}

func TestSandboxRequire(t *testing.T) {
	s := NewState()
	defer s.Close()

	if err := s.DoString(`local m = require("math"); assert(m.floor(1.5) == 1)`); err != nil {
		t.Errorf("require(math): %v", err)
	}

	err := s.DoString(`require("os")`)
	if err == nil || !strings.Contains(err.Error(), ErrModuleNotAllowed.Error()) {
		t.Errorf("require(os) err = %v, want module not available", err)
	}

	s.Preload("greet", func(L *lua.LState) int {
		mod := L.NewTable()
		mod.RawSetString("hello", lua.LString("world"))
		L.Push(mod)
		return 1
	})
	if err := s.DoString(`assert(require("greet").hello == "world")`); err != nil {
		t.Errorf("require(greet): %v", err)
	}
}

func TestSandboxPrint(t *testing.T) {
	var lines []string
	s := NewState(WithPrint(func(line string) { lines = append(lines, line) }))
	defer s.Close()

	if err := s.DoString(`print("a", 1, true)`); err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || lines[0] != "a\t1\ttrue" {
		t.Errorf("lines = %q", lines)
	}

	quiet := NewState()
	defer quiet.Close()
	if err := quiet.DoString(`print("dropped")`); err != nil {
		t.Errorf("print without sink: %v", err)
	}
}

func TestStateTimeout(t *testing.T) {
	s := NewState(WithTimeout(50 * time.Millisecond))
	defer s.Close()

	start := time.Now()
	err := s.DoString(`while true do end`)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout took %s", elapsed)
	}

	if err := s.DoString(`y = 2`); err != nil {
		t.Errorf("DoString after timeout: %v", err)
	}
}

func TestStateNestedCall(t *testing.T) {
	s := NewState()
	defer s.Close()

	var inner int
	s.L.SetGlobal("reenter", s.L.NewFunction(func(L *lua.LState) int {
		inner = s.Depth()
		results, err := s.Call(s.Global("double"), L.CheckNumber(1))
		if err != nil {
			L.RaiseError("%v", err)
		}
		L.Push(results[0])
		return 1
	}))

	if err := s.DoString(`
function double(n) return n * 2 end
function outer(n) return reenter(n) + 1 end
`); err != nil {
		t.Fatal(err)
	}

	results, err := s.Call(s.Global("outer"), lua.LNumber(4))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if results[0] != lua.LNumber(9) {
		t.Errorf("outer(4) = %v, want 9", results[0])
	}
	if inner != 1 {
		t.Errorf("depth inside nested call = %d, want 1", inner)
	}
	if s.Depth() != 0 {
		t.Errorf("Depth after call = %d", s.Depth())
	}
}

func TestStateClosed(t *testing.T) {
	s := NewState()
	if err := s.DoString(`function f() end`); err != nil {
		t.Fatal(err)
	}
	fn := s.Global("f")

	s.Close()
	s.Close()

	if !s.Closed() {
		t.Error("Closed() = false")
	}
	if _, err := s.Call(fn); !errors.Is(err, ErrStateClosed) {
		t.Errorf("Call err = %v, want ErrStateClosed", err)
	}
	if err := s.DoString(`x = 1`); !errors.Is(err, ErrStateClosed) {
		t.Errorf("DoString err = %v, want ErrStateClosed", err)
	}
	if s.Global("f") != nil {
		t.Error("Global on closed state should be nil")
	}
}

package lua

import (
	"context"
	"errors"
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultTimeout bounds an outermost call when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// State is a sandboxed Lua interpreter.
type State struct {
	L *lua.LState

	timeout time.Duration
	print   func(string)
	modules map[string]bool

	// depth counts active calls; only the outermost one owns the deadline.
	depth  int
	cancel context.CancelFunc

	closed bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithTimeout sets the deadline for each outermost call. Zero or negative
// disables it.
func WithTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.timeout = d
	}
}

// WithPrint redirects Lua's print. Arguments are joined with tabs.
func WithPrint(fn func(string)) StateOption {
	return func(s *State) {
		s.print = fn
	}
}

// NewState creates a sandboxed interpreter.
func NewState(opts ...StateOption) *State {
	s := &State{
		timeout: DefaultTimeout,
		modules: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.L = lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		s.L.Push(s.L.NewFunction(lib.fn))
		s.L.Push(lua.LString(lib.name))
		s.L.Call(1, 0)
	}

	sandbox(s)
	return s
}

// Preload registers a module that scripts can require by name.
func (s *State) Preload(name string, loader lua.LGFunction) {
	s.L.PreloadModule(name, loader)
	s.modules[name] = true
}

// DoFile runs a script file.
func (s *State) DoFile(path string) error {
	if s.closed {
		return ErrStateClosed
	}
	fn, err := s.L.LoadFile(path)
	if err != nil {
		return err
	}
	_, err = s.Call(fn)
	return err
}

// DoString runs a chunk of Lua source.
func (s *State) DoString(code string) error {
	if s.closed {
		return ErrStateClosed
	}
	fn, err := s.L.LoadString(code)
	if err != nil {
		return err
	}
	_, err = s.Call(fn)
	return err
}

// Global returns the named global function, or nil if the global is not
// a function.
func (s *State) Global(name string) *lua.LFunction {
	if s.closed {
		return nil
	}
	fn, _ := s.L.GetGlobal(name).(*lua.LFunction)
	return fn
}

// Call invokes fn and returns every value it returned. The returned slice
// is empty, not nil, when fn returns nothing.
func (s *State) Call(fn *lua.LFunction, args ...lua.LValue) (results []lua.LValue, err error) {
	if s.closed {
		return nil, ErrStateClosed
	}

	if s.depth == 0 && s.timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		s.L.SetContext(ctx)
		s.cancel = cancel
	}
	s.depth++
	defer func() {
		s.depth--
		if s.depth == 0 && s.cancel != nil {
			s.L.RemoveContext()
			s.cancel()
			s.cancel = nil
		}
	}()

	top := s.L.GetTop()
	s.L.Push(fn)
	for _, arg := range args {
		s.L.Push(arg)
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("lua panic: %v", r)
			}
		}()
		err = s.L.PCall(len(args), lua.MultRet, nil)
	}()
	if err != nil {
		s.L.SetTop(top)
		if ctx := s.L.Context(); ctx != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %v", ErrTimeout, s.timeout, err)
		}
		return nil, err
	}

	n := s.L.GetTop() - top
	results = make([]lua.LValue, n)
	for i := 0; i < n; i++ {
		results[i] = s.L.Get(top + i + 1)
	}
	s.L.SetTop(top)
	return results, nil
}

// Depth reports how many calls are active on the state.
func (s *State) Depth() int {
	return s.depth
}

// Closed reports whether Close has been called.
func (s *State) Closed() bool {
	return s.closed
}

// Close releases the interpreter. Further calls return ErrStateClosed.
func (s *State) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.L.Close()
}

package lua

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultExecutionTimeout bounds every call into a plugin script.
const DefaultExecutionTimeout = 5 * time.Second

// State wraps a gopher-lua state with a sandbox and call deadlines.
//
// gopher-lua's LState is not goroutine-safe; State serializes every entry
// point with a mutex. Go functions registered on the state run while that
// mutex is held and must not call back into State methods.
type State struct {
	L *lua.LState

	mu      sync.Mutex
	timeout time.Duration
	root    string
	sandbox *Sandbox
	closed  bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithExecutionTimeout sets the deadline applied to each call.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithRoot confines filesystem permissions to dir.
func WithRoot(dir string) StateOption {
	return func(s *State) {
		s.root = dir
	}
}

// NewState creates a sandboxed Lua state.
func NewState(opts ...StateOption) *State {
	s := &State{timeout: DefaultExecutionTimeout}
	for _, opt := range opts {
		opt(s)
	}

	s.L = lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(s.L)

	s.sandbox = newSandbox(s.L, s.root)
	s.sandbox.install()
	return s
}

// openSafeLibraries opens only the libraries that cannot reach the host.
// io, os and debug are never opened.
func openSafeLibraries(L *lua.LState) {
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
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
}

// Sandbox returns the sandbox for permission management.
func (s *State) Sandbox() *Sandbox {
	return s.sandbox
}

// DoFile executes a Lua file.
func (s *State) DoFile(path string) error {
	return s.run(func() error { return s.L.DoFile(path) })
}

// DoString executes a Lua chunk.
func (s *State) DoString(code string) error {
	return s.run(func() error { return s.L.DoString(code) })
}

// Call invokes fn with args and discards its results.
func (s *State) Call(fn *lua.LFunction, args ...lua.LValue) error {
	return s.run(func() error {
		return s.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...)
	})
}

// Do runs fn with exclusive access to the underlying LState.
func (s *State) Do(fn func(L *lua.LState) error) error {
	return s.run(func() error { return fn(s.L) })
}

// run executes fn under the state lock and the execution deadline.
func (s *State) run(fn func() error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()

	err = fn()
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrExecutionTimeout, err)
	}
	return err
}

// SetGlobal sets a global variable.
func (s *State) SetGlobal(name string, value lua.LValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.L.SetGlobal(name, value)
	}
}

// GetGlobal returns a global variable value.
func (s *State) GetGlobal(name string) lua.LValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return lua.LNil
	}
	return s.L.GetGlobal(name)
}

// Preload registers a module loadable through require.
func (s *State) Preload(name string, loader lua.LGFunction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.L.PreloadModule(name, loader)
		s.sandbox.allow(name)
	}
}

// IsClosed returns true if the state has been closed.
func (s *State) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases the Lua state. Later calls return ErrStateClosed.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}

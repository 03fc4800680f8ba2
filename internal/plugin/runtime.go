package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/oxbow/internal/logging"
	plua "github.com/dshills/oxbow/internal/plugin/lua"
	"github.com/dshills/oxbow/internal/protocol"
)

// Runtime runs one plugin's Lua entry point and routes channel traffic to
// the handlers it registers through the oxbow module.
type Runtime struct {
	plugin      *Plugin
	channel     PluginChannel
	state       *plua.State
	bridge      *plua.Bridge
	diagnostics *Diagnostics
	logger      *logging.Logger
	timeout     time.Duration

	// handlers is only touched while the Lua state lock is held.
	handlers map[MessageType][]*lua.LFunction
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeLogger sets the logger used for oxbow.log and handler errors.
func WithRuntimeLogger(l *logging.Logger) RuntimeOption {
	return func(r *Runtime) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithExecutionTimeout bounds each call into the script.
func WithExecutionTimeout(d time.Duration) RuntimeOption {
	return func(r *Runtime) {
		r.timeout = d
	}
}

// StartRuntime creates a sandboxed Lua state for p, grants its manifest
// permissions and runs its entry point.
func StartRuntime(p *Plugin, ch PluginChannel, opts ...RuntimeOption) (*Runtime, error) {
	if !p.Runnable() {
		return nil, ErrNotRunnable
	}

	r := &Runtime{
		plugin:      p,
		channel:     ch,
		diagnostics: NewDiagnostics(ch),
		logger:      logging.Nop(),
		handlers:    make(map[MessageType][]*lua.LFunction),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.state = plua.NewState(
		plua.WithRoot(p.Root()),
		plua.WithExecutionTimeout(r.timeout),
	)
	r.bridge = plua.NewBridge(r.state.L)

	for _, perm := range p.Manifest().Permissions {
		if err := r.state.Sandbox().Grant(perm); err != nil {
			r.state.Close()
			return nil, err
		}
	}

	mod := r.module(r.state.L)
	r.state.SetGlobal("oxbow", mod)
	r.state.Preload("oxbow", func(L *lua.LState) int {
		L.Push(mod)
		return 1
	})

	if err := r.state.DoFile(p.Manifest().MainPath()); err != nil {
		r.state.Close()
		return nil, fmt.Errorf("run %s: %w", p.Manifest().Main, err)
	}
	return r, nil
}

// Handle delivers msg to the handlers registered for its type.
func (r *Runtime) Handle(msg Message) {
	err := r.state.Do(func(L *lua.LState) error {
		fns := r.handlers[msg.Type]
		if len(fns) == 0 {
			return nil
		}

		data, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		tbl, err := r.bridge.FromJSON(data)
		if err != nil {
			return err
		}

		var errs []error
		for _, fn := range fns {
			if err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, tbl); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
	if err != nil {
		r.logger.Warn("%s handler failed: %v", msg.Type, err)
	}
}

// Close releases the Lua state.
func (r *Runtime) Close() error {
	return r.state.Close()
}

func (r *Runtime) module(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	L.SetFuncs(mod, map[string]lua.LGFunction{
		"on":    r.luaOn,
		"send":  r.luaSend,
		"reply": r.luaReply,
		"log":   r.luaLog,
	})
	L.SetField(mod, "name", lua.LString(r.plugin.Name()))

	diagnostics := L.NewTable()
	L.SetField(diagnostics, "set_errors", L.NewFunction(r.luaSetErrors))
	L.SetField(mod, "diagnostics", diagnostics)
	return mod
}

// oxbow.on(type, fn)
func (r *Runtime) luaOn(L *lua.LState) int {
	t := MessageType(L.CheckString(1))
	fn := L.CheckFunction(2)
	r.handlers[t] = append(r.handlers[t], fn)
	return 0
}

// oxbow.send(type, payload, err) -> ok, err
func (r *Runtime) luaSend(L *lua.LState) int {
	t := ResponseType(L.CheckString(1))
	return pushResult(L, r.channel.Send(t, L.OptString(3, ""), r.bridge.ToGo(L.Get(2))))
}

// oxbow.reply(msg, type, payload, err) -> ok, err
func (r *Runtime) luaReply(L *lua.LState) int {
	msgTable := L.CheckTable(1)
	t := ResponseType(L.CheckString(2))
	payload := r.bridge.ToGo(L.Get(3))
	errMsg := L.OptString(4, "")

	var msg Message
	data, err := json.Marshal(r.bridge.ToGo(msgTable))
	if err == nil {
		err = json.Unmarshal(data, &msg)
	}
	if err != nil {
		L.ArgError(1, "not a message: "+err.Error())
		return 0
	}
	return pushResult(L, r.channel.Reply(msg, t, errMsg, payload))
}

// oxbow.diagnostics.set_errors(key, file, errors) -> ok, err
func (r *Runtime) luaSetErrors(L *lua.LState) int {
	key := L.CheckString(1)
	file := L.CheckString(2)

	var errs []protocol.Diagnostic
	switch v := L.Get(3).(type) {
	case *lua.LNilType:
	case *lua.LTable:
		errs = []protocol.Diagnostic{}
		if v.Len() > 0 {
			data, err := json.Marshal(r.bridge.ToGo(v))
			if err == nil {
				err = json.Unmarshal(data, &errs)
			}
			if err != nil {
				L.ArgError(3, "invalid diagnostics: "+err.Error())
				return 0
			}
		}
	default:
		L.ArgError(3, "table expected")
		return 0
	}
	return pushResult(L, r.diagnostics.SetErrors(key, file, errs))
}

// oxbow.log(msg)
func (r *Runtime) luaLog(L *lua.LState) int {
	r.logger.Info("%s", L.CheckString(1))
	return 0
}

func pushResult(L *lua.LState, err error) int {
	if err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

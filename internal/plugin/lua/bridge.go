package lua

import (
	"encoding/json"
	"fmt"
	"math"

	lua "github.com/yuin/gopher-lua"
)

// Bridge converts between JSON documents and Lua values.
type Bridge struct {
	L *lua.LState
}

// NewBridge creates a Bridge for the given Lua state.
func NewBridge(L *lua.LState) *Bridge {
	return &Bridge{L: L}
}

// FromJSON decodes a JSON document into a Lua value.
func (b *Bridge) FromJSON(data []byte) (lua.LValue, error) {
	if len(data) == 0 {
		return lua.LNil, nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return lua.LNil, fmt.Errorf("decode json: %w", err)
	}
	return b.ToLua(v), nil
}

// ToJSON encodes a Lua value as JSON. Tables with keys 1..n become arrays.
func (b *Bridge) ToJSON(lv lua.LValue) ([]byte, error) {
	return json.Marshal(b.ToGo(lv))
}

// ToLua converts a decoded JSON value to a Lua value.
func (b *Bridge) ToLua(v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case float64:
		return lua.LNumber(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []any:
		t := b.L.CreateTable(len(val), 0)
		for _, item := range val {
			t.Append(b.ToLua(item))
		}
		return t
	case map[string]any:
		t := b.L.CreateTable(0, len(val))
		for k, item := range val {
			t.RawSetString(k, b.ToLua(item))
		}
		return t
	case []string:
		t := b.L.CreateTable(len(val), 0)
		for _, s := range val {
			t.Append(lua.LString(s))
		}
		return t
	default:
		// Round-trip anything else through JSON.
		data, err := json.Marshal(val)
		if err != nil {
			return lua.LNil
		}
		lv, err := b.FromJSON(data)
		if err != nil {
			return lua.LNil
		}
		return lv
	}
}

// ToGo converts a Lua value to a JSON-compatible Go value.
func (b *Bridge) ToGo(lv lua.LValue) any {
	return toGo(lv, make(map[*lua.LTable]bool))
}

func toGo(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case nil:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		defer delete(visited, v)
		return tableToGo(v, visited)
	default:
		// nil, functions, userdata, threads and channels have no JSON form.
		return nil
	}
}

// tableToGo returns a slice for tables with contiguous keys 1..n and a map
// otherwise. Empty tables become empty maps.
func tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	n := t.Len()
	count := 0
	t.ForEach(func(_, _ lua.LValue) { count++ })

	if n > 0 && n == count {
		arr := make([]any, n)
		for i := 1; i <= n; i++ {
			arr[i-1] = toGo(t.RawGetInt(i), visited)
		}
		return arr
	}

	m := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		m[keyString(k)] = toGo(v, visited)
	})
	return m
}

func keyString(k lua.LValue) string {
	if n, ok := k.(lua.LNumber); ok {
		f := float64(n)
		if f == math.Trunc(f) {
			return fmt.Sprintf("%d", int64(f))
		}
	}
	return k.String()
}

package lua

import (
	"encoding/json"
	"reflect"
	"testing"

	glua "github.com/yuin/gopher-lua"
)

func TestBridgeRoundTrip(t *testing.T) {
	state := NewState()
	defer state.Close()
	b := NewBridge(state.L)

	in := []byte(`{"name":"quick-info","context":{"line":5,"column":3},"tags":["a","b"],"ratio":0.5}`)
	lv, err := b.FromJSON(in)
	if err != nil {
		t.Fatalf("FromJSON() error = %v", err)
	}

	out, err := b.ToJSON(lv)
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	var want, got map[string]any
	json.Unmarshal(in, &want)
	json.Unmarshal(out, &got)
	if !reflect.DeepEqual(want, got) {
		t.Errorf("round trip = %s, want %s", out, in)
	}
}

func TestBridgeToGoTables(t *testing.T) {
	state := NewState()
	defer state.Close()
	b := NewBridge(state.L)

	if err := state.DoString(`arr = {10, 20}; obj = {x = 1}; empty = {}; sparse = {[1] = "a", [3] = "c"}`); err != nil {
		t.Fatal(err)
	}

	if got := b.ToGo(state.GetGlobal("arr")); !reflect.DeepEqual(got, []any{int64(10), int64(20)}) {
		t.Errorf("arr = %#v", got)
	}
	if got := b.ToGo(state.GetGlobal("obj")); !reflect.DeepEqual(got, map[string]any{"x": int64(1)}) {
		t.Errorf("obj = %#v", got)
	}
	if got := b.ToGo(state.GetGlobal("empty")); !reflect.DeepEqual(got, map[string]any{}) {
		t.Errorf("empty = %#v", got)
	}
	if got, ok := b.ToGo(state.GetGlobal("sparse")).(map[string]any); !ok || got["3"] != "c" {
		t.Errorf("sparse = %#v", got)
	}
}

func TestBridgeCircularTable(t *testing.T) {
	state := NewState()
	defer state.Close()
	b := NewBridge(state.L)

	if err := state.DoString(`t = {}; t.self = t`); err != nil {
		t.Fatal(err)
	}
	got, ok := b.ToGo(state.GetGlobal("t")).(map[string]any)
	if !ok {
		t.Fatalf("ToGo() = %#v", got)
	}
	if got["self"] != nil {
		t.Errorf("circular reference should become nil, got %#v", got["self"])
	}
}

func TestBridgeFunctionBecomesNil(t *testing.T) {
	state := NewState()
	defer state.Close()
	b := NewBridge(state.L)

	fn := state.L.NewFunction(func(*glua.LState) int { return 0 })
	if got := b.ToGo(fn); got != nil {
		t.Errorf("ToGo(function) = %#v, want nil", got)
	}
}

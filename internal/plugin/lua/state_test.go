package lua

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	glua "github.com/yuin/gopher-lua"
)

func TestStateDoString(t *testing.T) {
	state := NewState()
	defer state.Close()

	if err := state.DoString(`x = 1 + 1`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}

	num, ok := state.GetGlobal("x").(glua.LNumber)
	if !ok || float64(num) != 2 {
		t.Errorf("x = %v, want 2", state.GetGlobal("x"))
	}
}

func TestStateSyntaxError(t *testing.T) {
	state := NewState()
	defer state.Close()

	if err := state.DoString(`invalid lua code !!!`); err == nil {
		t.Error("DoString() should fail on invalid code")
	}
}

func TestStateClosed(t *testing.T) {
	state := NewState()
	state.Close()

	if err := state.DoString(`x = 1`); !errors.Is(err, ErrStateClosed) {
		t.Errorf("DoString() after Close error = %v, want ErrStateClosed", err)
	}
	if !state.IsClosed() {
		t.Error("IsClosed() = false after Close")
	}
	// Closing twice is harmless.
	if err := state.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestStateTimeout(t *testing.T) {
	state := NewState(WithExecutionTimeout(50 * time.Millisecond))
	defer state.Close()

	err := state.DoString(`while true do end`)
	if !errors.Is(err, ErrExecutionTimeout) {
		t.Errorf("DoString() error = %v, want ErrExecutionTimeout", err)
	}
}

func TestStateCall(t *testing.T) {
	state := NewState()
	defer state.Close()

	if err := state.DoString(`function double(n) result = n * 2 end`); err != nil {
		t.Fatal(err)
	}
	fn, ok := state.GetGlobal("double").(*glua.LFunction)
	if !ok {
		t.Fatal("double is not a function")
	}
	if err := state.Call(fn, glua.LNumber(21)); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if got := state.GetGlobal("result"); got.String() != "42" {
		t.Errorf("result = %v, want 42", got)
	}
}

func TestSandboxRemovesLoaders(t *testing.T) {
	state := NewState()
	defer state.Close()

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "io", "os", "debug"} {
		if state.GetGlobal(name) != glua.LNil {
			t.Errorf("global %q should not be available", name)
		}
	}
}

func TestSandboxRequire(t *testing.T) {
	state := NewState()
	defer state.Close()

	if err := state.DoString(`local s = require("string")`); err != nil {
		t.Errorf("require(string) error = %v", err)
	}

	err := state.DoString(`require("os")`)
	if err == nil || !strings.Contains(err.Error(), "not available") {
		t.Errorf("require(os) error = %v, want not available", err)
	}

	state.Preload("greeter", func(L *glua.LState) int {
		mod := L.NewTable()
		L.SetField(mod, "name", glua.LString("hi"))
		L.Push(mod)
		return 1
	})
	if err := state.DoString(`g = require("greeter").name`); err != nil {
		t.Fatalf("require(greeter) error = %v", err)
	}
	if got := state.GetGlobal("g").String(); got != "hi" {
		t.Errorf("g = %q, want hi", got)
	}
}

func TestSandboxFileRead(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "words.txt"), []byte("alpha\nbeta"), 0644); err != nil {
		t.Fatal(err)
	}

	state := NewState(WithRoot(root))
	defer state.Close()

	if err := state.DoString(`fs.read_file("words.txt")`); err == nil {
		t.Fatal("fs should not exist before the permission is granted")
	}

	if err := state.Sandbox().Grant(PermissionFileRead); err != nil {
		t.Fatal(err)
	}
	if !state.Sandbox().Has(PermissionFileRead) {
		t.Error("Has(filesystem.read) = false after Grant")
	}

	if err := state.DoString(`n = #fs.lines("words.txt")`); err != nil {
		t.Fatalf("fs.lines error = %v", err)
	}
	if got := state.GetGlobal("n").String(); got != "2" {
		t.Errorf("line count = %s, want 2", got)
	}

	if err := state.DoString(`data, err = fs.read_file("../escape.txt")`); err != nil {
		t.Fatal(err)
	}
	if state.GetGlobal("data") != glua.LNil {
		t.Error("read outside root should return nil")
	}
	if !strings.Contains(state.GetGlobal("err").String(), "outside the plugin root") {
		t.Errorf("err = %v", state.GetGlobal("err"))
	}
}

func TestSandboxGrantUnknown(t *testing.T) {
	state := NewState()
	defer state.Close()

	if err := state.Sandbox().Grant("network"); err == nil {
		t.Error("Grant(network) should fail")
	}
}

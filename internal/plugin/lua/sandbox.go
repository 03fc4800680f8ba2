package lua

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// Permission is a privilege a plugin manifest can request.
type Permission string

// Known permissions.
const (
	PermissionFileRead Permission = "filesystem.read"
)

// ValidPermission reports whether p is a known permission.
func ValidPermission(p Permission) bool {
	return p == PermissionFileRead
}

// Sandbox restricts what a plugin script can reach.
type Sandbox struct {
	L    *lua.LState
	root string

	mu      sync.RWMutex
	granted map[Permission]bool
	modules map[string]bool
}

func newSandbox(L *lua.LState, root string) *Sandbox {
	return &Sandbox{
		L:       L,
		root:    root,
		granted: make(map[Permission]bool),
		modules: map[string]bool{"string": true, "table": true, "math": true},
	}
}

// install removes loaders and replaces require with a whitelist.
func (s *Sandbox) install() {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		s.L.SetGlobal(name, lua.LNil)
	}

	if pkg, ok := s.L.GetGlobal("package").(*lua.LTable); ok {
		s.L.SetField(pkg, "path", lua.LString(""))
		s.L.SetField(pkg, "cpath", lua.LString(""))
	}

	original := s.L.GetGlobal("require")
	s.L.SetGlobal("require", s.L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if !s.isAllowed(name) {
			L.RaiseError("module %q is not available", name)
			return 0
		}
		L.Push(original)
		L.Push(lua.LString(name))
		L.Call(1, 1)
		return 1
	}))
}

func (s *Sandbox) allow(module string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modules[module] = true
}

func (s *Sandbox) isAllowed(module string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modules[module]
}

// Grant enables a permission and installs the functions it unlocks.
func (s *Sandbox) Grant(p Permission) error {
	if !ValidPermission(p) {
		return fmt.Errorf("unknown permission %q", p)
	}

	s.mu.Lock()
	already := s.granted[p]
	s.granted[p] = true
	s.mu.Unlock()

	if already {
		return nil
	}
	switch p {
	case PermissionFileRead:
		s.installFileRead()
	}
	return nil
}

// Has reports whether p has been granted.
func (s *Sandbox) Has(p Permission) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.granted[p]
}

// installFileRead exposes fs.read_file and fs.lines.
func (s *Sandbox) installFileRead() {
	fs := s.L.NewTable()

	s.L.SetField(fs, "read_file", s.L.NewFunction(func(L *lua.LState) int {
		data, err := s.readFile(L.CheckString(1))
		if err != nil {
			L.Push(lua.LNil)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		L.Push(lua.LString(data))
		return 1
	}))

	s.L.SetField(fs, "lines", s.L.NewFunction(func(L *lua.LState) int {
		data, err := s.readFile(L.CheckString(1))
		if err != nil {
			L.RaiseError("cannot open file: %s", err.Error())
			return 0
		}
		t := L.NewTable()
		for _, line := range strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n") {
			t.Append(lua.LString(line))
		}
		L.Push(t)
		return 1
	}))

	s.L.SetGlobal("fs", fs)
}

// readFile reads a file relative to the plugin root.
func (s *Sandbox) readFile(name string) ([]byte, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// resolve maps name onto the plugin root and rejects escapes.
func (s *Sandbox) resolve(name string) (string, error) {
	if s.root == "" {
		return "", ErrOutsideRoot
	}
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	rel, err := filepath.Rel(s.root, filepath.Clean(path))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, name)
	}
	return path, nil
}

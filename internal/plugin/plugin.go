package plugin

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// Plugin is one discovered plugin directory.
type Plugin struct {
	root     string
	name     string
	manifest *Manifest

	mu    sync.RWMutex
	state State
	err   error
}

// NewPlugin inspects root. It never fails: manifest problems are recorded
// and reported by Err.
func NewPlugin(root string) *Plugin {
	p := &Plugin{root: root, name: filepath.Base(root)}

	m, err := LoadManifestFromDir(root)
	switch {
	case errors.Is(err, ErrNoManifest):
	case err != nil:
		p.state = StateError
		p.err = err
	default:
		p.manifest = m
		p.name = m.Name
	}
	return p
}

// Root returns the plugin directory.
func (p *Plugin) Root() string {
	return p.root
}

// Name returns the manifest name, or the directory name without a manifest.
func (p *Plugin) Name() string {
	return p.name
}

// Manifest returns the plugin manifest, or nil.
func (p *Plugin) Manifest() *Manifest {
	return p.manifest
}

// Capabilities returns the declared capabilities.
func (p *Plugin) Capabilities() Capabilities {
	if p.manifest == nil {
		return Capabilities{}
	}
	return p.manifest.Capabilities
}

// Runnable reports whether the plugin has a valid manifest and an existing
// Lua entry point.
func (p *Plugin) Runnable() bool {
	if p.manifest == nil || p.Err() != nil {
		return false
	}
	info, err := os.Stat(p.manifest.MainPath())
	return err == nil && !info.IsDir()
}

// State returns the current lifecycle state.
func (p *Plugin) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Err returns the error that put the plugin in StateError.
func (p *Plugin) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.err
}

func (p *Plugin) setState(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = s
}

func (p *Plugin) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = StateError
	p.err = err
}

package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	plua "github.com/dshills/oxbow/internal/plugin/lua"
)

// Manifest describes a plugin's metadata and requirements.
type Manifest struct {
	// Identity
	Name        string `json:"name" yaml:"name"`               // Unique identifier (e.g., "tsserver")
	Version     string `json:"version" yaml:"version"`         // Semver (e.g., "1.2.0")
	DisplayName string `json:"displayName" yaml:"displayName"` // Human-readable name
	Description string `json:"description" yaml:"description"` // Short description

	// Entry point, relative to the plugin directory (default: "init.lua")
	Main string `json:"main" yaml:"main"`

	// Requirements
	MinEditorVersion string `json:"minEditorVersion" yaml:"minEditorVersion"`

	// Traffic the plugin wants to receive
	Capabilities Capabilities `json:"capabilities" yaml:"capabilities"`

	// Sandbox permissions requested
	Permissions []plua.Permission `json:"permissions" yaml:"permissions"`

	// Internal: path to the plugin directory
	path string
}

// DefaultMain is the entry point used when a manifest names none.
const DefaultMain = "init.lua"

// manifestFiles are tried in order when loading from a directory.
var manifestFiles = []string{"plugin.json", "plugin.yaml", "plugin.yml"}

// Validation errors.
var (
	ErrMissingName       = errors.New("manifest: name is required")
	ErrInvalidName       = errors.New("manifest: name must be lowercase alphanumeric with hyphens")
	ErrInvalidVersion    = errors.New("manifest: version must be valid semver")
	ErrInvalidMain       = errors.New("manifest: main must be a .lua file")
	ErrInvalidPermission = errors.New("manifest: invalid permission")
	ErrInvalidConstraint = errors.New("manifest: invalid minEditorVersion")
)

// namePattern validates plugin names.
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*[a-z0-9]$|^[a-z]$`)

// LoadManifest loads and validates a plugin manifest from a JSON or YAML file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &m)
	default:
		err = json.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", filepath.Base(path), err)
	}

	m.path = filepath.Dir(path)
	m.applyDefaults()

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadManifestFromDir loads the first manifest file found in dir. It returns
// ErrNoManifest when the directory has none.
func LoadManifestFromDir(dir string) (*Manifest, error) {
	for _, name := range manifestFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadManifest(path)
		}
	}
	return nil, ErrNoManifest
}

func (m *Manifest) applyDefaults() {
	if m.Version == "" {
		m.Version = "0.0.0"
	}
}

// Validate checks that the manifest is valid.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return ErrMissingName
	}
	if !namePattern.MatchString(m.Name) {
		return fmt.Errorf("%w: %s", ErrInvalidName, m.Name)
	}

	if _, err := semver.NewVersion(m.Version); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidVersion, m.Version)
	}

	if m.Main != "" && filepath.Ext(m.Main) != ".lua" {
		return fmt.Errorf("%w: %s", ErrInvalidMain, m.Main)
	}

	for _, p := range m.Permissions {
		if !plua.ValidPermission(p) {
			return fmt.Errorf("%w: %s", ErrInvalidPermission, p)
		}
	}

	if m.MinEditorVersion != "" {
		if _, err := m.constraint(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConstraint, err)
		}
	}
	return nil
}

// constraint parses MinEditorVersion. A bare version means ">= version".
func (m *Manifest) constraint() (*semver.Constraints, error) {
	if v, err := semver.NewVersion(m.MinEditorVersion); err == nil {
		return semver.NewConstraint(">= " + v.String())
	}
	return semver.NewConstraint(m.MinEditorVersion)
}

// CheckCompatible reports whether the plugin accepts editorVersion.
// Development builds whose version does not parse are always accepted.
func (m *Manifest) CheckCompatible(editorVersion string) error {
	if m.MinEditorVersion == "" {
		return nil
	}
	v, err := semver.NewVersion(editorVersion)
	if err != nil {
		return nil
	}
	c, err := m.constraint()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConstraint, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("%w: %s requires %s, have %s", ErrIncompatible, m.Name, m.MinEditorVersion, v)
	}
	return nil
}

// Path returns the path to the plugin directory.
func (m *Manifest) Path() string {
	return m.path
}

// MainPath returns the full path to the main Lua file.
func (m *Manifest) MainPath() string {
	main := m.Main
	if main == "" {
		main = DefaultMain
	}
	return filepath.Join(m.path, main)
}

// String returns a string representation of the manifest.
func (m *Manifest) String() string {
	display := m.DisplayName
	if display == "" {
		display = m.Name
	}
	return fmt.Sprintf("%s v%s", display, m.Version)
}

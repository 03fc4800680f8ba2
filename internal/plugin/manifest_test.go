package plugin

import (
	"errors"
	"path/filepath"
	"testing"

	plua "github.com/dshills/oxbow/internal/plugin/lua"
)

func TestLoadManifestJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "plugin.json"), `{
		"name": "tsserver",
		"version": "1.2.0",
		"displayName": "TypeScript",
		"main": "main.lua",
		"minEditorVersion": "0.3.0",
		"capabilities": {
			"supportedFileTypes": ["typescript", "javascript"],
			"languageService": ["quick-info", "completion-provider"]
		},
		"permissions": ["filesystem.read"]
	}`)

	m, err := LoadManifestFromDir(dir)
	if err != nil {
		t.Fatalf("LoadManifestFromDir() error = %v", err)
	}

	if m.Name != "tsserver" || m.Version != "1.2.0" {
		t.Errorf("Name, Version = %q, %q", m.Name, m.Version)
	}
	if len(m.Capabilities.SupportedFileTypes) != 2 || m.Capabilities.LanguageService[1] != "completion-provider" {
		t.Errorf("Capabilities = %+v", m.Capabilities)
	}
	if len(m.Permissions) != 1 || m.Permissions[0] != plua.PermissionFileRead {
		t.Errorf("Permissions = %v", m.Permissions)
	}
	if m.MainPath() != filepath.Join(dir, "main.lua") {
		t.Errorf("MainPath() = %q", m.MainPath())
	}
	if m.String() != "TypeScript v1.2.0" {
		t.Errorf("String() = %q", m.String())
	}
}

func TestLoadManifestYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "plugin.yaml"), `
name: go-tools
capabilities:
  supportedFileTypes: [go]
  languageService: [goto-definition]
`)

	m, err := LoadManifestFromDir(dir)
	if err != nil {
		t.Fatalf("LoadManifestFromDir() error = %v", err)
	}
	if m.Name != "go-tools" {
		t.Errorf("Name = %q", m.Name)
	}
	if m.Version != "0.0.0" {
		t.Errorf("Version = %q, want default 0.0.0", m.Version)
	}
	if m.MainPath() != filepath.Join(dir, DefaultMain) {
		t.Errorf("MainPath() = %q", m.MainPath())
	}
	if len(m.Capabilities.SupportedFileTypes) != 1 || m.Capabilities.SupportedFileTypes[0] != "go" {
		t.Errorf("Capabilities = %+v", m.Capabilities)
	}
}

func TestLoadManifestNoManifest(t *testing.T) {
	if _, err := LoadManifestFromDir(t.TempDir()); !errors.Is(err, ErrNoManifest) {
		t.Errorf("LoadManifestFromDir() error = %v, want ErrNoManifest", err)
	}
}

func TestManifestValidate(t *testing.T) {
	tests := []struct {
		name     string
		manifest Manifest
		wantErr  error
	}{
		{"valid", Manifest{Name: "ok", Version: "1.0.0"}, nil},
		{"missing name", Manifest{Version: "1.0.0"}, ErrMissingName},
		{"bad name", Manifest{Name: "Bad Name", Version: "1.0.0"}, ErrInvalidName},
		{"bad version", Manifest{Name: "ok", Version: "one"}, ErrInvalidVersion},
		{"bad main", Manifest{Name: "ok", Version: "1.0.0", Main: "main.js"}, ErrInvalidMain},
		{"bad permission", Manifest{Name: "ok", Version: "1.0.0", Permissions: []plua.Permission{"shell"}}, ErrInvalidPermission},
		{"bad constraint", Manifest{Name: "ok", Version: "1.0.0", MinEditorVersion: "soon"}, ErrInvalidConstraint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.manifest.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestManifestCheckCompatible(t *testing.T) {
	tests := []struct {
		min     string
		editor  string
		wantErr bool
	}{
		{"", "0.1.0", false},
		{"0.3.0", "0.3.0", false},
		{"0.3.0", "1.0.0", false},
		{"0.3.0", "0.2.9", true},
		{"~1.2", "1.2.7", false},
		{"~1.2", "1.3.0", true},
		{"0.3.0", "dev", false},
	}

	for _, tt := range tests {
		m := Manifest{Name: "p", Version: "1.0.0", MinEditorVersion: tt.min}
		err := m.CheckCompatible(tt.editor)
		if (err != nil) != tt.wantErr {
			t.Errorf("CheckCompatible(min=%q, editor=%q) error = %v, wantErr %v", tt.min, tt.editor, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrIncompatible) {
			t.Errorf("error = %v, want ErrIncompatible", err)
		}
	}
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config is the complete oxbow configuration.
type Config struct {
	Plugins PluginsConfig `toml:"plugins"`
	Editor  EditorConfig  `toml:"editor"`
	Log     LogConfig     `toml:"log"`
	Metrics MetricsConfig `toml:"metrics"`
}

// PluginsConfig controls plugin discovery.
type PluginsConfig struct {
	// UseDefault enables the bundled default plugin set.
	UseDefault bool `toml:"useDefault"`

	// UserFolder is the per-user configuration folder. User plugins live in
	// its "plugins" subdirectory.
	UserFolder string `toml:"userFolder"`

	// InstallDir holds the core and default plugin roots.
	InstallDir string `toml:"installDir"`
}

// EditorConfig holds editor-facing plugin behavior.
type EditorConfig struct {
	QuickInfo   QuickInfoConfig   `toml:"quickInfo"`
	Completions CompletionsConfig `toml:"completions"`
}

// QuickInfoConfig controls hover display.
type QuickInfoConfig struct {
	// Delay before a quick-info response is shown, in milliseconds.
	Delay int `toml:"delay"`
}

// CompletionsConfig controls completion requests.
type CompletionsConfig struct {
	Enabled bool `toml:"enabled"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level string `toml:"level"`
	JSON  bool   `toml:"json"`
}

// MetricsConfig controls the metrics endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics. Empty disables the endpoint.
	Addr string `toml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Plugins: PluginsConfig{
			UseDefault: true,
			UserFolder: defaultUserFolder(),
			InstallDir: defaultInstallDir(),
		},
		Editor: EditorConfig{
			QuickInfo:   QuickInfoConfig{Delay: 500},
			Completions: CompletionsConfig{Enabled: true},
		},
		Log: LogConfig{Level: "info"},
	}
}

// QuickInfoDelay returns the quick-info delay as a duration.
func (c Config) QuickInfoDelay() time.Duration {
	return time.Duration(c.Editor.QuickInfo.Delay) * time.Millisecond
}

// Validate checks that all values are in range.
func (c Config) Validate() error {
	if c.Editor.QuickInfo.Delay < 0 {
		return fmt.Errorf("%w: editor.quickInfo.delay must be >= 0, got %d", ErrInvalidValue, c.Editor.QuickInfo.Delay)
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: log.level %q", ErrInvalidValue, c.Log.Level)
	}
	return nil
}

// defaultUserFolder returns ~/.config/oxbow, or "" if the home directory
// cannot be determined.
func defaultUserFolder() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "oxbow")
}

// defaultInstallDir returns the directory holding the running executable.
func defaultInstallDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Dir(exe)
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

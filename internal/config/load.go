package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Loader resolves a Config from defaults, a TOML file and the environment.
type Loader struct {
	path    string
	envFile string
	prefix  string
	environ func() []string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithEnvFile sets the .env file consulted before the process environment.
func WithEnvFile(path string) LoaderOption {
	return func(l *Loader) {
		l.envFile = path
	}
}

// WithEnvPrefix sets the environment variable prefix (default "OXBOW_").
func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *Loader) {
		l.prefix = prefix
	}
}

// WithEnviron overrides the process environment source.
func WithEnviron(fn func() []string) LoaderOption {
	return func(l *Loader) {
		l.environ = fn
	}
}

// NewLoader creates a loader for the TOML file at path. An empty path skips
// the file layer.
func NewLoader(path string, opts ...LoaderOption) *Loader {
	l := &Loader{
		path:    path,
		prefix:  "OXBOW_",
		environ: os.Environ,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the configuration file path.
func (l *Loader) Path() string {
	return l.path
}

// Load resolves the configuration. A missing file is not an error.
func (l *Loader) Load() (Config, error) {
	cfg := Default()

	if l.path != "" {
		data, err := os.ReadFile(l.path)
		switch {
		case err == nil:
			if err := decodeTOML(l.path, data, &cfg); err != nil {
				return Config{}, err
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("reading config file %s: %w", l.path, err)
		}
	}

	env, err := l.loadEnv()
	if err != nil {
		return Config{}, err
	}
	if err := applyEnv(&cfg, l.prefix, env); err != nil {
		return Config{}, err
	}

	cfg.Plugins.UserFolder = expandHome(cfg.Plugins.UserFolder)
	cfg.Plugins.InstallDir = expandHome(cfg.Plugins.InstallDir)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFromReader decodes TOML from r over the defaults. The environment is
// not consulted.
func LoadFromReader(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := decodeTOML("<reader>", data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func decodeTOML(source string, data []byte, cfg *Config) error {
	if err := toml.Unmarshal(data, cfg); err != nil {
		pe := &ParseError{Path: source, Err: err}
		var de *toml.DecodeError
		if errors.As(err, &de) {
			pe.Line, pe.Column = de.Position()
		}
		return pe
	}
	return nil
}

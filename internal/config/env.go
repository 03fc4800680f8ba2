package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// envSetters maps an environment variable suffix (after the prefix) to the
// setting it overrides.
var envSetters = map[string]func(*Config, string) error{
	"PLUGINS_USE_DEFAULT": func(c *Config, v string) error {
		return setBool(&c.Plugins.UseDefault, "plugins.useDefault", v)
	},
	"PLUGINS_USER_FOLDER": func(c *Config, v string) error {
		c.Plugins.UserFolder = v
		return nil
	},
	"PLUGINS_INSTALL_DIR": func(c *Config, v string) error {
		c.Plugins.InstallDir = v
		return nil
	},
	"EDITOR_QUICK_INFO_DELAY": func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: editor.quickInfo.delay %q", ErrInvalidValue, v)
		}
		c.Editor.QuickInfo.Delay = n
		return nil
	},
	"EDITOR_COMPLETIONS_ENABLED": func(c *Config, v string) error {
		return setBool(&c.Editor.Completions.Enabled, "editor.completions.enabled", v)
	},
	"LOG_LEVEL": func(c *Config, v string) error {
		c.Log.Level = v
		return nil
	},
	"LOG_JSON": func(c *Config, v string) error {
		return setBool(&c.Log.JSON, "log.json", v)
	},
	"METRICS_ADDR": func(c *Config, v string) error {
		c.Metrics.Addr = v
		return nil
	},
}

// loadEnv merges the .env file (if any) with the process environment. The
// process environment wins.
func (l *Loader) loadEnv() (map[string]string, error) {
	env := make(map[string]string)

	if l.envFile != "" {
		fileEnv, err := godotenv.Read(l.envFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading env file %s: %w", l.envFile, err)
		}
		for k, v := range fileEnv {
			env[k] = v
		}
	}

	for _, kv := range l.environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			env[k] = v
		}
	}
	return env, nil
}

func applyEnv(cfg *Config, prefix string, env map[string]string) error {
	for name, value := range env {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		set, ok := envSetters[strings.TrimPrefix(name, prefix)]
		if !ok {
			continue
		}
		if err := set(cfg, value); err != nil {
			return err
		}
	}
	return nil
}

func setBool(dst *bool, key, v string) error {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		*dst = true
	case "0", "false", "no", "off":
		*dst = false
	default:
		return fmt.Errorf("%w: %s %q", ErrInvalidValue, key, v)
	}
	return nil
}

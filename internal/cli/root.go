package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dshills/oxbow/internal/config"
	"github.com/dshills/oxbow/internal/logging"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var (
	configPath string
	envFile    string
	logLevel   string
	logJSON    bool
)

var rootCmd = &cobra.Command{
	Use:   "oxbow",
	Short: "Plugin host for the oxbow editor",
	Long: `oxbow discovers editor plugins, routes editor events and language-service
requests to them, and applies their responses.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to .env file with OXBOW_* overrides")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config file")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write logs as JSON")
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	return rootCmd.Execute()
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "oxbow", "config.toml")
}

// applyFlags overrides cfg with the persistent logging flags.
func applyFlags(cfg config.Config) config.Config {
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logJSON {
		cfg.Log.JSON = true
	}
	return cfg
}

// setup loads the configuration and builds the logger shared by commands.
func setup() (*config.Loader, config.Config, *logging.Logger, error) {
	loader := config.NewLoader(configPath, config.WithEnvFile(envFile))
	cfg, err := loader.Load()
	if err != nil {
		return nil, config.Config{}, nil, fmt.Errorf("loading config: %w", err)
	}
	cfg = applyFlags(cfg)

	logger := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Output: os.Stderr,
		JSON:   cfg.Log.JSON,
	})
	return loader, cfg, logger, nil
}

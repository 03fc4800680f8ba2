package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/oxbow/internal/config"
	"github.com/dshills/oxbow/internal/logging"
	"github.com/dshills/oxbow/internal/metrics"
	"github.com/dshills/oxbow/internal/plugin"
	"github.com/dshills/oxbow/internal/plugins/highlight"
	"github.com/dshills/oxbow/internal/transport"
	"github.com/dshills/oxbow/internal/ui/state"
)

var (
	runMetricsAddr string
	runConnect     string
	runHostCmd     string
	runNoHighlight bool
	runNoWatch     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Serve an editor over JSON lines on stdio",
	Long: `Start the plugin manager and bridge it to an editor that writes one JSON
request per line on stdin and reads events and UI updates from stdout.

Plugins run in-process unless --host-cmd or --connect names a plugin host,
in which case discovered plugins are loaded there.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address; overrides the config file")
	runCmd.Flags().StringVar(&runConnect, "connect", "", "Websocket URL of a remote plugin host")
	runCmd.Flags().StringVar(&runHostCmd, "host-cmd", "", "Command line that starts a plugin host on stdio")
	runCmd.Flags().BoolVar(&runNoHighlight, "no-highlight", false, "Disable the built-in syntax highlighter")
	runCmd.Flags().BoolVar(&runNoWatch, "no-watch", false, "Do not reload the config file when it changes")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	loader, cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := config.NewStore(cfg)
	if !runNoWatch && loader.Path() != "" {
		if _, statErr := os.Stat(loader.Path()); statErr == nil {
			watcher, err := config.NewWatcher(loader, store, config.WithErrorHandler(func(err error) {
				logger.Warn("reload config: %v", err)
			}))
			if err != nil {
				logger.Warn("watch config: %v", err)
			} else {
				defer watcher.Close()
			}
		}
	}
	store.Subscribe(reloadLogLevel(logger))

	m := metrics.New()
	addr := runMetricsAddr
	if addr == "" {
		addr = cfg.Metrics.Addr
	}
	if addr != "" {
		srv := &http.Server{Addr: addr, Handler: m.Handler(), ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server: %v", err)
			}
		}()
		defer srv.Close()
		logger.Info("metrics on http://%s/metrics", addr)
	}

	channel, err := buildChannel(ctx, logger)
	if err != nil {
		return err
	}

	uiState := state.NewStore()
	bridge := NewBridge(cmd.OutOrStdout(), uiState, logger)

	manager := plugin.New(store, channel,
		plugin.WithLogger(logger),
		plugin.WithMetrics(m),
		plugin.WithUI(bridge),
		plugin.WithEditorVersion(buildVersion),
	)
	defer manager.Close()
	manager.Subscribe(bridge.HandleEvent)

	if _, err := manager.Start(bridge); err != nil {
		return err
	}
	if !runNoHighlight {
		if _, err := highlight.Register(manager, highlight.WithLogger(logger)); err != nil {
			logger.Warn("highlighter: %v", err)
		}
	}

	return bridge.Run(ctx, cmd.InOrStdin(), manager)
}

// buildChannel connects remote plugin hosts ahead of the in-process channel
// so plugins discovered by the manager load remotely when one is present.
func buildChannel(ctx context.Context, logger *logging.Logger) (plugin.Channel, error) {
	var channels []plugin.Channel

	if runHostCmd != "" {
		fields := strings.Fields(runHostCmd)
		proc, err := transport.SpawnProcess(ctx, transport.ProcessConfig{
			Command: fields[0],
			Args:    fields[1:],
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("start plugin host: %w", err)
		}
		channels = append(channels, proc)
	}

	if runConnect != "" {
		conn, err := transport.DialWS(ctx, runConnect)
		if err != nil {
			closeAll(channels)
			return nil, err
		}
		channels = append(channels, transport.NewChannel(conn, transport.WithLogger(logger)))
	}

	local := plugin.NewInProcessChannel(plugin.WithChannelLogger(logger))
	if len(channels) == 0 {
		return local, nil
	}
	return plugin.NewMuxChannel(append(channels, local)...), nil
}

func closeAll(channels []plugin.Channel) {
	for _, ch := range channels {
		ch.Close()
	}
}

// reloadLogLevel returns a config subscriber that applies the reloaded log
// level unless --log-level was given.
func reloadLogLevel(logger *logging.Logger) func(config.Config) {
	return func(c config.Config) {
		logger.SetLevel(logging.ParseLevel(applyFlags(c).Log.Level))
	}
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/oxbow/internal/logging"
	"github.com/dshills/oxbow/internal/plugin"
	"github.com/dshills/oxbow/internal/transport"
)

var (
	hostListen  string
	hostTimeout time.Duration
)

var hostCmd = &cobra.Command{
	Use:   "plugin-host",
	Short: "Run plugins for a remote editor",
	Long: `Run Lua plugins on behalf of an editor process. By default frames are
exchanged on stdin and stdout; with --listen each websocket connection gets
its own set of plugins. Only plugin directories under this host's configured
plugin roots are loaded, and websocket upgrades must be same-origin.`,
	RunE: runHost,
}

func init() {
	hostCmd.Flags().StringVar(&hostListen, "listen", "", "Serve websocket connections on this address instead of stdio")
	hostCmd.Flags().DurationVar(&hostTimeout, "timeout", 5*time.Second, "Maximum duration of a single plugin callback")
	rootCmd.AddCommand(hostCmd)
}

func runHost(cmd *cobra.Command, args []string) error {
	_, cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	roots := plugin.RootPaths(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if hostListen == "" {
		conn := transport.NewStreamConn(os.Stdin, os.Stdout, os.Stdin)
		return serveConn(ctx, conn, roots, logger)
	}
	return listenWS(ctx, hostListen, roots, logger)
}

func newHost(logger *logging.Logger) *plugin.InProcessChannel {
	return plugin.NewInProcessChannel(
		plugin.WithChannelLogger(logger),
		plugin.WithRuntimeTimeout(hostTimeout),
	)
}

func serveConn(ctx context.Context, conn transport.FrameConn, roots []string, logger *logging.Logger) error {
	host := newHost(logger)
	defer host.Close()
	return transport.Serve(ctx, conn, host, logger, transport.WithPluginRoots(roots))
}

func listenWS(ctx context.Context, addr string, roots []string, logger *logging.Logger) error {
	listener := transport.NewWSListener()
	mux := http.NewServeMux()
	mux.Handle("/plugins", listener)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("plugin host server: %v", err)
		}
	}()
	defer srv.Close()
	logger.Info("plugin host listening on ws://%s/plugins", ln.Addr())

	for {
		conn, err := listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go func() {
			if err := serveConn(ctx, conn, roots, logger); err != nil {
				logger.Warn("plugin host connection: %v", err)
			}
		}()
	}
}

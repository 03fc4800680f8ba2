package transport

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/tidwall/gjson"

	"github.com/dshills/oxbow/internal/logging"
	"github.com/dshills/oxbow/internal/plugin"
)

// Host runs plugins on the plugin-host side of a connection.
type Host interface {
	plugin.Channel
	plugin.Loader
}

// ServeOption configures Serve.
type ServeOption func(*serveConfig)

type serveConfig struct {
	roots []string
}

// WithPluginRoots sets the directories whose immediate subdirectories may
// be loaded. Load frames for any other directory are rejected.
func WithPluginRoots(roots []string) ServeOption {
	return func(c *serveConfig) {
		c.roots = append(c.roots, roots...)
	}
}

// Serve reads frames from conn into host and writes host's responses back
// until conn fails or ctx is cancelled. It closes conn before returning.
// Without WithPluginRoots every load frame is rejected.
func Serve(ctx context.Context, conn FrameConn, host Host, logger *logging.Logger, opts ...ServeOption) error {
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.WithComponent("plugin-host")

	var cfg serveConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	host.OnResponse(func(r plugin.Response) {
		frame, err := encodeResponse(r)
		if err != nil {
			logger.Warn("%v", err)
			return
		}
		if err := conn.WriteFrame(frame); err != nil && !isClosed(err) {
			logger.Warn("write response: %v", err)
		}
	})

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	for {
		data, err := conn.ReadFrame()
		if err != nil {
			if ctx.Err() != nil || isClosed(err) {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}

		if err := handleFrame(data, host, cfg.roots); err != nil {
			logger.Warn("%v", err)
			if werr := conn.WriteFrame(encodeError(err)); werr != nil && !isClosed(werr) {
				logger.Warn("write error frame: %v", werr)
			}
		}
	}
}

func handleFrame(data []byte, host Host, roots []string) error {
	switch kind := frameKind(data); kind {
	case KindMessage:
		var msg plugin.Message
		if err := decodeField(data, "message", &msg); err != nil {
			return fmt.Errorf("decode message frame: %w", err)
		}
		var filter plugin.Filter
		if err := decodeField(data, "filter", &filter); err != nil {
			return fmt.Errorf("decode message filter: %w", err)
		}
		return host.Send(msg, filter)
	case KindLoad:
		root := decodeString(data, "root")
		if root == "" {
			return fmt.Errorf("load frame has no root")
		}
		dir, err := allowedPluginDir(root, roots)
		if err != nil {
			return err
		}
		return host.LoadPlugin(plugin.NewPlugin(dir))
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFrame, kind)
	}
}

func decodeString(data []byte, key string) string {
	return gjson.GetBytes(data, key).String()
}

// allowedPluginDir returns the absolute form of dir if it is an immediate
// subdirectory of one of roots.
func allowedPluginDir(dir string, roots []string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrRootNotAllowed, dir)
	}
	parent := filepath.Dir(abs)
	for _, root := range roots {
		if r, err := filepath.Abs(root); err == nil && r == parent && abs != r {
			return abs, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrRootNotAllowed, dir)
}

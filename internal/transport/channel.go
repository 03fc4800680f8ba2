package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/dshills/oxbow/internal/logging"
	"github.com/dshills/oxbow/internal/plugin"
)

// Channel is the editor side of a cross-process plugin channel. It
// implements plugin.Channel and plugin.Loader.
type Channel struct {
	conn   FrameConn
	logger *logging.Logger

	mu      sync.RWMutex
	handler plugin.ResponseHandler

	done chan struct{}
	once sync.Once
}

// Option configures a Channel.
type Option func(*Channel)

// WithLogger sets the logger for transport failures.
func WithLogger(l *logging.Logger) Option {
	return func(c *Channel) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewChannel starts reading responses from conn.
func NewChannel(conn FrameConn, opts ...Option) *Channel {
	c := &Channel{
		conn:   conn,
		logger: logging.Nop(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent("transport")

	go c.readLoop()
	return c
}

// Send implements plugin.Channel.
func (c *Channel) Send(msg plugin.Message, filter plugin.Filter) error {
	frame, err := encodeMessage(msg, filter)
	if err != nil {
		return err
	}
	return c.write(frame)
}

// OnResponse implements plugin.Channel.
func (c *Channel) OnResponse(handler plugin.ResponseHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

// LoadPlugin implements plugin.Loader. The plugin is started by the remote
// host; start failures are reported asynchronously and logged.
func (c *Channel) LoadPlugin(p *plugin.Plugin) error {
	frame, err := encodeLoad(p.Root())
	if err != nil {
		return err
	}
	return c.write(frame)
}

// Done is closed when the remote side disconnects or Close is called.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Close implements plugin.Channel.
func (c *Channel) Close() error {
	err := c.conn.Close()
	c.finish()
	return err
}

func (c *Channel) write(frame []byte) error {
	select {
	case <-c.done:
		return plugin.ErrChannelClosed
	default:
	}
	if err := c.conn.WriteFrame(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (c *Channel) finish() {
	c.once.Do(func() { close(c.done) })
}

// readLoop delivers responses one at a time in arrival order.
func (c *Channel) readLoop() {
	defer c.finish()
	for {
		data, err := c.conn.ReadFrame()
		if err != nil {
			if !isClosed(err) {
				c.logger.Warn("read frame: %v", err)
			}
			return
		}

		switch kind := frameKind(data); kind {
		case KindResponse:
			var r plugin.Response
			if err := decodeField(data, "response", &r); err != nil {
				c.logger.Warn("decode response frame: %v", err)
				continue
			}
			c.deliver(r)
		case KindError:
			c.logger.Warn("plugin host: %s", decodeString(data, "error"))
		default:
			c.logger.Warn("%v: %q", ErrUnknownFrame, kind)
		}
	}
}

func (c *Channel) deliver(r plugin.Response) {
	c.mu.RLock()
	handler := c.handler
	c.mu.RUnlock()
	if handler == nil {
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Error("response handler panic on %q: %v", r.Type, rec)
		}
	}()
	handler(r)
}

func isClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, ErrClosed)
}

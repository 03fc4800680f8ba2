package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/oxbow/internal/logging"
)

// ResponseHandler receives responses sent by plugins.
type ResponseHandler func(Response)

// MessageHandler receives messages delivered to a plugin.
type MessageHandler func(Message)

// Channel carries messages from the host to plugins and responses back.
type Channel interface {
	// Send delivers msg to every plugin admitted by filter. It does not wait
	// for plugins to process the message.
	Send(msg Message, filter Filter) error

	// OnResponse sets the handler that receives plugin responses.
	OnResponse(handler ResponseHandler)

	// Close stops delivery in both directions.
	Close() error
}

// PluginChannel is a plugin's end of a Channel.
type PluginChannel interface {
	// Name returns the plugin name stamped on every response.
	Name() string

	// OnMessage adds a handler for messages delivered to the plugin.
	OnMessage(handler MessageHandler)

	// Send sends an unsolicited response. It carries no origin event.
	Send(t ResponseType, errMsg string, payload any) error

	// Reply answers to, echoing its event context and request id.
	Reply(to Message, t ResponseType, errMsg string, payload any) error
}

// Connector attaches named plugin endpoints to a channel.
type Connector interface {
	Connect(name string, caps Capabilities) (PluginChannel, error)
}

// Loader starts discovered plugins on a channel.
type Loader interface {
	LoadPlugin(p *Plugin) error
}

// DefaultQueueSize is the per-plugin inbound queue capacity.
const DefaultQueueSize = 256

// InProcessChannel connects plugins running inside the host process.
//
// Each plugin endpoint has its own queue and goroutine so a plugin sees its
// messages one at a time in send order. Responses from all plugins pass
// through a single dispatch goroutine, so the response handler is never
// called concurrently and sees responses in arrival order.
type InProcessChannel struct {
	mu        sync.RWMutex
	endpoints []*endpoint
	runtimes  []*Runtime
	handler   ResponseHandler
	closed    bool

	responses chan Response
	done      chan struct{}
	wg        sync.WaitGroup

	queueSize      int
	runtimeTimeout time.Duration
	logger         *logging.Logger
}

// InProcessOption configures an InProcessChannel.
type InProcessOption func(*InProcessChannel)

// WithQueueSize sets the per-plugin and response queue capacity.
func WithQueueSize(n int) InProcessOption {
	return func(c *InProcessChannel) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithChannelLogger sets the logger used for plugin failures.
func WithChannelLogger(l *logging.Logger) InProcessOption {
	return func(c *InProcessChannel) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRuntimeTimeout bounds each call into a Lua plugin.
func WithRuntimeTimeout(d time.Duration) InProcessOption {
	return func(c *InProcessChannel) {
		c.runtimeTimeout = d
	}
}

// NewInProcessChannel creates an in-process channel and starts its dispatch
// goroutine.
func NewInProcessChannel(opts ...InProcessOption) *InProcessChannel {
	c := &InProcessChannel{
		queueSize: DefaultQueueSize,
		logger:    logging.Nop(),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.responses = make(chan Response, c.queueSize)

	c.wg.Add(1)
	go c.dispatch()
	return c
}

// Send implements Channel.
func (c *InProcessChannel) Send(msg Message, filter Filter) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrChannelClosed
	}

	var errs []error
	for _, ep := range c.endpoints {
		if !filter.Admits(ep.caps) {
			continue
		}
		select {
		case ep.queue <- msg:
		default:
			errs = append(errs, fmt.Errorf("%s: %w", ep.name, ErrQueueFull))
		}
	}
	return errors.Join(errs...)
}

// OnResponse implements Channel.
func (c *InProcessChannel) OnResponse(handler ResponseHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

// Connect implements Connector.
func (c *InProcessChannel) Connect(name string, caps Capabilities) (PluginChannel, error) {
	ep := c.newEndpoint(name, caps)
	if err := c.register(ep, nil); err != nil {
		return nil, err
	}
	return ep, nil
}

// LoadPlugin implements Loader. It runs the plugin's Lua entry point and
// connects it once the script has registered its handlers.
func (c *InProcessChannel) LoadPlugin(p *Plugin) error {
	if !p.Runnable() {
		return fmt.Errorf("%s: %w", p.Name(), ErrNotRunnable)
	}

	ep := c.newEndpoint(p.Name(), p.Capabilities())
	rt, err := StartRuntime(p, ep,
		WithRuntimeLogger(c.logger.WithField("plugin", p.Name())),
		WithExecutionTimeout(c.runtimeTimeout),
	)
	if err != nil {
		return fmt.Errorf("start plugin %q: %w", p.Name(), err)
	}
	ep.OnMessage(rt.Handle)

	if err := c.register(ep, rt); err != nil {
		rt.Close()
		return err
	}
	return nil
}

// Close implements Channel. It must not be called from a response handler.
func (c *InProcessChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	runtimes := c.runtimes
	c.runtimes = nil
	c.mu.Unlock()

	c.wg.Wait()

	var errs []error
	for _, rt := range runtimes {
		if err := rt.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *InProcessChannel) newEndpoint(name string, caps Capabilities) *endpoint {
	return &endpoint{
		channel: c,
		name:    name,
		caps:    caps,
		queue:   make(chan Message, c.queueSize),
	}
}

func (c *InProcessChannel) register(ep *endpoint, rt *Runtime) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrChannelClosed
	}
	c.endpoints = append(c.endpoints, ep)
	if rt != nil {
		c.runtimes = append(c.runtimes, rt)
	}

	c.wg.Add(1)
	go ep.run(c.done, &c.wg)
	return nil
}

// respond queues a response for the dispatch goroutine.
func (c *InProcessChannel) respond(r Response) error {
	select {
	case <-c.done:
		return ErrChannelClosed
	default:
	}

	select {
	case c.responses <- r:
		return nil
	case <-c.done:
		return ErrChannelClosed
	}
}

func (c *InProcessChannel) dispatch() {
	defer c.wg.Done()
	for {
		select {
		case r := <-c.responses:
			c.mu.RLock()
			handler := c.handler
			c.mu.RUnlock()
			if handler != nil {
				c.safeHandle(handler, r)
			}
		case <-c.done:
			return
		}
	}
}

func (c *InProcessChannel) safeHandle(handler ResponseHandler, r Response) {
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Error("response handler panic on %q: %v", r.Type, rec)
		}
	}()
	handler(r)
}

// endpoint is the plugin side of an InProcessChannel.
type endpoint struct {
	channel *InProcessChannel
	name    string
	caps    Capabilities
	queue   chan Message

	mu       sync.RWMutex
	handlers []MessageHandler
}

// Name implements PluginChannel.
func (e *endpoint) Name() string {
	return e.name
}

// OnMessage implements PluginChannel.
func (e *endpoint) OnMessage(handler MessageHandler) {
	if handler == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, handler)
}

// Send implements PluginChannel.
func (e *endpoint) Send(t ResponseType, errMsg string, payload any) error {
	return e.send(t, errMsg, payload, ResponseMeta{})
}

// Reply implements PluginChannel.
func (e *endpoint) Reply(to Message, t ResponseType, errMsg string, payload any) error {
	origin, id := to.Origin()
	return e.send(t, errMsg, payload, ResponseMeta{OriginEvent: origin, RequestID: id})
}

func (e *endpoint) send(t ResponseType, errMsg string, payload any, meta ResponseMeta) error {
	raw, err := encodePayload(payload)
	if err != nil {
		return fmt.Errorf("encode %s response: %w", t, err)
	}
	meta.Plugin = e.name
	return e.channel.respond(Response{
		Type:    string(t),
		Error:   errMsg,
		Payload: raw,
		Meta:    meta,
	})
}

func (e *endpoint) run(done <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case msg := <-e.queue:
			e.deliver(msg)
		case <-done:
			return
		}
	}
}

func (e *endpoint) deliver(msg Message) {
	e.mu.RLock()
	handlers := make([]MessageHandler, len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					e.channel.logger.Error("plugin %s panicked handling %s: %v", e.name, msg.Type, rec)
				}
			}()
			h(msg)
		}()
	}
}

func encodePayload(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return p, nil
	case []byte:
		return json.RawMessage(p), nil
	default:
		return json.Marshal(p)
	}
}

package plugin

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/oxbow/internal/config"
	"github.com/dshills/oxbow/internal/logging"
	"github.com/dshills/oxbow/internal/metrics"
	"github.com/dshills/oxbow/internal/protocol"
)

// AnonymousPlugin is the name of the endpoint returned by Start.
const AnonymousPlugin = "anonymous"

// Language-service request names without a matching response type.
const (
	RequestQuickInfo     = "quick-info"
	RequestSignatureHelp = "signature-help"
	CapabilityFormatting = "formatting"
)

// Manager discovers plugins, forwards editor traffic to them and applies
// their responses.
//
// A Manager is constructed once per process and started once. All methods
// are safe for concurrent use.
type Manager struct {
	channel   Channel
	config    *config.Store
	logger    *logging.Logger
	metrics   *metrics.Metrics
	ui        UI
	scheduler Scheduler
	version   string

	mu          sync.Mutex
	started     bool
	editor      Editor
	unsubscribe func()
	current     *EventContext
	pending     map[ResponseType]string
	plugins     []*Plugin

	// Event handlers (protected by handlersMu)
	handlersMu sync.RWMutex
	handlers   []EventHandler
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// WithUI sets the UI that displays quick info and completions.
func WithUI(ui UI) Option {
	return func(m *Manager) {
		if ui != nil {
			m.ui = ui
		}
	}
}

// WithScheduler sets the scheduler used for deferred UI work.
func WithScheduler(s Scheduler) Option {
	return func(m *Manager) {
		if s != nil {
			m.scheduler = s
		}
	}
}

// WithEditorVersion sets the version checked against plugin requirements.
func WithEditorVersion(v string) Option {
	return func(m *Manager) {
		m.version = v
	}
}

// New creates a Manager that talks to plugins over channel and reads
// settings from store.
func New(store *config.Store, channel Channel, opts ...Option) *Manager {
	m := &Manager{
		channel:   channel,
		config:    store,
		logger:    logging.Nop(),
		ui:        nopUI{},
		scheduler: timerScheduler{},
		pending:   make(map[ResponseType]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.WithComponent("plugins")

	channel.OnResponse(m.handleResponse)
	return m
}

// Start subscribes to editor events, discovers and starts plugins, and
// returns the API of the anonymous plugin, which receives all traffic.
// It returns ErrAlreadyStarted on every call after the first.
func (m *Manager) Start(editor Editor) (*API, error) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	m.started = true
	m.editor = editor
	m.mu.Unlock()

	roots := RootPaths(m.config.Get())
	plugins := Discover(roots)
	m.metrics.PluginsDiscovered(len(plugins))
	m.logger.Info("discovered %d plugins under %d roots", len(plugins), len(roots))

	if err := m.loadPlugins(plugins); err != nil {
		m.logger.Warn("%v", err)
	}

	m.mu.Lock()
	m.plugins = plugins
	m.mu.Unlock()

	if editor != nil {
		unsubscribe := editor.OnEvent(m.OnEditorEvent)
		m.mu.Lock()
		m.unsubscribe = unsubscribe
		m.mu.Unlock()
	}

	api, err := m.Attach(AnonymousPlugin, Capabilities{
		SupportedFileTypes: []string{AnyFileType},
		LanguageService:    []string{AnyFileType},
	})
	if err != nil {
		return nil, fmt.Errorf("attach anonymous plugin: %w", err)
	}
	return api, nil
}

func (m *Manager) loadPlugins(plugins []*Plugin) error {
	loader, canLoad := m.channel.(Loader)

	var loadErrors []error
	for _, p := range plugins {
		if err := p.Err(); err != nil {
			loadErrors = append(loadErrors, fmt.Errorf("%s: %w", p.Root(), err))
			continue
		}
		if !p.Runnable() {
			p.setState(StateRuntimeOnly)
			continue
		}
		if err := p.Manifest().CheckCompatible(m.version); err != nil {
			p.fail(err)
			loadErrors = append(loadErrors, err)
			continue
		}
		if !canLoad {
			p.fail(ErrNoConnector)
			loadErrors = append(loadErrors, fmt.Errorf("%s: %w", p.Name(), ErrNoConnector))
			continue
		}
		if err := loader.LoadPlugin(p); err != nil {
			p.fail(err)
			loadErrors = append(loadErrors, err)
			continue
		}
		p.setState(StateRunning)
		m.logger.Debug("started plugin %s from %s", p.Name(), p.Root())
	}

	if len(loadErrors) > 0 {
		return fmt.Errorf("failed to load %d plugins: %w", len(loadErrors), errors.Join(loadErrors...))
	}
	return nil
}

// Attach connects a named Go plugin to the channel.
func (m *Manager) Attach(name string, caps Capabilities) (*API, error) {
	connector, ok := m.channel.(Connector)
	if !ok {
		return nil, ErrNoConnector
	}
	ch, err := connector.Connect(name, caps)
	if err != nil {
		return nil, err
	}
	return NewAPI(ch), nil
}

// OnEditorEvent records ctx as the current event context and broadcasts the
// event to plugins supporting its filetype.
func (m *Manager) OnEditorEvent(name string, ctx EventContext) {
	m.mu.Lock()
	current := ctx
	m.current = &current
	m.mu.Unlock()

	if err := m.send(MessageEvent, EventPayload{Name: name, Context: ctx}, NewFilter(ctx.Filetype)); err != nil {
		m.logger.Warn("event %s: %v", name, err)
	}
}

// CurrentContext returns a copy of the most recent event context, or nil.
func (m *Manager) CurrentContext() *EventContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	ctx := *m.current
	return &ctx
}

// RequestLanguageService sends a request named kind to plugins supporting
// ctx's filetype and advertising capability, which defaults to kind. Args
// are merged into the request payload. It returns the request id.
func (m *Manager) RequestLanguageService(kind string, ctx EventContext, capability string, args map[string]any) (string, error) {
	if capability == "" {
		capability = kind
	}
	id := uuid.NewString()

	// The id is recorded before sending so a fast reply validates; a failed
	// send restores the previous id.
	t, correlated := ParseResponseType(kind)
	correlated = correlated && t.Correlated()
	var previous string
	if correlated {
		m.mu.Lock()
		previous = m.pending[t]
		m.pending[t] = id
		m.mu.Unlock()
	}

	payload := RequestPayload{ID: id, Name: kind, Context: ctx, Args: args}
	filter := NewFilter(ctx.Filetype).WithCapability(capability)
	if err := m.send(MessageRequest, payload, filter); err != nil {
		if correlated {
			m.mu.Lock()
			if m.pending[t] == id {
				m.pending[t] = previous
			}
			m.mu.Unlock()
		}
		return id, fmt.Errorf("request %s: %w", kind, err)
	}
	return id, nil
}

// CheckHover requests quick info for ctx.
func (m *Manager) CheckHover(ctx EventContext) error {
	_, err := m.RequestLanguageService(RequestQuickInfo, ctx, "", nil)
	return err
}

// CheckSignatureHelp requests signature help for ctx.
func (m *Manager) CheckSignatureHelp(ctx EventContext) error {
	_, err := m.RequestLanguageService(RequestSignatureHelp, ctx, "", nil)
	return err
}

// GotoDefinition requests the definition at the current context.
func (m *Manager) GotoDefinition() error {
	return m.requestAtCurrent(string(ResponseGotoDefinition), "", nil)
}

// FindAllReferences requests references at the current context.
func (m *Manager) FindAllReferences() error {
	return m.requestAtCurrent(string(ResponseFindAllReferences), "", nil)
}

// RequestFormat requests formatting of the current buffer.
func (m *Manager) RequestFormat() error {
	return m.requestAtCurrent(string(ResponseFormat), CapabilityFormatting, nil)
}

// NotifyCompletionItemSelected requests details for item.
func (m *Manager) NotifyCompletionItemSelected(item protocol.CompletionItem) error {
	return m.requestAtCurrent(string(ResponseCompletionItemSelected),
		string(ResponseCompletionProvider), map[string]any{"item": item})
}

func (m *Manager) requestAtCurrent(kind, capability string, args map[string]any) error {
	ctx := m.CurrentContext()
	if ctx == nil {
		return fmt.Errorf("request %s: %w", kind, ErrNoEventContext)
	}
	_, err := m.RequestLanguageService(kind, *ctx, capability, args)
	return err
}

// NotifyBufferUpdate sends the full buffer contents.
func (m *Manager) NotifyBufferUpdate(ctx EventContext, lines []string) error {
	if lines == nil {
		lines = []string{}
	}
	return m.send(MessageBufferUpdate, BufferUpdatePayload{
		EventContext: ctx,
		BufferLines:  lines,
	}, NewFilter(ctx.Filetype))
}

// NotifyBufferUpdateIncremental sends a single changed line and, when
// completions are enabled, requests completions at ctx.
func (m *Manager) NotifyBufferUpdateIncremental(ctx EventContext, lineNumber int, line string) error {
	err := m.send(MessageBufferUpdateIncremental, IncrementalPayload{
		EventContext: ctx,
		LineNumber:   lineNumber,
		BufferLine:   line,
	}, NewFilter(ctx.Filetype))

	if m.config.Get().Editor.Completions.Enabled {
		_, reqErr := m.RequestLanguageService(string(ResponseCompletionProvider), ctx, "", nil)
		err = errors.Join(err, reqErr)
	}
	return err
}

// RuntimePaths returns every plugin directory followed by the plugin roots.
func (m *Manager) RuntimePaths() []string {
	roots := RootPaths(m.config.Get())
	return append(ListPluginDirectories(roots), roots...)
}

// Plugins returns the plugins discovered by Start.
func (m *Manager) Plugins() []*Plugin {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*Plugin, len(m.plugins))
	copy(result, m.plugins)
	return result
}

// Subscribe adds an application event handler.
// Returns an unsubscribe function to remove the handler.
func (m *Manager) Subscribe(handler EventHandler) func() {
	if handler == nil {
		return func() {}
	}

	m.handlersMu.Lock()
	m.handlers = append(m.handlers, handler)
	index := len(m.handlers) - 1
	m.handlersMu.Unlock()

	return func() {
		m.handlersMu.Lock()
		defer m.handlersMu.Unlock()
		// Set to nil instead of removing to avoid index shifting issues
		if index < len(m.handlers) {
			m.handlers[index] = nil
		}
	}
}

// Close unsubscribes from the editor and closes the channel.
func (m *Manager) Close() error {
	m.mu.Lock()
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	return m.channel.Close()
}

func (m *Manager) send(t MessageType, payload any, filter Filter) error {
	msg, err := NewMessage(t, payload)
	if err != nil {
		return err
	}
	if err := m.channel.Send(msg, filter); err != nil {
		return err
	}
	m.metrics.MessageSent(string(t))
	return nil
}

// emit sends an event to all handlers.
// Handlers are called outside any locks and panics are recovered.
func (m *Manager) emit(event Event) {
	m.handlersMu.RLock()
	handlers := make([]EventHandler, len(m.handlers))
	copy(handlers, m.handlers)
	m.handlersMu.RUnlock()

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Error("event handler panic on %s: %v", event.Kind, r)
				}
			}()
			handler(event)
		}()
	}
}

func (m *Manager) warn(plugin, msg string) {
	m.logger.Warn("%s", msg)
	m.emit(Event{Kind: EventLogWarning, Plugin: plugin, Warning: msg})
}

package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/dshills/oxbow/internal/logging"
	"github.com/dshills/oxbow/internal/plugin"
	"github.com/dshills/oxbow/internal/protocol"
	"github.com/dshills/oxbow/internal/ui/selectors"
	"github.com/dshills/oxbow/internal/ui/state"
)

// editorWindow is the id of the single window the bridge tracks.
const editorWindow = 1

// Service is the part of the plugin manager the bridge drives.
type Service interface {
	CheckHover(ctx plugin.EventContext) error
	CheckSignatureHelp(ctx plugin.EventContext) error
	GotoDefinition() error
	FindAllReferences() error
	RequestFormat() error
	NotifyCompletionItemSelected(item protocol.CompletionItem) error
	NotifyBufferUpdate(ctx plugin.EventContext, lines []string) error
	NotifyBufferUpdateIncremental(ctx plugin.EventContext, lineNumber int, line string) error
}

// request is one line of editor input.
type request struct {
	Op         string                  `json:"op"`
	Name       string                  `json:"name,omitempty"`
	Context    plugin.EventContext     `json:"context"`
	Lines      []string                `json:"lines,omitempty"`
	LineNumber int                     `json:"lineNumber,omitempty"`
	Line       string                  `json:"line,omitempty"`
	Index      int                     `json:"index,omitempty"`
	Item       protocol.CompletionItem `json:"item"`
}

// output is one line written back to the editor.
type output struct {
	Kind           string                   `json:"kind"`
	Op             string                   `json:"op,omitempty"`
	Command        string                   `json:"command,omitempty"`
	Error          string                   `json:"error,omitempty"`
	QuickInfo      *protocol.QuickInfo      `json:"quickInfo,omitempty"`
	Completions    *protocol.CompletionList `json:"completions,omitempty"`
	Selected       string                   `json:"selected,omitempty"`
	Item           *protocol.CompletionItem `json:"item,omitempty"`
	Event          *plugin.Event            `json:"event,omitempty"`
	ErrorsAtCursor []protocol.Diagnostic    `json:"errorsAtCursor,omitempty"`
}

// Bridge adapts an editor speaking JSON lines to the plugin manager. It is
// the manager's Editor and UI, and it mirrors everything it shows in a
// state store.
type Bridge struct {
	store  *state.Store
	logger *logging.Logger

	outMu sync.Mutex
	enc   *json.Encoder

	handlersMu sync.RWMutex
	handlers   []func(name string, ctx plugin.EventContext)
}

var (
	_ plugin.Editor = (*Bridge)(nil)
	_ plugin.UI     = (*Bridge)(nil)
)

// NewBridge creates a bridge writing to out.
func NewBridge(out io.Writer, store *state.Store, logger *logging.Logger) *Bridge {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Bridge{
		store:  store,
		logger: logger.WithComponent("bridge"),
		enc:    json.NewEncoder(out),
	}
}

// OnEvent implements plugin.Editor.
func (b *Bridge) OnEvent(handler func(name string, ctx plugin.EventContext)) func() {
	b.handlersMu.Lock()
	b.handlers = append(b.handlers, handler)
	index := len(b.handlers) - 1
	b.handlersMu.Unlock()

	return func() {
		b.handlersMu.Lock()
		defer b.handlersMu.Unlock()
		if index < len(b.handlers) {
			b.handlers[index] = nil
		}
	}
}

// Command implements plugin.Editor by forwarding the command line.
func (b *Bridge) Command(cmd string) error {
	return b.write(output{Kind: "command", Command: cmd})
}

// ShowQuickInfo implements plugin.UI. Info recorded for a position the
// cursor has left is kept in the store but not shown.
func (b *Bridge) ShowQuickInfo(file string, line, column int, info protocol.QuickInfo) {
	b.store.ShowQuickInfo(file, line, column, info)
	if qi := selectors.GetQuickInfo(b.store.Get()); qi != nil {
		b.emit(output{Kind: "quick-info", QuickInfo: qi})
	}
}

// ShowCompletions implements plugin.UI.
func (b *Bridge) ShowCompletions(list protocol.CompletionList) {
	b.store.ShowCompletions(list)
	b.emitCompletions()
}

// SetDetailedCompletionEntry implements plugin.UI.
func (b *Bridge) SetDetailedCompletionEntry(item protocol.CompletionItem) {
	b.store.SetDetailedCompletionEntry(item)
	b.emit(output{Kind: "completion-details", Item: &item})
}

// HandleEvent applies and forwards a plugin manager event.
func (b *Bridge) HandleEvent(ev plugin.Event) {
	b.store.HandlePluginEvent(ev)

	out := output{Kind: ev.Kind.String(), Event: &ev}
	if ev.Kind == plugin.EventSetErrors {
		out.ErrorsAtCursor = selectors.GetErrorsForPosition(b.store.Get())
	}
	b.emit(out)
}

// Run reads requests from in until it is exhausted or ctx is cancelled.
func (b *Bridge) Run(ctx context.Context, in io.Reader, svc Service) error {
	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64*1024), 16<<20)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if len(line) == 0 {
				continue
			}
			b.handle(line, svc)
		}
	}
}

func (b *Bridge) handle(line []byte, svc Service) {
	var req request
	if err := json.Unmarshal(line, &req); err != nil {
		b.emit(output{Kind: "error", Error: fmt.Sprintf("decode request: %v", err)})
		return
	}
	if err := b.dispatch(req, svc); err != nil {
		b.emit(output{Kind: "error", Op: req.Op, Error: err.Error()})
	}
}

func (b *Bridge) dispatch(req request, svc Service) error {
	switch req.Op {
	case "event":
		b.moveCursor(req.Context)
		b.notify(req.Name, req.Context)
		return nil
	case "hover":
		return svc.CheckHover(req.Context)
	case "signature-help":
		return svc.CheckSignatureHelp(req.Context)
	case "definition":
		return svc.GotoDefinition()
	case "references":
		return svc.FindAllReferences()
	case "format":
		return svc.RequestFormat()
	case "completion-selected":
		return svc.NotifyCompletionItemSelected(req.Item)
	case "select-completion":
		b.store.SelectCompletion(req.Index)
		ac := b.store.Get().AutoCompletion
		if ac == nil {
			return nil
		}
		b.emitCompletions()
		return svc.NotifyCompletionItemSelected(ac.Entries[ac.SelectedIndex])
	case "hide-completions":
		b.store.HideCompletions()
		return nil
	case "buffer-update":
		return svc.NotifyBufferUpdate(req.Context, req.Lines)
	case "buffer-update-incremental":
		return svc.NotifyBufferUpdateIncremental(req.Context, req.LineNumber, req.Line)
	default:
		return fmt.Errorf("unknown op %q", req.Op)
	}
}

func (b *Bridge) moveCursor(ctx plugin.EventContext) {
	b.store.SetWindow(state.Window{
		ID:     editorWindow,
		File:   ctx.BufferFullPath,
		Line:   ctx.Line,
		Column: ctx.Column,
	})
	b.store.SetActiveWindow(editorWindow)
}

func (b *Bridge) notify(name string, ctx plugin.EventContext) {
	b.handlersMu.RLock()
	handlers := make([]func(string, plugin.EventContext), len(b.handlers))
	copy(handlers, b.handlers)
	b.handlersMu.RUnlock()

	for _, h := range handlers {
		if h != nil {
			h(name, ctx)
		}
	}
}

func (b *Bridge) emitCompletions() {
	st := b.store.Get()
	if !selectors.AreCompletionsVisible(st) {
		return
	}
	selected, _ := selectors.GetSelectedCompletion(st)
	b.emit(output{
		Kind:        "completions",
		Completions: &protocol.CompletionList{Base: st.AutoCompletion.Base, Entries: st.AutoCompletion.Entries},
		Selected:    selected,
	})
}

func (b *Bridge) emit(out output) {
	if err := b.write(out); err != nil {
		b.logger.Warn("write %s: %v", out.Kind, err)
	}
}

func (b *Bridge) write(out output) error {
	b.outMu.Lock()
	defer b.outMu.Unlock()
	return b.enc.Encode(out)
}

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dshills/oxbow/internal/config"
	"github.com/dshills/oxbow/internal/plugin"
	"github.com/dshills/oxbow/internal/protocol"
	"github.com/dshills/oxbow/internal/ui/state"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) outputs(t *testing.T) []output {
	t.Helper()
	b.mu.Lock()
	data := b.buf.String()
	b.mu.Unlock()

	var result []output
	for _, line := range strings.Split(strings.TrimSpace(data), "\n") {
		if line == "" {
			continue
		}
		var out output
		if err := json.Unmarshal([]byte(line), &out); err != nil {
			t.Fatalf("bad output line %q: %v", line, err)
		}
		result = append(result, out)
	}
	return result
}

// waitFor polls until match accepts an output line.
func waitFor(t *testing.T, buf *syncBuffer, desc string, match func(output) bool) output {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, out := range buf.outputs(t) {
			if match(out) {
				return out
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s; got %+v", desc, buf.outputs(t))
	return output{}
}

type immediateScheduler struct{}

func (immediateScheduler) AfterFunc(_ time.Duration, fn func()) { fn() }

type bridgeFixture struct {
	bridge  *Bridge
	manager *plugin.Manager
	api     *plugin.API
	out     *syncBuffer
	ui      *state.Store
}

func newBridgeFixture(t *testing.T) *bridgeFixture {
	t.Helper()
	cfg := config.Default()
	cfg.Plugins.UseDefault = false
	cfg.Plugins.InstallDir = t.TempDir()
	cfg.Plugins.UserFolder = t.TempDir()
	cfg.Editor.Completions.Enabled = false

	f := &bridgeFixture{out: &syncBuffer{}, ui: state.NewStore()}
	f.bridge = NewBridge(f.out, f.ui, nil)

	ch := plugin.NewInProcessChannel()
	f.manager = plugin.New(config.NewStore(cfg), ch,
		plugin.WithUI(f.bridge),
		plugin.WithScheduler(immediateScheduler{}),
	)
	t.Cleanup(func() { f.manager.Close() })
	f.manager.Subscribe(f.bridge.HandleEvent)

	api, err := f.manager.Start(f.bridge)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	f.api = api
	return f
}

func (f *bridgeFixture) run(t *testing.T, lines ...string) {
	t.Helper()
	input := strings.Join(lines, "\n") + "\n"
	if err := f.bridge.Run(context.Background(), strings.NewReader(input), f.manager); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestBridgeQuickInfoAndDefinition(t *testing.T) {
	f := newBridgeFixture(t)
	f.api.On(plugin.MessageRequest, func(msg plugin.Message) {
		var req plugin.RequestPayload
		if err := msg.Decode(&req); err != nil {
			return
		}
		switch req.Name {
		case plugin.RequestQuickInfo:
			f.api.Reply(msg, plugin.ResponseShowQuickInfo, protocol.QuickInfo{Info: "func main()"})
		case string(plugin.ResponseGotoDefinition):
			f.api.Reply(msg, plugin.ResponseGotoDefinition, protocol.Definition{FilePath: "/def.go", Line: 10, Column: 2})
		}
	})

	ctx := `{"bufferFullPath":"/a.go","line":3,"column":5,"filetype":"go"}`
	f.run(t,
		`{"op":"event","name":"CursorMoved","context":`+ctx+`}`,
		`{"op":"hover","context":`+ctx+`}`,
		`{"op":"definition"}`,
	)

	qi := waitFor(t, f.out, "quick-info", func(o output) bool { return o.Kind == "quick-info" })
	if qi.QuickInfo == nil || qi.QuickInfo.Info != "func main()" {
		t.Errorf("quick-info = %+v", qi.QuickInfo)
	}
	waitFor(t, f.out, "goto command", func(o output) bool { return o.Kind == "command" && o.Command == "e! /def.go" })
	waitFor(t, f.out, "cursor command", func(o output) bool { return o.Kind == "command" && o.Command == "cal cursor(10, 2)" })

	if w := f.ui.Get().Window(editorWindow); w == nil || w.File != "/a.go" || w.Line != 3 {
		t.Errorf("window = %+v", w)
	}
}

func TestBridgeDiagnosticsAtCursor(t *testing.T) {
	f := newBridgeFixture(t)
	f.api.On(plugin.MessageEvent, func(msg plugin.Message) {
		var ev plugin.EventPayload
		if err := msg.Decode(&ev); err != nil {
			return
		}
		f.api.Diagnostics().SetErrors("lint", ev.Context.BufferFullPath, []protocol.Diagnostic{{
			Message: "unused",
			Range: protocol.Range{
				Start: protocol.Position{Line: 0, Character: 0},
				End:   protocol.Position{Line: 0, Character: 9},
			},
		}})
	})

	f.run(t, `{"op":"event","name":"BufEnter","context":{"bufferFullPath":"/a.go","line":1,"column":4,"filetype":"go"}}`)

	out := waitFor(t, f.out, "set-errors", func(o output) bool { return o.Kind == "set-errors" })
	if out.Event == nil || out.Event.Errors == nil || out.Event.Errors.FileName != "/a.go" {
		t.Fatalf("event = %+v", out.Event)
	}
	if len(out.ErrorsAtCursor) != 1 || out.ErrorsAtCursor[0].Message != "unused" {
		t.Errorf("ErrorsAtCursor = %+v", out.ErrorsAtCursor)
	}
	if !f.ui.Get().Errors.HasErrors("/a.go") {
		t.Error("store did not record errors")
	}
}

func TestBridgeCompletions(t *testing.T) {
	f := newBridgeFixture(t)
	f.api.On(plugin.MessageRequest, func(msg plugin.Message) {
		var req plugin.RequestPayload
		if err := msg.Decode(&req); err != nil {
			return
		}
		switch req.Name {
		case string(plugin.ResponseCompletionProvider):
			f.api.Reply(msg, plugin.ResponseCompletionProvider, protocol.CompletionList{
				Base:    "pr",
				Entries: []protocol.CompletionItem{{Label: "print"}, {Label: "println"}},
			})
		case string(plugin.ResponseCompletionItemSelected):
			f.api.Reply(msg, plugin.ResponseCompletionItemSelected, plugin.CompletionDetailsPayload{
				Details: protocol.CompletionItem{Label: "println", Detail: "func println(args ...any)"},
			})
		}
	})

	ctx := plugin.EventContext{BufferFullPath: "/a.go", Line: 2, Column: 3, Filetype: "go"}
	f.run(t, `{"op":"event","name":"CursorMovedI","context":{"bufferFullPath":"/a.go","line":2,"column":3,"filetype":"go"}}`)
	if _, err := f.manager.RequestLanguageService(string(plugin.ResponseCompletionProvider), ctx, "", nil); err != nil {
		t.Fatal(err)
	}

	out := waitFor(t, f.out, "completions", func(o output) bool { return o.Kind == "completions" })
	if out.Completions == nil || len(out.Completions.Entries) != 2 || out.Selected != "print" {
		t.Fatalf("completions = %+v selected %q", out.Completions, out.Selected)
	}

	f.run(t, `{"op":"select-completion","index":1}`)
	waitFor(t, f.out, "selection", func(o output) bool { return o.Kind == "completions" && o.Selected == "println" })
	details := waitFor(t, f.out, "details", func(o output) bool { return o.Kind == "completion-details" })
	if details.Item == nil || details.Item.Detail != "func println(args ...any)" {
		t.Errorf("details = %+v", details.Item)
	}
}

func TestBridgeReportsBadRequests(t *testing.T) {
	f := newBridgeFixture(t)
	f.run(t, `not json`, ``, `{"op":"teleport"}`, `{"op":"definition"}`)

	outs := f.out.outputs(t)
	if len(outs) != 3 {
		t.Fatalf("got %d outputs, want 3: %+v", len(outs), outs)
	}
	for _, o := range outs {
		if o.Kind != "error" || o.Error == "" {
			t.Errorf("output = %+v, want error", o)
		}
	}
	if outs[1].Op != "teleport" || outs[2].Op != "definition" {
		t.Errorf("ops = %q, %q", outs[1].Op, outs[2].Op)
	}
}

func TestBridgeOnEventUnsubscribe(t *testing.T) {
	b := NewBridge(&syncBuffer{}, state.NewStore(), nil)
	calls := 0
	unsubscribe := b.OnEvent(func(string, plugin.EventContext) { calls++ })
	b.notify("x", plugin.EventContext{})
	unsubscribe()
	b.notify("x", plugin.EventContext{})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

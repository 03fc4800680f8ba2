package state

import (
	"testing"

	"github.com/dshills/oxbow/internal/plugin"
	"github.com/dshills/oxbow/internal/protocol"
)

func TestStoreSetErrorsSkipsCleanFiles(t *testing.T) {
	s := NewStore()
	notified := 0
	s.Subscribe(func(*State) { notified++ })

	before := s.Get()
	s.SetErrors("lint", "/a.ts", nil)
	s.SetErrors("lint", "/a.ts", []protocol.Diagnostic{})
	if s.Get() != before || notified != 0 {
		t.Fatalf("clearing a clean file changed state (notified %d)", notified)
	}

	s.SetErrors("lint", "/a.ts", []protocol.Diagnostic{diag("e", 0)})
	s.SetErrors("lint", "/a.ts", nil)
	if notified != 2 {
		t.Errorf("notified = %d, want 2", notified)
	}

	errs, ok := s.Get().Errors.File("/a.ts").Get("lint")
	if !ok || errs == nil || len(errs) != 0 {
		t.Errorf("errors[/a.ts][lint] = %v, %v; want empty array", errs, ok)
	}
}

func TestStoreCompletions(t *testing.T) {
	s := NewStore()
	s.ShowCompletions(protocol.CompletionList{
		Base:    "fo",
		Entries: []protocol.CompletionItem{{Label: "foo"}, {Label: "for"}, {Label: "fork"}},
	})

	ac := s.Get().AutoCompletion
	if ac == nil || ac.Base != "fo" || len(ac.Entries) != 3 || ac.SelectedIndex != 0 {
		t.Fatalf("AutoCompletion = %+v", ac)
	}

	tests := []struct {
		index int
		want  int
	}{
		{1, 1},
		{3, 0},
		{-1, 2},
	}
	for _, tt := range tests {
		s.SelectCompletion(tt.index)
		if got := s.Get().AutoCompletion.SelectedIndex; got != tt.want {
			t.Errorf("SelectCompletion(%d) -> %d, want %d", tt.index, got, tt.want)
		}
	}

	s.SetDetailedCompletionEntry(protocol.CompletionItem{Label: "fork", Detail: "func fork()"})
	if d := s.Get().DetailedEntry; d == nil || d.Detail != "func fork()" {
		t.Errorf("DetailedEntry = %+v", d)
	}

	s.ShowCompletions(protocol.CompletionList{})
	if s.Get().AutoCompletion != nil {
		t.Error("empty list should close the popup")
	}
	s.HideCompletions()
}

func TestStoreQuickInfo(t *testing.T) {
	s := NewStore()
	s.ShowQuickInfo("/a.go", 3, 7, protocol.QuickInfo{Info: "int"})
	qi := s.Get().QuickInfo
	if qi == nil || qi.FilePath != "/a.go" || qi.Line != 3 || qi.Column != 7 || qi.Data.Info != "int" {
		t.Fatalf("QuickInfo = %+v", qi)
	}
	s.HideQuickInfo()
	if s.Get().QuickInfo != nil {
		t.Error("HideQuickInfo() left data behind")
	}
}

func TestStoreBuffersAndWindows(t *testing.T) {
	s := NewStore()
	s.SetBuffer(Buffer{ID: 2, File: "/b", Listed: true})
	s.SetBuffer(Buffer{ID: 1, File: "/a", Listed: true})
	s.SetBuffer(Buffer{ID: 2, File: "/b", Listed: true, Modified: true})

	st := s.Get()
	if ids := st.Buffers.AllIDs; len(ids) != 2 || ids[0] != 2 || ids[1] != 1 {
		t.Errorf("AllIDs = %v, want [2 1]", ids)
	}
	if !st.Buffer(2).Modified {
		t.Error("SetBuffer did not replace existing buffer")
	}

	s.SetWindow(Window{ID: 1, File: "/a", Line: 1, Column: 1})
	s.SetActiveWindow(1)
	before := s.Get()
	s.SetActiveWindow(1)
	if s.Get() != before {
		t.Error("setting the same active window changed state")
	}
	if w := s.Get().Window(s.Get().Windows.Active); w == nil || w.File != "/a" {
		t.Errorf("active window = %+v", w)
	}

	s.SetFontMetrics(8, 16)
	s.SetColors("#fff", "#000")
	st = s.Get()
	if st.Font.PixelWidth != 8 || st.Colors.Background != "#000" {
		t.Errorf("font/colors = %+v %+v", st.Font, st.Colors)
	}
}

func TestStoreHandlePluginEvent(t *testing.T) {
	s := NewStore()
	s.HandlePluginEvent(plugin.Event{
		Kind: plugin.EventSetErrors,
		Errors: &plugin.SetErrorsPayload{
			Key:      "tsserver",
			FileName: "/a.ts",
			Errors:   []protocol.Diagnostic{diag("e1", 0)},
		},
	})
	if !s.Get().Errors.HasErrors("/a.ts") {
		t.Error("set-errors event not applied")
	}

	s.HandlePluginEvent(plugin.Event{
		Kind:       plugin.EventSetSyntaxHighlights,
		Highlights: &protocol.SyntaxHighlights{File: "/a.ts", Key: "chroma", Highlights: []protocol.SyntaxHighlight{{TokenType: "keyword"}}},
	})
	if len(s.Get().Highlights.Get("/a.ts", "chroma")) != 1 {
		t.Error("set-syntax-highlights event not applied")
	}

	s.HandlePluginEvent(plugin.Event{
		Kind:       plugin.EventClearSyntaxHighlights,
		Highlights: &protocol.SyntaxHighlights{File: "/a.ts", Key: "chroma"},
	})
	if s.Get().Highlights.Get("/a.ts", "chroma") != nil {
		t.Error("clear-syntax-highlights event not applied")
	}

	before := s.Get()
	s.HandlePluginEvent(plugin.Event{Kind: plugin.EventLogWarning, Warning: "x"})
	if s.Get() != before {
		t.Error("warning event changed state")
	}
}

func TestStoreUnsubscribe(t *testing.T) {
	s := NewStore()
	calls := 0
	unsubscribe := s.Subscribe(func(*State) { calls++ })
	s.SetColors("a", "b")
	unsubscribe()
	s.SetColors("c", "d")
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

package state

import (
	"sync"

	"github.com/dshills/oxbow/internal/plugin"
	"github.com/dshills/oxbow/internal/protocol"
)

// Handler is called with the new state after every change.
type Handler func(s *State)

// Store owns the current State and applies actions to it. It implements
// plugin.UI and is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	state    *State
	handlers []Handler
}

var _ plugin.UI = (*Store)(nil)

// NewStore creates a store holding the empty state.
func NewStore() *Store {
	return &Store{state: New()}
}

// Get returns the current state.
func (s *Store) Get() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers h and returns a function removing it.
func (s *Store) Subscribe(h Handler) func() {
	if h == nil {
		return func() {}
	}

	s.mu.Lock()
	s.handlers = append(s.handlers, h)
	index := len(s.handlers) - 1
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if index < len(s.handlers) {
			s.handlers[index] = nil
		}
	}
}

// update applies fn to the current state. Returning the argument unchanged
// skips notification.
func (s *Store) update(fn func(cur *State) *State) {
	s.mu.Lock()
	next := fn(s.state)
	if next == s.state {
		s.mu.Unlock()
		return
	}
	s.state = next
	handlers := make([]Handler, len(s.handlers))
	copy(handlers, s.handlers)
	s.mu.Unlock()

	for _, h := range handlers {
		if h != nil {
			h(next)
		}
	}
}

// SetErrors records key's diagnostics for file. Clearing a file that has
// no errors is a no-op.
func (s *Store) SetErrors(key, file string, errs []protocol.Diagnostic) {
	s.update(func(cur *State) *State {
		if len(errs) == 0 && !cur.Errors.HasErrors(file) {
			return cur
		}
		next := cur.clone()
		next.Errors = cur.Errors.Set(key, file, errs)
		return next
	})
}

// SetSyntaxHighlights records key's highlights for file.
func (s *Store) SetSyntaxHighlights(file, key string, hl []protocol.SyntaxHighlight) {
	s.update(func(cur *State) *State {
		next := cur.clone()
		next.Highlights = cur.Highlights.Set(file, key, hl)
		return next
	})
}

// ClearSyntaxHighlights drops key's highlights for file.
func (s *Store) ClearSyntaxHighlights(file, key string) {
	s.update(func(cur *State) *State {
		hl := cur.Highlights.Clear(file, key)
		if hl == cur.Highlights {
			return cur
		}
		next := cur.clone()
		next.Highlights = hl
		return next
	})
}

// ShowQuickInfo caches info for the given 1-based position.
func (s *Store) ShowQuickInfo(file string, line, column int, info protocol.QuickInfo) {
	s.update(func(cur *State) *State {
		next := cur.clone()
		next.QuickInfo = &QuickInfo{FilePath: file, Line: line, Column: column, Data: info}
		return next
	})
}

// HideQuickInfo drops cached quick info.
func (s *Store) HideQuickInfo() {
	s.update(func(cur *State) *State {
		if cur.QuickInfo == nil {
			return cur
		}
		next := cur.clone()
		next.QuickInfo = nil
		return next
	})
}

// ShowCompletions opens the completion popup with the first entry selected.
func (s *Store) ShowCompletions(list protocol.CompletionList) {
	s.update(func(cur *State) *State {
		next := cur.clone()
		next.DetailedEntry = nil
		if len(list.Entries) == 0 {
			next.AutoCompletion = nil
			return next
		}
		entries := make([]protocol.CompletionItem, len(list.Entries))
		copy(entries, list.Entries)
		next.AutoCompletion = &AutoCompletion{Base: list.Base, Entries: entries}
		return next
	})
}

// HideCompletions closes the completion popup.
func (s *Store) HideCompletions() {
	s.update(func(cur *State) *State {
		if cur.AutoCompletion == nil && cur.DetailedEntry == nil {
			return cur
		}
		next := cur.clone()
		next.AutoCompletion = nil
		next.DetailedEntry = nil
		return next
	})
}

// SelectCompletion moves the selection, wrapping around the entry list.
func (s *Store) SelectCompletion(index int) {
	s.update(func(cur *State) *State {
		ac := cur.AutoCompletion
		if ac == nil || len(ac.Entries) == 0 {
			return cur
		}
		n := len(ac.Entries)
		index = ((index % n) + n) % n
		if index == ac.SelectedIndex {
			return cur
		}
		updated := *ac
		updated.SelectedIndex = index
		next := cur.clone()
		next.AutoCompletion = &updated
		next.DetailedEntry = nil
		return next
	})
}

// SetDetailedCompletionEntry stores the resolved details of an entry.
func (s *Store) SetDetailedCompletionEntry(item protocol.CompletionItem) {
	s.update(func(cur *State) *State {
		next := cur.clone()
		next.DetailedEntry = &item
		return next
	})
}

// SetBuffer adds or replaces a buffer.
func (s *Store) SetBuffer(b Buffer) {
	s.update(func(cur *State) *State {
		byID := make(map[int]*Buffer, len(cur.Buffers.ByID)+1)
		for id, v := range cur.Buffers.ByID {
			byID[id] = v
		}
		ids := cur.Buffers.AllIDs
		if _, ok := byID[b.ID]; !ok {
			ids = append(append([]int(nil), ids...), b.ID)
		}
		byID[b.ID] = &b

		next := cur.clone()
		next.Buffers = Buffers{ByID: byID, AllIDs: ids}
		return next
	})
}

// SetWindow adds or replaces a window.
func (s *Store) SetWindow(w Window) {
	s.update(func(cur *State) *State {
		byID := make(map[int]*Window, len(cur.Windows.ByID)+1)
		for id, v := range cur.Windows.ByID {
			byID[id] = v
		}
		byID[w.ID] = &w

		next := cur.clone()
		next.Windows = Windows{ByID: byID, Active: cur.Windows.Active}
		return next
	})
}

// SetActiveWindow makes id the active window. Zero clears it.
func (s *Store) SetActiveWindow(id int) {
	s.update(func(cur *State) *State {
		if cur.Windows.Active == id {
			return cur
		}
		next := cur.clone()
		next.Windows.Active = id
		return next
	})
}

// SetFontMetrics sets the cell size in pixels.
func (s *Store) SetFontMetrics(width, height float64) {
	s.update(func(cur *State) *State {
		m := FontMetrics{PixelWidth: width, PixelHeight: height}
		if cur.Font == m {
			return cur
		}
		next := cur.clone()
		next.Font = m
		return next
	})
}

// SetColors sets the default foreground and background colors.
func (s *Store) SetColors(foreground, background string) {
	s.update(func(cur *State) *State {
		c := Colors{Foreground: foreground, Background: background}
		if cur.Colors == c {
			return cur
		}
		next := cur.clone()
		next.Colors = c
		return next
	})
}

// HandlePluginEvent applies diagnostics and highlight events relayed by the
// plugin manager. Pass it to plugin.Manager.Subscribe.
func (s *Store) HandlePluginEvent(ev plugin.Event) {
	switch ev.Kind {
	case plugin.EventSetErrors:
		if ev.Errors != nil {
			s.SetErrors(ev.Errors.Key, ev.Errors.FileName, ev.Errors.Errors)
		}
	case plugin.EventSetSyntaxHighlights:
		if ev.Highlights != nil {
			s.SetSyntaxHighlights(ev.Highlights.File, ev.Highlights.Key, ev.Highlights.Highlights)
		}
	case plugin.EventClearSyntaxHighlights:
		if ev.Highlights != nil {
			s.ClearSyntaxHighlights(ev.Highlights.File, ev.Highlights.Key)
		}
	}
}

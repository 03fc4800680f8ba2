package state

import "github.com/dshills/oxbow/internal/protocol"

// Highlights holds syntax highlight ranges per file and producer key.
type Highlights struct {
	files map[string]map[string][]protocol.SyntaxHighlight
}

// NewHighlights returns an empty highlight set.
func NewHighlights() *Highlights {
	return &Highlights{files: map[string]map[string][]protocol.SyntaxHighlight{}}
}

// Get returns key's highlights for file.
func (h *Highlights) Get(file, key string) []protocol.SyntaxHighlight {
	if h == nil {
		return nil
	}
	return h.files[file][key]
}

// Set returns a copy with key's highlights for file replaced.
func (h *Highlights) Set(file, key string, hl []protocol.SyntaxHighlight) *Highlights {
	c := h.copyExcept(file)
	byKey := make(map[string][]protocol.SyntaxHighlight, len(h.files[file])+1)
	for k, v := range h.files[file] {
		byKey[k] = v
	}
	byKey[key] = hl
	c.files[file] = byKey
	return c
}

// Clear returns a copy without key's highlights for file. An empty key
// clears every producer's highlights.
func (h *Highlights) Clear(file, key string) *Highlights {
	if _, ok := h.files[file]; !ok {
		return h
	}
	c := h.copyExcept(file)
	if key == "" {
		return c
	}
	byKey := make(map[string][]protocol.SyntaxHighlight, len(h.files[file]))
	for k, v := range h.files[file] {
		if k != key {
			byKey[k] = v
		}
	}
	if len(byKey) > 0 {
		c.files[file] = byKey
	}
	return c
}

func (h *Highlights) copyExcept(file string) *Highlights {
	files := make(map[string]map[string][]protocol.SyntaxHighlight, len(h.files)+1)
	for f, v := range h.files {
		if f != file {
			files[f] = v
		}
	}
	return &Highlights{files: files}
}

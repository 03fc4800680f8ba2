// Package highlight is a built-in plugin that computes syntax highlights
// for whole-buffer updates using chroma lexers.
package highlight

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/cespare/xxhash/v2"

	"github.com/dshills/oxbow/internal/logging"
	"github.com/dshills/oxbow/internal/plugin"
	"github.com/dshills/oxbow/internal/protocol"
)

// Name is the plugin name and the key of the highlights it reports.
const Name = "chroma"

// Attacher connects an in-process plugin to the host.
type Attacher interface {
	Attach(name string, caps plugin.Capabilities) (*plugin.API, error)
}

// Highlighter answers buffer updates with set-syntax-highlights.
type Highlighter struct {
	api    *plugin.API
	logger *logging.Logger

	mu      sync.Mutex
	digests map[string]uint64
}

// Option configures a Highlighter.
type Option func(*Highlighter)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(h *Highlighter) {
		if l != nil {
			h.logger = l
		}
	}
}

// Register attaches a Highlighter for every filetype.
func Register(a Attacher, opts ...Option) (*Highlighter, error) {
	api, err := a.Attach(Name, plugin.Capabilities{SupportedFileTypes: []string{plugin.AnyFileType}})
	if err != nil {
		return nil, err
	}

	h := &Highlighter{
		api:     api,
		logger:  logging.Nop(),
		digests: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.WithComponent("highlight")

	api.On(plugin.MessageBufferUpdate, h.onBufferUpdate)
	return h, nil
}

func (h *Highlighter) onBufferUpdate(msg plugin.Message) {
	var p plugin.BufferUpdatePayload
	if err := msg.Decode(&p); err != nil {
		h.logger.Warn("decode buffer update: %v", err)
		return
	}
	file := p.EventContext.BufferFullPath

	sum := digest(p.EventContext.Filetype, p.BufferLines)
	h.mu.Lock()
	prev, seen := h.digests[file]
	h.digests[file] = sum
	h.mu.Unlock()
	if seen && prev == sum {
		return
	}

	lexer := lexerFor(p.EventContext.Filetype, file)
	if lexer == nil {
		if err := h.api.Send(plugin.ResponseClearSyntaxHighlights, protocol.SyntaxHighlights{File: file, Key: Name}); err != nil {
			h.logger.Warn("clear highlights for %s: %v", file, err)
		}
		return
	}

	highlights, err := Tokenize(lexer, p.BufferLines)
	if err != nil {
		h.logger.Warn("tokenize %s: %v", file, err)
		h.forget(file)
		return
	}
	if err := h.api.Send(plugin.ResponseSetSyntaxHighlights, protocol.SyntaxHighlights{
		File:       file,
		Key:        Name,
		Highlights: highlights,
	}); err != nil {
		h.logger.Warn("send highlights for %s: %v", file, err)
		h.forget(file)
	}
}

func (h *Highlighter) forget(file string) {
	h.mu.Lock()
	delete(h.digests, file)
	h.mu.Unlock()
}

func digest(filetype string, lines []string) uint64 {
	d := xxhash.New()
	d.WriteString(filetype)
	for _, line := range lines {
		d.WriteString("\n")
		d.WriteString(line)
	}
	return d.Sum64()
}

// lexerFor picks a lexer by filetype name, then by file name.
func lexerFor(filetype, file string) chroma.Lexer {
	var lexer chroma.Lexer
	if filetype != "" {
		lexer = lexers.Get(filetype)
	}
	if lexer == nil && file != "" {
		lexer = lexers.Match(file)
	}
	if lexer == nil {
		return nil
	}
	return chroma.Coalesce(lexer)
}

// Tokenize highlights lines with lexer. Tokens spanning several lines are
// split into one range per line. Plain text, whitespace, punctuation and
// bare names are not reported.
func Tokenize(lexer chroma.Lexer, lines []string) ([]protocol.SyntaxHighlight, error) {
	it, err := lexer.Tokenise(nil, strings.Join(lines, "\n"))
	if err != nil {
		return nil, err
	}

	var (
		result []protocol.SyntaxHighlight
		line   int
		col    int
	)
	for tok := it(); tok != chroma.EOF; tok = it() {
		parts := strings.Split(tok.Value, "\n")
		for i, part := range parts {
			if i > 0 {
				line++
				col = 0
			}
			width := utf8.RuneCountInString(part)
			if width > 0 && reported(tok.Type) {
				result = append(result, protocol.SyntaxHighlight{
					Range: protocol.Range{
						Start: protocol.Position{Line: line, Character: col},
						End:   protocol.Position{Line: line, Character: col + width},
					},
					TokenType: tok.Type.String(),
				})
			}
			col += width
		}
	}
	return result, nil
}

func reported(t chroma.TokenType) bool {
	switch {
	case t.InCategory(chroma.Text), t == chroma.Punctuation, t == chroma.Name, t == chroma.Other:
		return false
	default:
		return true
	}
}

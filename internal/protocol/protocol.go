// Package protocol defines the wire types shared by the plugin host, the
// plugin runtimes, and the UI state layer.
//
// Positions and ranges use LSP conventions: lines and columns are 0-based.
package protocol

// Position in a text document expressed as 0-based line and column.
type Position struct {
	Line      int `json:"line" yaml:"line"`
	Character int `json:"character" yaml:"character"`
}

// Before reports whether p comes strictly before other.
func (p Position) Before(other Position) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Character < other.Character
}

// Range in a text document expressed as start and end positions.
type Range struct {
	Start Position `json:"start" yaml:"start"`
	End   Position `json:"end" yaml:"end"`
}

// Contains reports whether the 0-based line and column fall inside r.
// Both ends are inclusive so a cursor resting just after a flagged token
// still reports it.
func (r Range) Contains(line, column int) bool {
	pos := Position{Line: line, Character: column}
	return !pos.Before(r.Start) && !r.End.Before(pos)
}

// Location represents a location inside a file.
type Location struct {
	FilePath string `json:"filePath"`
	Range    Range  `json:"range"`
}

// DiagnosticSeverity represents the severity of a diagnostic.
type DiagnosticSeverity int

const (
	SeverityError       DiagnosticSeverity = 1
	SeverityWarning     DiagnosticSeverity = 2
	SeverityInformation DiagnosticSeverity = 3
	SeverityHint        DiagnosticSeverity = 4
)

// String returns a string representation of the severity.
func (s DiagnosticSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInformation:
		return "info"
	case SeverityHint:
		return "hint"
	default:
		return "unknown"
	}
}

// Diagnostic represents a compiler error, warning or lint finding.
type Diagnostic struct {
	Range    Range              `json:"range"`
	Severity DiagnosticSeverity `json:"severity,omitempty"`
	Code     any                `json:"code,omitempty"` // string or number
	Source   string             `json:"source,omitempty"`
	Message  string             `json:"message"`
}

// CompletionItemKind is the kind of a completion entry.
type CompletionItemKind int

// CompletionItem is a single entry offered by a completion provider.
type CompletionItem struct {
	Label         string             `json:"label"`
	Kind          CompletionItemKind `json:"kind,omitempty"`
	Detail        string             `json:"detail,omitempty"`
	Documentation string             `json:"documentation,omitempty"`
	InsertText    string             `json:"insertText,omitempty"`
}

// Text returns the text the entry inserts: InsertText when set, else Label.
func (c CompletionItem) Text() string {
	if c.InsertText != "" {
		return c.InsertText
	}
	return c.Label
}

// CompletionList is the payload of a completion-provider response.
type CompletionList struct {
	Base    string           `json:"base"`
	Entries []CompletionItem `json:"entries"`
}

// QuickInfo is hover information for a position.
type QuickInfo struct {
	Info          string `json:"info"`
	Documentation string `json:"documentation,omitempty"`
}

// Definition is the payload of a goto-definition response.
type Definition struct {
	FilePath string `json:"filePath"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

// SyntaxHighlight tags a range of a buffer with a highlight group.
type SyntaxHighlight struct {
	Range     Range  `json:"range"`
	TokenType string `json:"tokenType"`
}

// SyntaxHighlights is the payload of set-syntax-highlights and
// clear-syntax-highlights responses.
type SyntaxHighlights struct {
	File       string            `json:"file"`
	Key        string            `json:"key"`
	Highlights []SyntaxHighlight `json:"highlights,omitempty"`
}

// TextEdit replaces a range of a buffer with new text.
type TextEdit struct {
	Range   Range  `json:"range"`
	NewText string `json:"newText"`
}

// FormatResult is the payload of a format response.
type FormatResult struct {
	FilePath string     `json:"filePath"`
	Version  int        `json:"version,omitempty"`
	Edits    []TextEdit `json:"edits"`
}

package plugin

import (
	"fmt"

	"github.com/dshills/oxbow/internal/protocol"
)

// EventKind identifies an application event emitted by the Manager.
type EventKind int

// Application events.
const (
	// EventSetErrors relays a plugin's diagnostics for a file.
	EventSetErrors EventKind = iota
	// EventFindAllReferences relays reference locations.
	EventFindAllReferences
	// EventFormat relays formatting edits.
	EventFormat
	// EventSetSyntaxHighlights relays highlight ranges.
	EventSetSyntaxHighlights
	// EventClearSyntaxHighlights asks for highlights to be cleared.
	EventClearSyntaxHighlights
	// EventLogWarning reports a malformed or unexpected response.
	EventLogWarning
)

// String returns the event name.
func (k EventKind) String() string {
	switch k {
	case EventSetErrors:
		return "set-errors"
	case EventFindAllReferences:
		return "find-all-references"
	case EventFormat:
		return "format"
	case EventSetSyntaxHighlights:
		return "set-syntax-highlights"
	case EventClearSyntaxHighlights:
		return "clear-syntax-highlights"
	case EventLogWarning:
		return "logWarning"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *EventKind) UnmarshalText(text []byte) error {
	for candidate := EventSetErrors; candidate <= EventLogWarning; candidate++ {
		if candidate.String() == string(text) {
			*k = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown event kind %q", text)
}

// Event is an application event. Only the field matching Kind is set.
type Event struct {
	Kind   EventKind `json:"kind"`
	Plugin string    `json:"plugin,omitempty"`

	Errors     *SetErrorsPayload          `json:"errors,omitempty"`
	References []protocol.Location        `json:"references,omitempty"`
	Format     *protocol.FormatResult     `json:"format,omitempty"`
	Highlights *protocol.SyntaxHighlights `json:"highlights,omitempty"`
	Warning    string                     `json:"warning,omitempty"`
}

// EventHandler handles application events.
// Handlers must be non-blocking and should not call back into the Manager
// to avoid deadlocks. Panics in handlers are recovered.
type EventHandler func(event Event)

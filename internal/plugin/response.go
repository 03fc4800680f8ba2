package plugin

import (
	"bytes"
	"encoding/json"

	"github.com/dshills/oxbow/internal/protocol"
)

// ResponseType identifies a response sent from a plugin to the host.
type ResponseType string

// Response types understood by the Manager.
const (
	ResponseShowQuickInfo          ResponseType = "show-quick-info"
	ResponseGotoDefinition         ResponseType = "goto-definition"
	ResponseCompletionProvider     ResponseType = "completion-provider"
	ResponseCompletionItemSelected ResponseType = "completion-provider-item-selected"
	ResponseSetErrors              ResponseType = "set-errors"
	ResponseFindAllReferences      ResponseType = "find-all-references"
	ResponseFormat                 ResponseType = "format"
	ResponseSetSyntaxHighlights    ResponseType = "set-syntax-highlights"
	ResponseClearSyntaxHighlights  ResponseType = "clear-syntax-highlights"
)

// ParseResponseType returns the ResponseType named s. The second result is
// false for unknown names.
func ParseResponseType(s string) (ResponseType, bool) {
	switch t := ResponseType(s); t {
	case ResponseShowQuickInfo,
		ResponseGotoDefinition,
		ResponseCompletionProvider,
		ResponseCompletionItemSelected,
		ResponseSetErrors,
		ResponseFindAllReferences,
		ResponseFormat,
		ResponseSetSyntaxHighlights,
		ResponseClearSyntaxHighlights:
		return t, true
	default:
		return "", false
	}
}

// Correlated reports whether responses of this type answer one specific
// request and must be checked for staleness before they are applied.
func (t ResponseType) Correlated() bool {
	switch t {
	case ResponseGotoDefinition, ResponseCompletionProvider, ResponseCompletionItemSelected:
		return true
	default:
		return false
	}
}

// ResponseMeta carries correlation data for a response.
type ResponseMeta struct {
	// OriginEvent echoes the context of the message being answered.
	OriginEvent *EventContext `json:"originEvent,omitempty"`

	// RequestID echoes the id of the request being answered.
	RequestID string `json:"requestId,omitempty"`

	// Plugin names the sender.
	Plugin string `json:"plugin,omitempty"`
}

// Response is a message sent from a plugin to the host. Type is kept as a
// raw string so unknown types survive decoding.
type Response struct {
	Type    string          `json:"type"`
	Error   string          `json:"error,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Meta    ResponseMeta    `json:"meta"`
}

// HasError reports whether the plugin reported a failure.
func (r Response) HasError() bool {
	return r.Error != ""
}

// Decode unmarshals the response payload into v.
func (r Response) Decode(v any) error {
	p := bytes.TrimSpace(r.Payload)
	if len(p) == 0 || bytes.Equal(p, []byte("null")) {
		return ErrEmptyPayload
	}
	return json.Unmarshal(p, v)
}

// CompletionDetailsPayload is the payload of a
// completion-provider-item-selected response.
type CompletionDetailsPayload struct {
	Details protocol.CompletionItem `json:"details"`
}

// SetErrorsPayload is the payload of a set-errors response.
type SetErrorsPayload struct {
	Key      string                `json:"key"`
	FileName string                `json:"fileName"`
	Errors   []protocol.Diagnostic `json:"errors"`
}

// ReferencesPayload is the payload of a find-all-references response.
type ReferencesPayload struct {
	References []protocol.Location `json:"references"`
}

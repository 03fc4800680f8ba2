package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// MessageType identifies an outbound message sent from the host to plugins.
type MessageType string

// Outbound message types.
const (
	MessageEvent                   MessageType = "event"
	MessageRequest                 MessageType = "request"
	MessageBufferUpdate            MessageType = "buffer-update"
	MessageBufferUpdateIncremental MessageType = "buffer-update-incremental"
)

// Message is a typed message sent from the host to plugins.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewMessage encodes payload into a message of type t.
func NewMessage(t MessageType, payload any) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s payload: %w", t, err)
	}
	return Message{Type: t, Payload: data}, nil
}

// Decode unmarshals the message payload into v.
func (m Message) Decode(v any) error {
	if len(m.Payload) == 0 {
		return ErrEmptyPayload
	}
	return json.Unmarshal(m.Payload, v)
}

// Origin returns the event context the message was sent for and the request
// id it carries. Either may be empty.
func (m Message) Origin() (*EventContext, string) {
	if len(m.Payload) == 0 {
		return nil, ""
	}
	results := gjson.GetManyBytes(m.Payload, "context", "eventContext", "id")

	raw := results[0]
	if !raw.IsObject() {
		raw = results[1]
	}

	var origin *EventContext
	if raw.IsObject() {
		var ec EventContext
		if err := json.Unmarshal([]byte(raw.Raw), &ec); err == nil {
			origin = &ec
		}
	}
	return origin, results[2].String()
}

// EventPayload is the payload of an event message.
type EventPayload struct {
	Name    string       `json:"name"`
	Context EventContext `json:"context"`
}

// BufferUpdatePayload is the payload of a buffer-update message.
type BufferUpdatePayload struct {
	EventContext EventContext `json:"eventContext"`
	BufferLines  []string     `json:"bufferLines"`
}

// IncrementalPayload is the payload of a buffer-update-incremental message.
type IncrementalPayload struct {
	EventContext EventContext `json:"eventContext"`
	LineNumber   int          `json:"lineNumber"`
	BufferLine   string       `json:"bufferLine"`
}

// RequestPayload is the payload of a request message. Args are flattened
// into the top-level object next to id, name and context.
type RequestPayload struct {
	ID      string
	Name    string
	Context EventContext
	Args    map[string]any
}

type requestBase struct {
	ID      string       `json:"id,omitempty"`
	Name    string       `json:"name"`
	Context EventContext `json:"context"`
}

// MarshalJSON implements json.Marshaler.
func (p RequestPayload) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(requestBase{ID: p.ID, Name: p.Name, Context: p.Context})
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(p.Args))
	for k := range p.Args {
		switch k {
		case "id", "name", "context":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		data, err = sjson.SetBytes(data, escapePath(k), p.Args[k])
		if err != nil {
			return nil, fmt.Errorf("set request arg %q: %w", k, err)
		}
	}
	return data, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *RequestPayload) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return errors.New("invalid request payload")
	}

	var err error
	gjson.ParseBytes(data).ForEach(func(key, value gjson.Result) bool {
		switch key.String() {
		case "id":
			p.ID = value.String()
		case "name":
			p.Name = value.String()
		case "context":
			err = json.Unmarshal([]byte(value.Raw), &p.Context)
		default:
			if p.Args == nil {
				p.Args = make(map[string]any)
			}
			p.Args[key.String()] = value.Value()
		}
		return err == nil
	})
	return err
}

// escapePath escapes gjson path metacharacters in a literal object key.
func escapePath(key string) string {
	if !strings.ContainsAny(key, `.*?|#@!:\`) {
		return key
	}
	var b strings.Builder
	for _, r := range key {
		if strings.ContainsRune(`.*?|#@!:\`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

package transport

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/oxbow/internal/plugin"
)

// FrameKind tags a frame.
type FrameKind string

// Frame kinds.
const (
	KindMessage  FrameKind = "message"
	KindLoad     FrameKind = "load"
	KindResponse FrameKind = "response"
	KindError    FrameKind = "error"
)

func newFrame(kind FrameKind) []byte {
	frame, _ := sjson.SetBytes([]byte(`{}`), "kind", string(kind))
	return frame
}

// withRaw embeds an encoded JSON value under key.
func withRaw(frame []byte, key string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return sjson.SetRawBytes(frame, key, data)
}

func encodeMessage(msg plugin.Message, filter plugin.Filter) ([]byte, error) {
	frame, err := withRaw(newFrame(KindMessage), "message", msg)
	if err != nil {
		return nil, fmt.Errorf("encode message frame: %w", err)
	}
	return withRaw(frame, "filter", filter)
}

func encodeLoad(root string) ([]byte, error) {
	return sjson.SetBytes(newFrame(KindLoad), "root", root)
}

func encodeResponse(r plugin.Response) ([]byte, error) {
	frame, err := withRaw(newFrame(KindResponse), "response", r)
	if err != nil {
		return nil, fmt.Errorf("encode response frame: %w", err)
	}
	return frame, nil
}

func encodeError(err error) []byte {
	frame, _ := sjson.SetBytes(newFrame(KindError), "error", err.Error())
	return frame
}

// frameKind peeks at the kind of an encoded frame.
func frameKind(data []byte) FrameKind {
	return FrameKind(gjson.GetBytes(data, "kind").String())
}

// decodeField unmarshals the value stored under key.
func decodeField(data []byte, key string, v any) error {
	raw := gjson.GetBytes(data, key)
	if !raw.Exists() {
		return fmt.Errorf("frame has no %q", key)
	}
	return json.Unmarshal([]byte(raw.Raw), v)
}

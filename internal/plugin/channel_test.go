package plugin

import (
	"errors"
	"testing"
	"time"
)

const waitTimeout = 2 * time.Second

func collectResponses(ch Channel) <-chan Response {
	out := make(chan Response, 64)
	ch.OnResponse(func(r Response) { out <- r })
	return out
}

func waitResponse(t *testing.T, out <-chan Response) Response {
	t.Helper()
	select {
	case r := <-out:
		return r
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for response")
		return Response{}
	}
}

func waitMessage(t *testing.T, out <-chan Message) Message {
	t.Helper()
	select {
	case m := <-out:
		return m
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestInProcessChannelFiltersRecipients(t *testing.T) {
	ch := NewInProcessChannel()
	defer ch.Close()

	goPlugin, err := ch.Connect("go", Capabilities{SupportedFileTypes: []string{"go"}})
	if err != nil {
		t.Fatal(err)
	}
	tsPlugin, err := ch.Connect("ts", Capabilities{SupportedFileTypes: []string{"typescript"}})
	if err != nil {
		t.Fatal(err)
	}

	goMsgs := make(chan Message, 4)
	tsMsgs := make(chan Message, 4)
	goPlugin.OnMessage(func(m Message) { goMsgs <- m })
	tsPlugin.OnMessage(func(m Message) { tsMsgs <- m })

	msg, _ := NewMessage(MessageEvent, EventPayload{Name: "BufEnter", Context: EventContext{Filetype: "go"}})
	if err := ch.Send(msg, NewFilter("go")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if got := waitMessage(t, goMsgs); got.Type != MessageEvent {
		t.Errorf("go plugin got %q", got.Type)
	}
	select {
	case m := <-tsMsgs:
		t.Errorf("typescript plugin should not receive go traffic, got %v", m)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestInProcessChannelReplyStampsOrigin(t *testing.T) {
	ch := NewInProcessChannel()
	defer ch.Close()
	responses := collectResponses(ch)

	p, _ := ch.Connect("hover", Capabilities{SupportedFileTypes: []string{"*"}, LanguageService: []string{"quick-info"}})
	p.OnMessage(func(m Message) {
		p.Reply(m, ResponseShowQuickInfo, "", map[string]string{"info": "int"})
	})

	ctx := EventContext{BufferFullPath: "/a.go", Line: 3, Column: 9, Filetype: "go"}
	msg, _ := NewMessage(MessageRequest, RequestPayload{ID: "abc", Name: "quick-info", Context: ctx})
	if err := ch.Send(msg, NewFilter("go").WithCapability("quick-info")); err != nil {
		t.Fatal(err)
	}

	r := waitResponse(t, responses)
	if r.Type != string(ResponseShowQuickInfo) {
		t.Errorf("Type = %q", r.Type)
	}
	if r.Meta.OriginEvent == nil || !r.Meta.OriginEvent.SamePosition(ctx) {
		t.Errorf("OriginEvent = %+v, want %+v", r.Meta.OriginEvent, ctx)
	}
	if r.Meta.RequestID != "abc" || r.Meta.Plugin != "hover" {
		t.Errorf("Meta = %+v", r.Meta)
	}
}

func TestInProcessChannelSendHasNoOrigin(t *testing.T) {
	ch := NewInProcessChannel()
	defer ch.Close()
	responses := collectResponses(ch)

	p, _ := ch.Connect("lint", Capabilities{SupportedFileTypes: []string{"*"}})
	if err := p.Send(ResponseSetErrors, "", SetErrorsPayload{Key: "lint", FileName: "/a.go"}); err != nil {
		t.Fatal(err)
	}

	r := waitResponse(t, responses)
	if r.Meta.OriginEvent != nil || r.Meta.RequestID != "" {
		t.Errorf("unsolicited response carries origin: %+v", r.Meta)
	}
}

func TestInProcessChannelQueueFull(t *testing.T) {
	ch := NewInProcessChannel(WithQueueSize(1))
	defer ch.Close()

	block := make(chan struct{})
	defer close(block)
	p, _ := ch.Connect("slow", Capabilities{SupportedFileTypes: []string{"*"}})
	started := make(chan struct{}, 1)
	p.OnMessage(func(Message) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
	})

	msg, _ := NewMessage(MessageEvent, EventPayload{Name: "x"})
	ch.Send(msg, NewFilter("go"))
	<-started

	// One message fits in the queue while the handler is blocked.
	if err := ch.Send(msg, NewFilter("go")); err != nil {
		t.Fatalf("second Send() error = %v", err)
	}
	if err := ch.Send(msg, NewFilter("go")); !errors.Is(err, ErrQueueFull) {
		t.Errorf("third Send() error = %v, want ErrQueueFull", err)
	}
}

func TestInProcessChannelClosed(t *testing.T) {
	ch := NewInProcessChannel()
	p, _ := ch.Connect("p", Capabilities{SupportedFileTypes: []string{"*"}})
	if err := ch.Close(); err != nil {
		t.Fatal(err)
	}

	msg, _ := NewMessage(MessageEvent, EventPayload{})
	if err := ch.Send(msg, NewFilter("go")); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("Send() after Close error = %v", err)
	}
	if err := p.Send(ResponseFormat, "", nil); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("plugin Send() after Close error = %v", err)
	}
	if _, err := ch.Connect("late", Capabilities{}); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("Connect() after Close error = %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestInProcessChannelHandlerPanic(t *testing.T) {
	ch := NewInProcessChannel()
	defer ch.Close()

	p, _ := ch.Connect("p", Capabilities{SupportedFileTypes: []string{"*"}})
	got := make(chan Message, 1)
	p.OnMessage(func(Message) { panic("boom") })
	p.OnMessage(func(m Message) { got <- m })

	msg, _ := NewMessage(MessageEvent, EventPayload{Name: "x"})
	ch.Send(msg, NewFilter("go"))
	waitMessage(t, got)
}

func TestMuxChannel(t *testing.T) {
	a := NewInProcessChannel()
	b := NewInProcessChannel()
	mux := NewMuxChannel(a, b)
	defer mux.Close()
	responses := collectResponses(mux)

	pa, err := mux.Connect("a", Capabilities{SupportedFileTypes: []string{"*"}})
	if err != nil {
		t.Fatal(err)
	}
	pb, _ := b.Connect("b", Capabilities{SupportedFileTypes: []string{"*"}})

	received := make(chan string, 2)
	pa.OnMessage(func(Message) { received <- "a" })
	pb.OnMessage(func(Message) { received <- "b" })

	msg, _ := NewMessage(MessageEvent, EventPayload{Name: "x"})
	if err := mux.Send(msg, NewFilter("go")); err != nil {
		t.Fatal(err)
	}
	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case name := <-received:
			seen[name] = true
		case <-time.After(waitTimeout):
			t.Fatal("timed out")
		}
	}
	if !seen["a"] || !seen["b"] {
		t.Errorf("deliveries = %v, want both children", seen)
	}

	pb.Send(ResponseFormat, "", nil)
	if r := waitResponse(t, responses); r.Meta.Plugin != "b" {
		t.Errorf("response from %q, want b", r.Meta.Plugin)
	}
}

func TestMuxChannelWithoutConnector(t *testing.T) {
	mux := NewMuxChannel()
	if _, err := mux.Connect("x", Capabilities{}); !errors.Is(err, ErrNoConnector) {
		t.Errorf("Connect() error = %v, want ErrNoConnector", err)
	}
}

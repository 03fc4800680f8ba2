package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const wsWriteWait = 10 * time.Second

// WSConn carries one frame per websocket message.
type WSConn struct {
	conn *websocket.Conn

	mu   sync.Mutex
	once sync.Once
}

// NewWSConn wraps an established websocket connection.
func NewWSConn(conn *websocket.Conn) *WSConn {
	conn.SetReadLimit(MaxFrameSize)
	return &WSConn{conn: conn}
}

// DialWS connects to a plugin host listening at url.
func DialWS(ctx context.Context, url string) (*WSConn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return NewWSConn(conn), nil
}

// ReadFrame returns the next text or binary message.
func (c *WSConn) ReadFrame() ([]byte, error) {
	for {
		t, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, ErrClosed
			}
			return nil, err
		}
		if t == websocket.TextMessage || t == websocket.BinaryMessage {
			return data, nil
		}
	}
}

// WriteFrame sends data as a text message.
func (c *WSConn) WriteFrame(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close message and closes the connection.
func (c *WSConn) Close() error {
	var err error
	c.once.Do(func() {
		c.mu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.mu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// WSListener upgrades HTTP requests into connections returned by Accept.
type WSListener struct {
	upgrader websocket.Upgrader
	conns    chan *WSConn
}

// WSOption configures a WSListener.
type WSOption func(*WSListener)

// WithCheckOrigin sets the function deciding whether an upgrade request's
// Origin is accepted. By default only same-origin requests and requests
// without an Origin header are upgraded.
func WithCheckOrigin(fn func(*http.Request) bool) WSOption {
	return func(l *WSListener) {
		l.upgrader.CheckOrigin = fn
	}
}

// NewWSListener creates a listener. Mount it on an http.ServeMux.
func NewWSListener(opts ...WSOption) *WSListener {
	l := &WSListener{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		conns: make(chan *WSConn),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ServeHTTP implements http.Handler.
func (l *WSListener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	ws := NewWSConn(conn)

	select {
	case l.conns <- ws:
	case <-r.Context().Done():
		ws.Close()
	}
}

// Accept waits for the next upgraded connection.
func (l *WSListener) Accept(ctx context.Context) (*WSConn, error) {
	select {
	case conn := <-l.conns:
		return conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

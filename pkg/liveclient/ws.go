package liveclient

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrNotConnected is returned by Send when the transport has no open connection.
var ErrNotConnected = errors.New("liveclient: not connected")

const wsWriteTimeout = 10 * time.Second

// WSTransport is the production Transport over a WebSocket. The credential is
// passed as the token query parameter, matching the server's upgrade handler.
type WSTransport struct {
	endpoint string

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// NewWSTransport creates a transport dialing the given ws:// or wss:// endpoint.
func NewWSTransport(endpoint string) *WSTransport {
	return &WSTransport{endpoint: endpoint}
}

// Connect dials the endpoint and starts the read loop.
func (t *WSTransport) Connect(ctx context.Context, token string, onEvent func(Envelope), onClose func(error)) error {
	u, err := url.Parse(t.endpoint)
	if err != nil {
		return err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return err
	}

	t.mu.Lock()
	if t.conn != nil {
		_ = t.conn.Close()
	}
	t.conn = conn
	t.closed = false
	t.mu.Unlock()

	go t.readLoop(conn, onEvent, onClose)
	return nil
}

func (t *WSTransport) readLoop(conn *websocket.Conn, onEvent func(Envelope), onClose func(error)) {
	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.mu.Lock()
			closed := t.closed
			if t.conn == conn {
				t.conn = nil
			}
			t.mu.Unlock()
			if !closed && onClose != nil {
				onClose(err)
			}
			return
		}
		if onEvent != nil {
			onEvent(env)
		}
	}
}

// Send writes one envelope to the open connection.
func (t *WSTransport) Send(env Envelope) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return ErrNotConnected
	}
	_ = t.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return t.conn.WriteJSON(env)
}

// Close tears the connection down without triggering onClose.
func (t *WSTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

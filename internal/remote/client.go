package remote

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roach88/citesync/internal/protocol"
)

// DefaultHandshakeTimeout bounds the websocket dial.
const DefaultHandshakeTimeout = 10 * time.Second

// Client is a websocket protocol.Transport to a remote formatting
// engine.
type Client struct {
	url string

	mu   sync.Mutex
	conn *websocket.Conn
}

// Dial connects to a remote engine at url (ws:// or wss://).
func Dial(ctx context.Context, url string) (*Client, error) {
	dialer := websocket.Dialer{HandshakeTimeout: DefaultHandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial formatter at %s: %w", url, err)
	}
	slog.Info("connected to remote formatter", "url", url)
	return &Client{url: url, conn: conn}, nil
}

// Roundtrip writes one request envelope and reads one response envelope.
// The caller's single-flight gate guarantees calls never overlap; the
// mutex only guards against misuse.
func (c *Client) Roundtrip(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	data, err := protocol.EncodeRequest(req)
	if err != nil {
		return protocol.Response{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.conn.SetWriteDeadline(deadline); err != nil {
			return protocol.Response{}, fmt.Errorf("set write deadline: %w", err)
		}
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return protocol.Response{}, fmt.Errorf("set read deadline: %w", err)
		}
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return protocol.Response{}, fmt.Errorf("write %s request: %w", req.Kind, err)
	}

	_, payload, err := c.conn.ReadMessage()
	if err != nil {
		return protocol.Response{}, fmt.Errorf("read %s response: %w", req.Kind, err)
	}

	return protocol.DecodeResponse(payload)
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

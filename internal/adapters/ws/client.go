package ws

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const handshakeTimeout = 10 * time.Second

// Client implements WebSocketClientPort.
// Writes are serialized; reads must come from a single goroutine.
type Client struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	dialer *websocket.Dialer
}

func NewClient() *Client {
	return &Client{dialer: &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
	}}
}

func (c *Client) Connect(url string) error {
	header := http.Header{}
	header.Set("X-Request-ID", uuid.NewString())
	conn, _, err := c.dialer.Dial(url, header)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return nil
}

func (c *Client) ReadMessage() ([]byte, error) {
	conn := c.current()
	if conn == nil {
		return nil, websocket.ErrBadHandshake
	}
	_, msg, err := conn.ReadMessage()
	return msg, err
}

func (c *Client) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return websocket.ErrBadHandshake
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close closes the current connection; it is safe to call repeatedly and concurrently with ReadMessage
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *Client) current() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// URL turns the daemon's HTTP base URL into its UI bridge WebSocket URL
func URL(base string) string {
	base = strings.TrimSuffix(base, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/api/v1/ws"
}

package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn serializes writes to a gorilla connection. The attempt stream has two
// writers, the reader loop and the auto-submit watcher, and gorilla conns do
// not allow concurrent writes.
type Conn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// Wrap creates a write-serialized wrapper around a gorilla connection.
func Wrap(conn *websocket.Conn) *Conn {
	return &Conn{conn: conn}
}

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func (c *Conn) WriteTyped(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func (c *Conn) WriteError(errMsg string) error {
	return c.WriteTyped(ErrorResponse{
		Event: EventError,
		Error: errMsg,
	})
}

// ReadMessage reads the next raw message with a read deadline.
func (c *Conn) ReadMessage() ([]byte, error) {
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
	_, raw, err := c.conn.ReadMessage()
	return raw, err
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

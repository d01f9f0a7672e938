package gateway

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// sendBufferSize bounds each client's outbound queue. A client that cannot
// drain this many frames is dropped rather than allowed to stall the room.
const sendBufferSize = 64

// Client is one connected websocket peer. Frames are queued on send and
// written by a single writer goroutine, so fan-out never blocks on a slow
// recipient.
type Client struct {
	ID          string
	ConnectedAt time.Time

	conn *websocket.Conn
	send chan []byte

	// room is the session key this connection is bound to. It is set once
	// by the connection's reader and never rebound.
	room string

	mu     sync.Mutex
	closed bool
}

func newClient(id string, conn *websocket.Conn) *Client {
	return &Client{
		ID:          id,
		ConnectedAt: time.Now(),
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
	}
}

// Room returns the session key the connection is bound to, or "" before join.
func (c *Client) Room() string {
	return c.room
}

// enqueue queues a frame for delivery. It never blocks; false means the
// frame was not queued, either because the buffer is full or the client is
// already closed.
func (c *Client) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// isClosed reports whether the connection has been shut down.
func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

// close shuts the outbound queue and the underlying connection. Safe to call
// more than once.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	c.conn.Close()
}

// writePump drains the send queue onto the wire until the queue closes or a
// write fails.
func (c *Client) writePump() {
	for frame := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			c.conn.Close()
			return
		}
	}
}

package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeBufferSize = 100
	writeTimeout    = 5 * time.Second
)

// Connection wraps one WebSocket connection with a single-writer goroutine so
// that concurrent components (router, dispatcher, signaler) can push frames
// without racing on the underlying socket. Identity fields are unset until
// the client's register event arrives.
type Connection struct {
	conn       *websocket.Conn
	writeCh    chan []byte
	userID     string
	courseID   string
	registered bool
	ctx        context.Context
	cancel     context.CancelFunc
	closeOnce  sync.Once
	mu         sync.RWMutex
}

// NewConnection wraps conn and starts its writer goroutine.
func NewConnection(conn *websocket.Conn) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		conn:    conn,
		writeCh: make(chan []byte, writeBufferSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	go c.writeLoop()

	return c
}

// writeLoop is the only goroutine that touches the socket for writes.
// Per-connection submission order is preserved because every outbound frame
// funnels through the one buffered channel.
func (c *Connection) writeLoop() {
	for {
		select {
		case data := <-c.writeCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// WriteJSON marshals v and queues it for the writer goroutine. A full buffer
// or closed connection returns an error instead of blocking the caller's
// fan-out loop.
func (c *Connection) WriteJSON(v interface{}) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	data, err := json.Marshal(v)
	if err != nil {
		return ErrInvalidJSON
	}

	select {
	case c.writeCh <- data:
		return nil
	case <-time.After(writeTimeout):
		return ErrWriteTimeout
	case <-c.ctx.Done():
		return ErrConnectionClosed
	}
}

// Close shuts the connection down exactly once. Safe to call from any
// goroutine and idempotent.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

// SetIdentity records the participant behind this connection once its
// register event has been processed.
func (c *Connection) SetIdentity(userID, courseID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
	c.courseID = courseID
	c.registered = true
}

// IsRegistered reports whether a register event has been processed.
func (c *Connection) IsRegistered() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.registered
}

// UserID returns the participant id, or "" before registration.
func (c *Connection) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// CourseID returns the optional course scope, or "" when unscoped.
func (c *Connection) CourseID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.courseID
}

// Done exposes the connection's lifetime for callers that need to observe
// closure without polling.
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

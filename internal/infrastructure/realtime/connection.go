package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	// keepaliveInterval is the fixed cadence of the control frame sent to every
	// session so silently-dead peers are detected.
	keepaliveInterval = 60 * time.Second
)

// Application close codes. Distinct codes let clients tell a forced session
// termination apart from an ordinary or network-level closure.
const (
	CloseSessionReplaced = 4001
	CloseForcedLogout    = 4002
)

// ErrConnClosed is returned by Send once the connection is no longer live.
var ErrConnClosed = errors.New("realtime: connection closed")

// socket is the subset of *websocket.Conn the connection needs for writing.
// Narrowing it keeps the write path testable without a network peer.
type socket interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Connection is one live websocket session bound to a single member and a
// single room. It is ephemeral: created at handshake, destroyed on disconnect,
// never persisted. Outbound writes are serialized through a buffered channel
// so the connection is safe for concurrent use.
type Connection struct {
	ID       string
	MemberID string
	RoomID   string

	ws    socket
	send  chan []byte
	once  sync.Once
	close chan struct{}
}

// NewConnection constructs a Connection for an admitted (member, room) pair.
func NewConnection(memberID, roomID string, ws *websocket.Conn) *Connection {
	return newConnection(memberID, roomID, ws)
}

func newConnection(memberID, roomID string, ws socket) *Connection {
	return &Connection{
		ID:       uuid.NewString(),
		MemberID: memberID,
		RoomID:   roomID,
		ws:       ws,
		send:     make(chan []byte, 128),
		close:    make(chan struct{}),
	}
}

// Start launches the write loop. It must be called exactly once per connection.
func (c *Connection) Start() {
	go c.writeLoop()
}

// Alive reports whether the connection still accepts writes.
func (c *Connection) Alive() bool {
	select {
	case <-c.close:
		return false
	default:
		return true
	}
}

// Send enqueues payload for delivery. If the client is slow and the buffer is
// full, the connection is closed to keep backpressure bounded.
func (c *Connection) Send(payload []byte) error {
	select {
	case <-c.close:
		return ErrConnClosed
	case c.send <- payload:
		return nil
	default:
		c.Close(websocket.CloseGoingAway, "send buffer full")
		return errors.New("realtime: send buffer exceeded")
	}
}

// Close terminates the connection and stops the write loop.
func (c *Connection) Close(code int, reason string) {
	c.once.Do(func() {
		close(c.close)
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
		_ = c.ws.Close()
	})
}

func (c *Connection) writeLoop() {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.close:
			return
		case msg := <-c.send:
			if err := c.writeMessage(msg); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "write failed")
				return
			}
		case <-ticker.C:
			if err := c.writePing(); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "keepalive failed")
				return
			}
		}
	}
}

func (c *Connection) writeMessage(payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

func (c *Connection) writePing() error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.PingMessage, nil)
}

package ws

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxFrameSize   = 64 << 10
	sendBufferSize = 128
)

// Client is one live socket. Writes go through a buffered channel drained
// by writeLoop, so the socket only ever has a single writer.
type Client struct {
	ID     uuid.UUID
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger

	// authUserID comes from the verified token; userID is set once the
	// client has identified.
	authUserID int64
	userID     atomic.Int64
}

func newClient(conn *websocket.Conn, authUserID int64, logger *slog.Logger) *Client {
	id := uuid.New()
	return &Client{
		ID:         id,
		conn:       conn,
		send:       make(chan []byte, sendBufferSize),
		done:       make(chan struct{}),
		logger:     logger.With("conn_id", id.String(), "user_id", authUserID),
		authUserID: authUserID,
	}
}

// UserID returns the identified user, or zero before identify.
func (c *Client) UserID() int64 {
	return c.userID.Load()
}

func (c *Client) identify(userID int64) {
	c.userID.Store(userID)
}

// Send queues msg without blocking. A client whose buffer is full is too
// slow to keep up and gets disconnected.
func (c *Client) Send(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	case <-c.done:
		return false
	default:
		c.logger.Warn("send buffer full, closing connection")
		c.Close()
		return false
	}
}

// Close terminates the connection. Safe to call more than once.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Done is closed when the client shuts down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Debug("write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

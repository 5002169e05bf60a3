package realtime

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/yungbote/navrelay/internal/domain/navigation"
	"github.com/yungbote/navrelay/internal/platform/logger"
)

// Client is one live WebSocket. The write pump is the only goroutine that
// writes data frames; pings and close frames go through WriteControl.
type Client struct {
	ID     uuid.UUID
	Tenant string
	// UserID is the raw query value the socket connected with; it may be empty
	// in single-tenant mode.
	UserID string

	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	isAlive atomic.Bool
	log     *logger.Logger
}

func (h *Hub) NewClient(conn *websocket.Conn, tenant, userID string) *Client {
	c := &Client{
		ID:     uuid.New(),
		Tenant: tenant,
		UserID: userID,
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, h.sendBuffer),
		done:   make(chan struct{}),
	}
	c.log = h.log.With("component", "WSClient", "conn_id", c.ID.String(), "user_id", tenant)
	c.isAlive.Store(true)

	hello, err := json.Marshal(welcome{Type: MessageTypeWelcome, Now: navigation.FormatTime(h.clk.Now())})
	if err == nil {
		c.send <- hello
	}
	return c
}

// Serve registers the client and pumps the socket until it closes. It blocks
// for the life of the connection.
func (c *Client) Serve() {
	if !c.hub.Register(c) {
		c.closeWith(websocket.CloseGoingAway, "server shutting down")
		return
	}
	defer c.hub.Unregister(c)

	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer c.terminate()

	c.conn.SetReadLimit(maxInboundBytes)
	c.conn.SetPongHandler(func(string) error {
		c.isAlive.Store(true)
		return nil
	})
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.log.Debug("websocket read ended", "error", err)
			}
			return
		}
		c.hub.metrics.WSInboundIgnored.Inc()
		c.log.Debug("ignoring inbound websocket message", "type", mt, "bytes", len(data))
	}
}

func (c *Client) writePump() {
	defer c.terminate()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}

// enqueue never blocks; false means the message was dropped for this client.
func (c *Client) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) ping() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// terminate drops the socket without a close handshake.
func (c *Client) terminate() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *Client) closeWith(code int, reason string) {
	c.once.Do(func() {
		close(c.done)
		msg := websocket.FormatCloseMessage(code, reason)
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		_ = c.conn.Close()
	})
}

package hub

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"time"

	"Ripple/internal/event"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	// tuning parameters
	writeWait      = 10 * time.Second    // time allowed to write a message to the peer
	pongWait       = 60 * time.Second    // time allowed to read the next pong message from the peer
	pingInterval   = (pongWait * 9) / 10 // send pings to peer with this period
	maxMessageSize = 4 * 1024            // max inbound message size
	sendBufSize    = 256                 // per-connection outbound buffer size
)

// Client owns one live WebSocket connection. All outbound traffic for the
// connection goes through egress and is written by a single goroutine, so
// delivery order on a connection matches enqueue order.
type Client struct {
	ID       string
	userID   string
	conn     *websocket.Conn
	hub      *Hub
	egress   chan event.WsEvent
	joinedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// clientHint is the only inbound frame clients send: an advisory presence
// status ("away" / "online"). It is layered on top of derived presence and
// never drives the online/offline state machine.
type clientHint struct {
	Event   string `json:"event"`
	Payload struct {
		Status string `json:"status"`
	} `json:"payload"`
}

func newClient(userID string, conn *websocket.Conn, h *Hub) *Client {
	ctx, cancel := context.WithCancel(h.ctx)
	return &Client{
		ID:       uuid.New().String(),
		userID:   userID,
		conn:     conn,
		hub:      h,
		egress:   make(chan event.WsEvent, sendBufSize),
		joinedAt: time.Now(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// UserID returns the identity this connection was admitted under.
func (c *Client) UserID() string {
	return c.userID
}

// TrySend enqueues an event without blocking. It returns false when the
// connection is closing or its outbound buffer is full; the caller decides
// what to do with the drop.
func (c *Client) TrySend(ev event.WsEvent) bool {
	select {
	case <-c.ctx.Done():
		return false
	default:
	}
	select {
	case c.egress <- ev:
		return true
	default:
		return false
	}
}

// Close tears the connection down exactly once. Closing the underlying conn
// unblocks both pumps; the read pump routes the teardown through presence.
func (c *Client) Close() {
	c.once.Do(func() {
		c.cancel()
		_ = c.conn.Close()
	})
}

func (c *Client) readPump() {
	defer func() {
		c.hub.presence.Disconnected(c)
		c.Close()
	}()

	c.conn.SetReadLimit(int64(maxMessageSize))
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
			) {
				c.hub.logger.Debug("client disconnected",
					zap.String("connection_id", c.ID),
					zap.String("user_id", c.userID))
				return
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				c.hub.logger.Info("client timed out",
					zap.String("connection_id", c.ID),
					zap.String("user_id", c.userID))
				return
			}
			c.hub.logger.Debug("read error",
				zap.String("connection_id", c.ID),
				zap.Error(err))
			return
		}

		var hint clientHint
		if err := json.Unmarshal(raw, &hint); err != nil || hint.Event != "presence-hint" {
			continue
		}
		c.hub.presence.Hint(c, hint.Payload.Status)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return
		case ev := <-c.egress:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.hub.logger.Debug("write error",
					zap.String("connection_id", c.ID),
					zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

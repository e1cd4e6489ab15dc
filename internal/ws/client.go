package ws

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second
	sendBuffer = 256
)

// Client is one observer connection.
type Client struct {
	Operator int64
	Conn     *websocket.Conn
	Send     chan []byte

	hub *Hub
	log *slog.Logger
}

func NewClient(operator int64, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		Operator: operator,
		Conn:     conn,
		Send:     make(chan []byte, sendBuffer),
		hub:      hub,
		log:      hub.log.With("operator", operator),
	}
}

// Run greets the client, registers it and serves it until it goes away.
func (c *Client) Run() {
	if ready, err := encode(MsgReady, ReadyPayload{Operator: c.Operator}); err == nil {
		c.Send <- ready
	}
	go c.writePump()
	select {
	case c.hub.Register <- c:
	case <-c.hub.done:
		close(c.Send)
		return
	}
	c.readPump()
}

// read
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.Unregister <- c:
		case <-c.hub.done:
		}
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(4096)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("observer read error", "error", err)
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			msg.Type = ""
		}
		select {
		case c.hub.requests <- request{client: c, kind: msg.Type}:
		default:
			c.log.Debug("observer request dropped", "type", msg.Type)
		}
	}
}

// write
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Warn("observer write error", "error", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

package chathub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pingme/backend/internal/errs"
	"pingme/backend/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBufferSize = 256
)

// WebSocketClient implements the Client interface over a gorilla/websocket
// connection. The connection authenticated at handshake time; UserID never
// changes afterwards.
type WebSocketClient struct {
	UserID string
	Conn   *websocket.Conn
	Hub    *ManagerService
	Send   chan models.ServerEvent

	done      chan struct{}
	closeOnce sync.Once
}

func NewWebSocketClient(userID string, conn *websocket.Conn, hub *ManagerService) *WebSocketClient {
	return &WebSocketClient{
		UserID: userID,
		Conn:   conn,
		Hub:    hub,
		Send:   make(chan models.ServerEvent, sendBufferSize),
		done:   make(chan struct{}),
	}
}

func (c *WebSocketClient) GetUserID() string { return c.UserID }

func (c *WebSocketClient) GetSendChannel() chan<- models.ServerEvent { return c.Send }

// Run starts the read and write pumps.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close signals both pumps to stop. The Send channel stays open for the
// lifetime of the client: a fan-out holding a stale registry snapshot may
// still write into it after disconnect, and those events land in the buffer
// and are discarded instead of panicking. Safe to call more than once;
// unregister paths race with disconnect detection.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// readPump consumes inbound frames until the connection drops, then
// triggers registry cleanup.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error reading message: %v", err)
			}
			break
		}

		var event models.ClientEvent
		if err := json.Unmarshal(message, &event); err != nil {
			log.Printf("Error decoding JSON from user %s: %v", c.UserID, err)
			c.Hub.sendError(c, errs.Validation("malformed event payload"))
			continue
		}

		c.Hub.HandleInbound(c, event)
	}
}

// writePump drains the Send channel into the socket and keeps the
// connection alive with pings.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case event := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			data, err := json.Marshal(event)
			if err != nil {
				log.Printf("Error encoding JSON for user %s: %v", c.UserID, err)
				continue
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
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

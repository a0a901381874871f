package chathub

import (
	"context"
	"sync"
	"time"

	"friendchat/backend/internal/config"
	"friendchat/backend/internal/logger"
	"friendchat/backend/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocketClient implements Client over a gorilla websocket connection.
type WebSocketClient struct {
	UserID    string
	SessionID string
	Conn      *websocket.Conn
	Hub       *ManagerService

	send   chan models.Event
	mu     sync.Mutex
	closed bool
}

func NewWebSocketClient(conn *websocket.Conn, userID string, hub *ManagerService) *WebSocketClient {
	return &WebSocketClient{
		UserID:    userID,
		SessionID: uuid.New().String(),
		Conn:      conn,
		Hub:       hub,
		send:      make(chan models.Event, config.SendBufferSize),
	}
}

func (c *WebSocketClient) GetUserID() string    { return c.UserID }
func (c *WebSocketClient) GetSessionID() string { return c.SessionID }

func (c *WebSocketClient) Deliver(ev models.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- ev:
		return true
	default:
		return false
	}
}

// Run starts the pumps for the websocket.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close closes the send channel; writePump then sends a close frame.
func (c *WebSocketClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *WebSocketClient) readPump() {
	ctx := context.Background()
	defer func() {
		c.Hub.Disconnect(ctx, c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(config.MaxFrameSize)
	c.Conn.SetReadDeadline(time.Now().Add(config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(config.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read failed", zap.String("user_id", c.UserID), zap.Error(err))
			}
			break
		}
		c.Hub.HandleFrame(ctx, c, message)
	}
}

// writePump writes queued events to the websocket, one JSON frame each,
// and keeps the connection alive with pings.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(config.PingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if !ok {
				// closed by the hub
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(ev); err != nil {
				logger.Debug("websocket write failed", zap.String("user_id", c.UserID), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

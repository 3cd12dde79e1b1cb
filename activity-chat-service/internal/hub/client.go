package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/weiawesome/trip-chat/activity-chat-service/internal/config"
	"github.com/weiawesome/trip-chat/activity-chat-service/internal/domain"
	"github.com/weiawesome/trip-chat/pkg/log"
)

// Client is a gorilla websocket connection bound to one authenticated session.
type Client struct {
	Conn    *websocket.Conn
	Session *domain.Session
	send    chan []byte
	closed  bool
	mu      sync.RWMutex
	config  config.WebSocketConfig
}

func NewClient(conn *websocket.Conn, session *domain.Session, cfg config.WebSocketConfig) *Client {
	buffer := cfg.SendBuffer
	if buffer <= 0 {
		buffer = 256
	}
	return &Client{
		Conn:    conn,
		Session: session,
		send:    make(chan []byte, buffer),
		config:  cfg,
	}
}

func (c *Client) ID() string          { return c.Session.ID }
func (c *Client) UserID() string      { return c.Session.UserID }
func (c *Client) DisplayName() string { return c.Session.DisplayName }

// Deliver queues a frame for the write pump without blocking.
func (c *Client) Deliver(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrSessionClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// SendJSON encodes message and delivers it to this client only.
func (c *Client) SendJSON(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return c.Deliver(data)
}

// Close stops the write pump after it flushes what is already queued.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump feeds inbound frames to handle until the connection fails,
// then calls onClose once.
func (c *Client) ReadPump(handle func(*Client, []byte), onClose func(*Client)) {
	defer func() {
		onClose(c)
		c.Close()
		c.Conn.Close()
	}()

	if c.config.MaxMessageSize > 0 {
		c.Conn.SetReadLimit(c.config.MaxMessageSize)
	}
	c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				l := log.L()
				l.Warn().Err(err).Str(log.FieldSessionID, c.ID()).Msg("websocket read error")
			}
			break
		}

		handle(c, message)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mcoot/numduel/internal/model"
	"github.com/mcoot/numduel/internal/services/presence"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096
	sendBufferSize = 256
)

var (
	// ErrSendBufferFull is returned when a slow client cannot take more messages
	ErrSendBufferFull = errors.New("send buffer full")
	// ErrClientClosed is returned when sending to a closed client
	ErrClientClosed = errors.New("client closed")
)

// Client is one websocket connection for an authenticated player
type Client struct {
	id       string
	playerID model.PlayerID
	conn     *websocket.Conn
	handler  *Handler
	logger   *slog.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

var _ presence.Conn = (*Client)(nil)

func newClient(conn *websocket.Conn, playerID model.PlayerID, handler *Handler) *Client {
	id := uuid.NewString()
	return &Client{
		id:       id,
		playerID: playerID,
		conn:     conn,
		handler:  handler,
		logger: handler.logger.With(
			slog.String("player_id", string(playerID)),
			slog.String("conn_id", id),
		),
		send: make(chan []byte, sendBufferSize),
	}
}

// ID returns the connection id
func (c *Client) ID() string {
	return c.id
}

// PlayerID returns the authenticated player
func (c *Client) PlayerID() model.PlayerID {
	return c.playerID
}

// Send queues an event for the client
func (c *Client) Send(event model.Event) error {
	data, err := json.Marshal(newEventMessage(event))
	if err != nil {
		return err
	}
	return c.enqueue(data)
}

func (c *Client) enqueue(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (c *Client) reply(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("failed to encode response", slog.String("error", err.Error()))
		return
	}
	if err := c.enqueue(data); err != nil {
		c.logger.Warn("dropped response", slog.String("error", err.Error()))
	}
}

// Close stops the write pump, which closes the connection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	return nil
}

// readPump handles requests until the connection fails, then unregisters the client
func (c *Client) readPump() {
	defer func() {
		c.handler.presence.Unregister(c)
		_ = c.Close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", slog.String("error", err.Error()))
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", slog.String("error", err.Error()))
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var req Request
		if err := json.Unmarshal(message, &req); err != nil {
			c.reply(errorResponse("", model.ErrInvalidRequest))
			continue
		}
		if resp, ok := c.handler.router.Handle(context.Background(), c.playerID, req); ok {
			c.reply(resp)
		}
	}
}

// writePump writes queued messages and keeps the connection alive with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("websocket write failed", slog.String("error", err.Error()))
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

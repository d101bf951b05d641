package websocket

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	ErrClientNotFound = errors.New("client not found")
	ErrSendBufferFull = errors.New("send buffer full")
)

const (
	// write deadline per frame
	writeWait = 10 * time.Second

	// how long to wait for a pong before dropping the connection
	pongWait = 60 * time.Second

	// ping cadence, must stay below pongWait
	pingPeriod = (pongWait * 9) / 10

	// inbound frames are tiny, join/leave plus pongs
	maxMessageSize = 4096
)

// Client one websocket connection
type Client struct {
	ID       string
	DeviceID string
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
}

// NewClient wraps an upgraded connection
func NewClient(hub *Hub, conn *websocket.Conn, deviceID string) *Client {
	return &Client{
		ID:       uuid.New().String(),
		DeviceID: deviceID,
		Hub:      hub,
		Conn:     conn,
		Send:     make(chan []byte, 256),
	}
}

// ReadPump consumes inbound frames until the connection dies
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.unregister <- c
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
				c.Hub.logger.Error("websocket read error",
					zap.String("client_id", c.ID),
					zap.Error(err))
			}
			break
		}

		c.handleMessage(message)
	}
}

// WritePump flushes the send channel and keeps the ping cadence
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// hub closed the channel
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// drain whatever queued up behind this frame
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
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

// handleMessage dispatches one inbound frame
func (c *Client) handleMessage(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.Hub.logger.Warn("malformed websocket message",
			zap.String("client_id", c.ID),
			zap.Error(err))
		c.sendError("malformed message")
		return
	}

	switch msg.Event {
	case MessageTypeJoinSeries:
		if msg.SeriesID == "" {
			c.sendError("seriesId is required to join")
			return
		}
		c.Hub.JoinSeries(c, msg.SeriesID)

	case MessageTypeLeaveSeries:
		if msg.SeriesID == "" {
			c.sendError("seriesId is required to leave")
			return
		}
		c.Hub.LeaveSeries(c, msg.SeriesID)

	case MessageTypePong:
		c.Hub.logger.Debug("pong",
			zap.String("client_id", c.ID))

	default:
		c.Hub.logger.Warn("unsupported message event",
			zap.String("client_id", c.ID),
			zap.String("event", msg.Event))
		c.sendError("unsupported event: " + msg.Event)
	}
}

// sendError reports a protocol problem back to the client
func (c *Client) sendError(message string) {
	payload, _ := json.Marshal(map[string]string{"error": message})
	msg := &Message{
		Event:     MessageTypeError,
		Data:      payload,
		Timestamp: time.Now().Unix(),
	}
	c.Hub.SendToClient(c.ID, msg)
}

// Close hands the connection back to the hub for teardown
func (c *Client) Close() {
	c.Hub.unregister <- c
}

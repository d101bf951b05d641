package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/wfunc/remi-scorer/internal/logger"
	"go.uber.org/zap"
)

// Hub connection registry with per-series rooms. It implements
// service.Notifier, so the services never see a websocket type.
type Hub struct {
	// connected clients by client ID
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// room name to member client IDs
	rooms   map[string]map[string]*Client
	roomsMu sync.RWMutex

	// outbound fan-out
	broadcast chan *envelope

	// register/unregister channels
	register   chan *Client
	unregister chan *Client

	logger *zap.Logger
}

// envelope one queued fan-out, room empty means every client
type envelope struct {
	room string
	data []byte
}

// seriesRoom returns the room name for one series
func seriesRoom(seriesID string) string {
	return "series:" + seriesID
}

// Message wire frame exchanged with clients
type Message struct {
	Event     string          `json:"event"`
	SeriesID  string          `json:"seriesId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Client-initiated event names
const (
	MessageTypeConnected   = "connected"
	MessageTypeJoinSeries  = "join-series"
	MessageTypeLeaveSeries = "leave-series"
	MessageTypePing        = "ping"
	MessageTypePong        = "pong"
	MessageTypeError       = "error"
)

// NewHub creates the hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		broadcast:  make(chan *envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run processes registrations and fan-outs until the process exits
func (h *Hub) Run() {
	go h.runHeartbeat()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case env := <-h.broadcast:
			h.deliver(env)
		}
	}
}

// registerClient adds the client and greets it
func (h *Hub) registerClient(client *Client) {
	h.clientsMu.Lock()
	h.clients[client.ID] = client
	h.clientsMu.Unlock()

	h.logger.Info("client connected",
		zap.String("client_id", client.ID),
		zap.String("device_id", client.DeviceID))

	msg := &Message{
		Event:     MessageTypeConnected,
		Timestamp: time.Now().Unix(),
	}
	h.SendToClient(client.ID, msg)
}

// unregisterClient drops the client from every room and closes its
// send channel
func (h *Hub) unregisterClient(client *Client) {
	h.clientsMu.Lock()
	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		close(client.Send)
	}
	h.clientsMu.Unlock()

	h.roomsMu.Lock()
	for room, members := range h.rooms {
		if _, ok := members[client.ID]; ok {
			delete(members, client.ID)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	h.roomsMu.Unlock()

	h.logger.Info("client disconnected",
		zap.String("client_id", client.ID))
}

// deliver writes the envelope to its audience
func (h *Hub) deliver(env *envelope) {
	if env.room == "" {
		h.clientsMu.RLock()
		for _, client := range h.clients {
			h.send(client, env.data)
		}
		h.clientsMu.RUnlock()
		return
	}

	h.roomsMu.RLock()
	members := h.rooms[env.room]
	for _, client := range members {
		h.send(client, env.data)
	}
	h.roomsMu.RUnlock()
}

// send queues data without blocking, dropping on a full buffer
func (h *Hub) send(client *Client, data []byte) {
	select {
	case client.Send <- data:
	default:
		h.logger.Warn("client send buffer full",
			zap.String("client_id", client.ID))
	}
}

// JoinSeries subscribes the client to a series room
func (h *Hub) JoinSeries(client *Client, seriesID string) {
	room := seriesRoom(seriesID)

	h.roomsMu.Lock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[room] = members
	}
	members[client.ID] = client
	h.roomsMu.Unlock()

	h.logger.Debug("client joined room",
		zap.String("client_id", client.ID),
		zap.String("room", room))
}

// LeaveSeries unsubscribes the client from a series room
func (h *Hub) LeaveSeries(client *Client, seriesID string) {
	room := seriesRoom(seriesID)

	h.roomsMu.Lock()
	if members, ok := h.rooms[room]; ok {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	h.roomsMu.Unlock()
}

// BroadcastAll sends the event to every connected client
func (h *Hub) BroadcastAll(event string, payload interface{}) {
	h.push("", "", event, payload)
}

// BroadcastSeries sends the event to clients following the series
func (h *Hub) BroadcastSeries(seriesID string, event string, payload interface{}) {
	h.push(seriesRoom(seriesID), seriesID, event, payload)
}

// push marshals and queues one fan-out
func (h *Hub) push(room, seriesID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to marshal event payload",
			zap.String("event", event),
			zap.Error(err))
		return
	}

	msg := &Message{
		Event:     event,
		SeriesID:  seriesID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}

	frame, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal event frame",
			zap.String("event", event),
			zap.Error(err))
		return
	}

	select {
	case h.broadcast <- &envelope{room: room, data: frame}:
		logger.LogSeriesEvent(event, seriesID, payload)
	default:
		h.logger.Warn("broadcast queue full, event dropped",
			zap.String("event", event))
	}
}

// SendToClient sends a message to one client
func (h *Hub) SendToClient(clientID string, message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.clientsMu.RLock()
	client, ok := h.clients[clientID]
	h.clientsMu.RUnlock()

	if !ok {
		return ErrClientNotFound
	}

	select {
	case client.Send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// RoomSize reports how many clients follow a series
func (h *Hub) RoomSize(seriesID string) int {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	return len(h.rooms[seriesRoom(seriesID)])
}

// GetOnlineCount reports the connected client count
func (h *Hub) GetOnlineCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// runHeartbeat pings every client so stale connections get reaped
func (h *Hub) runHeartbeat() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		<-ticker.C

		msg := &Message{
			Event:     MessageTypePing,
			Timestamp: time.Now().Unix(),
		}
		frame, err := json.Marshal(msg)
		if err != nil {
			continue
		}

		select {
		case h.broadcast <- &envelope{data: frame}:
		default:
		}
	}
}

// Register hands a client to the hub loop
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub loop
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

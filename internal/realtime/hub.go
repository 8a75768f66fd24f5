// Package realtime pushes live attendance changes to dashboards over WebSocket.
// Each server instance keeps its own sockets and relays events through Redis.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/models"
)

const (
	// PingInterval and PongWait are used for heartbeat, in seconds.
	PingInterval = 30
	PongWait     = 60
)

// Publisher publishes an event to every instance.
type Publisher interface {
	PublishEventMessage(eventID uuid.UUID, event string, payload []byte) error
}

// Subscriber delivers messages published for one event.
type Subscriber interface {
	SubscribeEvent(eventID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub maintains event_id -> connected clients and broadcasts messages to them.
type Hub struct {
	rooms  map[uuid.UUID]map[string]*Client
	subs   map[uuid.UUID]func()
	mu     sync.RWMutex
	logger *zap.Logger
	pub    Publisher
	sub    Subscriber
}

// NewHub creates a hub. pub and sub may be nil for a single instance.
func NewHub(logger *zap.Logger, pub Publisher, sub Subscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:  make(map[uuid.UUID]map[string]*Client),
		subs:   make(map[uuid.UUID]func()),
		logger: logger,
		pub:    pub,
		sub:    sub,
	}
}

// Register adds a client to its event room, subscribing to Redis for the first one.
// The subscription round-trip happens outside the lock.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	room := h.rooms[c.EventID]
	if room == nil {
		room = make(map[string]*Client)
		h.rooms[c.EventID] = room
	}
	room[c.ID] = c
	_, subscribed := h.subs[c.EventID]
	h.mu.Unlock()

	if h.sub != nil && !subscribed {
		h.subscribe(c.EventID)
	}
	h.logger.Debug("client joined feed", zap.String("client_id", c.ID), zap.String("event_id", c.EventID.String()))
}

// subscribe installs the Redis subscription for eventID unless the room emptied or
// another Register won the race in the meantime.
func (h *Hub) subscribe(eventID uuid.UUID) {
	cancel, err := h.sub.SubscribeEvent(eventID, func(event string, payload []byte) {
		h.Broadcast(eventID, event, json.RawMessage(payload))
	})
	if err != nil {
		h.logger.Warn("redis subscribe failed", zap.Error(err), zap.String("event_id", eventID.String()))
		return
	}
	h.mu.Lock()
	_, exists := h.subs[eventID]
	if h.rooms[eventID] == nil || exists {
		h.mu.Unlock()
		cancel()
		return
	}
	h.subs[eventID] = cancel
	h.mu.Unlock()
}

// Unregister removes a client, dropping the Redis subscription with the last one.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.rooms[c.EventID]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.rooms, c.EventID)
			if cancel, ok := h.subs[c.EventID]; ok {
				cancel()
				delete(h.subs, c.EventID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client left feed", zap.String("client_id", c.ID), zap.String("event_id", c.EventID.String()))
}

// Broadcast sends a message to this instance's clients of an event.
func (h *Hub) Broadcast(eventID uuid.UUID, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return
		}
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[eventID] {
		select {
		case c.send <- msg:
		default:
			// slow consumer, drop
		}
	}
}

// Publish delivers a message to every instance. With Redis configured the local
// broadcast happens through the subscription, so clients see each message once.
func (h *Hub) Publish(eventID uuid.UUID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if h.pub != nil {
		if err := h.pub.PublishEventMessage(eventID, event, data); err != nil {
			h.logger.Warn("redis publish failed", zap.Error(err), zap.String("event_id", eventID.String()))
		}
		return
	}
	h.Broadcast(eventID, event, json.RawMessage(data))
}

// PublishAttendance publishes an attendance change for an event.
func (h *Hub) PublishAttendance(eventID uuid.UUID, event string, rec *models.AttendanceRecord) {
	h.Publish(eventID, event, rec)
}

// Viewers returns the number of clients connected to an event on this instance.
func (h *Hub) Viewers(eventID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[eventID])
}

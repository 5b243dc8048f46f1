package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"public-chat/internal/models"
	"public-chat/internal/observability"
)

const (
	writeWait          = 10 * time.Second
	wsEventsRoutingKey = "ws_events.realtime"
)

// Subscriber is one realtime connection and the channels it listens to.
type Subscriber struct {
	conn     *websocket.Conn
	info     ConnInfo
	channels []string

	writeMu sync.Mutex
}

func NewSubscriber(conn *websocket.Conn, info ConnInfo, channels []string) *Subscriber {
	return &Subscriber{conn: conn, info: info, channels: channels}
}

// write serializes frames; gorilla connections allow one concurrent writer.
func (s *Subscriber) write(payload []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub tracks subscribers per channel name.
type Hub struct {
	channels map[string]map[*Subscriber]struct{}
	mu       sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{channels: make(map[string]map[*Subscriber]struct{})}
}

// Add registers s on each of its channels.
func (h *Hub) Add(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range s.channels {
		if _, ok := h.channels[ch]; !ok {
			h.channels[ch] = make(map[*Subscriber]struct{})
		}
		h.channels[ch][s] = struct{}{}
	}
}

// Remove drops s from every channel it joined.
func (h *Hub) Remove(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range s.channels {
		if subs, ok := h.channels[ch]; ok {
			delete(subs, s)
			if len(subs) == 0 {
				delete(h.channels, ch)
			}
		}
	}
}

// Subscribers returns the number of subscribers on channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// Broadcast writes ev once to every subscriber of any of its channels and
// returns the number of successful deliveries.
func (h *Hub) Broadcast(ev models.RealtimeEvent) int {
	h.mu.RLock()
	targets := make(map[*Subscriber]struct{})
	for _, ch := range ev.Channels {
		for s := range h.channels[ch] {
			targets[s] = struct{}{}
		}
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return 0
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("realtime encode error: %v", err)
		return 0
	}

	delivered := 0
	for s := range targets {
		if err := s.write(payload); err != nil {
			log.Printf("websocket write error conn_id=%s: %v", s.info.ConnID, err)
			s.conn.Close()
			h.Remove(s)
			publishWSEvent(context.Background(), "ws_error", s.info, err.Error())
			continue
		}
		delivered++
	}
	observability.AddRealtimeDeliveries(delivered)
	return delivered
}

func publishWSEvent(ctx context.Context, event string, info ConnInfo, reason string) {
	observability.IncWSEvent(event)
	_ = observability.PublishEvent(ctx, wsEventsRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		RequestID: info.RequestID,
		TraceID:   info.TraceID,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"kind":        "realtime",
				"project":     info.Project,
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
				"reason":      reason,
			},
			"identity": info.identity(),
		},
	})
}

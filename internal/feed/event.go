package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"public-chat/internal/client"
)

// EventKind tags a decoded realtime event.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventCreate
	EventUpdate
	EventDelete
)

func (k EventKind) String() string {
	switch k {
	case EventCreate:
		return "create"
	case EventUpdate:
		return "update"
	case EventDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Event is a realtime frame after validation. Message is only set for EventCreate.
type Event struct {
	Kind    EventKind
	Message Message
}

// Decode classifies a raw frame by its event tags and validates a create payload.
// Non-create frames are returned without looking at the payload.
func Decode(raw client.RealtimeEvent) (Event, error) {
	kind := kindOf(raw.Events)
	if kind != EventCreate {
		return Event{Kind: kind}, nil
	}

	payload := bytes.TrimSpace(raw.Payload)
	if len(payload) == 0 || payload[0] != '{' {
		return Event{}, fmt.Errorf("%w: payload is not an object", ErrMalformedEvent)
	}
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if msg.ID == "" {
		return Event{}, fmt.Errorf("%w: missing $id", ErrMalformedEvent)
	}
	if msg.SenderID == "" {
		return Event{}, fmt.Errorf("%w: missing senderId", ErrMalformedEvent)
	}
	return Event{Kind: EventCreate, Message: msg}, nil
}

func kindOf(events []string) EventKind {
	kind := EventUnknown
	for _, ev := range events {
		switch {
		case strings.HasSuffix(ev, ".create"):
			return EventCreate
		case strings.HasSuffix(ev, ".update"):
			kind = EventUpdate
		case strings.HasSuffix(ev, ".delete") && kind == EventUnknown:
			kind = EventDelete
		}
	}
	return kind
}

// Package realtime fans document events out to websocket subscribers, either
// in-process or across chatd instances through NATS JetStream.
package realtime

import (
	"context"

	"public-chat/internal/models"
)

// Broadcaster delivers an event to local subscribers and reports how many
// connections received it.
type Broadcaster interface {
	Broadcast(ev models.RealtimeEvent) int
}

// Bus publishes realtime events.
type Bus interface {
	Publish(ctx context.Context, ev models.RealtimeEvent) error
	Close() error
}

// LocalBus delivers straight to the in-process hub.
type LocalBus struct {
	hub Broadcaster
}

func NewLocalBus(hub Broadcaster) *LocalBus {
	return &LocalBus{hub: hub}
}

func (b *LocalBus) Publish(_ context.Context, ev models.RealtimeEvent) error {
	b.hub.Broadcast(ev)
	return nil
}

func (b *LocalBus) Close() error { return nil }

package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"public-chat/internal/models"
)

const (
	streamName    = "CHATD_REALTIME"
	subjectPrefix = "chatd.realtime"
	eventsSubject = subjectPrefix + ".documents"
)

// NATSBus publishes events to a JetStream stream. Every instance runs its own
// ephemeral consumer so each event reaches the subscribers of every instance.
type NATSBus struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	consume jetstream.ConsumeContext
}

// NewNATSBus connects, ensures the stream exists and starts consuming new events
// into hub.
func NewNATSBus(ctx context.Context, url string, hub Broadcaster) (*NATSBus, error) {
	nc, err := nats.Connect(url, nats.Name("chatd"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := js.Stream(ctx, streamName); err != nil {
		log.Printf("stream %s not found, creating", streamName)
		_, err = js.CreateStream(ctx, jetstream.StreamConfig{
			Name:        streamName,
			Description: "chatd realtime document events",
			Subjects:    []string{subjectPrefix + ".*"},
			MaxAge:      time.Hour,
			Storage:     jetstream.MemoryStorage,
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("create stream %s: %w", streamName, err)
		}
	}

	cons, err := js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		FilterSubject: eventsSubject,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckNonePolicy,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create consumer on %s: %w", eventsSubject, err)
	}

	consumeCtx, err := cons.Consume(func(msg jetstream.Msg) {
		ev, err := decodeEvent(msg.Data())
		if err != nil {
			log.Printf("realtime: dropping event from %s: %v", msg.Subject(), err)
			return
		}
		hub.Broadcast(ev)
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("consume %s: %w", eventsSubject, err)
	}

	log.Printf("realtime bus on nats stream=%s", streamName)
	return &NATSBus{nc: nc, js: js, consume: consumeCtx}, nil
}

func (b *NATSBus) Publish(ctx context.Context, ev models.RealtimeEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := b.js.Publish(ctx, eventsSubject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", eventsSubject, err)
	}
	return nil
}

func (b *NATSBus) Close() error {
	if b.consume != nil {
		b.consume.Stop()
	}
	if b.nc != nil {
		b.nc.Close()
	}
	return nil
}

// decodeEvent keeps the payload as raw JSON so it is relayed unchanged.
func decodeEvent(data []byte) (models.RealtimeEvent, error) {
	var wire struct {
		Events    []string        `json:"events"`
		Channels  []string        `json:"channels"`
		Timestamp string          `json:"timestamp"`
		Payload   json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return models.RealtimeEvent{}, err
	}
	if len(wire.Channels) == 0 {
		return models.RealtimeEvent{}, fmt.Errorf("event without channels")
	}
	return models.RealtimeEvent{
		Events:    wire.Events,
		Channels:  wire.Channels,
		Timestamp: wire.Timestamp,
		Payload:   wire.Payload,
	}, nil
}

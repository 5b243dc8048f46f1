package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Realtime opens change-notification subscriptions over a websocket.
type Realtime struct {
	client *Client
}

// NewRealtime constructs the service.
func NewRealtime(c *Client) *Realtime {
	return &Realtime{client: c}
}

type subscription struct {
	conn   *websocket.Conn
	client *Client
	once   sync.Once
	done   chan struct{}
}

// Subscribe connects to channels and calls onEvent for every frame, in arrival order,
// on a dedicated goroutine. ctx bounds the handshake only; the subscription lives
// until the returned function is called or the client is closed. The returned
// function is safe to call more than once.
//
// onClose, when not nil, runs once with the read error if the connection is lost
// before the subscription was closed locally.
func (r *Realtime) Subscribe(ctx context.Context, channels []string, onEvent func(RealtimeEvent), onClose func(error)) (func(), error) {
	if len(channels) == 0 {
		return nil, errors.New("subscribe: no channels")
	}
	if onEvent == nil {
		return nil, errors.New("subscribe: nil handler")
	}

	target := r.url(channels)
	header := http.Header{}
	r.client.authorize(header)

	conn, resp, err := r.client.dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("subscribe: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	sub := &subscription{conn: conn, client: r.client, done: make(chan struct{})}
	r.client.mu.Lock()
	r.client.subs[sub] = struct{}{}
	r.client.mu.Unlock()

	go sub.read(onEvent, onClose)
	return sub.close, nil
}

func (r *Realtime) url(channels []string) string {
	params := url.Values{}
	if r.client.project != "" {
		params.Set("project", r.client.project)
	}
	for _, ch := range channels {
		params.Add("channels[]", ch)
	}
	u, _ := url.Parse(r.client.url("/realtime", params))
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	return u.String()
}

func (s *subscription) read(onEvent func(RealtimeEvent), onClose func(error)) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("realtime read failed: %v", err)
			}
			s.close()
			if onClose != nil {
				onClose(err)
			}
			return
		}
		var ev RealtimeEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Printf("realtime frame skipped: %v", err)
			continue
		}
		onEvent(ev)
	}
}

func (s *subscription) close() {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = s.conn.Close()

		s.client.mu.Lock()
		delete(s.client.subs, s)
		s.client.mu.Unlock()
	})
}

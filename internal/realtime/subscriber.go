// Package realtime feeds server-pushed count updates into the local
// event bus, so counters move while the app is open without waiting
// for the next sync cycle.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roach88/postr/internal/domain"
	"github.com/roach88/postr/internal/events"
)

const reconnectDelay = 5 * time.Second

// wireEvent is the server's count-update frame.
type wireEvent struct {
	Type   string        `json:"type"`
	PostID string        `json:"post_id"`
	Counts domain.Counts `json:"counts"`
}

// Subscriber maintains a websocket connection to the count-update
// stream and republishes frames on the bus.
type Subscriber struct {
	url string
	bus *events.Bus
	log *slog.Logger
}

// NewSubscriber creates a subscriber for the given stream URL.
func NewSubscriber(streamURL string, bus *events.Bus, log *slog.Logger) *Subscriber {
	if log == nil {
		log = slog.Default()
	}
	return &Subscriber{url: streamURL, bus: bus, log: log}
}

// Start connects and processes events until the context is cancelled.
// It automatically reconnects on transient errors.
func (s *Subscriber) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := s.subscribe(ctx); err != nil {
				s.log.Error("realtime connection error, reconnecting", "error", err)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(reconnectDelay):
					// backoff before reconnecting
				}
			}
		}
	}
}

func (s *Subscriber) subscribe(ctx context.Context) error {
	s.log.Info("connecting to realtime stream", "url", s.url)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial realtime stream: %w", err)
	}
	defer conn.Close()

	// Unblock ReadMessage when the context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	s.log.Info("connected to realtime stream")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}

		var ev wireEvent
		if err := json.Unmarshal(message, &ev); err != nil {
			s.log.Error("failed to parse realtime event", "error", err)
			continue
		}
		if ev.Type != "count-update" || ev.PostID == "" {
			continue
		}

		s.bus.Publish(events.CountUpdate{
			PostID:   ev.PostID,
			Counts:   ev.Counts,
			Reaction: domain.ReactionNone,
		})
	}
}

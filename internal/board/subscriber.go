// README: Relays order messages from Redis pub/sub into the hub.
package board

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"yoake/internal/events"
)

type Subscriber struct {
	redis *redis.Client
	hub   *Hub
	log   *slog.Logger
}

func NewSubscriber(client *redis.Client, hub *Hub, log *slog.Logger) *Subscriber {
	if log == nil {
		log = slog.Default()
	}
	return &Subscriber{redis: client, hub: hub, log: log}
}

// Run blocks until ctx is cancelled.
func (s *Subscriber) Run(ctx context.Context) error {
	ps := s.redis.Subscribe(ctx, events.Channel)
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return err
	}
	s.log.Info("board subscriber started", slog.String("channel", events.Channel))

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.relay(msg.Payload)
		}
	}
}

func (s *Subscriber) relay(payload string) {
	var m events.Message
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		s.log.Warn("board message decode failed", slog.String("error", err.Error()))
		return
	}
	s.hub.Broadcast(m)
}

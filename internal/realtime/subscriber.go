package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"gympass/internal/checkin"
	"gympass/internal/logger"
	"gympass/internal/metrics"
)

const reconnectDelay = 2 * time.Second

// Subscriber consumes the redis check-in channels and feeds this
// instance's hub.
type Subscriber struct {
	rdb *redis.Client
	hub *Hub
}

func NewSubscriber(rdb *redis.Client, hub *Hub) *Subscriber {
	return &Subscriber{rdb: rdb, hub: hub}
}

// Run blocks until the context is cancelled, reconnecting after a fixed
// delay whenever the pubsub connection drops. Events missed during a
// reconnect are not replayed; the dashboard refetch covers the gap.
func (s *Subscriber) Run(ctx context.Context) {
	for {
		if err := s.consume(ctx); err != nil {
			logger.Errorf("Realtime subscriber disconnected: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (s *Subscriber) consume(ctx context.Context) error {
	pubsub := s.rdb.PSubscribe(ctx, channelPattern)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("pubsub channel closed")
			}
			s.dispatch(msg.Payload)
		}
	}
}

func (s *Subscriber) dispatch(payload string) {
	var event checkin.Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		logger.Errorf("Dropping malformed check-in event: %v", err)
		return
	}

	s.hub.Broadcast(event)
	metrics.RecordRealtimeEvent()
}

package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"gympass/internal/checkin"
)

const channelPattern = "checkins:*"

func channelFor(locationID int) string {
	return fmt.Sprintf("checkins:%d", locationID)
}

// Publisher relays confirmed check-in events onto the location's redis
// channel. Every API instance subscribes, so a dashboard connected to any
// instance sees check-ins processed by all of them.
type Publisher struct {
	rdb *redis.Client
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

func (p *Publisher) Publish(ctx context.Context, event checkin.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling check-in event: %w", err)
	}

	return p.rdb.Publish(ctx, channelFor(event.LocationID), payload).Err()
}

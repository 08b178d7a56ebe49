package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

// Publisher is the write side of the change feed: the mutation service
// publishes one event per affected row, after the row is persisted.
type Publisher struct {
	redisClient *redis.Client
}

func NewPublisher(redisClient *redis.Client) *Publisher {
	return &Publisher{
		redisClient: redisClient,
	}
}

func (p *Publisher) Publish(ctx context.Context, workoutID string, event ChangeEvent) error {
	channel, err := channelFor(workoutID, event.Table)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}

	if err := p.redisClient.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish change event to %s: %w", channel, err)
	}

	log.Tracef("change feed: published %s on %s", event.EventType, channel)
	return nil
}

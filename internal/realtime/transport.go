package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

// RedisTransport delivers the change feed over redis pub/sub. One Open call
// subscribes to both workout-scoped channels (sets and workout_exercises).
type RedisTransport struct {
	redisClient *redis.Client
}

func NewRedisTransport(redisClient *redis.Client) *RedisTransport {
	return &RedisTransport{
		redisClient: redisClient,
	}
}

func (t *RedisTransport) Open(ctx context.Context, workoutID string) (Subscription, error) {
	pubsub := t.redisClient.Subscribe(ctx,
		setsChannel(workoutID),
		workoutExercisesChannel(workoutID),
	)

	// wait for the subscribe confirmation before reporting the channel open
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to workout %s change feed: %w", workoutID, err)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		events: make(chan ChangeEvent),
	}
	go sub.receiveLoop()

	return sub, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	events chan ChangeEvent
}

func (s *redisSubscription) Events() <-chan ChangeEvent {
	return s.events
}

func (s *redisSubscription) Close() error {
	// closes the pubsub message channel, which ends the receive loop
	return s.pubsub.Close()
}

func (s *redisSubscription) receiveLoop() {
	defer close(s.events)

	for msg := range s.pubsub.Channel() {
		var event ChangeEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Errorf("change feed: unmarshal event from %s: %s", msg.Channel, err)
			continue
		}
		// the channel name is authoritative for the origin table
		if strings.HasSuffix(msg.Channel, ":workout_exercises") {
			event.Table = TableWorkoutExercises
		} else {
			event.Table = TableSets
		}
		s.events <- event
	}
}

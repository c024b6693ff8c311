package pubsub

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/KostasPapadooo/ev-charging-app/internal/models"
)

// ChangesChannel carries one message per speed-sweep run with that run's
// full change list.
const ChangesChannel = "stations:changes"

// Publisher broadcasts change batches. The speed sweep depends on this
// interface; RedisPublisher is the production implementation.
type Publisher interface {
	PublishChanges(ctx context.Context, batch models.ChangeBatch) error
}

// RedisPublisher publishes batches as JSON on a Redis channel.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher returns publisher.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// PublishChanges sends the batch as one message.
func (p *RedisPublisher) PublishChanges(ctx context.Context, batch models.ChangeBatch) error {
	payload, err := json.Marshal(batch)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, ChangesChannel, payload).Err()
}

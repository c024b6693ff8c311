package pubsub

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Broadcaster receives raw change-batch payloads; the websocket hub
// implements it.
type Broadcaster interface {
	Broadcast(message []byte)
}

// Bridge subscribes to the changes channel and forwards every payload to
// live client connections. Consumers themselves are not tracked here.
type Bridge struct {
	client      *redis.Client
	broadcaster Broadcaster
	logger      *zap.Logger
}

// NewBridge returns bridge.
func NewBridge(client *redis.Client, broadcaster Broadcaster, logger *zap.Logger) *Bridge {
	return &Bridge{client: client, broadcaster: broadcaster, logger: logger}
}

// Run blocks consuming the channel until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) {
	sub := b.client.Subscribe(ctx, ChangesChannel)
	defer sub.Close()

	ch := sub.Channel()
	b.logger.Info("change bridge subscribed", zap.String("channel", ChangesChannel))

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.broadcaster.Broadcast([]byte(msg.Payload))
		}
	}
}

package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Publisher fans committed change records out to downstream mirrors. Delivery
// is best effort; the durable log is the store, not the publisher.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// LoggerPublisher writes change records to the structured logger.
type LoggerPublisher struct {
	logger *slog.Logger
}

// NewLoggerPublisher constructs a logging publisher.
func NewLoggerPublisher(logger *slog.Logger) *LoggerPublisher {
	return &LoggerPublisher{logger: logger}
}

// Publish writes the event to the structured logger.
func (p *LoggerPublisher) Publish(_ context.Context, event Event) error {
	if p == nil || p.logger == nil {
		return nil
	}
	p.logger.Info("registry event",
		slog.Int64("seq", event.Seq),
		slog.String("kind", event.Kind),
		slog.Int64("token_id", event.TokenID),
		slog.String("owner", event.Owner),
	)
	return nil
}

// RedisPublisher broadcasts change records on a Redis pub/sub channel for
// off-process indexers.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher constructs a Redis-backed publisher.
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

// Publish marshals the event and publishes it on the configured channel.
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, payload).Err()
}

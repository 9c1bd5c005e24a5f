// Package redisbus wraps the Redis pub/sub connection used to receive
// job events and announce finished videos.
package redisbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
)

// Bus is a thin pub/sub wrapper around a Redis client.
type Bus struct {
	client *redis.Client
	logger *slog.Logger
}

// New builds a Bus from the redis section of the configuration.
func New(cfg config.Redis, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = logging.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Bus{client: client, logger: logger.With(logging.String(logging.FieldComponent, "redisbus"))}
}

// Ping verifies connectivity to the Redis server.
func (b *Bus) Ping(ctx context.Context) error {
	if b == nil || b.client == nil {
		return errors.New("redis client not initialized")
	}
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (b *Bus) Close() error {
	if b == nil || b.client == nil {
		return nil
	}
	return b.client.Close()
}

// Publish JSON-encodes payload and publishes it to channel.
func (b *Bus) Publish(ctx context.Context, channel string, payload any) error {
	if b == nil || b.client == nil {
		return errors.New("redis client not initialized")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish to %q: %w", channel, err)
	}
	return nil
}

// Subscribe consumes messages from channel until ctx is cancelled, invoking
// handler for each message. Handler errors are logged and consumption
// continues; only subscription failures end the loop.
func (b *Bus) Subscribe(ctx context.Context, channel string, handler func(context.Context, []byte) error) error {
	if b == nil || b.client == nil {
		return errors.New("redis client not initialized")
	}
	if handler == nil {
		return errors.New("nil handler")
	}

	pubsub := b.client.Subscribe(ctx, channel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed before consuming.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %q: %w", channel, err)
	}

	b.logger.Info("subscribed", logging.String("channel", channel))
	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("subscription to %q closed", channel)
			}
			if err := handler(ctx, []byte(msg.Payload)); err != nil {
				b.logger.Warn("message handler failed",
					logging.String("channel", channel),
					logging.Error(err))
			}
		}
	}
}

// Package notify broadcasts "feed changed" signals over Redis pub/sub.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultChannel = "chatfeed:changed"

// Redis publishes and receives change signals on one pub/sub channel.
type Redis struct {
	client  *redis.Client
	channel string
	log     *slog.Logger
}

// NewRedis connects to redisURL and verifies the connection.
func NewRedis(redisURL string, log *slog.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisWithClient(client, log), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, log *slog.Logger) *Redis {
	return &Redis{client: client, channel: defaultChannel, log: log}
}

// Publish announces that the feed changed.
func (r *Redis) Publish(ctx context.Context) error {
	if err := r.client.Publish(ctx, r.channel, time.Now().UTC().UnixMilli()).Err(); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

// Subscribe returns a channel that receives a value for every change signal
// until ctx is cancelled. Signals are coalesced when the reader lags.
func (r *Redis) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	ps := r.client.Subscribe(ctx, r.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer func() { _ = ps.Close() }()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					r.log.Warn("change subscription closed", "channel", r.channel)
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}

// Ping checks if Redis is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

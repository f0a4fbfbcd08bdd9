package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the Redis channel events are published on.
const DefaultChannel = "requisitions:events"

// RedisPublisher publishes events on a Redis channel so that every instance
// sharing the database can relay them to its own clients. Events are stamped
// with the publishing instance's origin so its own relay can skip them.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	origin  string
}

// NewRedisPublisher returns a publisher on the given channel.
func NewRedisPublisher(client *redis.Client, channel, origin string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel, origin: origin}
}

// NotifyAll implements Notifier.
func (p *RedisPublisher) NotifyAll(ctx context.Context, e Event) error {
	e.Origin = p.origin
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publishing event: %w", err)
	}
	return nil
}

// Relay subscribes to the channel and forwards events to local until ctx is
// cancelled. Events published with the given origin were already delivered
// locally and are skipped.
func Relay(ctx context.Context, client *redis.Client, channel, origin string, local Notifier) error {
	if channel == "" {
		channel = DefaultChannel
	}

	sub := client.Subscribe(ctx, channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", channel, err)
	}
	slog.Info("relaying events from redis", "channel", channel)

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				slog.Warn("discarding malformed event", "channel", channel, "error", err)
				continue
			}
			if origin != "" && e.Origin == origin {
				continue
			}
			if err := local.NotifyAll(ctx, e); err != nil {
				slog.Error("relaying event", "event", e.Type, "error", err)
			}
		}
	}
}

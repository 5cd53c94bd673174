package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// channelPrefix namespaces document channels: smartdoc:events:{document_id}
const channelPrefix = "smartdoc:events:"

// RedisBroker fans events out across server instances with Redis pub/sub
type RedisBroker struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisBroker creates a broker on an existing client
func NewRedisBroker(client *redis.Client, logger *slog.Logger) *RedisBroker {
	return &RedisBroker{client: client, logger: logger}
}

// NewRedisBrokerFromURL parses a redis:// URL and verifies the connection
func NewRedisBrokerFromURL(ctx context.Context, url string, logger *slog.Logger) (*RedisBroker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisBroker(client, logger), nil
}

func channel(documentID string) string {
	return channelPrefix + documentID
}

// Publish sends event on the document's channel
func (b *RedisBroker) Publish(ctx context.Context, documentID string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, channel(documentID), data).Err(); err != nil {
		return fmt.Errorf("publish %s event for document %s: %w", event.Type, documentID, err)
	}
	return nil
}

// Subscribe listens on the document's channel. It returns once Redis has
// confirmed the subscription, so events published afterwards are delivered.
func (b *RedisBroker) Subscribe(ctx context.Context, documentID string) (<-chan Event, func(), error) {
	pubsub := b.client.Subscribe(ctx, channel(documentID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe to document %s: %w", documentID, err)
	}

	out := make(chan Event, subscriberBuffer)
	subCtx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					b.logger.Warn("dropping malformed event", "channel", msg.Channel, "error", err)
					continue
				}
				select {
				case out <- event:
				default:
					b.logger.Debug("subscriber full, dropping event", "document_id", documentID, "type", event.Type)
				}
			}
		}
	}()

	return out, cancel, nil
}

// Close closes the Redis client
func (b *RedisBroker) Close() error {
	return b.client.Close()
}

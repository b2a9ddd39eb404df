package publisher

import (
	"context"
	"encoding/base64"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher implements Publisher using a Redis stream. Every refreshed
// store listing is appended so downstream consumers (search indexers,
// notification fanout) can follow directory changes.
type RedisPublisher struct {
	client       *redis.Client
	ctx          context.Context
	stream       string
	streamMaxLen int
}

// NewRedisPublisher creates a new Redis publisher
func NewRedisPublisher(ctx context.Context, addr string, db int, stream string, streamMaxLen int) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &RedisPublisher{
		client:       client,
		ctx:          ctx,
		stream:       stream,
		streamMaxLen: streamMaxLen,
	}
}

// NewRedisPublisherFromClient wraps an existing client, mainly for tests
func NewRedisPublisherFromClient(ctx context.Context, client *redis.Client, stream string, streamMaxLen int) *RedisPublisher {
	return &RedisPublisher{
		client:       client,
		ctx:          ctx,
		stream:       stream,
		streamMaxLen: streamMaxLen,
	}
}

// Publish appends a message to the stream
// The message is base64 encoded before publishing
func (p *RedisPublisher) Publish(key string, message []byte) error {
	encodedMessage := base64.StdEncoding.EncodeToString(message)

	return p.client.XAdd(p.ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			key: encodedMessage,
		},
	}).Err()
}

// TrimStream trims the stream to the configured maximum length
func (p *RedisPublisher) TrimStream() error {
	return p.client.XTrimMaxLen(p.ctx, p.stream, int64(p.streamMaxLen)).Err()
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

package broadcast

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// latestTTL is how long the last published message stays readable
const latestTTL = 3 * time.Minute

// redisClient is the part of the go-redis client the publisher uses
type redisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// RedisPublisher publishes messages on a Redis pub/sub channel and keeps the
// latest one under <channel>:latest
type RedisPublisher struct {
	client  redisClient
	channel string
}

// NewRedisPublisher connects to a Redis server
func NewRedisPublisher(ctx context.Context, addr, password string, db int, channel string) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisPublisher{client: client, channel: channel}, nil
}

// OnPublish publishes the message and stores it as the latest
func (p *RedisPublisher) OnPublish(ctx context.Context, msg Message) error {
	res, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, res).Err(); err != nil {
		return err
	}
	return p.client.Set(ctx, p.LatestKey(), res, latestTTL).Err()
}

// LatestKey is the key holding the last published message
func (p *RedisPublisher) LatestKey() string {
	return p.channel + ":latest"
}

// Name returns the subscriber name
func (p *RedisPublisher) Name() string {
	return "redis"
}

// Close closes the client
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

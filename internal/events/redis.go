package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher sends each event on a pub/sub channel for live viewers and
// keeps a capped history list so dashboards can catch up after reconnecting.
type RedisPublisher struct {
	redis       *redis.Client
	channel     string
	historyKey  string
	historySize int64
}

func NewRedisPublisher(rdb *redis.Client, channel, historyKey string, historySize int64) *RedisPublisher {
	if historySize <= 0 {
		historySize = 500
	}
	return &RedisPublisher{
		redis:       rdb,
		channel:     channel,
		historyKey:  historyKey,
		historySize: historySize,
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.redis.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	if err := p.redis.LPush(ctx, p.historyKey, data).Err(); err != nil {
		return fmt.Errorf("record %s: %w", e.Type, err)
	}
	if err := p.redis.LTrim(ctx, p.historyKey, 0, p.historySize-1).Err(); err != nil {
		return fmt.Errorf("trim history: %w", err)
	}
	return nil
}

// Recent returns up to n of the latest events, newest first.
func (p *RedisPublisher) Recent(ctx context.Context, n int64) ([]json.RawMessage, error) {
	if n <= 0 || n > p.historySize {
		n = p.historySize
	}
	items, err := p.redis.LRange(ctx, p.historyKey, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]json.RawMessage, 0, len(items))
	for _, it := range items {
		out = append(out, json.RawMessage(it))
	}
	return out, nil
}

// Close is a no-op. The redis client belongs to the caller, which closes it.
func (p *RedisPublisher) Close() error {
	return nil
}

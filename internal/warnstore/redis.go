package warnstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "proctor:warnings:"

// Redis keeps warning counters in Redis so multiple instances agree on the
// count.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func key(participantID string) string {
	return keyPrefix + participantID
}

func (r *Redis) Get(ctx context.Context, participantID string) (int, bool, error) {
	n, err := r.client.Get(ctx, key(participantID)).Int()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get warning count: %w", err)
	}
	return n, true, nil
}

func (r *Redis) Set(ctx context.Context, participantID string, count int) error {
	if err := r.client.Set(ctx, key(participantID), count, 0).Err(); err != nil {
		return fmt.Errorf("set warning count: %w", err)
	}
	return nil
}

func (r *Redis) Incr(ctx context.Context, participantID string) (int, error) {
	n, err := r.client.Incr(ctx, key(participantID)).Result()
	if err != nil {
		return 0, fmt.Errorf("incr warning count: %w", err)
	}
	return int(n), nil
}

func (r *Redis) Reset(ctx context.Context, participantID string) error {
	if err := r.client.Set(ctx, key(participantID), 0, 0).Err(); err != nil {
		return fmt.Errorf("reset warning count: %w", err)
	}
	return nil
}

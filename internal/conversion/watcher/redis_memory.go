package watcher

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisMemoryPrefix = "conversion:watch:"

// RedisStatusMemory shares watcher memory between API replicas using one
// Redis hash per lead.
type RedisStatusMemory struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStatusMemory creates a memory backed by client.
func NewRedisStatusMemory(client *redis.Client, ttl time.Duration) *RedisStatusMemory {
	return &RedisStatusMemory{client: client, ttl: ttl}
}

func (m *RedisStatusMemory) Load(ctx context.Context, leadID uuid.UUID) (Memory, bool, error) {
	data, err := m.client.HGetAll(ctx, redisMemoryPrefix+leadID.String()).Result()
	if err != nil {
		return Memory{}, false, err
	}
	if len(data) == 0 {
		return Memory{}, false, nil
	}
	return Memory{
		LastObserved: data["last_observed"],
		Previous:     data["previous"],
	}, true, nil
}

func (m *RedisStatusMemory) Store(ctx context.Context, leadID uuid.UUID, memory Memory) error {
	key := redisMemoryPrefix + leadID.String()
	_, err := m.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, "last_observed", memory.LastObserved, "previous", memory.Previous)
		if m.ttl > 0 {
			p.Expire(ctx, key, m.ttl)
		}
		return nil
	})
	return err
}

func (m *RedisStatusMemory) Forget(ctx context.Context, leadID uuid.UUID) error {
	return m.client.Del(ctx, redisMemoryPrefix+leadID.String()).Err()
}

var _ StatusMemory = (*RedisStatusMemory)(nil)

package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisCell хранит значение JSON-строкой под одним ключом.
// Несколько инстансов Relay видят одну ячейку; кто последний записал — тот и прав.
type RedisCell[T any] struct {
	rdb     *redis.Client
	key     string
	channel string // Если задан, каждый Store дублируется в Pub/Sub
}

func NewRedisCell[T any](rdb *redis.Client, key, channel string) *RedisCell[T] {
	return &RedisCell[T]{rdb: rdb, key: key, channel: channel}
}

func (c *RedisCell[T]) Load(ctx context.Context) (T, bool, error) {
	var v T
	raw, err := c.rdb.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return v, false, nil
	}
	if err != nil {
		return v, false, fmt.Errorf("redis cell %s: get: %w", c.key, err)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("redis cell %s: decode: %w", c.key, err)
	}
	return v, true, nil
}

func (c *RedisCell[T]) Store(ctx context.Context, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("redis cell %s: encode: %w", c.key, err)
	}

	// SET и PUBLISH одной транзакцией: подписчик не увидит сигнал раньше значения
	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, c.key, raw, 0)
		if c.channel != "" {
			pipe.Publish(ctx, c.channel, raw)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis cell %s: store: %w", c.key, err)
	}
	return nil
}

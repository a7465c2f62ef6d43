package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/anemia-history/internal/core/domain"
)

const historyKeyPrefix = "history:"

type RedisMirror struct {
	client *redis.Client
	key    string
}

func NewRedisMirror(client *redis.Client, name string) *RedisMirror {
	return &RedisMirror{client: client, key: historyKeyPrefix + name}
}

func (r *RedisMirror) Load(ctx context.Context) ([]domain.Record, bool, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", r.key, err)
	}

	records, err := decodeHistory(data)
	if err != nil {
		return nil, true, fmt.Errorf("get %s: %w", r.key, err)
	}
	return records, true, nil
}

func (r *RedisMirror) Save(ctx context.Context, records []domain.Record) error {
	data, err := encodeHistory(records)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", r.key, err)
	}
	return nil
}

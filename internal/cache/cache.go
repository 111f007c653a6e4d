package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Cache хранит байты по ключу с временем жизни
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// GetOrLoad достает значение из кэша, а при промахе вызывает load и кладет результат в кэш.
// Ошибки самого кэша не ломают запрос: просто считаем, что значения нет.
func GetOrLoad[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	var value T

	if raw, ok, err := c.Get(ctx, key); err == nil && ok {
		if err := json.Unmarshal(raw, &value); err == nil {
			return value, nil
		}
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return value, fmt.Errorf("encode cached value %s: %w", key, err)
	}
	_ = c.Set(ctx, key, raw, ttl)

	return value, nil
}

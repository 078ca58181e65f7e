// Package ratelimit ограничивает частоту мутаций по фиксированному окну в Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter считает запросы ключа в окне window: INCR, а на первом запросе EXPIRE.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// NewRedisLimiter создает лимитер. limit <= 0 отключает ограничение.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: "rate_limit:mutation",
	}
}

// Allow сообщает, можно ли выполнить еще один запрос для key.
// При ошибке Redis возвращает true вместе с ошибкой, решение остается за вызывающим.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}

	k := fmt.Sprintf("%s:%s", l.prefix, key)
	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return true, fmt.Errorf("rate limit incr: %w", err)
	}

	if count == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return true, fmt.Errorf("rate limit expire: %w", err)
		}
	}

	return count <= int64(l.limit), nil
}

// Close закрывает клиент Redis.
func (l *RedisLimiter) Close() error {
	return l.client.Close()
}

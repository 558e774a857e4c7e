// internal/service/creative/infrastructure/adapter/run_lock_redis.go
package adapter

import (
	"context"
	"fmt"
	"time"

	"adforge/internal/pkg/redis"
)

// RedisRunLocker implements port.RunLocker with SET NX. The value is the run
// id, so a lock is only ever released by the run that holds it; the ttl
// bounds a crashed run's hold on the product.
type RedisRunLocker struct {
	client *redis.Client
}

func NewRedisRunLocker(client *redis.Client) *RedisRunLocker {
	return &RedisRunLocker{client: client}
}

func lockKey(productID string) string {
	return fmt.Sprintf("creative:run_lock:{%s}", productID)
}

func (l *RedisRunLocker) Acquire(ctx context.Context, productID, runID string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, lockKey(productID), runID, ttl)
}

func (l *RedisRunLocker) Release(ctx context.Context, productID, runID string) error {
	key := lockKey(productID)
	holder, err := l.client.Get(ctx, key)
	if err != nil {
		return err
	}
	if holder != runID {
		// Expired and re-acquired by another run; nothing to release.
		return nil
	}
	return l.client.Del(ctx, key)
}

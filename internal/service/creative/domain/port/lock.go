// internal/service/creative/domain/port/lock.go
package port

import (
	"context"
	"time"
)

// RunLocker guards against two concurrent runs for the same product burning
// the same quota. Acquire returns false when the lock is already held.
type RunLocker interface {
	Acquire(ctx context.Context, productID, runID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, productID, runID string) error
}

// internal/service/creative/domain/port/events.go
package port

import (
	"context"

	"adforge/internal/service/creative/domain"
)

// RunRequestProducer enqueues intake commands for the pipeline consumer.
type RunRequestProducer interface {
	Produce(ctx context.Context, event *domain.AdRunRequested) error
}

// LifecyclePublisher announces terminal run outcomes to downstream
// consumers. Publish failures are logged, never fatal: the run outcome is
// already durable in the database.
type LifecyclePublisher interface {
	PublishCompleted(ctx context.Context, event *domain.AdRunCompleted) error
	PublishFailed(ctx context.Context, event *domain.AdRunFailed) error
}

// internal/service/creative/domain/repository.go
package domain

import "context"

// AdRunRepository persists the run aggregate. Implemented by the
// infrastructure layer; the coordinator is the only writer.
type AdRunRepository interface {
	// Create inserts a new run in PENDING.
	Create(ctx context.Context, run *AdRun) error

	// Save persists the current state of the aggregate, including the
	// write-once snapshots. Each stage transition is saved before the next
	// stage starts.
	Save(ctx context.Context, run *AdRun) error

	FindByID(ctx context.Context, id string) (*AdRun, error)
}

// GeneratedAdRepository persists produced variants.
type GeneratedAdRepository interface {
	// Insert stores a freshly generated ad, immediately after its image hit
	// object storage.
	Insert(ctx context.Context, ad *GeneratedAd) error

	// SaveReviews appends the review pair to an existing row.
	SaveReviews(ctx context.Context, ad *GeneratedAd) error

	FindByRun(ctx context.Context, runID string) ([]*GeneratedAd, error)
}

// HookRepository reads the scored hook bank. Hooks are immutable here except
// for retirement.
type HookRepository interface {
	FindActiveByProduct(ctx context.Context, productID string) ([]*Hook, error)
	Retire(ctx context.Context, hookID string) error
}

// ProductRepository reads products and their stored images.
type ProductRepository interface {
	FindByID(ctx context.Context, id string) (*Product, error)
}

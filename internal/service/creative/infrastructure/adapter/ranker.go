// internal/service/creative/infrastructure/adapter/ranker.go
package adapter

import "adforge/internal/service/creative/domain"

// DeterministicImageRanker is the default port.ImageRanker: main image
// first, then stored order. Keeping it behind the port lets an AI ranker
// replace it without touching the pipeline.
type DeterministicImageRanker struct{}

func (DeterministicImageRanker) Rank(product *domain.Product) []string {
	return product.OrderedImagePaths()
}

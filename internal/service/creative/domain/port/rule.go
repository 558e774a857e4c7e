// internal/service/creative/domain/port/rule.go
package port

import "adforge/internal/service/creative/domain"

// ApprovalRule is the hard gate a reviewer's scores must pass before its
// "approved" status is honored. The default rule is
// product_accuracy >= 0.8 && text_accuracy >= 0.8.
type ApprovalRule interface {
	Passes(review *domain.ReviewResult) (bool, error)
}

// ImageRanker orders product images for generation. The deterministic
// implementation (main image first, stored order after) is the documented
// default; an AI ranker can be swapped in without changing the contract.
type ImageRanker interface {
	Rank(product *domain.Product) []string
}

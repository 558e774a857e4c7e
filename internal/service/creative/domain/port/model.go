// internal/service/creative/domain/port/model.go
package port

import (
	"context"

	"adforge/internal/service/creative/domain"
)

// VisionAnalyzer extracts the structured layout/style description from the
// reference ad image.
type VisionAnalyzer interface {
	Analyze(ctx context.Context, imageBytes []byte) (*domain.AdAnalysis, error)
}

// TextAdapter rewrites a hook so its language matches the reference ad's
// detected style.
type TextAdapter interface {
	Adapt(ctx context.Context, hookText, styleDescription string) (string, error)
}

// ImageGenerator produces one ad image from a prompt and reference images.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string, referenceImages [][]byte) ([]byte, error)
}

// Reviewer is one independent AI judge. Two implementations with distinct
// IDs review every generated ad; they need not share a backend.
type Reviewer interface {
	ID() string
	Review(ctx context.Context, imageBytes []byte, rubric string) (*domain.ReviewResult, error)
}

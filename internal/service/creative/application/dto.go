// internal/service/creative/application/dto.go
package application

import (
	"time"

	"adforge/internal/service/creative/domain"
)

// CreateRunRequest is the intake payload for a new creative run.
type CreateRunRequest struct {
	ProductID       string
	ReferenceImage  []byte
	GenerationCount int
}

// CreateRunResponse acknowledges an accepted run.
type CreateRunResponse struct {
	RunID   string       `json:"run_id"`
	Status  domain.State `json:"status"`
	Message string       `json:"message"`
}

// GeneratedAdSummary is the read-model row for one variant.
type GeneratedAdSummary struct {
	Index          int                  `json:"index"`
	HookRef        string               `json:"hook_ref"`
	StoragePath    string               `json:"storage_path"`
	FinalStatus    domain.FinalStatus   `json:"final_status"`
	ReviewersAgree bool                 `json:"reviewers_agree"`
	ReviewA        *domain.ReviewResult `json:"review_a,omitempty"`
	ReviewB        *domain.ReviewResult `json:"review_b,omitempty"`
}

// RunSummary is the read model for one run: the state, the counts, and on
// failure the stored cause, never a raw error.
type RunSummary struct {
	RunID         string               `json:"run_id"`
	ProductID     string               `json:"product_id"`
	Status        domain.State         `json:"status"`
	ApprovedCount int                  `json:"approved_count"`
	RejectedCount int                  `json:"rejected_count"`
	FlaggedCount  int                  `json:"flagged_count"`
	ErrorMessage  string               `json:"error_message,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	CompletedAt   *time.Time           `json:"completed_at,omitempty"`
	GeneratedAds  []GeneratedAdSummary `json:"generated_ads"`
}

// internal/service/creative/domain/generated.go
package domain

import (
	"errors"
	"fmt"
	"time"
)

// ReviewStatus is a single reviewer's verdict.
type ReviewStatus string

const (
	ReviewApproved      ReviewStatus = "approved"
	ReviewNeedsRevision ReviewStatus = "needs_revision"
	ReviewRejected      ReviewStatus = "rejected"
)

// FinalStatus is the consolidated verdict for one generated ad.
type FinalStatus string

const (
	FinalApproved FinalStatus = "approved"
	FinalRejected FinalStatus = "rejected"
	// FinalFlagged requires human adjudication and is never auto-published.
	FinalFlagged FinalStatus = "flagged"
	FinalPending FinalStatus = "pending"
)

// ReviewResult is one reviewer's scoring of one generated ad. Results are
// never recomputed in place; a re-review produces a fresh pair.
type ReviewResult struct {
	ReviewerID      string       `json:"reviewer_id"`
	ProductAccuracy float64      `json:"product_accuracy"`
	TextAccuracy    float64      `json:"text_accuracy"`
	LayoutAccuracy  float64      `json:"layout_accuracy"`
	OverallQuality  float64      `json:"overall_quality"`
	Issues          []string     `json:"issues"`
	Status          ReviewStatus `json:"status"`
	Notes           string       `json:"notes"`
}

// Validate is the boundary check for reviewer JSON.
func (r *ReviewResult) Validate() error {
	for name, v := range map[string]float64{
		"product_accuracy": r.ProductAccuracy,
		"text_accuracy":    r.TextAccuracy,
		"layout_accuracy":  r.LayoutAccuracy,
		"overall_quality":  r.OverallQuality,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("review %s: %s %v outside [0,1]", r.ReviewerID, name, v)
		}
	}
	switch r.Status {
	case ReviewApproved, ReviewNeedsRevision, ReviewRejected:
		return nil
	default:
		return fmt.Errorf("review %s: unknown status %q", r.ReviewerID, r.Status)
	}
}

// GeneratedAd is one produced variant. The row is created immediately after
// its image is persisted; the review fields are appended exactly once each by
// the review stage, nothing else ever changes.
type GeneratedAd struct {
	ID             string
	AdRunID        string
	Index          int // 1..N, unique per run
	PromptText     string
	PromptSpec     string // structured prompt snapshot, JSON
	HookRef        string
	StoragePath    string
	ReviewA        *ReviewResult
	ReviewB        *ReviewResult
	ReviewersAgree bool
	FinalStatus    FinalStatus
	CreatedAt      time.Time
}

// AttachReviews appends the review pair and consolidated verdict. It refuses
// to overwrite an existing pair: a re-review must go through a fresh merge,
// not mutate stored results.
func (g *GeneratedAd) AttachReviews(a, b *ReviewResult, agree bool, final FinalStatus) error {
	if g.ReviewA != nil || g.ReviewB != nil {
		return errors.New("generated ad already reviewed")
	}
	g.ReviewA = a
	g.ReviewB = b
	g.ReviewersAgree = agree
	g.FinalStatus = final
	return nil
}

// MergeStatuses is the OR-consensus rule over two threshold-corrected
// reviewer statuses: one approval is enough to approve, both must reject to
// reject, and every other combination is flagged for a human.
func MergeStatuses(a, b ReviewStatus) FinalStatus {
	switch {
	case a == ReviewApproved || b == ReviewApproved:
		return FinalApproved
	case a == ReviewRejected && b == ReviewRejected:
		return FinalRejected
	default:
		return FinalFlagged
	}
}

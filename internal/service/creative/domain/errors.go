// internal/service/creative/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

// ErrRunLocked is returned when another run is already in flight for the
// same product.
var ErrRunLocked = errors.New("a run for this product is already in progress")

// ErrRunNotFound is returned by repositories for unknown run ids.
var ErrRunNotFound = errors.New("ad run not found")

// BlockingStageError wraps a failure that terminates the whole run: product
// or reference fetch, reference analysis, or an unrecoverable storage error.
type BlockingStageError struct {
	Stage State
	Cause error
}

func (e *BlockingStageError) Error() string {
	return fmt.Sprintf("blocking failure in stage %s: %v", e.Stage, e.Cause)
}

func (e *BlockingStageError) Unwrap() error { return e.Cause }

// NewBlockingStageError wraps cause as fatal for the run.
func NewBlockingStageError(stage State, cause error) error {
	return &BlockingStageError{Stage: stage, Cause: cause}
}

// GenerationItemError is a single hook's generation failure: logged, counted
// and skipped, never fatal for the run.
type GenerationItemError struct {
	Index  int
	HookID string
	Cause  error
}

func (e *GenerationItemError) Error() string {
	return fmt.Sprintf("generation item %d (hook %s) failed: %v", e.Index, e.HookID, e.Cause)
}

func (e *GenerationItemError) Unwrap() error { return e.Cause }

// ReviewUnavailableError marks one reviewer as unreachable for one ad. The
// other reviewer's verdict is still used and the ad is flagged unless that
// verdict is conclusive on its own.
type ReviewUnavailableError struct {
	ReviewerID string
	Cause      error
}

func (e *ReviewUnavailableError) Error() string {
	return fmt.Sprintf("reviewer %s unavailable: %v", e.ReviewerID, e.Cause)
}

func (e *ReviewUnavailableError) Unwrap() error { return e.Cause }

// internal/service/creative/domain/run.go
package domain

import (
	"errors"
	"time"
)

// AdRun is the aggregate root for one creative-generation request: one
// reference ad, one product, up to N generated variants. Its State field is
// only ever moved through the closed transition table, and the analysis and
// selected-hook snapshots are write-once.
type AdRun struct {
	ID               string
	ProductID        string
	ReferenceAdPath  string
	State            State
	Analysis         *AdAnalysis
	SelectedHooks    []SelectedHook
	SelectedImages   []string
	ErrorMessage     string
	ApprovedCount    int
	RejectedCount    int
	FlaggedCount     int
	CreatedAt        time.Time
	CompletedAt      *time.Time
	UpdatedAt        time.Time
}

// NewAdRun creates a run in PENDING with the reference image already stored
// at referencePath.
func NewAdRun(id, productID, referencePath string) (*AdRun, error) {
	if id == "" || productID == "" || referencePath == "" {
		return nil, errors.New("ad run requires id, product id and reference path")
	}
	now := time.Now()
	return &AdRun{
		ID:              id,
		ProductID:       productID,
		ReferenceAdPath: referencePath,
		State:           StatePending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// transition moves the run through the table, rejecting anything the table
// forbids.
func (r *AdRun) transition(to State) error {
	if !r.State.CanTransition(to) {
		return &ErrInvalidTransition{From: r.State, To: to}
	}
	r.State = to
	r.UpdatedAt = time.Now()
	return nil
}

// BeginAnalysis moves the run into ANALYZING.
func (r *AdRun) BeginAnalysis() error {
	return r.transition(StateAnalyzing)
}

// CompleteAnalysis snapshots the analysis and moves into GENERATING. The
// snapshot is write-once.
func (r *AdRun) CompleteAnalysis(analysis *AdAnalysis) error {
	if r.Analysis != nil {
		return errors.New("ad run analysis already set")
	}
	if analysis == nil {
		return errors.New("ad run analysis must not be nil")
	}
	if err := r.transition(StateGenerating); err != nil {
		return err
	}
	r.Analysis = analysis
	return nil
}

// RecordSelection snapshots the chosen hooks and product images. Write-once,
// during GENERATING.
func (r *AdRun) RecordSelection(hooks []SelectedHook, images []string) error {
	if r.State != StateGenerating {
		return errors.New("hook selection only happens while generating")
	}
	if r.SelectedHooks != nil {
		return errors.New("ad run selection already set")
	}
	r.SelectedHooks = hooks
	r.SelectedImages = images
	r.UpdatedAt = time.Now()
	return nil
}

// BeginReview moves the run into REVIEWING.
func (r *AdRun) BeginReview() error {
	return r.transition(StateReviewing)
}

// Complete records the final verdict counts and terminates the run.
func (r *AdRun) Complete(approved, rejected, flagged int) error {
	if err := r.transition(StateComplete); err != nil {
		return err
	}
	r.ApprovedCount = approved
	r.RejectedCount = rejected
	r.FlaggedCount = flagged
	now := time.Now()
	r.CompletedAt = &now
	return nil
}

// Fail terminates the run with a human-readable cause. Failing a terminal
// run is rejected like any other bad transition.
func (r *AdRun) Fail(cause string) error {
	if err := r.transition(StateFailed); err != nil {
		return err
	}
	if cause == "" {
		cause = "unknown failure"
	}
	r.ErrorMessage = cause
	now := time.Now()
	r.CompletedAt = &now
	return nil
}

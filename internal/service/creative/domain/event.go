// internal/service/creative/domain/event.go
package domain

import "time"

// AdRunRequested is published when a client asks for a new run. It is the
// intake command for the pipeline consumer.
type AdRunRequested struct {
	RunID           string `json:"runId"`
	ProductID       string `json:"productId"`
	ReferenceAdPath string `json:"referenceAdPath"`
	GenerationCount int    `json:"generationCount,omitempty"`
	TraceID         string `json:"traceId,omitempty"`
}

// AdRunCompleted is published when a run reaches COMPLETE.
type AdRunCompleted struct {
	RunID         string    `json:"runId"`
	ProductID     string    `json:"productId"`
	GeneratedAds  int       `json:"generatedAds"`
	ApprovedCount int       `json:"approvedCount"`
	RejectedCount int       `json:"rejectedCount"`
	FlaggedCount  int       `json:"flaggedCount"`
	CompletedAt   time.Time `json:"completedAt"`
}

// AdRunFailed is published when a run reaches FAILED.
type AdRunFailed struct {
	RunID     string    `json:"runId"`
	ProductID string    `json:"productId"`
	Reason    string    `json:"reason"`
	FailedAt  time.Time `json:"failedAt"`
}

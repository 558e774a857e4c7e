// internal/service/creative/application/pipeline/handler.go
package pipeline

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"adforge/internal/service/creative/domain"
	"adforge/internal/service/creative/domain/port"
)

// RunContext carries one run through the stage chain. Stages never run
// concurrently: each handler finishes (and persists its transition) before
// calling the next one.
type RunContext struct {
	Ctx     context.Context
	Run     *domain.AdRun
	Product *domain.Product
	Tracer  trace.Tracer

	// GenerationCount is how many variants this run should attempt.
	GenerationCount int

	// Outbound ports.
	Analyzer  port.VisionAnalyzer
	Adapter   port.TextAdapter
	Generator port.ImageGenerator
	ReviewerA port.Reviewer
	ReviewerB port.Reviewer
	Rule      port.ApprovalRule
	Ranker    port.ImageRanker
	Store     port.ObjectStore

	// Repositories.
	Runs  domain.AdRunRepository
	Ads   domain.GeneratedAdRepository
	Hooks domain.HookRepository

	// Accumulated output.
	Generated []*domain.GeneratedAd
	Approved  int
	Rejected  int
	Flagged   int
}

// Handler is one node of the stage chain.
type Handler interface {
	SetNext(handler Handler) Handler
	Handle(rc *RunContext) error
}

// NextHandler is embedded by concrete stages to chain to the next one.
type NextHandler struct {
	next Handler
}

func (h *NextHandler) SetNext(handler Handler) Handler {
	h.next = handler
	return handler
}

func (h *NextHandler) executeNext(rc *RunContext) error {
	if h.next != nil {
		return h.next.Handle(rc)
	}
	return nil
}

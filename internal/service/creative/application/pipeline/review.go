// internal/service/creative/application/pipeline/review.go
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"adforge/internal/pkg/logger"
	"adforge/internal/service/creative/domain"
	"adforge/internal/service/creative/domain/port"
)

// ReviewHandler runs two independent reviewers over every generated ad and
// consolidates their verdicts. One reviewer being down never fails the run:
// the ad is flagged unless the surviving verdict is conclusive on its own.
type ReviewHandler struct {
	NextHandler
}

func (h *ReviewHandler) Handle(rc *RunContext) error {
	ctx, span := rc.Tracer.Start(rc.Ctx, "pipeline.Review")
	defer span.End()

	if err := rc.Run.BeginReview(); err != nil {
		return err
	}
	if err := rc.Runs.Save(ctx, rc.Run); err != nil {
		return domain.NewBlockingStageError(domain.StateReviewing, errors.Wrap(err, "persist REVIEWING"))
	}

	for _, ad := range rc.Generated {
		if err := h.reviewOne(rc, ad); err != nil {
			// Only storage write failures surface here; a broken persistence
			// layer is fatal for the run.
			return domain.NewBlockingStageError(domain.StateReviewing, err)
		}
		switch ad.FinalStatus {
		case domain.FinalApproved:
			rc.Approved++
		case domain.FinalRejected:
			rc.Rejected++
		default:
			rc.Flagged++
		}
	}

	span.SetAttributes(
		attribute.Int("run.approved", rc.Approved),
		attribute.Int("run.rejected", rc.Rejected),
		attribute.Int("run.flagged", rc.Flagged),
	)
	logger.Ctx(ctx).Info().
		Str("run_id", rc.Run.ID).
		Int("approved", rc.Approved).
		Int("rejected", rc.Rejected).
		Int("flagged", rc.Flagged).
		Msg("Review stage finished")
	return h.executeNext(rc)
}

func (h *ReviewHandler) reviewOne(rc *RunContext, ad *domain.GeneratedAd) error {
	ctx, span := rc.Tracer.Start(rc.Ctx, fmt.Sprintf("pipeline.ReviewItem#%d", ad.Index))
	defer span.End()

	imageBytes, err := rc.Store.Get(ctx, ad.StoragePath)
	if err != nil {
		return errors.Wrapf(err, "fetch generated image %s", ad.StoragePath)
	}

	rubric := buildRubric(rc.Run.Analysis, ad)

	// Sequential on purpose: both calls share the global pacing clock.
	reviewA, errA := runReviewer(ctx, rc.ReviewerA, imageBytes, rubric, rc.Rule)
	reviewB, errB := runReviewer(ctx, rc.ReviewerB, imageBytes, rubric, rc.Rule)
	if errA != nil {
		logReviewerDown(rc, ad, rc.ReviewerA, errA)
	}
	if errB != nil {
		logReviewerDown(rc, ad, rc.ReviewerB, errB)
	}

	agree, final := Consolidate(reviewA, reviewB)
	if err := ad.AttachReviews(reviewA, reviewB, agree, final); err != nil {
		return err
	}
	if err := rc.Ads.SaveReviews(ctx, ad); err != nil {
		return errors.Wrap(err, "persist review pair")
	}

	span.SetAttributes(
		attribute.String("review.final", string(final)),
		attribute.Bool("review.agree", agree),
	)
	return nil
}

// runReviewer executes one reviewer call, validates the payload at the
// boundary and corrects an over-generous "approved" that misses the hard
// accuracy gate.
func runReviewer(ctx context.Context, reviewer port.Reviewer, imageBytes []byte, rubric string, rule port.ApprovalRule) (*domain.ReviewResult, error) {
	review, err := reviewer.Review(ctx, imageBytes, rubric)
	if err != nil {
		return nil, &domain.ReviewUnavailableError{ReviewerID: reviewer.ID(), Cause: err}
	}
	if err := review.Validate(); err != nil {
		return nil, &domain.ReviewUnavailableError{ReviewerID: reviewer.ID(), Cause: err}
	}
	if review.Status == domain.ReviewApproved {
		passes, err := rule.Passes(review)
		if err != nil {
			return nil, &domain.ReviewUnavailableError{ReviewerID: reviewer.ID(), Cause: errors.Wrap(err, "approval rule")}
		}
		if !passes {
			review.Status = domain.ReviewNeedsRevision
			review.Notes = strings.TrimSpace(review.Notes + " [downgraded: below accuracy gate]")
		}
	}
	return review, nil
}

// Consolidate merges two (possibly missing) corrected reviews into the final
// verdict. With both present it is the pure OR-consensus table; with one
// missing the survivor decides only when conclusive; with none the ad is
// flagged for a human.
func Consolidate(a, b *domain.ReviewResult) (agree bool, final domain.FinalStatus) {
	switch {
	case a != nil && b != nil:
		return a.Status == b.Status, domain.MergeStatuses(a.Status, b.Status)
	case a != nil:
		return false, soloVerdict(a.Status)
	case b != nil:
		return false, soloVerdict(b.Status)
	default:
		return false, domain.FinalFlagged
	}
}

func soloVerdict(s domain.ReviewStatus) domain.FinalStatus {
	switch s {
	case domain.ReviewApproved:
		return domain.FinalApproved
	case domain.ReviewRejected:
		return domain.FinalRejected
	default:
		return domain.FinalFlagged
	}
}

func buildRubric(analysis *domain.AdAnalysis, ad *domain.GeneratedAd) string {
	var sb strings.Builder
	sb.WriteString("Score this generated ad against the reference style.\n")
	fmt.Fprintf(&sb, "Expected format: %s, layout: %s.\n", analysis.FormatType, analysis.LayoutStructure)
	fmt.Fprintf(&sb, "The headline must read exactly: %q\n", adHeadline(ad))
	sb.WriteString("Return JSON with product_accuracy, text_accuracy, layout_accuracy, overall_quality (all 0..1), issues[], status (approved|needs_revision|rejected) and notes.")
	return sb.String()
}

// adHeadline recovers the adapted hook from the persisted prompt spec.
func adHeadline(ad *domain.GeneratedAd) string {
	var spec promptSpec
	if err := json.Unmarshal([]byte(ad.PromptSpec), &spec); err != nil {
		return ""
	}
	return spec.AdaptedHook
}

func logReviewerDown(rc *RunContext, ad *domain.GeneratedAd, reviewer port.Reviewer, err error) {
	logger.Ctx(rc.Ctx).Warn().
		Str("run_id", rc.Run.ID).
		Int("index", ad.Index).
		Str("reviewer", reviewer.ID()).
		Err(err).
		Msg("Reviewer unavailable for this ad")
}

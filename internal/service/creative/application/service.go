// internal/service/creative/application/service.go
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"adforge/internal/pkg/logger"
	"adforge/internal/service/creative/application/pipeline"
	"adforge/internal/service/creative/domain"
	"adforge/internal/service/creative/domain/port"
)

var runsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "creative_runs_in_flight",
	Help: "Ad runs currently executing the pipeline.",
})

// Ports bundles every outbound dependency of the pipeline. The composition
// root fills it once; the service hands it to every run.
type Ports struct {
	Analyzer  port.VisionAnalyzer
	Adapter   port.TextAdapter
	Generator port.ImageGenerator
	ReviewerA port.Reviewer
	ReviewerB port.Reviewer
	Rule      port.ApprovalRule
	Ranker    port.ImageRanker
	Store     port.ObjectStore
	Locker    port.RunLocker
	Requests  port.RunRequestProducer
	Lifecycle port.LifecyclePublisher
}

// Repositories bundles the persistence dependencies.
type Repositories struct {
	Runs     domain.AdRunRepository
	Ads      domain.GeneratedAdRepository
	Hooks    domain.HookRepository
	Products domain.ProductRepository
}

// CreativeApplicationService orchestrates ad runs. Intake is asynchronous:
// RequestAdRun persists the run and enqueues it; HandleAdRunRequested (driven
// by the kafka consumer adapter) executes the pipeline.
type CreativeApplicationService struct {
	ports           Ports
	repos           Repositories
	tracer          trace.Tracer
	generationCount int
	runTimeout      time.Duration
}

func NewCreativeApplicationService(ports Ports, repos Repositories, tracer trace.Tracer, generationCount int, runTimeout time.Duration) *CreativeApplicationService {
	if generationCount <= 0 {
		generationCount = 5
	}
	if runTimeout <= 0 {
		runTimeout = time.Hour
	}
	return &CreativeApplicationService{
		ports:           ports,
		repos:           repos,
		tracer:          tracer,
		generationCount: generationCount,
		runTimeout:      runTimeout,
	}
}

// RequestAdRun stores the reference image, creates the run in PENDING and
// enqueues it for the pipeline consumer. A second concurrent request for the
// same product is rejected with ErrRunLocked.
func (s *CreativeApplicationService) RequestAdRun(ctx context.Context, req *CreateRunRequest) (*CreateRunResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.RequestAdRun")
	defer span.End()

	if req.ProductID == "" || len(req.ReferenceImage) == 0 {
		return nil, errors.New("product id and reference image are required")
	}
	if _, err := s.repos.Products.FindByID(ctx, req.ProductID); err != nil {
		return nil, errors.Wrapf(err, "product %s", req.ProductID)
	}

	runID := uuid.New().String()
	span.SetAttributes(attribute.String("run.id", runID), attribute.String("product.id", req.ProductID))

	locked, err := s.ports.Locker.Acquire(ctx, req.ProductID, runID, s.runTimeout)
	if err != nil {
		return nil, errors.Wrap(err, "acquire run lock")
	}
	if !locked {
		return nil, domain.ErrRunLocked
	}

	referencePath := fmt.Sprintf("runs/%s/reference.png", runID)
	storedPath, err := s.ports.Store.Put(ctx, referencePath, req.ReferenceImage)
	if err != nil {
		s.releaseLock(ctx, req.ProductID, runID)
		return nil, errors.Wrap(err, "store reference image")
	}

	run, err := domain.NewAdRun(runID, req.ProductID, storedPath)
	if err != nil {
		s.releaseLock(ctx, req.ProductID, runID)
		return nil, err
	}
	if err := s.repos.Runs.Create(ctx, run); err != nil {
		s.releaseLock(ctx, req.ProductID, runID)
		return nil, errors.Wrap(err, "create run row")
	}

	event := &domain.AdRunRequested{
		RunID:           runID,
		ProductID:       req.ProductID,
		ReferenceAdPath: storedPath,
		GenerationCount: req.GenerationCount,
		TraceID:         span.SpanContext().TraceID().String(),
	}
	if err := s.ports.Requests.Produce(ctx, event); err != nil {
		span.RecordError(err)
		s.failRunQuietly(ctx, run, "could not enqueue run request")
		s.releaseLock(ctx, req.ProductID, runID)
		return nil, errors.Wrap(err, "enqueue run request")
	}

	logger.Ctx(ctx).Info().
		Str("run_id", runID).
		Str("product_id", req.ProductID).
		Msg("Ad run accepted and enqueued")
	return &CreateRunResponse{
		RunID:   runID,
		Status:  run.State,
		Message: "Your ad run is being processed.",
	}, nil
}

// HandleAdRunRequested executes the whole pipeline for one run. It is the
// consumer-side entry point and never returns a raw stage error: the outcome
// lands on the run row, the lock is released, and a lifecycle event goes out.
func (s *CreativeApplicationService) HandleAdRunRequested(ctx context.Context, event *domain.AdRunRequested) error {
	ctx, span := s.tracer.Start(ctx, "app.HandleAdRunRequested", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(attribute.String("run.id", event.RunID))

	runsInFlight.Inc()
	defer runsInFlight.Dec()

	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()
	defer s.releaseLock(ctx, event.ProductID, event.RunID)

	run, err := s.repos.Runs.FindByID(runCtx, event.RunID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "run row missing")
		return errors.Wrapf(err, "load run %s", event.RunID)
	}
	if run.State.Terminal() {
		logger.Ctx(ctx).Warn().Str("run_id", run.ID).Msg("Run already terminal, skipping duplicate event")
		return nil
	}

	product, err := s.repos.Products.FindByID(runCtx, run.ProductID)
	if err != nil {
		// Product fetch is a blocking-stage failure by definition.
		return s.failRun(runCtx, span, run, domain.NewBlockingStageError(run.State, errors.Wrap(err, "fetch product")))
	}

	count := s.generationCount
	if event.GenerationCount > 0 {
		count = event.GenerationCount
	}

	rc := &pipeline.RunContext{
		Ctx:             runCtx,
		Run:             run,
		Product:         product,
		Tracer:          s.tracer,
		GenerationCount: count,
		Analyzer:        s.ports.Analyzer,
		Adapter:         s.ports.Adapter,
		Generator:       s.ports.Generator,
		ReviewerA:       s.ports.ReviewerA,
		ReviewerB:       s.ports.ReviewerB,
		Rule:            s.ports.Rule,
		Ranker:          s.ports.Ranker,
		Store:           s.ports.Store,
		Runs:            s.repos.Runs,
		Ads:             s.repos.Ads,
		Hooks:           s.repos.Hooks,
	}

	logger.Ctx(ctx).Info().Str("run_id", run.ID).Int("count", count).Msg("Starting creative pipeline")
	if err := s.buildChain().Handle(rc); err != nil {
		return s.failRun(runCtx, span, run, err)
	}

	if err := run.Complete(rc.Approved, rc.Rejected, rc.Flagged); err != nil {
		return s.failRun(runCtx, span, run, err)
	}
	if err := s.repos.Runs.Save(runCtx, run); err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "persist COMPLETE")
	}

	s.retireRejectedHooks(runCtx, rc.Generated)

	if err := s.ports.Lifecycle.PublishCompleted(ctx, &domain.AdRunCompleted{
		RunID:         run.ID,
		ProductID:     run.ProductID,
		GeneratedAds:  len(rc.Generated),
		ApprovedCount: rc.Approved,
		RejectedCount: rc.Rejected,
		FlaggedCount:  rc.Flagged,
		CompletedAt:   time.Now(),
	}); err != nil {
		logger.Ctx(ctx).Warn().Str("run_id", run.ID).Err(err).Msg("Failed to publish completion event")
	}

	logger.Ctx(ctx).Info().
		Str("run_id", run.ID).
		Int("generated", len(rc.Generated)).
		Int("approved", rc.Approved).
		Int("rejected", rc.Rejected).
		Int("flagged", rc.Flagged).
		Msg("Ad run complete")
	span.AddEvent("run complete")
	return nil
}

// GetRun assembles the read model for one run.
func (s *CreativeApplicationService) GetRun(ctx context.Context, runID string) (*RunSummary, error) {
	run, err := s.repos.Runs.FindByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	ads, err := s.repos.Ads.FindByRun(ctx, runID)
	if err != nil {
		return nil, errors.Wrap(err, "load generated ads")
	}

	summary := &RunSummary{
		RunID:         run.ID,
		ProductID:     run.ProductID,
		Status:        run.State,
		ApprovedCount: run.ApprovedCount,
		RejectedCount: run.RejectedCount,
		FlaggedCount:  run.FlaggedCount,
		ErrorMessage:  run.ErrorMessage,
		CreatedAt:     run.CreatedAt,
		CompletedAt:   run.CompletedAt,
		GeneratedAds:  make([]GeneratedAdSummary, 0, len(ads)),
	}
	for _, ad := range ads {
		summary.GeneratedAds = append(summary.GeneratedAds, GeneratedAdSummary{
			Index:          ad.Index,
			HookRef:        ad.HookRef,
			StoragePath:    ad.StoragePath,
			FinalStatus:    ad.FinalStatus,
			ReviewersAgree: ad.ReviewersAgree,
			ReviewA:        ad.ReviewA,
			ReviewB:        ad.ReviewB,
		})
	}
	return summary, nil
}

// buildChain wires the stage handlers in pipeline order.
func (s *CreativeApplicationService) buildChain() pipeline.Handler {
	analyze := new(pipeline.AnalysisHandler)
	analyze.
		SetNext(new(pipeline.SelectionHandler)).
		SetNext(new(pipeline.GenerationHandler)).
		SetNext(new(pipeline.ReviewHandler))
	return analyze
}

// retireRejectedHooks takes a hook out of future selections once both
// reviewers rejected its ad. A unanimous rejection is about the hook fitting
// the product, not about one model's taste, so the hook is burned.
func (s *CreativeApplicationService) retireRejectedHooks(ctx context.Context, ads []*domain.GeneratedAd) {
	for _, ad := range ads {
		if ad.FinalStatus != domain.FinalRejected {
			continue
		}
		if err := s.repos.Hooks.Retire(ctx, ad.HookRef); err != nil {
			logger.Ctx(ctx).Warn().Str("hook_id", ad.HookRef).Err(err).Msg("Failed to retire rejected hook")
			continue
		}
		logger.Ctx(ctx).Info().Str("hook_id", ad.HookRef).Msg("Hook retired after unanimous rejection")
	}
}

// failRun terminates the run with a stored cause and publishes the failure.
func (s *CreativeApplicationService) failRun(ctx context.Context, span trace.Span, run *domain.AdRun, cause error) error {
	span.RecordError(cause)
	span.SetStatus(codes.Error, "run failed")
	logger.Ctx(ctx).Error().Str("run_id", run.ID).Err(cause).Msg("Ad run failed")

	if err := run.Fail(cause.Error()); err != nil {
		logger.Ctx(ctx).Error().Str("run_id", run.ID).Err(err).Msg("Could not mark run failed")
		return cause
	}
	if err := s.repos.Runs.Save(ctx, run); err != nil {
		logger.Ctx(ctx).Error().Str("run_id", run.ID).Err(err).Msg("Could not persist FAILED state")
	}
	if err := s.ports.Lifecycle.PublishFailed(ctx, &domain.AdRunFailed{
		RunID:     run.ID,
		ProductID: run.ProductID,
		Reason:    run.ErrorMessage,
		FailedAt:  time.Now(),
	}); err != nil {
		logger.Ctx(ctx).Warn().Str("run_id", run.ID).Err(err).Msg("Failed to publish failure event")
	}
	return cause
}

func (s *CreativeApplicationService) failRunQuietly(ctx context.Context, run *domain.AdRun, cause string) {
	if err := run.Fail(cause); err == nil {
		if err := s.repos.Runs.Save(ctx, run); err != nil {
			logger.Ctx(ctx).Error().Str("run_id", run.ID).Err(err).Msg("Could not persist FAILED state")
		}
	}
}

func (s *CreativeApplicationService) releaseLock(ctx context.Context, productID, runID string) {
	if err := s.ports.Locker.Release(ctx, productID, runID); err != nil {
		logger.Ctx(ctx).Warn().
			Str("run_id", runID).
			Str("product_id", productID).
			Err(err).
			Msg("Failed to release run lock")
	}
}

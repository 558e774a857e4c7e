// internal/service/creative/application/pipeline/analyze.go
package pipeline

import (
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/codes"

	"adforge/internal/pkg/logger"
	"adforge/internal/service/creative/domain"
)

// AnalysisHandler runs the reference-ad analysis stage. This stage blocks
// the run: every later stage needs its output, so any failure here is fatal.
type AnalysisHandler struct {
	NextHandler
}

func (h *AnalysisHandler) Handle(rc *RunContext) error {
	ctx, span := rc.Tracer.Start(rc.Ctx, "pipeline.Analyze")
	defer span.End()

	if err := rc.Run.BeginAnalysis(); err != nil {
		return err
	}
	if err := rc.Runs.Save(ctx, rc.Run); err != nil {
		return domain.NewBlockingStageError(domain.StateAnalyzing, errors.Wrap(err, "persist ANALYZING"))
	}

	reference, err := rc.Store.Get(ctx, rc.Run.ReferenceAdPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reference image fetch failed")
		return domain.NewBlockingStageError(domain.StateAnalyzing, errors.Wrap(err, "fetch reference image"))
	}

	analysis, err := rc.Analyzer.Analyze(ctx, reference)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reference analysis failed")
		return domain.NewBlockingStageError(domain.StateAnalyzing, errors.Wrap(err, "analyze reference ad"))
	}
	if err := analysis.Validate(); err != nil {
		span.RecordError(err)
		return domain.NewBlockingStageError(domain.StateAnalyzing, errors.Wrap(err, "analysis payload invalid"))
	}

	if err := rc.Run.CompleteAnalysis(analysis); err != nil {
		return err
	}
	if err := rc.Runs.Save(ctx, rc.Run); err != nil {
		return domain.NewBlockingStageError(domain.StateGenerating, errors.Wrap(err, "persist analysis snapshot"))
	}

	logger.Ctx(ctx).Info().
		Str("run_id", rc.Run.ID).
		Str("format_type", analysis.FormatType).
		Msg("Reference ad analyzed")
	span.AddEvent("analysis snapshot persisted")
	return h.executeNext(rc)
}

// internal/service/creative/application/pipeline/select.go
package pipeline

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"adforge/internal/pkg/logger"
	"adforge/internal/service/creative/domain"
)

// SelectionHandler picks the hooks for this run and requests tone-adapted
// rewrites. It runs inside GENERATING; the selection snapshot is persisted
// before image generation starts.
type SelectionHandler struct {
	NextHandler
}

func (h *SelectionHandler) Handle(rc *RunContext) error {
	ctx, span := rc.Tracer.Start(rc.Ctx, "pipeline.SelectHooks")
	defer span.End()

	pool, err := rc.Hooks.FindActiveByProduct(ctx, rc.Run.ProductID)
	if err != nil {
		return domain.NewBlockingStageError(domain.StateGenerating, errors.Wrap(err, "load hook pool"))
	}

	picked := pickHooks(pool, rc.GenerationCount)
	if len(picked) == 0 {
		logger.Ctx(ctx).Warn().Str("run_id", rc.Run.ID).Msg("No active hooks for product; run will produce nothing")
	}

	selected := make([]domain.SelectedHook, 0, len(picked))
	for _, hook := range picked {
		adapted, err := rc.Adapter.Adapt(ctx, hook.Text, rc.Run.Analysis.DetailedDescription)
		if err != nil {
			// Adaptation is a nicety, not a gate: fall back to the original
			// copy rather than dropping the hook.
			logger.Ctx(ctx).Warn().
				Str("run_id", rc.Run.ID).
				Str("hook_id", hook.ID).
				Err(err).
				Msg("Tone adaptation failed, using original hook text")
			adapted = hook.Text
		}
		selected = append(selected, domain.SelectedHook{
			HookID:      hook.ID,
			Text:        hook.Text,
			Category:    hook.Category,
			Framework:   hook.Framework,
			ImpactScore: hook.ImpactScore,
			Reasoning:   selectionReasoning(hook),
			AdaptedText: adapted,
		})
	}

	images := rc.Ranker.Rank(rc.Product)
	if err := rc.Run.RecordSelection(selected, images); err != nil {
		return err
	}
	if err := rc.Runs.Save(ctx, rc.Run); err != nil {
		return domain.NewBlockingStageError(domain.StateGenerating, errors.Wrap(err, "persist selection snapshot"))
	}

	logger.Ctx(ctx).Info().
		Str("run_id", rc.Run.ID).
		Int("pool_size", len(pool)).
		Int("selected", len(selected)).
		Msg("Hooks selected and adapted")
	return h.executeNext(rc)
}

// pickHooks chooses up to count hooks, maximizing category diversity and
// preferring high-impact copy. A category only repeats once every distinct
// category in the pool is already represented. Ties break by impact score
// descending, then input order, so stubbed tests are deterministic.
func pickHooks(pool []*domain.Hook, count int) []*domain.Hook {
	if count <= 0 || len(pool) == 0 {
		return nil
	}

	type indexed struct {
		hook *domain.Hook
		pos  int
	}
	candidates := make([]indexed, 0, len(pool))
	for i, hook := range pool {
		if hook == nil || !hook.Active {
			continue
		}
		if err := hook.Validate(); err != nil {
			continue
		}
		candidates = append(candidates, indexed{hook: hook, pos: i})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		hi, hj := candidates[i].hook, candidates[j].hook
		highI := hi.ImpactScore >= domain.HighImpactFloor
		highJ := hj.ImpactScore >= domain.HighImpactFloor
		if highI != highJ {
			return highI
		}
		if hi.ImpactScore != hj.ImpactScore {
			return hi.ImpactScore > hj.ImpactScore
		}
		return candidates[i].pos < candidates[j].pos
	})

	selected := make([]*domain.Hook, 0, count)
	taken := make([]bool, len(candidates))
	categoryUse := map[domain.HookCategory]int{}

	// Round r only admits a category already used r times, so categories
	// repeat only once the pool runs out of fresh ones.
	for round := 0; len(selected) < count; round++ {
		progressed := false
		for i, c := range candidates {
			if taken[i] || categoryUse[c.hook.Category] != round {
				continue
			}
			taken[i] = true
			categoryUse[c.hook.Category]++
			selected = append(selected, c.hook)
			progressed = true
			if len(selected) == count {
				return selected
			}
		}
		if !progressed {
			break
		}
	}
	return selected
}

func selectionReasoning(hook *domain.Hook) string {
	impact := "solid"
	if hook.ImpactScore >= domain.HighImpactFloor {
		impact = "high"
	}
	return fmt.Sprintf("%s angle with %s impact (%d/%d)", hook.Category, impact, hook.ImpactScore, domain.MaxImpactScore)
}

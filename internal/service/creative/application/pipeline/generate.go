// internal/service/creative/application/pipeline/generate.go
package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"adforge/internal/pkg/logger"
	"adforge/internal/service/creative/domain"
)

// promptSpec is the structured snapshot of everything a generation prompt
// was built from. It is persisted verbatim on the GeneratedAd row so the
// output stays auditable.
type promptSpec struct {
	FormatType      string   `json:"format_type"`
	LayoutStructure string   `json:"layout_structure"`
	TextPlacement   string   `json:"text_placement"`
	ColorPalette    []string `json:"color_palette"`
	CanvasSize      string   `json:"canvas_size"`
	AdaptedHook     string   `json:"adapted_hook"`
	ProductImage    string   `json:"product_image"`
	StyleNotes      string   `json:"style_notes"`
}

// GenerationHandler produces one image per selected hook, strictly
// sequentially. Each success is persisted (object storage, then row) before
// the next item starts; each failure is logged and skipped. Zero successes
// is still a valid outcome; the run proceeds to review regardless.
type GenerationHandler struct {
	NextHandler
}

func (h *GenerationHandler) Handle(rc *RunContext) error {
	ctx, span := rc.Tracer.Start(rc.Ctx, "pipeline.Generate")
	defer span.End()

	images := rc.Run.SelectedImages
	for i, hook := range rc.Run.SelectedHooks {
		index := i + 1
		if err := h.generateOne(rc, index, hook, images); err != nil {
			itemErr := &domain.GenerationItemError{Index: index, HookID: hook.HookID, Cause: err}
			logger.Ctx(ctx).Warn().
				Str("run_id", rc.Run.ID).
				Int("index", index).
				Str("hook_id", hook.HookID).
				Err(err).
				Msg("Generation item failed, continuing with next hook")
			span.AddEvent("generation item skipped", withItemAttrs(index, itemErr))
			continue
		}
	}

	span.SetAttributes(
		attribute.Int("run.selected", len(rc.Run.SelectedHooks)),
		attribute.Int("run.generated", len(rc.Generated)),
	)
	logger.Ctx(ctx).Info().
		Str("run_id", rc.Run.ID).
		Int("generated", len(rc.Generated)).
		Int("requested", len(rc.Run.SelectedHooks)).
		Msg("Generation stage finished")
	return h.executeNext(rc)
}

func (h *GenerationHandler) generateOne(rc *RunContext, index int, hook domain.SelectedHook, images []string) error {
	ctx, span := rc.Tracer.Start(rc.Ctx, fmt.Sprintf("pipeline.GenerateItem#%d", index))
	defer span.End()

	spec := buildPromptSpec(rc.Run.Analysis, hook, pickProductImage(images, index))
	promptText := renderPrompt(spec)
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return errors.Wrap(err, "marshal prompt spec")
	}

	refs, err := h.loadReferenceImages(rc, spec.ProductImage)
	if err != nil {
		return err
	}

	imageBytes, err := rc.Generator.Generate(ctx, promptText, refs)
	if err != nil {
		return errors.Wrap(err, "generate image")
	}

	// Persist immediately: a later failure must not cost us this item.
	path := fmt.Sprintf("runs/%s/generated/%d.png", rc.Run.ID, index)
	storedPath, err := rc.Store.Put(ctx, path, imageBytes)
	if err != nil {
		return errors.Wrap(err, "store generated image")
	}

	ad := &domain.GeneratedAd{
		ID:          uuid.New().String(),
		AdRunID:     rc.Run.ID,
		Index:       index,
		PromptText:  promptText,
		PromptSpec:  string(specJSON),
		HookRef:     hook.HookID,
		StoragePath: storedPath,
		FinalStatus: domain.FinalPending,
		CreatedAt:   time.Now(),
	}
	if err := rc.Ads.Insert(ctx, ad); err != nil {
		return errors.Wrap(err, "insert generated ad row")
	}

	rc.Generated = append(rc.Generated, ad)
	return nil
}

// loadReferenceImages fetches the product image plus the reference ad for
// the generation call. The product image is optional input; the reference
// ad always rides along so the model sees the layout it is cloning.
func (h *GenerationHandler) loadReferenceImages(rc *RunContext, productImage string) ([][]byte, error) {
	refs := make([][]byte, 0, 2)
	if productImage != "" {
		data, err := rc.Store.Get(rc.Ctx, productImage)
		if err != nil {
			return nil, errors.Wrapf(err, "fetch product image %s", productImage)
		}
		refs = append(refs, data)
	}
	reference, err := rc.Store.Get(rc.Ctx, rc.Run.ReferenceAdPath)
	if err != nil {
		return nil, errors.Wrap(err, "fetch reference ad")
	}
	return append(refs, reference), nil
}

// pickProductImage cycles through the ranked images so variants don't all
// reuse one photo; the main image always backs the first item.
func pickProductImage(images []string, index int) string {
	if len(images) == 0 {
		return ""
	}
	return images[(index-1)%len(images)]
}

func buildPromptSpec(analysis *domain.AdAnalysis, hook domain.SelectedHook, productImage string) promptSpec {
	return promptSpec{
		FormatType:      analysis.FormatType,
		LayoutStructure: analysis.LayoutStructure,
		TextPlacement:   analysis.TextPlacement,
		ColorPalette:    analysis.ColorPalette,
		CanvasSize:      analysis.CanvasSize,
		AdaptedHook:     hook.AdaptedText,
		ProductImage:    productImage,
		StyleNotes:      analysis.DetailedDescription,
	}
}

func renderPrompt(spec promptSpec) string {
	var sb strings.Builder
	sb.WriteString("Recreate the reference ad's layout with new copy.\n")
	fmt.Fprintf(&sb, "Format: %s. Layout: %s.\n", spec.FormatType, spec.LayoutStructure)
	if spec.TextPlacement != "" {
		fmt.Fprintf(&sb, "Place the text: %s.\n", spec.TextPlacement)
	}
	if len(spec.ColorPalette) > 0 {
		fmt.Fprintf(&sb, "Palette: %s.\n", strings.Join(spec.ColorPalette, ", "))
	}
	if spec.CanvasSize != "" {
		fmt.Fprintf(&sb, "Canvas: %s.\n", spec.CanvasSize)
	}
	fmt.Fprintf(&sb, "Headline copy (verbatim): %q\n", spec.AdaptedHook)
	if spec.StyleNotes != "" {
		fmt.Fprintf(&sb, "Style notes: %s\n", spec.StyleNotes)
	}
	sb.WriteString("Show the attached product exactly as photographed.")
	return sb.String()
}

func withItemAttrs(index int, err error) trace.EventOption {
	return trace.WithAttributes(
		attribute.Int("item.index", index),
		attribute.String("item.error", err.Error()),
	)
}

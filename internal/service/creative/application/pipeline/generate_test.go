package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"adforge/internal/service/creative/domain"
)

func fivePool() []*domain.Hook {
	return hookPool(
		[]domain.HookCategory{domain.CategoryUrgency, domain.CategoryFear, domain.CategoryCuriosity, domain.CategorySocialProof, domain.CategoryAuthority},
		[]int{15, 16, 17, 18, 19},
	)
}

func runSelection(t *testing.T, rc *RunContext) {
	t.Helper()
	advanceToGenerating(t, rc.Run)
	if err := new(SelectionHandler).Handle(rc); err != nil {
		t.Fatalf("selection: %v", err)
	}
}

func TestGenerationHandlerPersistsEveryItemImmediately(t *testing.T) {
	rc, _, ads, store := newRunContext(fivePool(), 5)
	runSelection(t, rc)

	if err := new(GenerationHandler).Handle(rc); err != nil {
		t.Fatalf("GenerationHandler: %v", err)
	}

	if len(ads.inserted) != 5 {
		t.Fatalf("inserted %d rows, want 5", len(ads.inserted))
	}
	for i, ad := range ads.inserted {
		if ad.Index != i+1 {
			t.Fatalf("row %d has index %d", i, ad.Index)
		}
		if _, err := store.Get(rc.Ctx, ad.StoragePath); err != nil {
			t.Fatalf("image for row %d missing from storage: %v", i+1, err)
		}
		if ad.FinalStatus != domain.FinalPending {
			t.Fatalf("fresh row %d already has final status %s", i+1, ad.FinalStatus)
		}
		var spec struct {
			AdaptedHook  string `json:"adapted_hook"`
			ProductImage string `json:"product_image"`
		}
		if err := json.Unmarshal([]byte(ad.PromptSpec), &spec); err != nil {
			t.Fatalf("row %d prompt spec not JSON: %v", i+1, err)
		}
		if !strings.HasPrefix(spec.AdaptedHook, "adapted: ") {
			t.Fatalf("row %d prompt spec lost the adapted hook: %q", i+1, spec.AdaptedHook)
		}
	}
	// Main image backs the first item.
	if got := ads.inserted[0].PromptSpec; !strings.Contains(got, "products/prod-1/main.png") {
		t.Fatalf("first item not built on the main image: %s", got)
	}
}

func TestGenerationHandlerSkipsFailedItemAndContinues(t *testing.T) {
	rc, _, ads, _ := newRunContext(fivePool(), 5)
	runSelection(t, rc)
	rc.Generator = &fakeGenerator{failOn: map[int]error{3: errors.New("backend 500")}}

	if err := new(GenerationHandler).Handle(rc); err != nil {
		t.Fatalf("one bad item must not abort the stage: %v", err)
	}

	if len(ads.inserted) != 4 {
		t.Fatalf("inserted %d rows, want 4 (items 1,2,4,5)", len(ads.inserted))
	}
	gotIdx := map[int]bool{}
	for _, ad := range ads.inserted {
		gotIdx[ad.Index] = true
	}
	for _, want := range []int{1, 2, 4, 5} {
		if !gotIdx[want] {
			t.Fatalf("item %d missing from persisted rows: %v", want, gotIdx)
		}
	}
	if gotIdx[3] {
		t.Fatal("failed item 3 was persisted")
	}
}

func TestGenerationHandlerAllFailuresYieldsEmptyButAliveRun(t *testing.T) {
	rc, _, ads, _ := newRunContext(fivePool(), 5)
	runSelection(t, rc)
	rc.Generator = &fakeGenerator{failAll: errors.New("backend down")}

	if err := new(GenerationHandler).Handle(rc); err != nil {
		t.Fatalf("total generation failure must still be non-fatal: %v", err)
	}
	if len(ads.inserted) != 0 {
		t.Fatalf("expected 0 rows, got %d", len(ads.inserted))
	}
	if len(rc.Generated) != 0 {
		t.Fatalf("context accumulated %d ads", len(rc.Generated))
	}
}

func TestPickProductImageCyclesDeterministically(t *testing.T) {
	images := []string{"main.png", "a.png", "b.png"}
	want := []string{"main.png", "a.png", "b.png", "main.png", "a.png"}
	for i, w := range want {
		if got := pickProductImage(images, i+1); got != w {
			t.Fatalf("item %d image = %s, want %s", i+1, got, w)
		}
	}
	if got := pickProductImage(nil, 1); got != "" {
		t.Fatalf("no images should yield empty path, got %q", got)
	}
}

func TestRenderPromptCarriesHookVerbatim(t *testing.T) {
	spec := buildPromptSpec(testAnalysis(), domain.SelectedHook{AdaptedText: "Act now, stock is melting"}, "p.png")
	prompt := renderPrompt(spec)
	if !strings.Contains(prompt, fmt.Sprintf("%q", "Act now, stock is melting")) {
		t.Fatalf("prompt lost the adapted hook: %s", prompt)
	}
	if !strings.Contains(prompt, "1080x1080") {
		t.Fatalf("prompt lost the canvas size: %s", prompt)
	}
}

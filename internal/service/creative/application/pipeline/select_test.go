package pipeline

import (
	"errors"
	"testing"

	"adforge/internal/service/creative/domain"
)

func TestPickHooksNoDuplicateCategoriesWithDiversePool(t *testing.T) {
	pool := hookPool(
		[]domain.HookCategory{
			domain.CategoryUrgency, domain.CategoryFear, domain.CategoryCuriosity,
			domain.CategorySocialProof, domain.CategoryAuthority, domain.CategoryUrgency,
			domain.CategoryFear, domain.CategoryAspiration, domain.CategoryReciprocity,
			domain.CategoryLossAversion,
		},
		[]int{5, 18, 21, 16, 9, 20, 7, 15, 12, 17},
	)

	picked := pickHooks(pool, 5)
	if len(picked) != 5 {
		t.Fatalf("picked %d hooks, want 5", len(picked))
	}
	seen := map[domain.HookCategory]bool{}
	for _, h := range picked {
		if seen[h.Category] {
			t.Fatalf("category %s repeated in %v", h.Category, picked)
		}
		seen[h.Category] = true
	}
}

func TestPickHooksPrefersHighImpact(t *testing.T) {
	pool := hookPool(
		[]domain.HookCategory{domain.CategoryUrgency, domain.CategoryFear, domain.CategoryCuriosity, domain.CategorySocialProof},
		[]int{3, 21, 14, 16},
	)
	picked := pickHooks(pool, 2)
	if len(picked) != 2 {
		t.Fatalf("picked %d, want 2", len(picked))
	}
	if picked[0].ImpactScore != 21 || picked[1].ImpactScore != 16 {
		t.Fatalf("expected impact 21 then 16, got %d then %d", picked[0].ImpactScore, picked[1].ImpactScore)
	}
}

func TestPickHooksReusesCategoriesWhenPoolIsNarrow(t *testing.T) {
	pool := hookPool(
		[]domain.HookCategory{domain.CategoryUrgency, domain.CategoryUrgency, domain.CategoryFear, domain.CategoryFear, domain.CategoryUrgency},
		[]int{10, 12, 14, 8, 16},
	)
	picked := pickHooks(pool, 5)
	if len(picked) != 5 {
		t.Fatalf("narrow pool must still fill the request, got %d", len(picked))
	}
	// First two picks cover both categories before any repeats.
	if picked[0].Category == picked[1].Category {
		t.Fatalf("first two picks share category %s", picked[0].Category)
	}
}

func TestPickHooksSmallPoolReturnsAllAvailable(t *testing.T) {
	pool := hookPool(
		[]domain.HookCategory{domain.CategoryUrgency, domain.CategoryFear},
		[]int{10, 12},
	)
	picked := pickHooks(pool, 5)
	if len(picked) != 2 {
		t.Fatalf("expected the whole pool, got %d", len(picked))
	}
}

func TestPickHooksTieBreaksByInputOrder(t *testing.T) {
	pool := hookPool(
		[]domain.HookCategory{domain.CategoryUrgency, domain.CategoryFear, domain.CategoryCuriosity},
		[]int{18, 18, 18},
	)
	picked := pickHooks(pool, 3)
	for i, want := range []string{"h1", "h2", "h3"} {
		if picked[i].ID != want {
			t.Fatalf("pick %d = %s, want %s (input order)", i, picked[i].ID, want)
		}
	}
}

func TestPickHooksSkipsInactiveHooks(t *testing.T) {
	pool := hookPool(
		[]domain.HookCategory{domain.CategoryUrgency, domain.CategoryFear},
		[]int{20, 10},
	)
	pool[0].Active = false
	picked := pickHooks(pool, 2)
	if len(picked) != 1 || picked[0].ID != "h2" {
		t.Fatalf("inactive hook leaked into selection: %v", picked)
	}
}

func TestSelectionHandlerSnapshotsHooksAndImages(t *testing.T) {
	pool := hookPool(
		[]domain.HookCategory{domain.CategoryUrgency, domain.CategoryFear, domain.CategoryCuriosity, domain.CategorySocialProof, domain.CategoryAuthority},
		[]int{15, 16, 17, 18, 19},
	)
	rc, runs, _, _ := newRunContext(pool, 5)
	advanceToGenerating(t, rc.Run)

	h := new(SelectionHandler)
	if err := h.Handle(rc); err != nil {
		t.Fatalf("SelectionHandler: %v", err)
	}

	if len(rc.Run.SelectedHooks) != 5 {
		t.Fatalf("snapshot has %d hooks, want 5", len(rc.Run.SelectedHooks))
	}
	for _, sh := range rc.Run.SelectedHooks {
		if sh.AdaptedText != "adapted: "+sh.Text {
			t.Fatalf("hook %s missing adaptation: %q", sh.HookID, sh.AdaptedText)
		}
		if sh.Reasoning == "" {
			t.Fatalf("hook %s missing reasoning", sh.HookID)
		}
	}
	if len(rc.Run.SelectedImages) == 0 || rc.Run.SelectedImages[0] != "products/prod-1/main.png" {
		t.Fatalf("main image not ranked first: %v", rc.Run.SelectedImages)
	}
	if len(runs.saves) == 0 {
		t.Fatal("selection snapshot never persisted")
	}
}

func TestSelectionHandlerFallsBackOnAdaptationFailure(t *testing.T) {
	pool := hookPool([]domain.HookCategory{domain.CategoryUrgency}, []int{18})
	rc, _, _, _ := newRunContext(pool, 1)
	advanceToGenerating(t, rc.Run)
	rc.Adapter = &fakeAdapter{err: errors.New("model unavailable")}

	h := new(SelectionHandler)
	if err := h.Handle(rc); err != nil {
		t.Fatalf("adaptation failure must not abort selection: %v", err)
	}
	if got := rc.Run.SelectedHooks[0].AdaptedText; got != "hook 1" {
		t.Fatalf("expected original text fallback, got %q", got)
	}
}

func advanceToGenerating(t *testing.T, run *domain.AdRun) {
	t.Helper()
	if err := run.BeginAnalysis(); err != nil {
		t.Fatal(err)
	}
	if err := run.CompleteAnalysis(testAnalysis()); err != nil {
		t.Fatal(err)
	}
}

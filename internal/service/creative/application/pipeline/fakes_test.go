package pipeline

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"

	"adforge/internal/service/creative/domain"
)

// In-memory fakes for the outbound ports and repositories. They are shared
// by the stage tests in this package.

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (s *fakeStore) Put(_ context.Context, path string, data []byte) (string, error) {
	if s.putErr != nil {
		return "", s.putErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = data
	return path, nil
}

func (s *fakeStore) Get(_ context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[path]
	if !ok {
		return nil, fmt.Errorf("object %s not found", path)
	}
	return data, nil
}

type fakeRunsRepo struct {
	mu    sync.Mutex
	runs  map[string]*domain.AdRun
	saves []domain.State
}

func newFakeRunsRepo() *fakeRunsRepo {
	return &fakeRunsRepo{runs: map[string]*domain.AdRun{}}
}

func (r *fakeRunsRepo) Create(_ context.Context, run *domain.AdRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = run
	return nil
}

func (r *fakeRunsRepo) Save(_ context.Context, run *domain.AdRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = run
	r.saves = append(r.saves, run.State)
	return nil
}

func (r *fakeRunsRepo) FindByID(_ context.Context, id string) (*domain.AdRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return run, nil
}

type fakeAdsRepo struct {
	mu       sync.Mutex
	inserted []*domain.GeneratedAd
	reviewed map[string][2]*domain.ReviewResult
}

func newFakeAdsRepo() *fakeAdsRepo {
	return &fakeAdsRepo{reviewed: map[string][2]*domain.ReviewResult{}}
}

func (r *fakeAdsRepo) Insert(_ context.Context, ad *domain.GeneratedAd) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserted = append(r.inserted, ad)
	return nil
}

func (r *fakeAdsRepo) SaveReviews(_ context.Context, ad *domain.GeneratedAd) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, done := r.reviewed[ad.ID]; done {
		return fmt.Errorf("reviews for %s already stored", ad.ID)
	}
	r.reviewed[ad.ID] = [2]*domain.ReviewResult{ad.ReviewA, ad.ReviewB}
	return nil
}

func (r *fakeAdsRepo) FindByRun(_ context.Context, runID string) ([]*domain.GeneratedAd, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.GeneratedAd
	for _, ad := range r.inserted {
		if ad.AdRunID == runID {
			out = append(out, ad)
		}
	}
	return out, nil
}

type fakeHooksRepo struct {
	hooks []*domain.Hook
}

func (r *fakeHooksRepo) FindActiveByProduct(_ context.Context, _ string) ([]*domain.Hook, error) {
	var active []*domain.Hook
	for _, h := range r.hooks {
		if h.Active {
			active = append(active, h)
		}
	}
	return active, nil
}

func (r *fakeHooksRepo) Retire(_ context.Context, _ string) error { return nil }

type fakeAnalyzer struct {
	analysis *domain.AdAnalysis
	err      error
	calls    int
}

func (a *fakeAnalyzer) Analyze(_ context.Context, _ []byte) (*domain.AdAnalysis, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return a.analysis, nil
}

type fakeAdapter struct {
	err error
}

func (a *fakeAdapter) Adapt(_ context.Context, hookText, _ string) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	return "adapted: " + hookText, nil
}

type fakeGenerator struct {
	mu      sync.Mutex
	calls   int
	failOn  map[int]error // 1-based call index -> error
	failAll error
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string, _ [][]byte) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.failAll != nil {
		return nil, g.failAll
	}
	if err, ok := g.failOn[g.calls]; ok {
		return nil, err
	}
	return []byte("png:" + prompt[:min(16, len(prompt))]), nil
}

type fakeReviewer struct {
	id      string
	results []*domain.ReviewResult // consumed in order; last repeats
	err     error
	calls   int
}

func (r *fakeReviewer) ID() string { return r.id }

func (r *fakeReviewer) Review(_ context.Context, _ []byte, _ string) (*domain.ReviewResult, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	idx := r.calls - 1
	if idx >= len(r.results) {
		idx = len(r.results) - 1
	}
	src := r.results[idx]
	// Return a copy: every invocation yields a fresh ReviewResult.
	cp := *src
	cp.ReviewerID = r.id
	return &cp, nil
}

// thresholdRule mirrors the default 0.8/0.8 accuracy gate.
type thresholdRule struct{}

func (thresholdRule) Passes(review *domain.ReviewResult) (bool, error) {
	return review.ProductAccuracy >= 0.8 && review.TextAccuracy >= 0.8, nil
}

type orderRanker struct{}

func (orderRanker) Rank(p *domain.Product) []string { return p.OrderedImagePaths() }

// newRunContext assembles a RunContext in GENERATING-ready shape with the
// given pool, analysis already applied.
func newRunContext(hooks []*domain.Hook, count int) (*RunContext, *fakeRunsRepo, *fakeAdsRepo, *fakeStore) {
	run, _ := domain.NewAdRun("run-1", "prod-1", "runs/run-1/reference.png")
	store := newFakeStore()
	store.objects["runs/run-1/reference.png"] = []byte("reference-bytes")
	store.objects["products/prod-1/main.png"] = []byte("main-bytes")
	store.objects["products/prod-1/alt.png"] = []byte("alt-bytes")

	runs := newFakeRunsRepo()
	ads := newFakeAdsRepo()

	rc := &RunContext{
		Ctx:             context.Background(),
		Run:             run,
		Product:         testProduct(),
		Tracer:          otel.Tracer("pipeline-test"),
		GenerationCount: count,
		Analyzer:        &fakeAnalyzer{analysis: testAnalysis()},
		Adapter:         &fakeAdapter{},
		Generator:       &fakeGenerator{},
		ReviewerA:       approvingReviewer("reviewer-a"),
		ReviewerB:       approvingReviewer("reviewer-b"),
		Rule:            thresholdRule{},
		Ranker:          orderRanker{},
		Store:           store,
		Runs:            runs,
		Ads:             ads,
		Hooks:           &fakeHooksRepo{hooks: hooks},
	}
	return rc, runs, ads, store
}

func testAnalysis() *domain.AdAnalysis {
	return &domain.AdAnalysis{
		FormatType:          "ugc_photo",
		LayoutStructure:     "headline top, product center",
		TextPlacement:       "top third",
		ColorPalette:        []string{"#FFFFFF", "#FF4400"},
		CanvasSize:          "1080x1080",
		DetailedDescription: "casual handheld photo with bold overlay text",
	}
}

func testProduct() *domain.Product {
	return &domain.Product{
		ID: "prod-1",
		Images: []domain.ProductImage{
			{Path: "products/prod-1/alt.png", Position: 0},
			{Path: "products/prod-1/main.png", IsMain: true, Position: 1},
		},
	}
}

func approvingReviewer(id string) *fakeReviewer {
	return &fakeReviewer{id: id, results: []*domain.ReviewResult{{
		ProductAccuracy: 0.9,
		TextAccuracy:    0.9,
		LayoutAccuracy:  0.85,
		OverallQuality:  0.9,
		Status:          domain.ReviewApproved,
	}}}
}

func hookPool(categories []domain.HookCategory, scores []int) []*domain.Hook {
	hooks := make([]*domain.Hook, len(categories))
	for i, cat := range categories {
		hooks[i] = &domain.Hook{
			ID:          fmt.Sprintf("h%d", i+1),
			ProductID:   "prod-1",
			Text:        fmt.Sprintf("hook %d", i+1),
			Category:    cat,
			ImpactScore: scores[i],
			Active:      true,
		}
	}
	return hooks
}

package aiclient

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
)

// fakeClock advances instantly instead of sleeping, while recording how far
// time has moved.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.now = c.now.Add(d)
	}
	return nil
}

func newTestClient(cfg Config, clock Clock, opts ...Option) *Client {
	tracer := otel.Tracer("aiclient-test")
	opts = append([]Option{WithClock(clock)}, opts...)
	return New(cfg, tracer, opts...)
}

func TestDoPacingNeverDispatchesCloserThanInterval(t *testing.T) {
	clock := newFakeClock()
	client := newTestClient(Config{RequestsPerMinute: 6}, clock) // 10s interval

	var stamps []time.Time
	for i := 0; i < 5; i++ {
		err := client.Do(context.Background(), "generate", func(ctx context.Context) error {
			stamps = append(stamps, clock.Now())
			return nil
		})
		if err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
	}

	if len(stamps) != 5 {
		t.Fatalf("expected 5 dispatches, got %d", len(stamps))
	}
	for i := 1; i < len(stamps); i++ {
		gap := stamps[i].Sub(stamps[i-1])
		if gap < 10*time.Second {
			t.Fatalf("dispatch %d only %v after previous, want >= 10s", i, gap)
		}
	}
}

func TestDoConcurrentCallersShareOneClock(t *testing.T) {
	clock := newFakeClock()
	client := newTestClient(Config{RequestsPerMinute: 12}, clock) // 5s interval

	start := clock.Now()
	var calls int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = client.Do(context.Background(), "review", func(ctx context.Context) error {
				mu.Lock()
				calls++
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	if calls != 8 {
		t.Fatalf("expected 8 dispatches, got %d", calls)
	}
	// The 8th slot is 7 intervals after the first, so the shared clock must
	// have advanced at least that far no matter how goroutines interleave.
	if elapsed := clock.Now().Sub(start); elapsed < 7*5*time.Second {
		t.Fatalf("8 concurrent calls advanced the clock only %v, want >= 35s", elapsed)
	}
}

func TestDoRetriesQuotaErrorsThenSucceeds(t *testing.T) {
	clock := newFakeClock()
	quotaErr := errors.New("429 too many requests")
	classify := func(err error) (time.Duration, bool) {
		if errors.Is(err, quotaErr) {
			return 7 * time.Second, true
		}
		return 0, false
	}
	client := newTestClient(Config{RequestsPerMinute: 60, MaxRetries: 3}, clock, WithClassifier(classify))

	attempts := 0
	err := client.Do(context.Background(), "analyze", func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return quotaErr
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestDoExhaustedRetriesReturnsRateLimitExceeded(t *testing.T) {
	clock := newFakeClock()
	quotaErr := errors.New("quota exceeded")
	classify := func(err error) (time.Duration, bool) { return 0, true }
	client := newTestClient(Config{RequestsPerMinute: 60, MaxRetries: 2, DefaultBackoff: 3 * time.Second}, clock, WithClassifier(classify))

	attempts := 0
	err := client.Do(context.Background(), "generate", func(ctx context.Context) error {
		attempts++
		return quotaErr
	})
	if !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("expected ErrRateLimitExceeded, got %v", err)
	}
	if attempts != 3 { // initial + 2 retries
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestDoNonQuotaErrorIsNotRetried(t *testing.T) {
	clock := newFakeClock()
	client := newTestClient(Config{RequestsPerMinute: 60, MaxRetries: 3}, clock)

	boom := errors.New("model returned garbage")
	attempts := 0
	err := client.Do(context.Background(), "adapt", func(ctx context.Context) error {
		attempts++
		return boom
	})
	if err == nil || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped original error, got %v", err)
	}
	if errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("non-quota error must not surface as rate limit: %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected exactly 1 attempt, got %d", attempts)
	}
}

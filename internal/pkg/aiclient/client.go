// internal/pkg/aiclient/client.go
package aiclient

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"adforge/internal/pkg/logger"
)

// ErrRateLimitExceeded is returned once a quota error has survived every
// retry. Callers decide whether that is fatal for their stage.
var ErrRateLimitExceeded = errors.New("ai client: rate limit exceeded after retries")

// Classifier inspects an error from the backend. When the error is a quota
// error it returns (suggestedBackoff, true); suggestedBackoff may be zero if
// the backend gave no hint.
type Classifier func(err error) (time.Duration, bool)

// Clock abstracts time so pacing can be unit-tested without real sleeps.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the
	// latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Config carries the pacing and retry policy.
type Config struct {
	RequestsPerMinute float64
	MaxRetries        int
	DefaultBackoff    time.Duration
	CallTimeout       time.Duration
}

// Client serializes every external model call behind one shared pacing clock
// and retries quota errors with backoff. One Client instance must be shared
// by every component talking to the same backend: the pacing guarantee is
// global across concurrent runs, not per caller.
type Client struct {
	cfg      Config
	clock    Clock
	classify Classifier
	tracer   trace.Tracer

	mu       sync.Mutex
	nextSlot time.Time
}

type Option func(*Client)

// WithClock injects a fake clock for tests.
func WithClock(clock Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// WithClassifier installs the backend-specific quota-error detector.
func WithClassifier(classify Classifier) Option {
	return func(c *Client) { c.classify = classify }
}

func New(cfg Config, tracer trace.Tracer, opts ...Option) *Client {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 9
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.DefaultBackoff <= 0 {
		cfg.DefaultBackoff = 45 * time.Second
	}
	c := &Client{
		cfg:      cfg,
		clock:    realClock{},
		classify: func(error) (time.Duration, bool) { return 0, false },
		tracer:   tracer,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// interval is the minimum spacing between two dispatches.
func (c *Client) interval() time.Duration {
	return time.Duration(float64(time.Minute) / c.cfg.RequestsPerMinute)
}

// reserveSlot claims the next dispatch slot and advances the shared clock.
// Only the read-and-advance is inside the lock; the wait happens outside so
// other callers can queue up behind us.
func (c *Client) reserveSlot() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now()
	if c.nextSlot.Before(now) {
		c.nextSlot = now
	}
	slot := c.nextSlot
	c.nextSlot = slot.Add(c.interval())
	return slot
}

// Do runs one external call under the pacing clock. Quota errors are retried
// up to MaxRetries with the backend-suggested delay (or DefaultBackoff);
// every other error aborts immediately, wrapped with the operation name.
func (c *Client) Do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	ctx, span := c.tracer.Start(ctx, "aiclient."+operation, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("ai.operation", operation))

	for attempt := 0; ; attempt++ {
		slot := c.reserveSlot()
		wait := slot.Sub(c.clock.Now())
		if wait > 0 {
			paceWaitSeconds.WithLabelValues(operation).Add(wait.Seconds())
			if err := c.clock.Sleep(ctx, wait); err != nil {
				return errors.Wrapf(err, "ai client: %s cancelled while pacing", operation)
			}
		}

		err := c.invoke(ctx, operation, fn)
		if err == nil {
			callsTotal.WithLabelValues(operation, "ok").Inc()
			return nil
		}

		backoff, quota := c.classify(err)
		if !quota {
			callsTotal.WithLabelValues(operation, "error").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return errors.Wrapf(err, "ai client: %s failed", operation)
		}

		if attempt >= c.cfg.MaxRetries {
			callsTotal.WithLabelValues(operation, "rate_limited").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, "rate limit retries exhausted")
			return errors.Wrapf(ErrRateLimitExceeded, "operation %s: %v", operation, err)
		}

		if backoff <= 0 {
			backoff = c.cfg.DefaultBackoff
		}
		retriesTotal.WithLabelValues(operation).Inc()
		logger.Ctx(ctx).Warn().
			Str("operation", operation).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Msg("Quota exceeded, backing off before retry")
		span.AddEvent("quota backoff", trace.WithAttributes(
			attribute.Int("attempt", attempt+1),
			attribute.Int64("backoff_ms", backoff.Milliseconds()),
		))
		if err := c.clock.Sleep(ctx, backoff); err != nil {
			return errors.Wrapf(err, "ai client: %s cancelled during backoff", operation)
		}
	}
}

// invoke runs fn with the per-call timeout applied.
func (c *Client) invoke(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	callCtx := ctx
	if c.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.cfg.CallTimeout)
		defer cancel()
	}
	start := c.clock.Now()
	err := fn(callCtx)
	callDuration.WithLabelValues(operation).Observe(c.clock.Now().Sub(start).Seconds())
	return err
}

// internal/service/creative/interfaces/run_requested_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"

	"adforge/internal/pkg/logger"
	"adforge/internal/pkg/mq"
	"adforge/internal/service/creative/domain"
)

// messageSource is the slice of *kafka.Reader the consumer loop needs,
// narrowed so tests can drive the loop without a broker.
type messageSource interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Config() kafka.ReaderConfig
	Close() error
}

type runHandler interface {
	HandleAdRunRequested(ctx context.Context, event *domain.AdRunRequested) error
}

// RunRequestedConsumer drives the pipeline from the run-requested topic. One
// message is one full run, so the loop processes strictly one at a time: the
// shared model quota makes concurrent runs pointless.
type RunRequestedConsumer struct {
	reader  messageSource
	service runHandler
	wg      sync.WaitGroup
	stopped atomic.Bool
}

func NewRunRequestedConsumer(reader messageSource, service runHandler) *RunRequestedConsumer {
	return &RunRequestedConsumer{reader: reader, service: service}
}

// Start begins the fetch loop. It returns immediately; the loop runs until
// Stop or context cancellation.
func (c *RunRequestedConsumer) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		logger.Ctx(ctx).Info().Str("topic", c.reader.Config().Topic).Msg("Run request consumer started")
		for {
			if c.stopped.Load() {
				return
			}
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || c.stopped.Load() {
					logger.Ctx(ctx).Info().Msg("Run request consumer shutting down")
					return
				}
				logger.Ctx(ctx).Error().Err(err).Msg("Fetch failed, retrying")
				time.Sleep(time.Second)
				continue
			}

			carrier := mq.KafkaHeaderCarrier(msg.Headers)
			msgCtx := otel.GetTextMapPropagator().Extract(ctx, &carrier)

			if err := c.processMessage(msgCtx, msg); err != nil {
				// The run outcome is already on the run row; a redelivery
				// would hit the terminal-state guard. Log and move on.
				logger.Ctx(msgCtx).Error().Err(err).Msg("Run request processing failed")
			}
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				logger.Ctx(ctx).Error().Err(err).Msg("Failed to commit offset")
			}
		}
	}()
}

// Stop drains the loop and closes the reader.
func (c *RunRequestedConsumer) Stop(ctx context.Context) {
	c.stopped.Store(true)
	c.reader.Close()
	c.wg.Wait()
	logger.Ctx(ctx).Info().Msg("Run request consumer stopped")
}

func (c *RunRequestedConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event domain.AdRunRequested
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return err
	}
	return c.service.HandleAdRunRequested(ctx, &event)
}

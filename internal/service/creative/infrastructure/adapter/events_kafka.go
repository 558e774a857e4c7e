// internal/service/creative/infrastructure/adapter/events_kafka.go
package adapter

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"adforge/internal/pkg/mq"
	"adforge/internal/service/creative/domain"
)

const (
	// TopicRunRequested carries intake commands to the pipeline consumer.
	TopicRunRequested = "ad_run_requested"
	// TopicRunLifecycle carries terminal outcomes for downstream consumers.
	TopicRunLifecycle = "ad_run_lifecycle"
)

// KafkaRunRequestProducer implements port.RunRequestProducer. Messages are
// keyed by product id so all runs for one product land on one partition, in
// order.
type KafkaRunRequestProducer struct {
	writer *kafka.Writer
}

func NewKafkaRunRequestProducer(writer *kafka.Writer) *KafkaRunRequestProducer {
	return &KafkaRunRequestProducer{writer: writer}
}

func (p *KafkaRunRequestProducer) Produce(ctx context.Context, event *domain.AdRunRequested) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal run request")
	}
	return mq.ProduceMessage(ctx, p.writer, []byte(event.ProductID), payload)
}

func (p *KafkaRunRequestProducer) Close() error {
	return p.writer.Close()
}

// KafkaLifecyclePublisher implements port.LifecyclePublisher on a single
// lifecycle topic; consumers dispatch on the event_type header.
type KafkaLifecyclePublisher struct {
	writer *kafka.Writer
}

func NewKafkaLifecyclePublisher(writer *kafka.Writer) *KafkaLifecyclePublisher {
	return &KafkaLifecyclePublisher{writer: writer}
}

func (p *KafkaLifecyclePublisher) PublishCompleted(ctx context.Context, event *domain.AdRunCompleted) error {
	return p.publish(ctx, "ad_run_completed", event.RunID, event)
}

func (p *KafkaLifecyclePublisher) PublishFailed(ctx context.Context, event *domain.AdRunFailed) error {
	return p.publish(ctx, "ad_run_failed", event.RunID, event)
}

func (p *KafkaLifecyclePublisher) publish(ctx context.Context, eventType, runID string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrapf(err, "marshal %s", eventType)
	}
	return mq.ProduceMessageWithHeaders(ctx, p.writer, []byte(runID), payload, []kafka.Header{
		{Key: "event_type", Value: []byte(eventType)},
	})
}

func (p *KafkaLifecyclePublisher) Close() error {
	return p.writer.Close()
}

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/rl1809/anemia-history/internal/core/domain"
	"github.com/rl1809/anemia-history/internal/port"
)

type KafkaPublisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

var _ port.EventPublisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher writes asynchronously: Publish returns once the event is
// queued and delivery failures are logged by the writer's completion hook.
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	p := &KafkaPublisher{logger: logger}
	p.writer = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
		WriteTimeout: 5 * time.Second,
		Async:        true,
		Completion:   p.delivered,
	}
	return p
}

// Publish keys events by record id so every event of a record lands on the same partition.
func (p *KafkaPublisher) Publish(ctx context.Context, event domain.RecordEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.RecordID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("write %s to %s: %w", event.Type, p.writer.Topic, err)
	}
	return nil
}

func (p *KafkaPublisher) delivered(messages []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, m := range messages {
		p.logger.Warn("failed to deliver record event",
			zap.String("topic", p.writer.Topic),
			zap.String("record_id", string(m.Key)),
			zap.Error(err))
	}
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, domain.RecordEvent) error { return nil }

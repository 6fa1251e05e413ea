package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"gradverify/internal/platform/kafka/producer"
	"gradverify/pkg/platform/circuit"
)

// MessageProducer is the subset of the Kafka producer the audit sink needs.
type MessageProducer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// KafkaStore publishes each event as JSON to a topic, keyed by university so
// one university's events stay ordered within a partition.
type KafkaStore struct {
	producer MessageProducer
	topic    string
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

// KafkaOption configures a KafkaStore.
type KafkaOption func(*KafkaStore)

// WithBreaker stops reporting publish failures while b is open. Events are
// still attempted so the breaker can observe recovery.
func WithBreaker(b *circuit.Breaker, logger *slog.Logger) KafkaOption {
	return func(s *KafkaStore) {
		s.breaker = b
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewKafkaStore(p MessageProducer, topic string, opts ...KafkaOption) *KafkaStore {
	s := &KafkaStore{producer: p, topic: topic, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *KafkaStore) Append(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	msg := &producer.Message{
		Topic: s.topic,
		Key:   []byte(event.University),
		Value: value,
		Headers: map[string]string{
			"event_type": string(event.Action),
			"event_id":   event.ID,
		},
	}
	err = s.producer.Produce(ctx, msg)
	if s.breaker == nil {
		if err != nil {
			return fmt.Errorf("publish audit event: %w", err)
		}
		return nil
	}

	if err != nil {
		open, change := s.breaker.RecordFailure()
		if change.Opened {
			s.logger.WarnContext(ctx, "audit kafka sink circuit opened", "breaker", s.breaker.Name(), "error", err)
		}
		if open {
			return nil
		}
		return fmt.Errorf("publish audit event: %w", err)
	}
	if _, change := s.breaker.RecordSuccess(); change.Closed {
		s.logger.InfoContext(ctx, "audit kafka sink circuit closed", "breaker", s.breaker.Name())
	}
	return nil
}

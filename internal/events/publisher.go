// Package events emits brief lifecycle notifications for downstream
// consumers. Publishing is fire-and-forget from the orchestrator's point
// of view; a broker outage never fails a brief.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"finbrief/internal/adapters/kafka"
	"finbrief/internal/domain/brief"
	"finbrief/pkg/logger"
)

// BriefCompletedEvent is emitted once per finished brief request
type BriefCompletedEvent struct {
	RequestID   uuid.UUID    `json:"request_id"`
	Status      brief.Status `json:"status"`
	Symbols     []string     `json:"symbols"`
	ElapsedMS   int64        `json:"elapsed_ms"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// SourceDegradedEvent is emitted for every source that failed to serve a
// symbol within a request, so degradation can be tracked per upstream
type SourceDegradedEvent struct {
	RequestID  uuid.UUID `json:"request_id"`
	Symbol     string    `json:"symbol"`
	Source     string    `json:"source"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher emits brief lifecycle events
type Publisher interface {
	PublishBriefCompleted(ctx context.Context, event BriefCompletedEvent) error
	PublishSourceDegraded(ctx context.Context, event SourceDegradedEvent) error
}

// KafkaPublisher publishes events through the shared producer
type KafkaPublisher struct {
	producer *kafka.Producer
	log      *logger.Logger
}

// NewKafkaPublisher creates a Kafka-backed event publisher
func NewKafkaPublisher(producer *kafka.Producer) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		log:      logger.Get().With("component", "events"),
	}
}

// PublishBriefCompleted emits the completion event for one request
func (p *KafkaPublisher) PublishBriefCompleted(ctx context.Context, event BriefCompletedEvent) error {
	topic := kafka.TopicBriefCompleted
	if event.Status == brief.StatusFailed {
		topic = kafka.TopicBriefFailed
	}
	return p.producer.Publish(ctx, topic, event.RequestID.String(), event)
}

// PublishSourceDegraded emits one degradation event for a failed source
func (p *KafkaPublisher) PublishSourceDegraded(ctx context.Context, event SourceDegradedEvent) error {
	return p.producer.Publish(ctx, kafka.TopicSourceDegraded, event.Symbol, event)
}

// NoopPublisher drops every event; used when no broker is configured
type NoopPublisher struct{}

// PublishBriefCompleted implements Publisher
func (NoopPublisher) PublishBriefCompleted(ctx context.Context, event BriefCompletedEvent) error {
	return nil
}

// PublishSourceDegraded implements Publisher
func (NoopPublisher) PublishSourceDegraded(ctx context.Context, event SourceDegradedEvent) error {
	return nil
}

package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/school_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/school_ledger/internal/core/ports/repositories"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// AuditEvent is the wire form of an audit record.
type AuditEvent struct {
	SchoolID    string    `json:"schoolID"`
	ActionType  string    `json:"actionType"`
	EntityID    string    `json:"entityID"`
	EntityType  string    `json:"entityType"`
	PerformedBy string    `json:"performedBy"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
}

// AuditPublisher publishes audit records to a Kafka topic after handing them to an
// optional durable sink. Publishing is asynchronous; delivery failures are logged.
type AuditPublisher struct {
	writer messageWriter
	next   portsrepo.AuditSink
	logger *slog.Logger
}

// NewAuditPublisher creates a publisher writing to topic on brokers. next may be nil.
func NewAuditPublisher(brokers []string, topic string, next portsrepo.AuditSink, logger *slog.Logger) *AuditPublisher {
	p := &AuditPublisher{next: next, logger: logger}
	p.writer = &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		WriteTimeout:           5 * time.Second,
		Async:                  true,
		Completion:             p.onCompletion,
	}
	return p
}

// onCompletion is called by the writer once a batch is acknowledged or given up on.
func (p *AuditPublisher) onCompletion(messages []kafka.Message, err error) {
	if err == nil || p.logger == nil {
		return
	}
	for _, m := range messages {
		p.logger.Error("Failed to publish audit event",
			slog.String("entity_id", string(m.Key)),
			slog.String("error", err.Error()))
	}
}

var _ portsrepo.AuditSink = (*AuditPublisher)(nil)

// RecordAudit stores the record in the durable sink, then queues it for publishing keyed by
// entity id so all events of one entry land on the same partition in order.
func (p *AuditPublisher) RecordAudit(ctx context.Context, record domain.AuditRecord) error {
	if p.next != nil {
		if err := p.next.RecordAudit(ctx, record); err != nil {
			return err
		}
	}

	payload, err := json.Marshal(AuditEvent{
		SchoolID:    record.SchoolID,
		ActionType:  string(record.ActionType),
		EntityID:    record.EntityID,
		EntityType:  record.EntityType,
		PerformedBy: record.PerformedBy,
		Message:     record.Message,
		Timestamp:   record.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to encode audit event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(record.EntityID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "entity_type", Value: []byte(record.EntityType)},
			{Key: "action_type", Value: []byte(record.ActionType)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish audit event for %s: %w", record.EntityID, err)
	}
	return nil
}

// Close flushes pending messages and releases the writer.
func (p *AuditPublisher) Close() error {
	return p.writer.Close()
}

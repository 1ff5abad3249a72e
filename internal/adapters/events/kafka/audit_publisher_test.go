package kafka

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/SscSPs/school_ledger/internal/adapters/database/memory"
	"github.com/SscSPs/school_ledger/internal/core/domain"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func sampleRecord() domain.AuditRecord {
	return domain.AuditRecord{
		SchoolID:    "school-1",
		ActionType:  domain.ActionCreate,
		EntityID:    "entry-1",
		EntityType:  string(domain.KindFeesPayment),
		PerformedBy: "bursar-1",
		Message:     "Posted FEES_PAYMENT of 150.00",
		Timestamp:   time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC),
	}
}

func TestAuditPublisher_RecordAudit(t *testing.T) {
	writer := &fakeWriter{}
	durable := memory.NewAuditLog()
	p := &AuditPublisher{writer: writer, next: durable}

	require.NoError(t, p.RecordAudit(context.Background(), sampleRecord()))

	require.Len(t, durable.Records(), 1)
	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	assert.Equal(t, "entry-1", string(msg.Key))

	var event AuditEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, "CREATE", event.ActionType)
	assert.Equal(t, "bursar-1", event.PerformedBy)
	assert.True(t, sampleRecord().Timestamp.Equal(event.Timestamp))

	require.NoError(t, p.Close())
	assert.True(t, writer.closed)
}

func TestAuditPublisher_BrokerFailure(t *testing.T) {
	writer := &fakeWriter{err: errors.New("leader not available")}
	p := &AuditPublisher{writer: writer}

	err := p.RecordAudit(context.Background(), sampleRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
}

func TestNewAuditPublisher_DoesNotBlockOnBroker(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	p := NewAuditPublisher([]string{"127.0.0.1:1"}, "audit", nil, logger)

	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.True(t, w.Async, "audit publishing must stay off the request path")
	require.NotNil(t, w.Completion)

	w.Completion([]kafka.Message{{Key: []byte("entry-1")}}, errors.New("broker unreachable"))
	assert.Contains(t, buf.String(), "Failed to publish audit event")
	assert.Contains(t, buf.String(), "entry-1")
	assert.Contains(t, buf.String(), "broker unreachable")

	buf.Reset()
	w.Completion([]kafka.Message{{Key: []byte("entry-2")}}, nil)
	assert.Empty(t, buf.String(), "successful batches are not logged")
}

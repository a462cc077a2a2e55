package consumer

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/segmentio/kafka-go"
)

// DeadLetterWriter parks Kafka messages the handler could not apply in the
// consumer_dlq table so the partition can move on.
type DeadLetterWriter struct {
	pool *pgxpool.Pool
}

// NewDeadLetterWriter initialises a writer backed by the provided connection pool.
func NewDeadLetterWriter(pool *pgxpool.Pool) *DeadLetterWriter {
	return &DeadLetterWriter{pool: pool}
}

// Write records msg with the failure reason. Writing the same offset twice is a no-op.
func (w *DeadLetterWriter) Write(ctx context.Context, msg kafka.Message, reason string) error {
	var eventType any
	if value, ok := headerValue(msg, "event_type"); ok {
		eventType = string(value)
	}
	_, err := w.pool.Exec(ctx,
		`INSERT INTO consumer_dlq (topic, kafka_partition, kafka_offset, message_key, event_type, value, reason)
	         VALUES ($1,$2,$3,$4,$5,$6,$7)
	         ON CONFLICT (topic, kafka_partition, kafka_offset) DO NOTHING`,
		msg.Topic, msg.Partition, msg.Offset, string(msg.Key), eventType, msg.Value, reason,
	)
	return err
}

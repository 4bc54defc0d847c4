package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"adcards/internal/events"
)

// Topic carries one message per committed ledger entry.
const Topic = "ledger.entry.recorded"

// Publisher publishes ledger events to Kafka.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a publisher for the given brokers.
func NewPublisher(brokers []string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    Topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// PublishEntryRecorded implements events.Publisher. Messages are keyed
// by card so per-card ordering is preserved across partitions.
func (p *Publisher) PublishEntryRecorded(ctx context.Context, event events.EntryRecorded) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.CardID),
		Value: data,
	})
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Package producer publishes security events to a message broker.
package producer

import (
	"context"

	"food-delivery-platform/auth/internal/telemetry/domain"
)

// Producer is a broker-backed event sink with a lifecycle. It satisfies telemetry.EventEmitter.
type Producer interface {
	Emit(ctx context.Context, event *domain.Event) error
	// Close flushes and releases the connection. Safe to call twice.
	Close() error
}

var _ Producer = (*KafkaProducer)(nil)

// FromBrokers returns a Kafka producer for topic, or nil when brokers is empty.
func FromBrokers(brokers []string, topic string) Producer {
	p := NewKafkaProducer(brokers, topic)
	if p == nil {
		return nil
	}
	return p
}

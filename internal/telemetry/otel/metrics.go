package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"food-delivery-platform/auth/internal/telemetry/domain"
)

// Metrics counts security events. It implements telemetry.EventEmitter so it can be
// placed in a MultiEmitter next to Kafka and the log emitter.
type Metrics struct {
	events     metric.Int64Counter
	rejections metric.Int64Counter
}

// NewMetrics registers auth.events{type} and auth.rejections{kind} on provider.
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(instrumentationName)
	events, err := meter.Int64Counter("auth.events",
		metric.WithDescription("Security events by type."),
		metric.WithUnit("{event}"))
	if err != nil {
		return nil, err
	}
	rejections, err := meter.Int64Counter("auth.rejections",
		metric.WithDescription("Rejected authentication attempts by fine-grained kind."),
		metric.WithUnit("{rejection}"))
	if err != nil {
		return nil, err
	}
	return &Metrics{events: events, rejections: rejections}, nil
}

func (m *Metrics) Emit(ctx context.Context, event *domain.Event) error {
	if m == nil || event == nil {
		return nil
	}
	m.events.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(event.Type))))
	if event.Kind != "" {
		m.rejections.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", event.Kind)))
	}
	return nil
}

// Package consumer reads security events from Kafka, forwards them to Loki, and feeds the
// refresh-reuse alarm.
package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"food-delivery-platform/auth/internal/telemetry"
	"food-delivery-platform/auth/internal/telemetry/domain"
)

const pushTimeout = 10 * time.Second

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Pusher ships one raw event to a log store (*loki.Client).
type Pusher interface {
	PushEventJSON(ctx context.Context, rawJSON []byte) error
}

// Consumer drains the event topic.
type Consumer struct {
	reader messageReader
	pusher Pusher
	alarm  *telemetry.ReuseAlarm
	logger zerolog.Logger
}

// New returns a Consumer. alarm may be nil.
func New(reader messageReader, pusher Pusher, alarm *telemetry.ReuseAlarm, logger zerolog.Logger) *Consumer {
	return &Consumer{reader: reader, pusher: pusher, alarm: alarm, logger: logger}
}

// NewKafkaReader returns a group reader for topic.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        time.Second,
		CommitInterval: time.Second,
	})
}

// Run consumes until ctx is done. Read and push failures are logged and skipped.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn().Err(err).Msg("kafka read error")
			continue
		}
		c.Handle(ctx, msg.Value)
	}
}

// Handle processes one message value.
func (c *Consumer) Handle(ctx context.Context, value []byte) {
	if c.alarm != nil {
		var ev domain.Event
		if err := json.Unmarshal(value, &ev); err != nil {
			c.logger.Debug().Err(err).Msg("undecodable event")
		} else {
			c.alarm.Observe(&ev)
		}
	}
	if c.pusher == nil {
		return
	}
	pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
	defer cancel()
	if err := c.pusher.PushEventJSON(pushCtx, value); err != nil {
		c.logger.Warn().Err(err).Msg("loki push failed")
	}
}

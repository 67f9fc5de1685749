// Package telemetry carries security events from the auth service and guards to Kafka,
// OpenTelemetry, and logs.
package telemetry

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"food-delivery-platform/auth/internal/telemetry/domain"
)

// EventEmitter emits security events. Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.Event) error
}

// MultiEmitter fans an event out to every emitter and joins their errors.
type MultiEmitter []EventEmitter

func (m MultiEmitter) Emit(ctx context.Context, event *domain.Event) error {
	var errs []error
	for _, e := range m {
		if e == nil {
			continue
		}
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogEmitter writes events to a zerolog logger. Rejections and refresh reuse log at warn.
type LogEmitter struct {
	Logger zerolog.Logger
}

func (l LogEmitter) Emit(ctx context.Context, event *domain.Event) error {
	if event == nil {
		return nil
	}
	ev := l.Logger.Info()
	switch event.Type {
	case domain.EventRefreshReuse, domain.EventLoginFailure, domain.EventGuardReject, domain.EventValidateFailure:
		ev = l.Logger.Warn()
	}
	ev.Str("event_type", string(event.Type))
	if event.Kind != "" {
		ev.Str("kind", event.Kind)
	}
	if event.UserID != "" {
		ev.Str("user_id", event.UserID)
	}
	if event.DeviceID != "" {
		ev.Str("device_id", event.DeviceID)
	}
	if event.Method != "" {
		ev.Str("method", event.Method)
	}
	ev.Msg("security event")
	return nil
}

// Nop discards events.
type Nop struct{}

func (Nop) Emit(context.Context, *domain.Event) error { return nil }

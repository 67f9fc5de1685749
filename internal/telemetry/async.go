package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"food-delivery-platform/auth/internal/telemetry/domain"
)

// emitTimeout is the max time allowed for a single async emit.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration bounds how long shutdown waits for in-flight async emits. Must be >= emitTimeout.
const ShutdownDrainDuration = emitTimeout

// Async wraps an emitter so Emit returns immediately and delivery happens in a goroutine
// with its own timeout. Request cancellation does not abort an in-flight emit.
type Async struct {
	next   EventEmitter
	logger zerolog.Logger
	wg     sync.WaitGroup
	nowF   func() time.Time
}

// NewAsync returns an Async around next. A nil next discards events.
func NewAsync(next EventEmitter, logger zerolog.Logger) *Async {
	if next == nil {
		next = Nop{}
	}
	return &Async{next: next, logger: logger, nowF: time.Now}
}

// Emit schedules delivery of event and always returns nil. CreatedAt is stamped if unset.
func (a *Async) Emit(_ context.Context, event *domain.Event) error {
	if a == nil || event == nil {
		return nil
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = a.nowF().UTC()
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		emitCtx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := a.next.Emit(emitCtx, event); err != nil {
			a.logger.Warn().Err(err).Str("event_type", string(event.Type)).Msg("telemetry: async emit failed")
		}
	}()
	return nil
}

// Drain waits for in-flight emits or until ctx is done.
func (a *Async) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

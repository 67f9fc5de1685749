package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"food-delivery-platform/auth/internal/telemetry/domain"
)

// DefaultAlarmWindow is the sliding window ReuseAlarm counts over.
const DefaultAlarmWindow = time.Minute

// ReuseAlarm logs at error level when session-mismatch events inside the window exceed
// the threshold. A spike means stolen refresh tokens or credential stuffing. It fires once
// per crossing and re-arms when the count drops back to the threshold.
type ReuseAlarm struct {
	Threshold int
	Window    time.Duration
	Logger    zerolog.Logger

	mu     sync.Mutex
	hits   []time.Time
	firing bool
	nowF   func() time.Time
}

// NewReuseAlarm returns an alarm over DefaultAlarmWindow. threshold <= 0 disables it.
func NewReuseAlarm(threshold int, logger zerolog.Logger) *ReuseAlarm {
	return &ReuseAlarm{Threshold: threshold, Window: DefaultAlarmWindow, Logger: logger, nowF: time.Now}
}

// SetClock overrides the time source for tests.
func (a *ReuseAlarm) SetClock(now func() time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nowF = now
}

func isReuse(event *domain.Event) bool {
	return event.Type == domain.EventRefreshReuse || event.Kind == "session_mismatch"
}

// Observe records event and reports whether the alarm fired on it.
func (a *ReuseAlarm) Observe(event *domain.Event) bool {
	if a == nil || a.Threshold <= 0 || event == nil || !isReuse(event) {
		return false
	}
	a.mu.Lock()
	now := a.nowF()
	cutoff := now.Add(-a.Window)
	kept := a.hits[:0]
	for _, t := range a.hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	a.hits = append(kept, now)
	count := len(a.hits)
	fire := false
	if count > a.Threshold && !a.firing {
		a.firing = true
		fire = true
	} else if count <= a.Threshold {
		a.firing = false
	}
	a.mu.Unlock()

	if fire {
		a.Logger.Error().
			Int("count", count).
			Int("threshold", a.Threshold).
			Dur("window", a.Window).
			Str("user_id", event.UserID).
			Msg("session mismatch spike")
	}
	return fire
}

// Emit lets the alarm sit in a MultiEmitter.
func (a *ReuseAlarm) Emit(_ context.Context, event *domain.Event) error {
	a.Observe(event)
	return nil
}

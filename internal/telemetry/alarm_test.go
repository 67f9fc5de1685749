package telemetry

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"food-delivery-platform/auth/internal/telemetry/domain"
)

func TestReuseAlarm_FiresOncePerSpike(t *testing.T) {
	var buf bytes.Buffer
	alarm := NewReuseAlarm(3, zerolog.New(&buf))
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	alarm.SetClock(func() time.Time { return now })

	reuse := &domain.Event{Type: domain.EventRefreshReuse, Kind: "session_mismatch", UserID: "u1"}
	var fired []int
	for i := 1; i <= 6; i++ {
		now = now.Add(time.Second)
		if alarm.Observe(reuse) {
			fired = append(fired, i)
		}
	}
	if len(fired) != 1 || fired[0] != 4 {
		t.Errorf("fired on %v, want [4]", fired)
	}
	if !strings.Contains(buf.String(), `"level":"error"`) || !strings.Contains(buf.String(), "session mismatch spike") {
		t.Errorf("log = %q, want error-level spike line", buf.String())
	}

	// Window slides past every hit; the alarm re-arms.
	now = now.Add(2 * time.Minute)
	if alarm.Observe(reuse) {
		t.Error("single hit after quiet period should not fire")
	}
	for i := 0; i < 3; i++ {
		now = now.Add(time.Second)
		alarm.Observe(reuse)
	}
	if !alarm.firing {
		t.Error("alarm should fire again on a second spike")
	}
}

func TestReuseAlarm_IgnoresOtherEvents(t *testing.T) {
	alarm := NewReuseAlarm(1, zerolog.Nop())
	for i := 0; i < 5; i++ {
		if alarm.Observe(&domain.Event{Type: domain.EventLoginFailure, Kind: "unauthorized"}) {
			t.Fatal("login failures must not trip the reuse alarm")
		}
	}
	if alarm.Observe(nil) {
		t.Fatal("nil event must not fire")
	}
}

func TestReuseAlarm_Disabled(t *testing.T) {
	alarm := NewReuseAlarm(0, zerolog.Nop())
	for i := 0; i < 10; i++ {
		if alarm.Observe(&domain.Event{Type: domain.EventRefreshReuse}) {
			t.Fatal("threshold 0 disables the alarm")
		}
	}
}

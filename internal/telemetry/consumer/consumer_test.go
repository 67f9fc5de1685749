package consumer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"food-delivery-platform/auth/internal/telemetry"
)

// fakeReader replays messages, then blocks until ctx is done.
type fakeReader struct {
	mu   sync.Mutex
	msgs []kafka.Message
	errs []error
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		r.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

type fakePusher struct {
	mu     sync.Mutex
	pushed []string
	err    error
}

func (p *fakePusher) PushEventJSON(_ context.Context, raw []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushed = append(p.pushed, string(raw))
	return p.err
}

func (p *fakePusher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pushed)
}

func TestConsumer_Run(t *testing.T) {
	reader := &fakeReader{
		errs: []error{errors.New("broker gone")},
		msgs: []kafka.Message{
			{Value: []byte(`{"type":"login_success","user_id":"u1"}`)},
			{Value: []byte(`not json`)},
		},
	}
	pusher := &fakePusher{}
	var buf bytes.Buffer
	c := New(reader, pusher, nil, zerolog.New(&buf))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for pusher.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run = %v, want nil", err)
	}
	if pusher.count() != 2 {
		t.Fatalf("pushed %d events, want 2", pusher.count())
	}
	if !strings.Contains(buf.String(), "kafka read error") {
		t.Errorf("read error not logged: %s", buf.String())
	}
}

func TestConsumer_HandleFeedsAlarm(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	alarm := telemetry.NewReuseAlarm(2, logger)
	pusher := &fakePusher{err: errors.New("loki down")}
	c := New(nil, pusher, alarm, logger)

	reuse := []byte(`{"type":"refresh_reuse","kind":"session_mismatch","user_id":"u1","device_id":"d1"}`)
	for i := 0; i < 3; i++ {
		c.Handle(context.Background(), reuse)
	}
	if pusher.count() != 3 {
		t.Errorf("pushed %d, want 3", pusher.count())
	}
	out := buf.String()
	if !strings.Contains(out, "loki push failed") {
		t.Errorf("push failure not logged: %s", out)
	}
	if !strings.Contains(out, `"level":"error"`) {
		t.Errorf("alarm did not fire after crossing the threshold: %s", out)
	}
}

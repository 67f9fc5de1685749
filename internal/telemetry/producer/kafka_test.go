package producer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"

	"food-delivery-platform/auth/internal/telemetry/domain"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestNewKafkaProducer_DisabledWithoutBrokers(t *testing.T) {
	if p := NewKafkaProducer(nil, "topic"); p != nil {
		t.Error("expected nil producer without brokers")
	}
	if p := NewKafkaProducer([]string{"localhost:9092"}, ""); p != nil {
		t.Error("expected nil producer without topic")
	}
	var p *KafkaProducer
	if err := p.Emit(context.Background(), &domain.Event{}); err != nil {
		t.Errorf("nil producer Emit = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("nil producer Close = %v", err)
	}
}

func TestKafkaProducer_Emit(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaProducer{writer: w, topic: "auth-security-events"}
	ev := &domain.Event{Type: domain.EventRefreshReuse, Kind: "session_mismatch", UserID: "u1", DeviceID: "dev-1"}
	if err := p.Emit(context.Background(), ev); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("wrote %d messages, want 1", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "u1" {
		t.Errorf("Key = %q, want u1", msg.Key)
	}
	var got domain.Event
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != domain.EventRefreshReuse || got.Kind != "session_mismatch" || got.DeviceID != "dev-1" {
		t.Errorf("payload = %+v", got)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != "refresh_reuse" {
		t.Errorf("headers = %v", msg.Headers)
	}
}

func TestKafkaProducer_EmitError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker unavailable")}
	p := &KafkaProducer{writer: w}
	if err := p.Emit(context.Background(), &domain.Event{Type: domain.EventLogout}); err == nil {
		t.Fatal("expected write error")
	}
	if err := p.Close(); err != nil || !w.closed {
		t.Errorf("Close = %v, closed = %v", err, w.closed)
	}
}

func TestFromBrokers(t *testing.T) {
	if p := FromBrokers(nil, "auth-security-events"); p != nil {
		t.Errorf("FromBrokers(nil) = %v, want nil interface", p)
	}
	p := FromBrokers([]string{"localhost:9092"}, "auth-security-events")
	if p == nil {
		t.Fatal("FromBrokers with brokers = nil")
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

package security

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewHasher(4)
	ctx := context.Background()
	password := []byte("Passw0rd!")
	hash, err := h.Hash(ctx, password)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "" {
		t.Fatal("Hash returned empty")
	}
	if err := h.Compare(ctx, hash, password); err != nil {
		t.Fatalf("Compare: %v", err)
	}
}

func TestHasher_CompareWrongPassword(t *testing.T) {
	h := NewHasher(4)
	ctx := context.Background()
	hash, _ := h.Hash(ctx, []byte("Passw0rd!"))
	err := h.Compare(ctx, hash, []byte("wrong"))
	if !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("Compare with wrong password: want ErrPasswordMismatch, got %v", err)
	}
}

func TestHasher_Cost(t *testing.T) {
	h := NewHasher(12)
	if h.Cost != 12 {
		t.Errorf("Cost want 12, got %d", h.Cost)
	}
	h0 := NewHasher(0)
	if h0.Cost < 4 {
		t.Errorf("zero cost should be clamped to at least MinCost, got %d", h0.Cost)
	}
	hBig := NewHasher(99)
	if hBig.Cost != 31 {
		t.Errorf("cost 99 should be clamped to 31, got %d", hBig.Cost)
	}
	if h.Workers <= 0 {
		t.Errorf("Workers = %d, want > 0", h.Workers)
	}
}

func TestHasher_WaitsForWorkerSlot(t *testing.T) {
	h := NewHasherWithWorkers(4, 1)
	// Hold the only slot so the next Hash must wait on ctx.
	if err := h.acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer h.release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := h.Hash(ctx, []byte("Passw0rd!"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Hash with busy pool: want DeadlineExceeded, got %v", err)
	}
}

func TestHasher_CompareMissing(t *testing.T) {
	h := NewHasher(4)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := h.CompareMissing(ctx, []byte("Passw0rd!")); !errors.Is(err, ErrPasswordMismatch) {
			t.Fatalf("CompareMissing #%d: err = %v, want ErrPasswordMismatch", i, err)
		}
	}
	if len(h.dummy) == 0 {
		t.Error("dummy hash not generated")
	}
	canceled, cancel := context.WithCancel(ctx)
	cancel()
	busy := NewHasherWithWorkers(4, 1)
	if err := busy.acquire(ctx); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer busy.release()
	if err := busy.CompareMissing(canceled, []byte("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("CompareMissing with done ctx: err = %v, want context.Canceled", err)
	}
}

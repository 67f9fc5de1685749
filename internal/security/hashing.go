package security

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// ErrPasswordMismatch is returned by Compare when the password does not match the hash.
var ErrPasswordMismatch = errors.New("security: password does not match")

// Hasher hashes and verifies passwords using bcrypt. Callers must not log or
// persist plaintext passwords.
//
// bcrypt is CPU-bound; at most Workers hash operations run at once and the rest wait
// (honoring ctx) so login bursts cannot monopolize every core.
type Hasher struct {
	Cost    int
	Workers int
	sem     *semaphore.Weighted

	dummyOnce sync.Once
	dummy     []byte
}

// NewHasher returns a Hasher with the given bcrypt cost (4–31), clamped into range.
// Cost 12 is a reasonable default for interactive login. The worker limit defaults to GOMAXPROCS.
func NewHasher(cost int) *Hasher {
	return NewHasherWithWorkers(cost, 0)
}

// NewHasherWithWorkers is like NewHasher with an explicit concurrency limit. workers <= 0 means GOMAXPROCS.
func NewHasherWithWorkers(cost, workers int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Hasher{Cost: cost, Workers: workers, sem: semaphore.NewWeighted(int64(workers))}
}

// Hash produces a bcrypt hash of password. Returns ctx.Err() if ctx is done before a worker slot frees up.
func (h *Hasher) Hash(ctx context.Context, password []byte) (string, error) {
	if err := h.acquire(ctx); err != nil {
		return "", err
	}
	defer h.release()
	b, err := bcrypt.GenerateFromPassword(password, h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare verifies password against the stored hash. Returns nil if they match,
// ErrPasswordMismatch if they do not, or another error for an invalid hash or a done ctx.
func (h *Hasher) Compare(ctx context.Context, hash string, password []byte) error {
	if err := h.acquire(ctx); err != nil {
		return err
	}
	defer h.release()
	err := bcrypt.CompareHashAndPassword([]byte(hash), password)
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}

// CompareMissing spends one bcrypt comparison of password against a throwaway hash of the
// same cost, so an unknown account takes as long to reject as a wrong password. It always
// returns ErrPasswordMismatch unless ctx is done first.
func (h *Hasher) CompareMissing(ctx context.Context, password []byte) error {
	h.dummyOnce.Do(func() {
		// Generated once per Hasher; the plaintext is never a valid password.
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte("\x00missing-account"), h.Cost)
	})
	if err := h.acquire(ctx); err != nil {
		return err
	}
	defer h.release()
	_ = bcrypt.CompareHashAndPassword(h.dummy, password)
	return ErrPasswordMismatch
}

func (h *Hasher) acquire(ctx context.Context) error {
	if h.sem == nil {
		return nil
	}
	return h.sem.Acquire(ctx, 1)
}

func (h *Hasher) release() {
	if h.sem != nil {
		h.sem.Release(1)
	}
}

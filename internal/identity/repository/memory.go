package repository

import (
	"context"
	"sync"
	"time"

	"food-delivery-platform/auth/internal/identity/domain"
	"food-delivery-platform/auth/internal/platform/autherr"
)

// MemoryRepository keeps identities in process memory. Used for development and tests.
type MemoryRepository struct {
	mu      sync.Mutex
	byID    map[string]*domain.Identity
	byEmail map[string]string
	nowF    func() time.Time
}

// NewMemoryRepository returns an empty in-memory identity repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]*domain.Identity),
		byEmail: make(map[string]string),
		nowF:    time.Now,
	}
}

// GetByID returns a copy of the identity for id, or nil if not found.
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return clone(r.byID[id]), nil
}

// GetByEmail returns a copy of the identity for email, or nil if not found.
func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	return clone(r.byID[id]), nil
}

// Create stores i. Returns an autherr.Conflict error if the email or id is taken.
func (r *MemoryRepository) Create(ctx context.Context, i *domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	email := domain.NormalizeEmail(i.Email)
	if _, ok := r.byEmail[email]; ok {
		return autherr.New(autherr.Conflict, "identity.create")
	}
	if _, ok := r.byID[i.ID]; ok {
		return autherr.New(autherr.Conflict, "identity.create")
	}
	c := clone(i)
	c.Email = email
	r.byID[c.ID] = c
	r.byEmail[email] = c.ID
	return nil
}

// UpdatePasswordHash replaces the password hash for id.
func (r *MemoryRepository) UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error {
	return r.update(id, "identity.update_password", func(i *domain.Identity) { i.PasswordHash = passwordHash })
}

// SetVerified sets the verification flag for id.
func (r *MemoryRepository) SetVerified(ctx context.Context, id string, verified bool) error {
	return r.update(id, "identity.set_verified", func(i *domain.Identity) { i.IsVerified = verified })
}

// SetActive sets the active flag for id.
func (r *MemoryRepository) SetActive(ctx context.Context, id string, active bool) error {
	return r.update(id, "identity.set_active", func(i *domain.Identity) { i.IsActive = active })
}

// Ping always succeeds.
func (r *MemoryRepository) Ping(ctx context.Context) error { return nil }

func (r *MemoryRepository) update(id, op string, fn func(*domain.Identity)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[id]
	if !ok {
		return autherr.New(autherr.NotFound, op)
	}
	fn(i)
	i.UpdatedAt = r.nowF().UTC()
	return nil
}

func clone(i *domain.Identity) *domain.Identity {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

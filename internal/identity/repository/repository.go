package repository

import (
	"context"

	"food-delivery-platform/auth/internal/identity/domain"
)

// Repository defines persistence for identities. Lookups return (nil, nil) when the
// identity does not exist; Create returns an autherr.Conflict error for a duplicate email.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	GetByEmail(ctx context.Context, email string) (*domain.Identity, error)
	Create(ctx context.Context, i *domain.Identity) error
	UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error
	SetVerified(ctx context.Context, id string, verified bool) error
	SetActive(ctx context.Context, id string, active bool) error
	Ping(ctx context.Context) error
}

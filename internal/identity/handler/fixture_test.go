package handler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"food-delivery-platform/auth/internal/guard"
	"food-delivery-platform/auth/internal/identity/domain"
	"food-delivery-platform/auth/internal/identity/repository"
	"food-delivery-platform/auth/internal/identity/service"
	"food-delivery-platform/auth/internal/platform/rbac"
	"food-delivery-platform/auth/internal/security"
	sessionrepo "food-delivery-platform/auth/internal/session/repository"
	"food-delivery-platform/auth/internal/verification"
)

const testPassword = "Passw0rd!"

type fixture struct {
	svc        *service.AuthService
	identities *repository.MemoryRepository
	sessions   *sessionrepo.MemoryStore
	hasher     *security.Hasher
	dev        *verification.DevStore
	grpc       *AuthServer
	http       *HTTPHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tokens, err := security.NewTestTokenPair()
	if err != nil {
		t.Fatalf("NewTestTokenPair: %v", err)
	}
	f := &fixture{
		identities: repository.NewMemoryRepository(),
		sessions:   sessionrepo.NewMemoryStore("auth"),
		hasher:     security.NewHasher(4),
		dev:        verification.NewDevStore(),
	}
	codes := verification.NewCodes(verification.NewMemoryStore(), f.dev, 0)
	f.svc = service.NewAuthService(f.identities, f.sessions, tokens, f.hasher, codes, nil, zerolog.Nop(), service.Options{RotateRefresh: true})
	authz := rbac.StaticAuthorizer{AdminBypass: true}
	f.grpc = NewAuthServer(f.svc, authz, f.dev, zerolog.Nop())
	f.http = NewHTTPHandler(f.svc, guard.NewServiceVerifier(f.svc), authz, f.dev, nil, zerolog.Nop())
	return f
}

// seed writes an identity with the given role straight into the store, bypassing the
// sign-up role restriction.
func (f *fixture) seed(t *testing.T, email string, role domain.Role) *domain.Identity {
	t.Helper()
	hashed, err := f.hasher.Hash(context.Background(), []byte(testPassword))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	now := time.Now().UTC()
	ident := &domain.Identity{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hashed,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := f.identities.Create(context.Background(), ident); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return ident
}

func (f *fixture) login(t *testing.T, email, device string) *service.Tokens {
	t.Helper()
	tokens, err := f.svc.Login(context.Background(), email, testPassword, device, "")
	if err != nil {
		t.Fatalf("Login(%s): %v", email, err)
	}
	return tokens
}

func as(ident *domain.Identity, device string) context.Context {
	return guard.WithIdentity(context.Background(), guard.Identity{UserID: ident.ID, Role: string(ident.Role), DeviceID: device})
}

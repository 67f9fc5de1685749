// seed creates an admin identity: go run ./cmd/seed --email admin@example.com --password ...
// Idempotent: an existing identity with the email is left untouched. Sign-up never grants
// the admin or manager role, so this is the way operators bootstrap them.
package main

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	flag "github.com/spf13/pflag"

	"food-delivery-platform/auth/internal/bootstrap"
	"food-delivery-platform/auth/internal/config"
	"food-delivery-platform/auth/internal/identity/domain"
	"food-delivery-platform/auth/internal/logger"
	"food-delivery-platform/auth/internal/security"
)

func main() {
	email := flag.String("email", os.Getenv("SEED_ADMIN_EMAIL"), "Email of the identity to create")
	password := flag.String("password", os.Getenv("SEED_ADMIN_PASSWORD"), "Password of the identity to create")
	roleName := flag.String("role", string(domain.RoleAdmin), "Role: admin, manager, user or delivery-partner")
	flag.Parse()

	if os.Getenv("APP_ENV") == "" {
		_ = os.Setenv("APP_ENV", "test")
	}
	cfg, err := config.LoadFor(config.Tooling)
	log := logger.New("info", "json")
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	log = logger.Component(logger.New(cfg.LogLevel, cfg.LogFormat), "seed")

	role, err := domain.ParseRole(*roleName)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid role")
	}
	addr := domain.NormalizeEmail(*email)
	if addr == "" || len(*password) < 8 {
		log.Fatal().Msg("email and a password of at least 8 characters are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stores := &bootstrap.Stores{}
	defer stores.Close()
	repo, err := bootstrap.OpenCredentialStore(ctx, cfg, stores)
	if err != nil {
		log.Fatal().Err(err).Msg("open credential store")
	}

	existing, err := repo.GetByEmail(ctx, addr)
	if err != nil {
		log.Fatal().Err(err).Msg("lookup")
	}
	if existing != nil {
		log.Info().Str("user_id", existing.ID).Str("role", string(existing.Role)).Msg("identity already exists; skipping")
		return
	}

	hash, err := security.NewHasher(cfg.BcryptCost).Hash(ctx, []byte(*password))
	if err != nil {
		log.Fatal().Err(err).Msg("hash password")
	}
	now := time.Now().UTC()
	ident := &domain.Identity{
		ID:           uuid.New().String(),
		Email:        addr,
		PasswordHash: hash,
		Role:         role,
		IsVerified:   true,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.Create(ctx, ident); err != nil {
		log.Fatal().Err(err).Msg("create identity")
	}
	log.Info().Str("user_id", ident.ID).Str("email", addr).Str("role", string(role)).Msg("identity seeded")
}

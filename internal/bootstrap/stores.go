// Package bootstrap opens the stores selected by config for the binaries.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"food-delivery-platform/auth/internal/config"
	"food-delivery-platform/auth/internal/db"
	"food-delivery-platform/auth/internal/identity/repository"
	sessionrepo "food-delivery-platform/auth/internal/session/repository"
	"food-delivery-platform/auth/internal/verification"
)

const connectTimeout = 10 * time.Second

// Stores are the backends of the auth service. Close releases every connection opened.
type Stores struct {
	Identities repository.Repository
	Sessions   sessionrepo.Store
	Challenges verification.Store

	closers []func()
}

// Close releases connections in reverse order of opening.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// OpenStores connects the credential store and the session store chosen by cfg.
// Verification challenges live next to sessions.
func OpenStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Stores, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	s := &Stores{}
	ids, err := OpenCredentialStore(ctx, cfg, s)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Identities = ids

	switch cfg.SessionStore {
	case config.StoreRedis:
		client, err := db.OpenRedis(ctx, db.RedisOptions{URL: cfg.RedisURL, Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("session store: %w", err)
		}
		s.closers = append(s.closers, func() { _ = client.Close() })
		s.Sessions = sessionrepo.NewRedisStore(client, cfg.SessionPrefix)
		s.Challenges = verification.NewRedisStore(client, cfg.SessionPrefix)
	default:
		s.Sessions = sessionrepo.NewMemoryStore(cfg.SessionPrefix)
		s.Challenges = verification.NewMemoryStore()
	}
	logger.Info().Str("credential_store", cfg.CredentialStore).Str("session_store", cfg.SessionStore).Msg("stores ready")
	return s, nil
}

// OpenCredentialStore connects the credential store alone. Its closer is registered on s.
func OpenCredentialStore(ctx context.Context, cfg *config.Config, s *Stores) (repository.Repository, error) {
	switch cfg.CredentialStore {
	case config.StorePostgres:
		conn, err := db.OpenContext(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("credential store: %w", err)
		}
		s.closers = append(s.closers, func() { _ = conn.Close() })
		return repository.NewPostgresRepository(conn), nil
	case config.StoreMongo:
		mdb, err := db.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("credential store: %w", err)
		}
		s.closers = append(s.closers, func() { _ = mdb.Client().Disconnect(context.Background()) })
		repo := repository.NewMongoRepository(mdb)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("credential store indexes: %w", err)
		}
		return repo, nil
	default:
		return repository.NewMemoryRepository(), nil
	}
}

package bootstrap

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"food-delivery-platform/auth/internal/config"
	"food-delivery-platform/auth/internal/identity/repository"
	sessionrepo "food-delivery-platform/auth/internal/session/repository"
	"food-delivery-platform/auth/internal/verification"
)

func TestOpenStores_Memory(t *testing.T) {
	cfg := &config.Config{CredentialStore: config.StoreMemory, SessionStore: config.StoreMemory, SessionPrefix: "auth"}
	s, err := OpenStores(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenStores: %v", err)
	}
	defer s.Close()

	if _, ok := s.Identities.(*repository.MemoryRepository); !ok {
		t.Errorf("Identities = %T, want *repository.MemoryRepository", s.Identities)
	}
	if _, ok := s.Sessions.(*sessionrepo.MemoryStore); !ok {
		t.Errorf("Sessions = %T, want *sessionrepo.MemoryStore", s.Sessions)
	}
	if _, ok := s.Challenges.(*verification.MemoryStore); !ok {
		t.Errorf("Challenges = %T, want *verification.MemoryStore", s.Challenges)
	}
}

func TestStores_CloseOrder(t *testing.T) {
	var order []int
	s := &Stores{}
	s.closers = append(s.closers, func() { order = append(order, 1) }, func() { order = append(order, 2) })
	s.Close()
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Errorf("close order = %v, want [2 1]", order)
	}
	s.Close()
	if len(order) != 2 {
		t.Error("second Close should be a no-op")
	}
}

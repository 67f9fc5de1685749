package repository

import (
	"context"

	"food-delivery-platform/auth/internal/session/domain"
)

// Store persists sessions keyed by (userId, deviceId). Every mutation is a single atomic
// write or delete; there are no read-modify-write sequences.
type Store interface {
	// Put writes s, replacing any session for the same (UserID, DeviceID). The entry expires at s.SessionExpiresAt.
	Put(ctx context.Context, s *domain.Session) error
	// Get returns the session for the pair, or an autherr.NotFound error when absent or expired.
	Get(ctx context.Context, userID, deviceID string) (*domain.Session, error)
	// Revoke deletes one session. Deleting an absent session is not an error.
	Revoke(ctx context.Context, userID, deviceID string) error
	// RevokeAll deletes every session of userID and returns how many were removed.
	RevokeAll(ctx context.Context, userID string) (int, error)
	// ListDevices returns the live sessions of userID.
	ListDevices(ctx context.Context, userID string) ([]*domain.Session, error)
	Ping(ctx context.Context) error
}

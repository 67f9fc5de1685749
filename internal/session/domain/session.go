package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidKeyPart is returned when a user or device id is empty or contains the key separator.
var ErrInvalidKeyPart = errors.New("session: user and device ids must be non-empty and must not contain ':'")

// Session binds one (user, device) pair to the fingerprint of its current refresh token.
// At most one session exists per pair; a new login on the same device replaces it.
type Session struct {
	UserID                  string    `json:"user_id"`
	DeviceID                string    `json:"device_id"`
	Role                    string    `json:"role"`
	RefreshTokenID          string    `json:"refresh_jti"`
	RefreshTokenFingerprint string    `json:"refresh_fingerprint"`
	RefreshTokenExpiresAt   time.Time `json:"refresh_expires_at"`
	SessionExpiresAt        time.Time `json:"session_expires_at"`
	IPAddress               string    `json:"ip_address,omitempty"`
	CreatedAt               time.Time `json:"created_at"`
	RefreshedAt             time.Time `json:"refreshed_at"`
}

// Key returns the store key "{prefix}:{userId}:{deviceId}".
func Key(prefix, userID, deviceID string) string {
	return prefix + ":" + userID + ":" + deviceID
}

// IndexKey returns the key of the per-user set of device ids.
func IndexKey(prefix, userID string) string {
	return prefix + ":idx:" + userID
}

// Key returns the store key of s.
func (s *Session) Key(prefix string) string {
	return Key(prefix, s.UserID, s.DeviceID)
}

// TTL returns how long the session should live in the store from now.
func (s *Session) TTL(now time.Time) time.Duration {
	return s.SessionExpiresAt.Sub(now)
}

// Expired reports whether the session has reached SessionExpiresAt.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.SessionExpiresAt)
}

// ValidID reports whether id can be embedded in a key.
func ValidID(id string) bool {
	return id != "" && !strings.Contains(id, ":")
}

// ValidateKeyParts checks that userID and deviceID can be embedded in a key.
func ValidateKeyParts(userID, deviceID string) error {
	if !ValidID(userID) || !ValidID(deviceID) {
		return ErrInvalidKeyPart
	}
	return nil
}

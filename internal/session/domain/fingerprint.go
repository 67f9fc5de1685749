package domain

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Fingerprint is the hex SHA-256 of a refresh token. Sessions keep it instead of the token.
func Fingerprint(refreshToken string) string {
	sum := sha256.Sum256([]byte(refreshToken))
	return hex.EncodeToString(sum[:])
}

// MatchesRefresh reports in constant time whether refreshToken is the session's current
// refresh token. A session without a fingerprint matches nothing.
func (s *Session) MatchesRefresh(refreshToken string) bool {
	if s == nil || s.RefreshTokenFingerprint == "" {
		return false
	}
	got := Fingerprint(refreshToken)
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.RefreshTokenFingerprint)) == 1
}

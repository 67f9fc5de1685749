package security

import "time"

// Test secrets for unit tests only. Do not use in production.
const (
	testAccessSecret  = "test-access-secret-0123456789abcdef"
	testRefreshSecret = "test-refresh-secret-fedcba9876543210"
)

// NewTestTokenPair returns a TokenPair signed with the embedded test secrets.
// For unit tests only. Callers must not use in production.
func NewTestTokenPair() (*TokenPair, error) {
	return NewTokenPair(PairConfig{
		AccessSecret:  []byte(testAccessSecret),
		RefreshSecret: []byte(testRefreshSecret),
		Issuer:        "test-issuer",
		Audience:      "test-audience",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	})
}

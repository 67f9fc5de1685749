// Package guard authenticates inbound requests for the auth service and for downstream
// services. A Verifier turns a bearer token into an Identity; the gin middleware and the
// gRPC interceptor attach that Identity to the request context.
package guard

import (
	"context"
	"time"
)

// Identity is the authenticated principal of a request.
type Identity struct {
	UserID    string
	Role      string
	DeviceID  string
	ExpiresAt time.Time
}

type contextKey struct{ name string }

var identityKey = contextKey{"identity"}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns the identity attached by a guard and true, or a zero Identity and false.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// UserID returns the authenticated user id from ctx and true if set; otherwise "", false.
func UserID(ctx context.Context) (string, bool) {
	id, ok := FromContext(ctx)
	if !ok || id.UserID == "" {
		return "", false
	}
	return id.UserID, true
}

// Role returns the authenticated role from ctx and true if set; otherwise "", false.
func Role(ctx context.Context) (string, bool) {
	id, ok := FromContext(ctx)
	if !ok || id.Role == "" {
		return "", false
	}
	return id.Role, true
}

// DeviceID returns the device id of the authenticated session and true if set; otherwise "", false.
func DeviceID(ctx context.Context) (string, bool) {
	id, ok := FromContext(ctx)
	if !ok || id.DeviceID == "" {
		return "", false
	}
	return id.DeviceID, true
}

package guard

import (
	"errors"
	"strings"

	"food-delivery-platform/auth/internal/platform/autherr"
)

const bearerScheme = "bearer"

var (
	errMissingHeader = errors.New("authorization header is missing")
	errBadScheme     = errors.New("authorization header is not a bearer token")
)

// ExtractBearer returns the token of an "Authorization: Bearer <token>" header value.
// The scheme is case-insensitive. Empty or malformed headers are Unauthenticated.
func ExtractBearer(header string) (string, error) {
	const op = "guard.extract_bearer"
	header = strings.TrimSpace(header)
	if header == "" {
		return "", autherr.Wrap(autherr.Unauthenticated, op, errMissingHeader)
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return "", autherr.Wrap(autherr.Unauthenticated, op, errBadScheme)
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", autherr.Wrap(autherr.Unauthenticated, op, errBadScheme)
	}
	return token, nil
}

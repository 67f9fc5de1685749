// Package autherr defines the error taxonomy shared by the token codec, session store,
// auth service, and request guards.
//
// Fine-grained kinds (Malformed, BadSignature, Expired, SessionMismatch) are raised by the
// codec and stores and are meant for logs and alerting only. Anything crossing the service
// boundary is first collapsed with Collapse and rendered with PublicMessage.
package autherr

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind classifies an authentication or authorization failure.
type Kind uint8

const (
	// Unknown is the zero value; KindOf returns it for errors outside the taxonomy.
	Unknown Kind = iota
	// Malformed means a token cannot be parsed.
	Malformed
	// BadSignature means the signature does not verify (possible forgery).
	BadSignature
	// Expired means the signature is valid but the expiry has elapsed.
	Expired
	// SessionMismatch means a valid refresh token does not match the stored fingerprint.
	SessionMismatch
	// NotFound means no identity or session exists.
	NotFound
	// Conflict means a duplicate sign-up.
	Conflict
	// Unauthorized means the credentials were rejected (wrong password, inactive account).
	Unauthorized
	// Unauthenticated is the composite client-facing status.
	Unauthenticated
	// Forbidden means a role or ownership check failed.
	Forbidden
	// Invalid means the request input failed validation.
	Invalid
	// Unavailable means a dependency (auth RPC, store) timed out or failed.
	Unavailable
)

var kindNames = map[Kind]string{
	Unknown:         "unknown",
	Malformed:       "malformed",
	BadSignature:    "bad_signature",
	Expired:         "expired",
	SessionMismatch: "session_mismatch",
	NotFound:        "not_found",
	Conflict:        "conflict",
	Unauthorized:    "unauthorized",
	Unauthenticated: "unauthenticated",
	Forbidden:       "forbidden",
	Invalid:         "invalid",
	Unavailable:     "unavailable",
}

// String returns the snake_case name used in logs and telemetry labels.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Error implements error so a bare Kind can be used as an errors.Is target.
func (k Kind) Error() string { return k.String() }

// Error is a classified failure. Op names the operation that failed (e.g. "session.get").
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// New returns an *Error with the given kind and operation and no underlying cause.
func New(kind Kind, op string) *Error {
	return &Error{Kind: kind, Op: op}
}

// Wrap returns an *Error with the given kind, operation, and cause. Returns nil if err is nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the same Kind or an *Error with the same Kind.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case Kind:
		return e.Kind == t
	case *Error:
		return e.Kind == t.Kind
	}
	return false
}

// KindOf returns the kind of the outermost classified error in err's chain, or Unknown.
func KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return Unknown
}

// Collapse maps a fine-grained kind to what an external caller may see.
func Collapse(kind Kind) Kind {
	switch kind {
	case Malformed, BadSignature, Expired, SessionMismatch, Unavailable, Unauthenticated:
		return Unauthenticated
	case Unauthorized:
		return Unauthorized
	case Forbidden, NotFound, Conflict, Invalid:
		return kind
	default:
		return Unknown
	}
}

// PublicMessage returns the fixed, non-revealing message for a collapsed kind.
func PublicMessage(kind Kind) string {
	switch Collapse(kind) {
	case Unauthenticated:
		return "Invalid or expired token"
	case Unauthorized:
		return "Invalid credentials"
	case Forbidden:
		return "Access denied"
	case NotFound:
		return "Not found"
	case Conflict:
		return "Already exists"
	case Invalid:
		return "Invalid request"
	default:
		return "Internal error"
	}
}

// GRPCStatus converts err into a gRPC status error carrying only the public message.
// Invalid errors keep their underlying validation message since it describes caller input.
func GRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	kind := KindOf(err)
	msg := PublicMessage(kind)
	if kind == Invalid {
		msg = validationMessage(err)
	}
	switch Collapse(kind) {
	case Unauthenticated, Unauthorized:
		return status.Error(codes.Unauthenticated, msg)
	case Forbidden:
		return status.Error(codes.PermissionDenied, msg)
	case Conflict:
		return status.Error(codes.AlreadyExists, msg)
	case NotFound:
		return status.Error(codes.NotFound, msg)
	case Invalid:
		return status.Error(codes.InvalidArgument, msg)
	default:
		return status.Error(codes.Internal, msg)
	}
}

// HTTPStatus returns the HTTP status code for err.
func HTTPStatus(err error) int {
	switch Collapse(KindOf(err)) {
	case Unauthenticated, Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case Conflict:
		return http.StatusConflict
	case NotFound:
		return http.StatusNotFound
	case Invalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the caller-facing message for err (validation detail for Invalid, fixed text otherwise).
func Message(err error) string {
	kind := KindOf(err)
	if kind == Invalid {
		return validationMessage(err)
	}
	return PublicMessage(kind)
}

func validationMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err.Error()
	}
	return PublicMessage(Invalid)
}

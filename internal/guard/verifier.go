package guard

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	authv1 "food-delivery-platform/auth/api/auth/v1"
	"food-delivery-platform/auth/internal/platform/autherr"
	"food-delivery-platform/auth/internal/security"
	sessionrepo "food-delivery-platform/auth/internal/session/repository"
)

// DefaultVerifyTimeout bounds a remote ValidateToken call when no timeout is configured.
const DefaultVerifyTimeout = 2 * time.Second

// Verifier turns an access token into an Identity. Errors carry an autherr kind; guards
// collapse every kind to Unauthenticated before answering the caller.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

func identityFrom(p *security.Payload) Identity {
	return Identity{UserID: p.SubjectID, Role: p.Role, DeviceID: p.DeviceID, ExpiresAt: p.ExpiresAt}
}

// LocalVerifier checks tokens in process with the access codec. When sessions is set it
// also rejects tokens whose device session has been revoked.
type LocalVerifier struct {
	codec    *security.TokenCodec
	sessions sessionrepo.Store
}

// NewLocalVerifier returns a LocalVerifier. sessions may be nil for purely stateless checks.
func NewLocalVerifier(codec *security.TokenCodec, sessions sessionrepo.Store) *LocalVerifier {
	return &LocalVerifier{codec: codec, sessions: sessions}
}

func (v *LocalVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	const op = "guard.local_verify"
	p, err := v.codec.Verify(token)
	if err != nil {
		return Identity{}, err
	}
	if v.sessions != nil {
		if _, err := v.sessions.Get(ctx, p.SubjectID, p.DeviceID); err != nil {
			if autherr.KindOf(err) == autherr.NotFound {
				return Identity{}, autherr.Wrap(autherr.Unauthenticated, op, err)
			}
			return Identity{}, autherr.Wrap(autherr.Unavailable, op, err)
		}
	}
	return identityFrom(p), nil
}

// Validator is the subset of the auth service a colocated guard needs.
type Validator interface {
	Validate(ctx context.Context, accessToken string) (*security.Payload, error)
}

// ServiceVerifier delegates to the auth service, so the account and session checks the
// service is configured with also apply to guarded routes.
type ServiceVerifier struct {
	validator Validator
}

func NewServiceVerifier(validator Validator) *ServiceVerifier {
	return &ServiceVerifier{validator: validator}
}

func (v *ServiceVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	p, err := v.validator.Validate(ctx, token)
	if err != nil {
		return Identity{}, err
	}
	return identityFrom(p), nil
}

// RemoteVerifier asks the auth service over gRPC. Transport failures and timeouts are
// Unavailable, which guards treat as a rejection.
type RemoteVerifier struct {
	client  authv1.AuthServiceClient
	timeout time.Duration
}

// NewRemoteVerifier returns a RemoteVerifier. A non-positive timeout uses DefaultVerifyTimeout.
func NewRemoteVerifier(client authv1.AuthServiceClient, timeout time.Duration) *RemoteVerifier {
	if timeout <= 0 {
		timeout = DefaultVerifyTimeout
	}
	return &RemoteVerifier{client: client, timeout: timeout}
}

func (v *RemoteVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	const op = "guard.remote_verify"
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()
	resp, err := v.client.ValidateToken(ctx, &authv1.ValidateTokenRequest{AccessToken: token})
	if err != nil {
		return Identity{}, autherr.Wrap(autherr.Unavailable, op, err)
	}
	if resp == nil || !resp.IsValid {
		msg := "token rejected"
		if resp != nil && resp.Message != "" {
			msg = resp.Message
		}
		return Identity{}, autherr.Wrap(autherr.Unauthenticated, op, errors.New(msg))
	}
	if resp.UserID == "" {
		return Identity{}, autherr.Wrap(autherr.Unauthenticated, op, errors.New("validation returned no subject"))
	}
	return Identity{UserID: resp.UserID, Role: resp.Role, DeviceID: resp.DeviceID, ExpiresAt: resp.ExpiresAt}, nil
}

// Dial opens a client connection to the auth service for a RemoteVerifier.
func Dial(target string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}
	return grpc.NewClient(target, append(base, opts...)...)
}

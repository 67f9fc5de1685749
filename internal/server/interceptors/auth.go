package interceptors

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"food-delivery-platform/auth/internal/guard"
	"food-delivery-platform/auth/internal/platform/autherr"
	"food-delivery-platform/auth/internal/telemetry"
	telemetrydomain "food-delivery-platform/auth/internal/telemetry/domain"
)

// AuthUnary returns a unary server interceptor that verifies the Bearer (access) token
// from gRPC metadata and attaches the guard.Identity to the context.
// publicMethods is the set of full method names that do not require a Bearer token
// (e.g. AuthService SignUp, Login, RefreshToken; grpc.health.v1.Health/Check). A valid
// token on a public method still attaches the identity. Protected methods answer
// codes.Unauthenticated with a generic message; the rejection kind is logged and emitted.
func AuthUnary(v guard.Verifier, publicMethods map[string]bool, logger zerolog.Logger, events telemetry.EventEmitter) grpc.UnaryServerInterceptor {
	if events == nil {
		events = telemetry.Nop{}
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		public := publicMethods[info.FullMethod]
		header := authorizationHeader(ctx)
		if header == "" && public {
			return handler(ctx, req)
		}

		token, err := guard.ExtractBearer(header)
		var id guard.Identity
		if err == nil {
			id, err = v.Verify(ctx, token)
		}
		if err != nil {
			if public {
				return handler(ctx, req)
			}
			kind := autherr.KindOf(err)
			logger.Warn().
				Str("method", info.FullMethod).
				Str("kind", kind.String()).
				Msg("guard rejected rpc")
			_ = events.Emit(ctx, &telemetrydomain.Event{
				Type:      telemetrydomain.EventGuardReject,
				Kind:      kind.String(),
				Method:    info.FullMethod,
				ClientIP:  ClientIP(ctx),
				Source:    "grpc_guard",
				CreatedAt: time.Now().UTC(),
			})
			return nil, status.Error(codes.Unauthenticated, autherr.PublicMessage(autherr.Unauthenticated))
		}

		return handler(guard.WithIdentity(ctx, id), req)
	}
}

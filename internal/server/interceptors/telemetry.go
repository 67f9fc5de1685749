package interceptors

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"food-delivery-platform/auth/internal/guard"
)

// LoggingUnary returns a unary server interceptor that logs one line per RPC with the
// method, status code, duration, and client IP. skipMethods are not logged (e.g. health checks).
// Client errors log at warn, server errors at error.
func LoggingUnary(logger zerolog.Logger, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if skipMethods[info.FullMethod] {
			return resp, err
		}
		code := status.Code(err)
		ev := logger.Info()
		switch code {
		case codes.OK:
		case codes.Internal, codes.Unknown, codes.DataLoss, codes.Unavailable:
			ev = logger.Error()
		default:
			ev = logger.Warn()
		}
		ev = ev.Str("method", info.FullMethod).
			Str("code", code.String()).
			Dur("duration", time.Since(start)).
			Str("client_ip", ClientIP(ctx))
		if userID, ok := guard.UserID(ctx); ok {
			ev = ev.Str("user_id", userID)
		}
		ev.Msg("rpc")
		return resp, err
	}
}

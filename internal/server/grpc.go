package server

import (
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	authv1 "food-delivery-platform/auth/api/auth/v1"
	"food-delivery-platform/auth/internal/guard"
	identityhandler "food-delivery-platform/auth/internal/identity/handler"
	identityservice "food-delivery-platform/auth/internal/identity/service"
	"food-delivery-platform/auth/internal/platform/rbac"
	"food-delivery-platform/auth/internal/server/interceptors"
	sessionhandler "food-delivery-platform/auth/internal/session/handler"
	sessionrepo "food-delivery-platform/auth/internal/session/repository"
	"food-delivery-platform/auth/internal/telemetry"
	"food-delivery-platform/auth/internal/verification"
)

// Deps holds the service dependencies for gRPC and HTTP handlers.
type Deps struct {
	// Auth is the auth service. If nil, AuthService and the auth HTTP routes are not registered.
	Auth *identityservice.AuthService
	// Sessions backs SessionService. If nil, session RPCs return Unimplemented.
	Sessions sessionrepo.Store
	// Verifier authenticates bearer tokens on protected RPCs and routes.
	Verifier guard.Verifier
	// Authz decides role and ownership checks. Nil means static rules with admin bypass.
	Authz rbac.Authorizer
	// DevCodes exposes plain verification codes to clients. Set only outside production.
	DevCodes *verification.DevStore
	// Health is the gRPC health server. If nil, grpc.health.v1 is not registered.
	Health *health.Server
	// Events receives guard rejections and session revocations.
	Events telemetry.EventEmitter
	Logger zerolog.Logger
}

func (d Deps) authz() rbac.Authorizer {
	if d.Authz == nil {
		return rbac.StaticAuthorizer{AdminBypass: true}
	}
	return d.Authz
}

func (d Deps) events() telemetry.EventEmitter {
	if d.Events == nil {
		return telemetry.Nop{}
	}
	return d.Events
}

// PublicMethods are the RPCs that accept calls without a bearer token. A token, when sent,
// is still verified and its identity attached.
var PublicMethods = map[string]bool{
	authv1.AuthService_SignUp_FullMethodName:              true,
	authv1.AuthService_Login_FullMethodName:               true,
	authv1.AuthService_ValidateToken_FullMethodName:       true,
	authv1.AuthService_RefreshToken_FullMethodName:        true,
	authv1.AuthService_Logout_FullMethodName:              true,
	authv1.AuthService_RequestVerification_FullMethodName: true,
	authv1.AuthService_ConfirmVerification_FullMethodName: true,
	healthpb.Health_Check_FullMethodName:                  true,
	healthpb.Health_Watch_FullMethodName:                  true,
}

// quietMethods are not logged per call.
var quietMethods = map[string]bool{
	healthpb.Health_Check_FullMethodName: true,
	healthpb.Health_Watch_FullMethodName: true,
}

// ServiceNames are the gRPC services whose health status the checker flips.
var ServiceNames = []string{
	authv1.AuthService_ServiceDesc.ServiceName,
	authv1.SessionService_ServiceDesc.ServiceName,
}

// RegisterServices registers the gRPC services with s.
//
//   - AuthService    → internal/identity/handler
//   - SessionService → internal/session/handler
//   - grpc.health.v1 → google.golang.org/grpc/health
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	if deps.Auth != nil {
		authv1.RegisterAuthServiceServer(s, identityhandler.NewAuthServer(deps.Auth, deps.authz(), deps.DevCodes, deps.Logger))
	}
	authv1.RegisterSessionServiceServer(s, sessionhandler.NewServer(deps.Sessions, deps.authz(), deps.events()))
	if deps.Health != nil {
		healthpb.RegisterHealthServer(s, deps.Health)
	}
}

// NewGRPCServer returns a server with tracing, panic recovery, call logging, and bearer
// authentication installed, and every service registered.
func NewGRPCServer(deps Deps, opts ...grpc.ServerOption) *grpc.Server {
	chain := []grpc.UnaryServerInterceptor{
		interceptors.RecoveryUnary(deps.Logger),
		interceptors.LoggingUnary(deps.Logger, quietMethods),
	}
	if deps.Verifier != nil {
		chain = append(chain, interceptors.AuthUnary(deps.Verifier, PublicMethods, deps.Logger, deps.events()))
	}
	base := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(chain...),
	}
	s := grpc.NewServer(append(base, opts...)...)
	RegisterServices(s, deps)
	return s
}

package handler

import (
	"context"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	authv1 "food-delivery-platform/auth/api/auth/v1"
	"food-delivery-platform/auth/internal/platform/autherr"
	"food-delivery-platform/auth/internal/platform/rbac"
	"food-delivery-platform/auth/internal/session/domain"
	sessionrepo "food-delivery-platform/auth/internal/session/repository"
	"food-delivery-platform/auth/internal/telemetry"
	telemetrydomain "food-delivery-platform/auth/internal/telemetry/domain"
)

// Server implements SessionService (gRPC) for device session management.
// Contract: api/auth/v1 → internal/session/handler.
type Server struct {
	authv1.UnimplementedSessionServiceServer
	store  sessionrepo.Store
	authz  rbac.Authorizer
	events telemetry.EventEmitter
}

// NewServer returns a new Session gRPC server. If store is nil, all RPCs return Unimplemented.
// events may be nil.
func NewServer(store sessionrepo.Store, authz rbac.Authorizer, events telemetry.EventEmitter) *Server {
	if events == nil {
		events = telemetry.Nop{}
	}
	return &Server{store: store, authz: authz, events: events}
}

// ListSessions returns the live device sessions of a user. Caller must be the user or an admin.
func (s *Server) ListSessions(ctx context.Context, req *authv1.ListSessionsRequest) (*authv1.ListSessionsResponse, error) {
	if s.store == nil {
		return nil, status.Error(codes.Unimplemented, "method ListSessions not implemented")
	}
	if _, err := rbac.RequireSelf(ctx, s.authz, req.UserID); err != nil {
		return nil, err
	}
	list, err := s.store.ListDevices(ctx, req.UserID)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to list sessions")
	}
	sessions := make([]*authv1.Session, len(list))
	for i := range list {
		sessions[i] = domainSessionToWire(list[i])
	}
	return &authv1.ListSessionsResponse{Sessions: sessions}, nil
}

// RevokeSession revokes one device session. Caller must be the user or an admin.
func (s *Server) RevokeSession(ctx context.Context, req *authv1.RevokeSessionRequest) (*authv1.MessageResponse, error) {
	if s.store == nil {
		return nil, status.Error(codes.Unimplemented, "method RevokeSession not implemented")
	}
	if _, err := rbac.RequireSelf(ctx, s.authz, req.UserID); err != nil {
		return nil, err
	}
	if !domain.ValidID(req.DeviceID) {
		return nil, status.Error(codes.InvalidArgument, "device_id required")
	}
	if err := s.store.Revoke(ctx, req.UserID, req.DeviceID); err != nil {
		return nil, autherr.GRPCStatus(err)
	}
	s.emit(ctx, telemetrydomain.EventLogout, req.UserID, req.DeviceID)
	return &authv1.MessageResponse{Message: "Session revoked"}, nil
}

// RevokeAllSessions revokes every session of a user. Caller must be the user or an admin.
func (s *Server) RevokeAllSessions(ctx context.Context, req *authv1.RevokeAllSessionsRequest) (*authv1.RevokeAllSessionsResponse, error) {
	if s.store == nil {
		return nil, status.Error(codes.Unimplemented, "method RevokeAllSessions not implemented")
	}
	if _, err := rbac.RequireSelf(ctx, s.authz, req.UserID); err != nil {
		return nil, err
	}
	n, err := s.store.RevokeAll(ctx, req.UserID)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to revoke sessions")
	}
	s.emit(ctx, telemetrydomain.EventLogoutAll, req.UserID, "")
	return &authv1.RevokeAllSessionsResponse{Revoked: n}, nil
}

func (s *Server) emit(ctx context.Context, typ telemetrydomain.EventType, userID, deviceID string) {
	_ = s.events.Emit(ctx, &telemetrydomain.Event{
		Type:      typ,
		UserID:    userID,
		DeviceID:  deviceID,
		Source:    "session_service",
		CreatedAt: time.Now().UTC(),
	})
}

func domainSessionToWire(s *domain.Session) *authv1.Session {
	if s == nil {
		return nil
	}
	return &authv1.Session{
		UserID:           s.UserID,
		DeviceID:         s.DeviceID,
		Role:             s.Role,
		IPAddress:        s.IPAddress,
		CreatedAt:        s.CreatedAt,
		RefreshedAt:      s.RefreshedAt,
		SessionExpiresAt: s.SessionExpiresAt,
	}
}

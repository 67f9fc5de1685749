package authv1

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	SessionService_ListSessions_FullMethodName      = "/fooddelivery.auth.v1.SessionService/ListSessions"
	SessionService_RevokeSession_FullMethodName     = "/fooddelivery.auth.v1.SessionService/RevokeSession"
	SessionService_RevokeAllSessions_FullMethodName = "/fooddelivery.auth.v1.SessionService/RevokeAllSessions"
)

// Session is one device session. Fingerprints and tokens are never exposed.
type Session struct {
	UserID           string    `json:"user_id"`
	DeviceID         string    `json:"device_id"`
	Role             string    `json:"role"`
	IPAddress        string    `json:"ip_address,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	RefreshedAt      time.Time `json:"refreshed_at"`
	SessionExpiresAt time.Time `json:"session_expires_at"`
}

type ListSessionsRequest struct {
	UserID string `json:"user_id"`
}

type ListSessionsResponse struct {
	Sessions []*Session `json:"sessions"`
}

type RevokeSessionRequest struct {
	UserID   string `json:"user_id"`
	DeviceID string `json:"device_id"`
}

type RevokeAllSessionsRequest struct {
	UserID string `json:"user_id"`
}

type RevokeAllSessionsResponse struct {
	Revoked int `json:"revoked"`
}

// SessionServiceServer is the server API for SessionService.
type SessionServiceServer interface {
	ListSessions(context.Context, *ListSessionsRequest) (*ListSessionsResponse, error)
	RevokeSession(context.Context, *RevokeSessionRequest) (*MessageResponse, error)
	RevokeAllSessions(context.Context, *RevokeAllSessionsRequest) (*RevokeAllSessionsResponse, error)
}

// UnimplementedSessionServiceServer returns Unimplemented for every method.
type UnimplementedSessionServiceServer struct{}

func (UnimplementedSessionServiceServer) ListSessions(context.Context, *ListSessionsRequest) (*ListSessionsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListSessions not implemented")
}
func (UnimplementedSessionServiceServer) RevokeSession(context.Context, *RevokeSessionRequest) (*MessageResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RevokeSession not implemented")
}
func (UnimplementedSessionServiceServer) RevokeAllSessions(context.Context, *RevokeAllSessionsRequest) (*RevokeAllSessionsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RevokeAllSessions not implemented")
}

// SessionService_ServiceDesc is the grpc.ServiceDesc for SessionService.
var SessionService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "fooddelivery.auth.v1.SessionService",
	HandlerType: (*SessionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListSessions", Handler: unaryHandler(SessionService_ListSessions_FullMethodName, SessionServiceServer.ListSessions)},
		{MethodName: "RevokeSession", Handler: unaryHandler(SessionService_RevokeSession_FullMethodName, SessionServiceServer.RevokeSession)},
		{MethodName: "RevokeAllSessions", Handler: unaryHandler(SessionService_RevokeAllSessions_FullMethodName, SessionServiceServer.RevokeAllSessions)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "auth/v1/session.json",
}

// RegisterSessionServiceServer registers srv with s.
func RegisterSessionServiceServer(s grpc.ServiceRegistrar, srv SessionServiceServer) {
	s.RegisterService(&SessionService_ServiceDesc, srv)
}

// SessionServiceClient is the client API for SessionService.
type SessionServiceClient interface {
	ListSessions(ctx context.Context, in *ListSessionsRequest, opts ...grpc.CallOption) (*ListSessionsResponse, error)
	RevokeSession(ctx context.Context, in *RevokeSessionRequest, opts ...grpc.CallOption) (*MessageResponse, error)
	RevokeAllSessions(ctx context.Context, in *RevokeAllSessionsRequest, opts ...grpc.CallOption) (*RevokeAllSessionsResponse, error)
}

type sessionServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewSessionServiceClient returns a SessionServiceClient over cc.
func NewSessionServiceClient(cc grpc.ClientConnInterface) SessionServiceClient {
	return &sessionServiceClient{cc: cc}
}

func (c *sessionServiceClient) ListSessions(ctx context.Context, in *ListSessionsRequest, opts ...grpc.CallOption) (*ListSessionsResponse, error) {
	out := new(ListSessionsResponse)
	if err := c.cc.Invoke(ctx, SessionService_ListSessions_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sessionServiceClient) RevokeSession(ctx context.Context, in *RevokeSessionRequest, opts ...grpc.CallOption) (*MessageResponse, error) {
	out := new(MessageResponse)
	if err := c.cc.Invoke(ctx, SessionService_RevokeSession_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sessionServiceClient) RevokeAllSessions(ctx context.Context, in *RevokeAllSessionsRequest, opts ...grpc.CallOption) (*RevokeAllSessionsResponse, error) {
	out := new(RevokeAllSessionsResponse)
	if err := c.cc.Invoke(ctx, SessionService_RevokeAllSessions_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

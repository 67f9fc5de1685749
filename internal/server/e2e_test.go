package server

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	authv1 "food-delivery-platform/auth/api/auth/v1"
	"food-delivery-platform/auth/internal/guard"
	healthhandler "food-delivery-platform/auth/internal/health/handler"
	"food-delivery-platform/auth/internal/identity/repository"
	identityservice "food-delivery-platform/auth/internal/identity/service"
	"food-delivery-platform/auth/internal/security"
	sessionrepo "food-delivery-platform/auth/internal/session/repository"
)

func init() { gin.SetMode(gin.TestMode) }

type stack struct {
	deps     Deps
	checker  *healthhandler.Checker
	auth     authv1.AuthServiceClient
	sessions authv1.SessionServiceClient
	health   healthpb.HealthClient
}

// newStack serves the full gRPC stack over an in-memory listener. The guard verifies
// access tokens statelessly.
func newStack(t *testing.T) *stack {
	t.Helper()
	tokens, err := security.NewTestTokenPair()
	if err != nil {
		t.Fatalf("NewTestTokenPair: %v", err)
	}
	identities := repository.NewMemoryRepository()
	sessions := sessionrepo.NewMemoryStore("auth")
	svc := identityservice.NewAuthService(identities, sessions, tokens, security.NewHasher(4), nil, nil, zerolog.Nop(),
		identityservice.Options{RotateRefresh: true})

	hs := health.NewServer()
	deps := Deps{
		Auth:     svc,
		Sessions: sessions,
		Verifier: guard.NewLocalVerifier(tokens.Access, nil),
		Health:   hs,
		Logger:   zerolog.Nop(),
	}
	checker := healthhandler.NewChecker(hs, ServiceNames, zerolog.Nop(),
		healthhandler.Check{Name: "credential_store", Pinger: identities},
		healthhandler.Check{Name: "session_store", Pinger: sessions},
	)
	checker.CheckOnce(context.Background())

	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer(deps)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return &stack{
		deps:     deps,
		checker:  checker,
		auth:     authv1.NewAuthServiceClient(conn),
		sessions: authv1.NewSessionServiceClient(conn),
		health:   healthpb.NewHealthClient(conn),
	}
}

func bearer(token string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
}

func TestEndToEnd_AliceLoginLogout(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	signed, err := s.auth.SignUp(ctx, &authv1.SignUpRequest{Email: "alice@example.com", Password: "Passw0rd!"})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if signed.Role != "user" {
		t.Errorf("SignUp role = %q, want user", signed.Role)
	}

	login, err := s.auth.Login(ctx, &authv1.LoginRequest{Email: "alice@example.com", Password: "Passw0rd!", DeviceID: "dev-1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.UserID != signed.UserID || login.DeviceID != "dev-1" {
		t.Errorf("Login = %+v, want user %s on dev-1", login, signed.UserID)
	}

	// Protected call: the guard attaches alice's identity.
	list, err := s.sessions.ListSessions(bearer(login.AccessToken), &authv1.ListSessionsRequest{UserID: signed.UserID})
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(list.Sessions) != 1 || list.Sessions[0].Role != "user" || list.Sessions[0].DeviceID != "dev-1" {
		t.Errorf("ListSessions = %+v, want one user session on dev-1", list.Sessions)
	}

	v, err := s.auth.ValidateToken(ctx, &authv1.ValidateTokenRequest{AccessToken: login.AccessToken})
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if !v.IsValid || v.UserID != signed.UserID || v.Role != "user" || v.DeviceID != "dev-1" {
		t.Errorf("ValidateToken = %+v", v)
	}

	if _, err := s.auth.Logout(bearer(login.AccessToken), &authv1.LogoutRequest{UserID: signed.UserID, DeviceID: "dev-1"}); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	// The stateless guard still accepts the access token until it expires.
	list, err = s.sessions.ListSessions(bearer(login.AccessToken), &authv1.ListSessionsRequest{UserID: signed.UserID})
	if err != nil {
		t.Fatalf("ListSessions after logout: %v", err)
	}
	if len(list.Sessions) != 0 {
		t.Errorf("sessions after logout = %d, want 0", len(list.Sessions))
	}

	_, err = s.auth.RefreshToken(ctx, &authv1.RefreshTokenRequest{RefreshToken: login.RefreshToken, DeviceID: "dev-1"})
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("RefreshToken after logout code = %v, want Unauthenticated", status.Code(err))
	}
}

func TestEndToEnd_GuardRejections(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	if _, err := s.sessions.ListSessions(ctx, &authv1.ListSessionsRequest{UserID: "u"}); status.Code(err) != codes.Unauthenticated {
		t.Errorf("no token code = %v, want Unauthenticated", status.Code(err))
	}
	_, err := s.sessions.ListSessions(bearer("not.a.jwt"), &authv1.ListSessionsRequest{UserID: "u"})
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("bad token code = %v, want Unauthenticated", status.Code(err))
	}
	if st, _ := status.FromError(err); st.Message() != "Invalid or expired token" {
		t.Errorf("bad token message = %q", st.Message())
	}

	// ValidateToken is public and never errors.
	v, err := s.auth.ValidateToken(ctx, &authv1.ValidateTokenRequest{AccessToken: "not.a.jwt"})
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if v.IsValid {
		t.Error("ValidateToken(garbage).IsValid = true")
	}
}

func TestEndToEnd_OwnershipAcrossUsers(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	for _, email := range []string{"alice@example.com", "bob@example.com"} {
		if _, err := s.auth.SignUp(ctx, &authv1.SignUpRequest{Email: email, Password: "Passw0rd!"}); err != nil {
			t.Fatalf("SignUp(%s): %v", email, err)
		}
	}
	alice, err := s.auth.Login(ctx, &authv1.LoginRequest{Email: "alice@example.com", Password: "Passw0rd!", DeviceID: "dev-1"})
	if err != nil {
		t.Fatalf("Login alice: %v", err)
	}
	bob, err := s.auth.Login(ctx, &authv1.LoginRequest{Email: "bob@example.com", Password: "Passw0rd!", DeviceID: "dev-2"})
	if err != nil {
		t.Fatalf("Login bob: %v", err)
	}

	_, err = s.sessions.RevokeAllSessions(bearer(alice.AccessToken), &authv1.RevokeAllSessionsRequest{UserID: bob.UserID})
	if status.Code(err) != codes.PermissionDenied {
		t.Errorf("alice revoking bob code = %v, want PermissionDenied", status.Code(err))
	}
	_, err = s.auth.Logout(bearer(alice.AccessToken), &authv1.LogoutRequest{UserID: bob.UserID, DeviceID: "dev-2"})
	if status.Code(err) != codes.PermissionDenied {
		t.Errorf("alice logging out bob code = %v, want PermissionDenied", status.Code(err))
	}
	if _, err := s.auth.RefreshToken(ctx, &authv1.RefreshTokenRequest{RefreshToken: bob.RefreshToken, DeviceID: "dev-2"}); err != nil {
		t.Errorf("bob's session should survive: %v", err)
	}
}

func TestEndToEnd_HealthAndHTTP(t *testing.T) {
	s := newStack(t)

	resp, err := s.health.Check(context.Background(), &healthpb.HealthCheckRequest{Service: authv1.AuthService_ServiceDesc.ServiceName})
	if err != nil {
		t.Fatalf("health Check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("health status = %v, want SERVING", resp.GetStatus())
	}

	r := NewHTTPRouter(s.deps, s.checker)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Errorf("GET /healthz = %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(`{"email":"carol@example.com","password":"Passw0rd!"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Errorf("POST /auth/signup = %d, want 201: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("GET /auth/me without token = %d, want 401", w.Code)
	}
}

func TestEndToEnd_GenerateTokenRequiresServiceAccount(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	if _, err := s.auth.SignUp(ctx, &authv1.SignUpRequest{Email: "rider@example.com", Password: "Passw0rd!", Role: "delivery-partner"}); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	rider, err := s.auth.Login(ctx, &authv1.LoginRequest{Email: "rider@example.com", Password: "Passw0rd!", DeviceID: "bike-1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	_, err = s.auth.GenerateToken(ctx, &authv1.GenerateTokenRequest{Email: "rider@example.com", DeviceID: "attacker"})
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("anonymous GenerateToken: code = %v, want Unauthenticated", status.Code(err))
	}
	_, err = s.auth.GenerateToken(bearer(rider.AccessToken), &authv1.GenerateTokenRequest{Email: "rider@example.com", DeviceID: "bike-2"})
	if status.Code(err) != codes.PermissionDenied {
		t.Errorf("GenerateToken as rider: code = %v, want PermissionDenied", status.Code(err))
	}
	list, err := s.sessions.ListSessions(bearer(rider.AccessToken), &authv1.ListSessionsRequest{UserID: rider.UserID})
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(list.Sessions) != 1 {
		t.Errorf("sessions = %d, want 1 (rejected calls must not open sessions)", len(list.Sessions))
	}
}

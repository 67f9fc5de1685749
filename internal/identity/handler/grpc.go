package handler

import (
	"context"

	"github.com/rs/zerolog"

	authv1 "food-delivery-platform/auth/api/auth/v1"
	"food-delivery-platform/auth/internal/guard"
	"food-delivery-platform/auth/internal/identity/domain"
	"food-delivery-platform/auth/internal/identity/service"
	"food-delivery-platform/auth/internal/platform/autherr"
	"food-delivery-platform/auth/internal/platform/rbac"
	"food-delivery-platform/auth/internal/server/interceptors"
	"food-delivery-platform/auth/internal/verification"
)

// AuthServer implements AuthService (gRPC) over the auth service.
// Contract: api/auth/v1 → internal/identity/handler.
type AuthServer struct {
	authv1.UnimplementedAuthServiceServer
	svc      *service.AuthService
	authz    rbac.Authorizer
	devCodes *verification.DevStore
	logger   zerolog.Logger
}

// NewAuthServer returns a new Auth gRPC server. devCodes is set only when verification
// codes may be returned to clients (development); pass nil otherwise.
func NewAuthServer(svc *service.AuthService, authz rbac.Authorizer, devCodes *verification.DevStore, logger zerolog.Logger) *AuthServer {
	return &AuthServer{svc: svc, authz: authz, devCodes: devCodes, logger: logger}
}

// SignUp creates an identity.
func (s *AuthServer) SignUp(ctx context.Context, req *authv1.SignUpRequest) (*authv1.SignUpResponse, error) {
	ident, err := s.svc.SignUp(ctx, req.Email, req.Password, req.Role)
	if err != nil {
		return nil, s.status(err)
	}
	return signUpResponse(ident), nil
}

// Login authenticates email and password and opens a session for the device.
func (s *AuthServer) Login(ctx context.Context, req *authv1.LoginRequest) (*authv1.TokenResponse, error) {
	tokens, err := s.svc.Login(ctx, req.Email, req.Password, req.DeviceID, interceptors.ClientIP(ctx))
	if err != nil {
		return nil, s.status(err)
	}
	return tokenResponse(tokens), nil
}

// GenerateToken issues tokens for a principal another service already authenticated. The
// caller must present the token of an admin service account.
func (s *AuthServer) GenerateToken(ctx context.Context, req *authv1.GenerateTokenRequest) (*authv1.TokenResponse, error) {
	caller, err := rbac.RequireRole(ctx, s.authz, domain.RoleAdmin)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("caller_id", caller.UserID).Str("user_id", req.UserID).Str("device_id", req.DeviceID).
		Msg("generate token")
	tokens, err := s.svc.GenerateToken(ctx, req.UserID, req.Email, req.Role, req.DeviceID)
	if err != nil {
		return nil, s.status(err)
	}
	return tokenResponse(tokens), nil
}

// ValidateToken never returns an RPC error; IsValid=false is the rejection.
func (s *AuthServer) ValidateToken(ctx context.Context, req *authv1.ValidateTokenRequest) (*authv1.ValidateTokenResponse, error) {
	p, err := s.svc.Validate(ctx, req.AccessToken)
	if err != nil {
		s.logger.Debug().Str("kind", autherr.KindOf(err).String()).Msg("validate token rejected")
		return &authv1.ValidateTokenResponse{IsValid: false, Message: autherr.PublicMessage(autherr.Unauthenticated)}, nil
	}
	return &authv1.ValidateTokenResponse{
		IsValid:   true,
		Message:   "Token is valid",
		UserID:    p.SubjectID,
		Role:      p.Role,
		DeviceID:  p.DeviceID,
		ExpiresAt: p.ExpiresAt,
	}, nil
}

// RefreshToken exchanges a refresh token bound to the device.
func (s *AuthServer) RefreshToken(ctx context.Context, req *authv1.RefreshTokenRequest) (*authv1.TokenResponse, error) {
	tokens, err := s.svc.Refresh(ctx, req.RefreshToken, req.DeviceID)
	if err != nil {
		return nil, s.status(err)
	}
	return tokenResponse(tokens), nil
}

// Logout revokes one device session. Internal callers may call it without a token; an
// authenticated caller may only log out itself unless it is an admin.
func (s *AuthServer) Logout(ctx context.Context, req *authv1.LogoutRequest) (*authv1.MessageResponse, error) {
	if _, ok := guard.FromContext(ctx); ok {
		if _, err := rbac.RequireSelf(ctx, s.authz, req.UserID); err != nil {
			return nil, err
		}
	}
	if err := s.svc.Logout(ctx, req.UserID, req.DeviceID); err != nil {
		return nil, s.status(err)
	}
	return &authv1.MessageResponse{Message: "Logged out"}, nil
}

// LogoutAll revokes every session of the user.
func (s *AuthServer) LogoutAll(ctx context.Context, req *authv1.LogoutAllRequest) (*authv1.LogoutAllResponse, error) {
	if _, err := rbac.RequireSelf(ctx, s.authz, req.UserID); err != nil {
		return nil, err
	}
	n, err := s.svc.LogoutAll(ctx, req.UserID)
	if err != nil {
		return nil, s.status(err)
	}
	return &authv1.LogoutAllResponse{Message: "Logged out of all devices", Revoked: n}, nil
}

// ChangePassword replaces the caller's password and signs out every device.
func (s *AuthServer) ChangePassword(ctx context.Context, req *authv1.ChangePasswordRequest) (*authv1.MessageResponse, error) {
	if _, err := rbac.RequireSelf(ctx, s.authz, req.UserID); err != nil {
		return nil, err
	}
	if err := s.svc.ChangePassword(ctx, req.UserID, req.OldPassword, req.NewPassword); err != nil {
		return nil, s.status(err)
	}
	return &authv1.MessageResponse{Message: "Password changed"}, nil
}

// Deactivate soft-deletes an identity. Admins may deactivate anyone; users only themselves.
func (s *AuthServer) Deactivate(ctx context.Context, req *authv1.DeactivateRequest) (*authv1.MessageResponse, error) {
	if _, err := rbac.RequireSelf(ctx, s.authz, req.UserID); err != nil {
		return nil, err
	}
	if err := s.svc.Deactivate(ctx, req.UserID); err != nil {
		return nil, s.status(err)
	}
	return &authv1.MessageResponse{Message: "Account deactivated"}, nil
}

// RequestVerification sends a one-time code. The reply is the same whether or not the
// email belongs to an account.
func (s *AuthServer) RequestVerification(ctx context.Context, req *authv1.RequestVerificationRequest) (*authv1.RequestVerificationResponse, error) {
	if err := s.svc.RequestVerification(ctx, req.Email); err != nil {
		return nil, s.status(err)
	}
	resp := &authv1.RequestVerificationResponse{Message: "If the account exists, a verification code has been sent"}
	if s.devCodes != nil {
		if code, ok := s.devCodes.Code(domain.NormalizeEmail(req.Email)); ok {
			resp.Code = code
		}
	}
	return resp, nil
}

// ConfirmVerification marks the identity verified.
func (s *AuthServer) ConfirmVerification(ctx context.Context, req *authv1.ConfirmVerificationRequest) (*authv1.MessageResponse, error) {
	if err := s.svc.ConfirmVerification(ctx, req.Email, req.Code); err != nil {
		return nil, s.status(err)
	}
	return &authv1.MessageResponse{Message: "Email verified"}, nil
}

// status maps err to a gRPC status error. Unclassified errors are logged since their detail
// never reaches the caller.
func (s *AuthServer) status(err error) error {
	if autherr.Collapse(autherr.KindOf(err)) == autherr.Unknown {
		s.logger.Error().Err(err).Msg("auth request failed")
	}
	return autherr.GRPCStatus(err)
}

func signUpResponse(ident *domain.Identity) *authv1.SignUpResponse {
	return &authv1.SignUpResponse{
		UserID:     ident.ID,
		Email:      ident.Email,
		Role:       string(ident.Role),
		IsVerified: ident.IsVerified,
	}
}

func tokenResponse(t *service.Tokens) *authv1.TokenResponse {
	return &authv1.TokenResponse{
		AccessToken:      t.AccessToken,
		RefreshToken:     t.RefreshToken,
		AccessExpiresAt:  t.AccessExpiresAt,
		RefreshExpiresAt: t.RefreshExpiresAt,
		UserID:           t.UserID,
		Role:             t.Role,
		DeviceID:         t.DeviceID,
	}
}

package authv1

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	AuthService_SignUp_FullMethodName              = "/fooddelivery.auth.v1.AuthService/SignUp"
	AuthService_Login_FullMethodName               = "/fooddelivery.auth.v1.AuthService/Login"
	AuthService_GenerateToken_FullMethodName       = "/fooddelivery.auth.v1.AuthService/GenerateToken"
	AuthService_ValidateToken_FullMethodName       = "/fooddelivery.auth.v1.AuthService/ValidateToken"
	AuthService_RefreshToken_FullMethodName        = "/fooddelivery.auth.v1.AuthService/RefreshToken"
	AuthService_Logout_FullMethodName              = "/fooddelivery.auth.v1.AuthService/Logout"
	AuthService_LogoutAll_FullMethodName           = "/fooddelivery.auth.v1.AuthService/LogoutAll"
	AuthService_ChangePassword_FullMethodName      = "/fooddelivery.auth.v1.AuthService/ChangePassword"
	AuthService_Deactivate_FullMethodName          = "/fooddelivery.auth.v1.AuthService/Deactivate"
	AuthService_RequestVerification_FullMethodName = "/fooddelivery.auth.v1.AuthService/RequestVerification"
	AuthService_ConfirmVerification_FullMethodName = "/fooddelivery.auth.v1.AuthService/ConfirmVerification"
)

type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type SignUpResponse struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	IsVerified bool   `json:"is_verified"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	DeviceID string `json:"device_id"`
}

// GenerateTokenRequest identifies the principal by UserID, or by Email when UserID is empty.
type GenerateTokenRequest struct {
	UserID   string `json:"user_id,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	DeviceID string `json:"device_id"`
}

// TokenResponse is returned by Login, GenerateToken, and RefreshToken.
type TokenResponse struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	UserID           string    `json:"user_id"`
	Role             string    `json:"role"`
	DeviceID         string    `json:"device_id"`
}

type ValidateTokenRequest struct {
	AccessToken string `json:"access_token"`
}

// ValidateTokenResponse never travels with an RPC error; IsValid=false is the rejection and
// Message is the generic caller-facing text.
type ValidateTokenResponse struct {
	IsValid   bool      `json:"is_valid"`
	Message   string    `json:"message"`
	UserID    string    `json:"user_id,omitempty"`
	Role      string    `json:"role,omitempty"`
	DeviceID  string    `json:"device_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
	DeviceID     string `json:"device_id"`
}

type LogoutRequest struct {
	UserID   string `json:"user_id"`
	DeviceID string `json:"device_id"`
}

type LogoutAllRequest struct {
	UserID string `json:"user_id"`
}

type LogoutAllResponse struct {
	Message string `json:"message"`
	Revoked int    `json:"revoked"`
}

type ChangePasswordRequest struct {
	UserID      string `json:"user_id"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type DeactivateRequest struct {
	UserID string `json:"user_id"`
}

type RequestVerificationRequest struct {
	Email string `json:"email"`
}

// RequestVerificationResponse carries Code only when the server returns codes to clients (development).
type RequestVerificationResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ConfirmVerificationRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// MessageResponse is the reply of calls that only confirm success.
type MessageResponse struct {
	Message string `json:"message"`
}

// AuthServiceServer is the server API for AuthService.
type AuthServiceServer interface {
	SignUp(context.Context, *SignUpRequest) (*SignUpResponse, error)
	Login(context.Context, *LoginRequest) (*TokenResponse, error)
	GenerateToken(context.Context, *GenerateTokenRequest) (*TokenResponse, error)
	ValidateToken(context.Context, *ValidateTokenRequest) (*ValidateTokenResponse, error)
	RefreshToken(context.Context, *RefreshTokenRequest) (*TokenResponse, error)
	Logout(context.Context, *LogoutRequest) (*MessageResponse, error)
	LogoutAll(context.Context, *LogoutAllRequest) (*LogoutAllResponse, error)
	ChangePassword(context.Context, *ChangePasswordRequest) (*MessageResponse, error)
	Deactivate(context.Context, *DeactivateRequest) (*MessageResponse, error)
	RequestVerification(context.Context, *RequestVerificationRequest) (*RequestVerificationResponse, error)
	ConfirmVerification(context.Context, *ConfirmVerificationRequest) (*MessageResponse, error)
}

// UnimplementedAuthServiceServer returns Unimplemented for every method. Embed it to stay
// forward compatible when methods are added.
type UnimplementedAuthServiceServer struct{}

func (UnimplementedAuthServiceServer) SignUp(context.Context, *SignUpRequest) (*SignUpResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SignUp not implemented")
}
func (UnimplementedAuthServiceServer) Login(context.Context, *LoginRequest) (*TokenResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Login not implemented")
}
func (UnimplementedAuthServiceServer) GenerateToken(context.Context, *GenerateTokenRequest) (*TokenResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GenerateToken not implemented")
}
func (UnimplementedAuthServiceServer) ValidateToken(context.Context, *ValidateTokenRequest) (*ValidateTokenResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ValidateToken not implemented")
}
func (UnimplementedAuthServiceServer) RefreshToken(context.Context, *RefreshTokenRequest) (*TokenResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RefreshToken not implemented")
}
func (UnimplementedAuthServiceServer) Logout(context.Context, *LogoutRequest) (*MessageResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Logout not implemented")
}
func (UnimplementedAuthServiceServer) LogoutAll(context.Context, *LogoutAllRequest) (*LogoutAllResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method LogoutAll not implemented")
}
func (UnimplementedAuthServiceServer) ChangePassword(context.Context, *ChangePasswordRequest) (*MessageResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ChangePassword not implemented")
}
func (UnimplementedAuthServiceServer) Deactivate(context.Context, *DeactivateRequest) (*MessageResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Deactivate not implemented")
}
func (UnimplementedAuthServiceServer) RequestVerification(context.Context, *RequestVerificationRequest) (*RequestVerificationResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RequestVerification not implemented")
}
func (UnimplementedAuthServiceServer) ConfirmVerification(context.Context, *ConfirmVerificationRequest) (*MessageResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ConfirmVerification not implemented")
}

// AuthService_ServiceDesc is the grpc.ServiceDesc for AuthService.
var AuthService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "fooddelivery.auth.v1.AuthService",
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SignUp", Handler: unaryHandler(AuthService_SignUp_FullMethodName, AuthServiceServer.SignUp)},
		{MethodName: "Login", Handler: unaryHandler(AuthService_Login_FullMethodName, AuthServiceServer.Login)},
		{MethodName: "GenerateToken", Handler: unaryHandler(AuthService_GenerateToken_FullMethodName, AuthServiceServer.GenerateToken)},
		{MethodName: "ValidateToken", Handler: unaryHandler(AuthService_ValidateToken_FullMethodName, AuthServiceServer.ValidateToken)},
		{MethodName: "RefreshToken", Handler: unaryHandler(AuthService_RefreshToken_FullMethodName, AuthServiceServer.RefreshToken)},
		{MethodName: "Logout", Handler: unaryHandler(AuthService_Logout_FullMethodName, AuthServiceServer.Logout)},
		{MethodName: "LogoutAll", Handler: unaryHandler(AuthService_LogoutAll_FullMethodName, AuthServiceServer.LogoutAll)},
		{MethodName: "ChangePassword", Handler: unaryHandler(AuthService_ChangePassword_FullMethodName, AuthServiceServer.ChangePassword)},
		{MethodName: "Deactivate", Handler: unaryHandler(AuthService_Deactivate_FullMethodName, AuthServiceServer.Deactivate)},
		{MethodName: "RequestVerification", Handler: unaryHandler(AuthService_RequestVerification_FullMethodName, AuthServiceServer.RequestVerification)},
		{MethodName: "ConfirmVerification", Handler: unaryHandler(AuthService_ConfirmVerification_FullMethodName, AuthServiceServer.ConfirmVerification)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "auth/v1/auth.json",
}

// RegisterAuthServiceServer registers srv with s.
func RegisterAuthServiceServer(s grpc.ServiceRegistrar, srv AuthServiceServer) {
	s.RegisterService(&AuthService_ServiceDesc, srv)
}

// AuthServiceClient is the client API for AuthService. Every call uses the JSON codec.
type AuthServiceClient interface {
	SignUp(ctx context.Context, in *SignUpRequest, opts ...grpc.CallOption) (*SignUpResponse, error)
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*TokenResponse, error)
	GenerateToken(ctx context.Context, in *GenerateTokenRequest, opts ...grpc.CallOption) (*TokenResponse, error)
	ValidateToken(ctx context.Context, in *ValidateTokenRequest, opts ...grpc.CallOption) (*ValidateTokenResponse, error)
	RefreshToken(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*TokenResponse, error)
	Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*MessageResponse, error)
	LogoutAll(ctx context.Context, in *LogoutAllRequest, opts ...grpc.CallOption) (*LogoutAllResponse, error)
	ChangePassword(ctx context.Context, in *ChangePasswordRequest, opts ...grpc.CallOption) (*MessageResponse, error)
	Deactivate(ctx context.Context, in *DeactivateRequest, opts ...grpc.CallOption) (*MessageResponse, error)
	RequestVerification(ctx context.Context, in *RequestVerificationRequest, opts ...grpc.CallOption) (*RequestVerificationResponse, error)
	ConfirmVerification(ctx context.Context, in *ConfirmVerificationRequest, opts ...grpc.CallOption) (*MessageResponse, error)
}

type authServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAuthServiceClient returns an AuthServiceClient over cc.
func NewAuthServiceClient(cc grpc.ClientConnInterface) AuthServiceClient {
	return &authServiceClient{cc: cc}
}

func (c *authServiceClient) SignUp(ctx context.Context, in *SignUpRequest, opts ...grpc.CallOption) (*SignUpResponse, error) {
	out := new(SignUpResponse)
	if err := c.cc.Invoke(ctx, AuthService_SignUp_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *authServiceClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*TokenResponse, error) {
	out := new(TokenResponse)
	if err := c.cc.Invoke(ctx, AuthService_Login_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *authServiceClient) GenerateToken(ctx context.Context, in *GenerateTokenRequest, opts ...grpc.CallOption) (*TokenResponse, error) {
	out := new(TokenResponse)
	if err := c.cc.Invoke(ctx, AuthService_GenerateToken_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *authServiceClient) ValidateToken(ctx context.Context, in *ValidateTokenRequest, opts ...grpc.CallOption) (*ValidateTokenResponse, error) {
	out := new(ValidateTokenResponse)
	if err := c.cc.Invoke(ctx, AuthService_ValidateToken_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *authServiceClient) RefreshToken(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*TokenResponse, error) {
	out := new(TokenResponse)
	if err := c.cc.Invoke(ctx, AuthService_RefreshToken_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *authServiceClient) Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*MessageResponse, error) {
	out := new(MessageResponse)
	if err := c.cc.Invoke(ctx, AuthService_Logout_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *authServiceClient) LogoutAll(ctx context.Context, in *LogoutAllRequest, opts ...grpc.CallOption) (*LogoutAllResponse, error) {
	out := new(LogoutAllResponse)
	if err := c.cc.Invoke(ctx, AuthService_LogoutAll_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *authServiceClient) ChangePassword(ctx context.Context, in *ChangePasswordRequest, opts ...grpc.CallOption) (*MessageResponse, error) {
	out := new(MessageResponse)
	if err := c.cc.Invoke(ctx, AuthService_ChangePassword_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *authServiceClient) Deactivate(ctx context.Context, in *DeactivateRequest, opts ...grpc.CallOption) (*MessageResponse, error) {
	out := new(MessageResponse)
	if err := c.cc.Invoke(ctx, AuthService_Deactivate_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *authServiceClient) RequestVerification(ctx context.Context, in *RequestVerificationRequest, opts ...grpc.CallOption) (*RequestVerificationResponse, error) {
	out := new(RequestVerificationResponse)
	if err := c.cc.Invoke(ctx, AuthService_RequestVerification_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *authServiceClient) ConfirmVerification(ctx context.Context, in *ConfirmVerificationRequest, opts ...grpc.CallOption) (*MessageResponse, error) {
	out := new(MessageResponse)
	if err := c.cc.Invoke(ctx, AuthService_ConfirmVerification_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

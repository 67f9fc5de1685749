package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"food-delivery-platform/auth/internal/guard"
	"food-delivery-platform/auth/internal/identity/domain"
	"food-delivery-platform/auth/internal/identity/service"
	"food-delivery-platform/auth/internal/platform/autherr"
	"food-delivery-platform/auth/internal/platform/rbac"
	"food-delivery-platform/auth/internal/platform/response"
	"food-delivery-platform/auth/internal/telemetry"
	"food-delivery-platform/auth/internal/verification"
)

// HTTPHandler is the JSON gateway over the auth service.
type HTTPHandler struct {
	svc      *service.AuthService
	verifier guard.Verifier
	authz    rbac.Authorizer
	devCodes *verification.DevStore
	events   telemetry.EventEmitter
	logger   zerolog.Logger
}

// NewHTTPHandler returns the gateway. verifier guards the authenticated routes; devCodes
// may be nil.
func NewHTTPHandler(svc *service.AuthService, verifier guard.Verifier, authz rbac.Authorizer, devCodes *verification.DevStore, events telemetry.EventEmitter, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, verifier: verifier, authz: authz, devCodes: devCodes, events: events, logger: logger}
}

// Register mounts the routes on r.
func (h *HTTPHandler) Register(r gin.IRouter) {
	auth := r.Group("/auth")
	auth.POST("/signup", h.signUp)
	auth.POST("/login", h.login)
	auth.POST("/refresh", h.refresh)
	auth.POST("/verify/request", h.requestVerification)
	auth.POST("/verify/confirm", h.confirmVerification)

	protected := auth.Group("")
	protected.Use(guard.RequireAuth(h.verifier, h.logger, h.events))
	protected.GET("/me", h.me)
	protected.POST("/logout", h.logout)
	protected.POST("/logout-all", h.logoutAll)
	protected.POST("/password", h.changePassword)
	protected.GET("/sessions", h.sessions)
	protected.DELETE("/sessions/:deviceId", h.revokeSession)

	admin := r.Group("/admin")
	admin.Use(guard.RequireAuth(h.verifier, h.logger, h.events), rbac.RequireRoles(h.authz, domain.RoleAdmin))
	admin.POST("/users/:userId/deactivate", h.deactivate)
}

type signUpBody struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

type loginBody struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	DeviceID string `json:"device_id" binding:"required"`
}

type refreshBody struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
	DeviceID     string `json:"device_id" binding:"required"`
}

type emailBody struct {
	Email string `json:"email" binding:"required"`
}

type confirmBody struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

type passwordBody struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

type userView struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	IsVerified bool      `json:"is_verified"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

type sessionView struct {
	DeviceID         string    `json:"device_id"`
	IPAddress        string    `json:"ip_address,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	RefreshedAt      time.Time `json:"refreshed_at"`
	SessionExpiresAt time.Time `json:"session_expires_at"`
	Current          bool      `json:"current"`
}

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (h *HTTPHandler) fail(c *gin.Context, err error) {
	if autherr.Collapse(autherr.KindOf(err)) == autherr.Unknown {
		h.logger.Error().Err(err).Str("path", c.FullPath()).Msg("auth request failed")
	}
	response.Error(c, err)
}

func (h *HTTPHandler) signUp(c *gin.Context) {
	var body signUpBody
	if !bind(c, &body) {
		return
	}
	ident, err := h.svc.SignUp(c.Request.Context(), body.Email, body.Password, body.Role)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, "Account created", signUpResponse(ident))
}

func (h *HTTPHandler) login(c *gin.Context) {
	var body loginBody
	if !bind(c, &body) {
		return
	}
	tokens, err := h.svc.Login(c.Request.Context(), body.Email, body.Password, body.DeviceID, c.ClientIP())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, "Logged in", tokenResponse(tokens))
}

func (h *HTTPHandler) refresh(c *gin.Context) {
	var body refreshBody
	if !bind(c, &body) {
		return
	}
	tokens, err := h.svc.Refresh(c.Request.Context(), body.RefreshToken, body.DeviceID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, "Token refreshed", tokenResponse(tokens))
}

func (h *HTTPHandler) requestVerification(c *gin.Context) {
	var body emailBody
	if !bind(c, &body) {
		return
	}
	if err := h.svc.RequestVerification(c.Request.Context(), body.Email); err != nil {
		h.fail(c, err)
		return
	}
	var data gin.H
	if h.devCodes != nil {
		if code, ok := h.devCodes.Code(domain.NormalizeEmail(body.Email)); ok {
			data = gin.H{"code": code}
		}
	}
	response.OK(c, "If the account exists, a verification code has been sent", data)
}

func (h *HTTPHandler) confirmVerification(c *gin.Context) {
	var body confirmBody
	if !bind(c, &body) {
		return
	}
	if err := h.svc.ConfirmVerification(c.Request.Context(), body.Email, body.Code); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, "Email verified", nil)
}

func (h *HTTPHandler) me(c *gin.Context) {
	id, _ := guard.Current(c)
	ident, err := h.svc.Identity(c.Request.Context(), id.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, "", userView{
		ID:         ident.ID,
		Email:      ident.Email,
		Role:       string(ident.Role),
		IsVerified: ident.IsVerified,
		IsActive:   ident.IsActive,
		CreatedAt:  ident.CreatedAt,
	})
}

// logout revokes the session of the device the access token was issued to.
func (h *HTTPHandler) logout(c *gin.Context) {
	id, _ := guard.Current(c)
	if err := h.svc.Logout(c.Request.Context(), id.UserID, id.DeviceID); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, "Logged out", nil)
}

func (h *HTTPHandler) logoutAll(c *gin.Context) {
	id, _ := guard.Current(c)
	n, err := h.svc.LogoutAll(c.Request.Context(), id.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, "Logged out of all devices", gin.H{"revoked": n})
}

func (h *HTTPHandler) changePassword(c *gin.Context) {
	var body passwordBody
	if !bind(c, &body) {
		return
	}
	id, _ := guard.Current(c)
	if err := h.svc.ChangePassword(c.Request.Context(), id.UserID, body.OldPassword, body.NewPassword); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, "Password changed", nil)
}

func (h *HTTPHandler) sessions(c *gin.Context) {
	id, _ := guard.Current(c)
	list, err := h.svc.Sessions(c.Request.Context(), id.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]sessionView, 0, len(list))
	for _, s := range list {
		out = append(out, sessionView{
			DeviceID:         s.DeviceID,
			IPAddress:        s.IPAddress,
			CreatedAt:        s.CreatedAt,
			RefreshedAt:      s.RefreshedAt,
			SessionExpiresAt: s.SessionExpiresAt,
			Current:          s.DeviceID == id.DeviceID,
		})
	}
	response.OK(c, "", out)
}

func (h *HTTPHandler) revokeSession(c *gin.Context) {
	id, _ := guard.Current(c)
	if err := h.svc.Logout(c.Request.Context(), id.UserID, c.Param("deviceId")); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, "Session revoked", nil)
}

func (h *HTTPHandler) deactivate(c *gin.Context) {
	if err := h.svc.Deactivate(c.Request.Context(), c.Param("userId")); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, "Account deactivated", nil)
}

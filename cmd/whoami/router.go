package main

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"food-delivery-platform/auth/internal/guard"
	"food-delivery-platform/auth/internal/identity/domain"
	"food-delivery-platform/auth/internal/platform/rbac"
	"food-delivery-platform/auth/internal/platform/response"
	"food-delivery-platform/auth/internal/telemetry"
)

type whoamiView struct {
	UserID   string `json:"userId"`
	Role     string `json:"role"`
	DeviceID string `json:"deviceId"`
}

func newRouter(v guard.Verifier, authz rbac.Authorizer, events telemetry.EventEmitter, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) { response.OK(c, "ok", nil) })

	authed := r.Group("")
	authed.Use(guard.RequireAuth(v, logger, events))
	authed.GET("/whoami", whoami)
	authed.GET("/users/:userId/profile", rbac.RequireOwner(authz, "userId"), func(c *gin.Context) {
		id, _ := guard.Current(c)
		response.OK(c, "Profile", gin.H{"userId": c.Param("userId"), "viewer": id.UserID})
	})
	authed.GET("/admin/ping", rbac.RequireRoles(authz, domain.RoleAdmin, domain.RoleManager), func(c *gin.Context) {
		response.OK(c, "pong", nil)
	})
	return r
}

func whoami(c *gin.Context) {
	id, _ := guard.Current(c)
	response.OK(c, "Authenticated", whoamiView{UserID: id.UserID, Role: id.Role, DeviceID: id.DeviceID})
}

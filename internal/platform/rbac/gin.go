package rbac

import (
	"github.com/gin-gonic/gin"

	"food-delivery-platform/auth/internal/guard"
	"food-delivery-platform/auth/internal/identity/domain"
	"food-delivery-platform/auth/internal/platform/autherr"
	"food-delivery-platform/auth/internal/platform/response"
)

// RequireRoles returns gin middleware that admits only the given roles. It must run after
// guard.RequireAuth.
func RequireRoles(authz Authorizer, roles ...domain.Role) gin.HandlerFunc {
	return authorize(authz, "", roles)
}

// RequireOwner returns gin middleware that admits only the user named by the path
// parameter param (e.g. "userId" for /users/:userId/...), or an admin when the authorizer
// allows the bypass.
func RequireOwner(authz Authorizer, param string, roles ...domain.Role) gin.HandlerFunc {
	return authorize(authz, param, roles)
}

func authorize(authz Authorizer, param string, roles []domain.Role) gin.HandlerFunc {
	if authz == nil {
		authz = StaticAuthorizer{AdminBypass: true}
	}
	return func(c *gin.Context) {
		id, ok := guard.Current(c)
		if !ok || id.UserID == "" {
			response.Abort(c, autherr.New(autherr.Unauthenticated, "rbac"))
			return
		}
		owner := ""
		if param != "" {
			owner = c.Param(param)
			if owner == "" {
				response.Abort(c, autherr.New(autherr.Forbidden, "rbac"))
				return
			}
		}
		allowed, err := authz.Authorize(c.Request.Context(), Request{Subject: id.UserID, Role: domain.Role(id.Role), Owner: owner, Allowed: roles})
		if err != nil || !allowed {
			response.Abort(c, autherr.New(autherr.Forbidden, "rbac"))
			return
		}
		c.Next()
	}
}

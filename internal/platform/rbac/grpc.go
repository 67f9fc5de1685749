package rbac

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"food-delivery-platform/auth/internal/guard"
	"food-delivery-platform/auth/internal/identity/domain"
	"food-delivery-platform/auth/internal/platform/autherr"
)

// RequireRole ensures the caller is authenticated and has one of roles (any known role
// when roles is empty). Returns the caller identity, or a gRPC Unauthenticated or
// PermissionDenied error.
func RequireRole(ctx context.Context, authz Authorizer, roles ...domain.Role) (guard.Identity, error) {
	return check(ctx, authz, "", roles)
}

// RequireSelf ensures the caller is userID, or an admin when the authorizer allows the
// admin bypass. roles further restricts the caller's role.
func RequireSelf(ctx context.Context, authz Authorizer, userID string, roles ...domain.Role) (guard.Identity, error) {
	if userID == "" {
		return guard.Identity{}, status.Error(codes.InvalidArgument, "user_id is required")
	}
	return check(ctx, authz, userID, roles)
}

func check(ctx context.Context, authz Authorizer, owner string, roles []domain.Role) (guard.Identity, error) {
	id, ok := guard.FromContext(ctx)
	if !ok || id.UserID == "" {
		return guard.Identity{}, status.Error(codes.Unauthenticated, autherr.PublicMessage(autherr.Unauthenticated))
	}
	if authz == nil {
		authz = StaticAuthorizer{AdminBypass: true}
	}
	allowed, err := authz.Authorize(ctx, Request{Subject: id.UserID, Role: domain.Role(id.Role), Owner: owner, Allowed: roles})
	if err != nil || !allowed {
		return guard.Identity{}, status.Error(codes.PermissionDenied, autherr.PublicMessage(autherr.Forbidden))
	}
	return id, nil
}

// Package rbac is the role and ownership layer that runs after a guard has authenticated
// the request. Every check fails closed.
package rbac

import (
	"context"
	"fmt"

	"food-delivery-platform/auth/internal/identity/domain"
)

// Engines accepted by New.
const (
	EngineStatic = "static"
	EngineOPA    = "opa"
)

// Request is one authorization question: may Subject with Role act on a resource owned by
// Owner, given the roles the route allows? Empty Allowed means any authenticated role;
// empty Owner means the resource is not owned.
type Request struct {
	Subject string
	Role    domain.Role
	Owner   string
	Allowed []domain.Role
}

// Authorizer answers a Request.
type Authorizer interface {
	Authorize(ctx context.Context, req Request) (bool, error)
}

// StaticAuthorizer implements the built-in rule: the role is allowed and the subject owns
// the resource. With AdminBypass an admin passes the ownership check.
type StaticAuthorizer struct {
	AdminBypass bool
}

func (s StaticAuthorizer) Authorize(_ context.Context, req Request) (bool, error) {
	if req.Subject == "" {
		return false, nil
	}
	if !roleAllowed(req.Role, req.Allowed) {
		return false, nil
	}
	if req.Owner == "" || req.Owner == req.Subject {
		return true, nil
	}
	return s.AdminBypass && req.Role == domain.RoleAdmin, nil
}

func roleAllowed(role domain.Role, allowed []domain.Role) bool {
	if len(allowed) == 0 {
		return role.Valid()
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// New returns the authorizer for engine. policy is the Rego source for the opa engine;
// empty uses DefaultPolicy.
func New(ctx context.Context, engine, policy string, adminBypass bool) (Authorizer, error) {
	switch engine {
	case "", EngineStatic:
		return StaticAuthorizer{AdminBypass: adminBypass}, nil
	case EngineOPA:
		return NewOPAAuthorizer(ctx, policy, adminBypass)
	default:
		return nil, fmt.Errorf("rbac: unknown engine %q", engine)
	}
}

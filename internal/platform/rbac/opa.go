package rbac

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"
)

const policyQuery = "data.fooddelivery.authz.allow"

// DefaultPolicy mirrors StaticAuthorizer.
const DefaultPolicy = `package fooddelivery.authz

default allow := false

known_roles := {"user", "admin", "manager", "delivery-partner"}

role_allowed if {
	count(input.allowed) == 0
	known_roles[input.role]
}

role_allowed if {
	some r in input.allowed
	r == input.role
}

owner_ok if input.owner == ""

owner_ok if input.owner == input.subject

owner_ok if {
	input.admin_bypass
	input.role == "admin"
}

allow if {
	input.subject != ""
	role_allowed
	owner_ok
}
`

// OPAAuthorizer evaluates a Rego policy that defines data.fooddelivery.authz.allow.
// The policy is compiled once; evaluation errors and non-boolean results deny.
type OPAAuthorizer struct {
	query       rego.PreparedEvalQuery
	adminBypass bool
}

// NewOPAAuthorizer compiles policy (DefaultPolicy when empty).
func NewOPAAuthorizer(ctx context.Context, policy string, adminBypass bool) (*OPAAuthorizer, error) {
	if policy == "" {
		policy = DefaultPolicy
	}
	q, err := rego.New(
		rego.Query(policyQuery),
		rego.Module("authz.rego", policy),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile authz policy: %w", err)
	}
	return &OPAAuthorizer{query: q, adminBypass: adminBypass}, nil
}

func (a *OPAAuthorizer) Authorize(ctx context.Context, req Request) (bool, error) {
	allowed := make([]string, 0, len(req.Allowed))
	for _, r := range req.Allowed {
		allowed = append(allowed, string(r))
	}
	input := map[string]interface{}{
		"subject":      req.Subject,
		"role":         string(req.Role),
		"owner":        req.Owner,
		"allowed":      allowed,
		"admin_bypass": a.adminBypass,
	}
	rs, err := a.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Errorf("eval authz policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, nil
	}
	v, ok := rs[0].Expressions[0].Value.(bool)
	return ok && v, nil
}

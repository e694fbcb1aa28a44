package rbac

import (
	"context"
	"strings"

	"github.com/samber/lo"
)

// Checker answers whether a role holds a permission. Grants are exact
// ("quiz:answer"), a namespace prefix ("quiz:*") or everything ("*").
// Students get the quiz and papers grants in RolePermissions; admins get "*".
type Checker struct {
	RolePermissions map[string][]string
}

// NewChecker uses RolePermissions when rp is nil.
func NewChecker(rp map[string][]string) *Checker {
	if rp == nil {
		rp = RolePermissions
	}
	return &Checker{RolePermissions: rp}
}

// Has is false for unknown roles and for an empty permission.
func (c *Checker) Has(role, perm string) bool {
	if perm == "" {
		return false
	}
	return lo.ContainsBy(c.RolePermissions[role], func(grant string) bool {
		return grants(grant, perm)
	})
}

func grants(grant, perm string) bool {
	switch {
	case grant == "*", grant == perm:
		return true
	case strings.HasSuffix(grant, ":*"):
		return strings.HasPrefix(perm, strings.TrimSuffix(grant, "*"))
	}
	return false
}

type roleKey struct{}

// WithRole stores the caller's effective role; AttachRoleFromDB overwrites
// the token's claim with the stored one.
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(roleKey{}).(string)
	return role
}

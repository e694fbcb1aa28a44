package auth

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/mind-engage/examprep/internal/rbac"
	"github.com/mind-engage/examprep/internal/users"
)

// RoleLookup resolves the stored role of a user id.
type RoleLookup interface {
	Role(ctx context.Context, id string) (string, error)
}

// AttachRoleFromDB replaces the token's role with the stored one, so a
// demotion takes effect before the token expires. Tokens for deleted users
// are rejected. allowClaimFallback keeps the claim role on lookup errors
// (dev/offline only).
func AttachRoleFromDB(roles RoleLookup, allowClaimFallback bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sub := SubjectFromContext(ctx)
			claimRole := rbac.RoleFromContext(ctx) // set by JWTMiddleware

			role, err := roles.Role(ctx, sub)
			switch {
			case err == nil && role != "":
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, role)))

			case errors.Is(err, users.ErrNotFound):
				writeError(w, http.StatusUnauthorized, "unknown user")

			default:
				if allowClaimFallback && claimRole != "" {
					log.Printf("auth: role lookup for %s failed, using token role: %v", sub, err)
					next.ServeHTTP(w, r)
					return
				}
				writeError(w, http.StatusForbidden, "forbidden")
			}
		})
	}
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/examprep/internal/audit"
	"github.com/mind-engage/examprep/internal/users"
)

type UserAdmin interface {
	List(ctx context.Context, role string) ([]users.User, error)
	SetRole(ctx context.Context, target, role string) error
}

// GET /admin/users?role=
func ListUsersHandler(store UserAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("role")))
		if err != nil {
			log.Printf("admin users: %v", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

type updateUserRoleReq struct {
	Role string `json:"role"`
}

// PATCH /admin/users/{userID}  { "role": "student|admin" }; userID may be an id or a username
func AdminUpdateUserRoleHandler(store UserAdmin, rec audit.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := chi.URLParam(r, "userID")
		if target == "" {
			writeError(w, http.StatusBadRequest, "missing userID")
			return
		}
		var req updateUserRoleReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}

		role := strings.ToLower(strings.TrimSpace(req.Role))
		err := store.SetRole(r.Context(), target, role)
		switch {
		case err == nil:
			rec.Record(r.Context(), audit.UserRoleChanged, target, map[string]string{"role": role})
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, users.ErrInvalidRole):
			writeError(w, http.StatusBadRequest, "invalid role")
		case errors.Is(err, users.ErrLastAdmin):
			writeError(w, http.StatusBadRequest, "cannot demote the last admin")
		case errors.Is(err, users.ErrNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		default:
			log.Printf("admin set role %s: %v", target, err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
	}
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	authmw "github.com/mind-engage/examprep/internal/auth/middleware"
	"github.com/mind-engage/examprep/internal/users"
)

const minPasswordLen = 6

type PasswordChanger interface {
	ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error
}

type changePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// POST /users/change-password
func ChangePasswordHandler(store PasswordChanger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := authmw.SubjectFromContext(r.Context())
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req changePasswordReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad request")
			return
		}
		if len(req.NewPassword) < minPasswordLen {
			writeError(w, http.StatusBadRequest, "new password must be at least 6 characters")
			return
		}
		if len(req.NewPassword) > users.MaxPasswordBytes {
			writeError(w, http.StatusBadRequest, "new password must be at most 72 bytes")
			return
		}

		err := store.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword)
		switch {
		case err == nil:
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, users.ErrNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, users.ErrPasswordTooLong):
			writeError(w, http.StatusBadRequest, "new password must be at most 72 bytes")
		case errors.Is(err, users.ErrInvalidCredentials):
			writeError(w, http.StatusForbidden, "incorrect old password")
		default:
			log.Printf("change password %s: %v", userID, err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
	}
}

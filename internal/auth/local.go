// Package auth serves account registration and password login.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/mail"
	"strings"

	"github.com/mind-engage/examprep/internal/audit"
	authmw "github.com/mind-engage/examprep/internal/auth/middleware"
	"github.com/mind-engage/examprep/internal/users"
)

const minPasswordLen = 6

type Accounts interface {
	Create(ctx context.Context, username, email, password string) (users.User, error)
	Authenticate(ctx context.Context, identifier, password string) (users.User, error)
}

type tokenResp struct {
	AccessToken string `json:"access_token"`
	Username    string `json:"username"`
	Role        string `json:"role"`
}

// POST /auth/register  { "username", "email", "password", "confirm_password" }
func RegisterHandler(a *authmw.AuthService, accounts Accounts, rec audit.Recorder) http.HandlerFunc {
	type req struct {
		Username        string `json:"username"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		if msg := validateRegistration(in.Username, in.Email, in.Password, in.ConfirmPassword); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		u, err := accounts.Create(r.Context(), in.Username, in.Email, in.Password)
		switch {
		case errors.Is(err, users.ErrUsernameTaken):
			writeError(w, http.StatusConflict, "Username already taken")
			return
		case errors.Is(err, users.ErrEmailTaken):
			writeError(w, http.StatusConflict, "Email already registered")
			return
		case errors.Is(err, users.ErrPasswordTooLong):
			writeError(w, http.StatusBadRequest, "Password must be at most 72 bytes")
			return
		case err != nil:
			log.Printf("auth: register %q: %v", in.Username, err)
			writeError(w, http.StatusInternalServerError, "registration failed")
			return
		}
		rec.Record(r.Context(), audit.UserRegistered, u.ID, map[string]string{"username": u.Username})
		issue(w, a, u, http.StatusCreated)
	}
}

// POST /auth/login  { "identifier" | "username", "password" }
func LoginHandler(a *authmw.AuthService, accounts Accounts, rec audit.Recorder) http.HandlerFunc {
	type req struct {
		Identifier string `json:"identifier"`
		Username   string `json:"username"`
		Password   string `json:"password"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		ident := in.Identifier
		if ident == "" {
			ident = in.Username
		}
		u, err := accounts.Authenticate(r.Context(), ident, in.Password)
		if errors.Is(err, users.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid username/email or password")
			return
		}
		if err != nil {
			log.Printf("auth: login: %v", err)
			writeError(w, http.StatusInternalServerError, "login failed")
			return
		}
		rec.Record(r.Context(), audit.UserLogin, u.ID, nil)
		issue(w, a, u, http.StatusOK)
	}
}

func validateRegistration(username, email, password, confirm string) string {
	switch {
	case strings.TrimSpace(username) == "" || strings.TrimSpace(email) == "" || password == "" || confirm == "":
		return "username, email, password and confirm_password are required"
	case !validEmail(email):
		return "Invalid email address"
	case password != confirm:
		return "Passwords must match"
	case len(password) < minPasswordLen:
		return "Password must be at least 6 characters"
	case len(password) > users.MaxPasswordBytes:
		return "Password must be at most 72 bytes"
	}
	return ""
}

// validEmail accepts a bare address only, not "Name <addr>".
func validEmail(s string) bool {
	s = strings.TrimSpace(s)
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s
}

func issue(w http.ResponseWriter, a *authmw.AuthService, u users.User, status int) {
	tok, err := a.IssueJWT(u.ID, u.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "issue token")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(tokenResp{AccessToken: tok, Username: u.Username, Role: u.Role})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

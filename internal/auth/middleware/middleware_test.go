package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mind-engage/examprep/internal/rbac"
	"github.com/mind-engage/examprep/internal/users"
)

func TestIssueAndParse(t *testing.T) {
	a := NewAuthService("k1")
	tok, err := a.IssueJWT("u-1", "student")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	c, err := a.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Sub != "u-1" || c.Role != "student" || c.Issuer != "examprep" {
		t.Fatalf("unexpected claims %+v", c)
	}

	if _, err := NewAuthService("other").Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong key: got %v", err)
	}

	a.now = func() time.Time { return time.Now().Add(9 * time.Hour) }
	if _, err := a.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token: got %v", err)
	}
}

func TestJWTMiddleware(t *testing.T) {
	a := NewAuthService("k1")
	var gotSub, gotRole string
	h := JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSub = SubjectFromContext(r.Context())
		gotRole = rbac.RoleFromContext(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("no header: status %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status %d", rr.Code)
	}

	tok, _ := a.IssueJWT("u-2", "admin")
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || gotSub != "u-2" || gotRole != "admin" {
		t.Fatalf("status %d sub %q role %q", rr.Code, gotSub, gotRole)
	}
}

type roleMap map[string]string

func (m roleMap) Role(_ context.Context, id string) (string, error) {
	switch r, ok := m[id]; {
	case id == "broken":
		return "", errors.New("db down")
	case !ok:
		return "", users.ErrNotFound
	default:
		return r, nil
	}
}

func TestAttachRoleFromDB(t *testing.T) {
	roles := roleMap{"u-1": "student", "u-2": "admin"}
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { seen = rbac.RoleFromContext(r.Context()) })

	cases := []struct {
		name     string
		sub      string
		claim    string
		fallback bool
		wantCode int
		wantRole string
	}{
		{"db role wins", "u-1", "admin", false, http.StatusOK, "student"},
		{"promoted in db", "u-2", "student", false, http.StatusOK, "admin"},
		{"unknown user", "ghost", "student", true, http.StatusUnauthorized, ""},
		{"lookup error strict", "broken", "student", false, http.StatusForbidden, ""},
		{"lookup error fallback", "broken", "student", true, http.StatusOK, "student"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = ""
			ctx := rbac.WithRole(WithSubject(context.Background(), tc.sub), tc.claim)
			req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
			rr := httptest.NewRecorder()
			AttachRoleFromDB(roles, tc.fallback)(next).ServeHTTP(rr, req)
			if rr.Code != tc.wantCode || seen != tc.wantRole {
				t.Fatalf("status %d role %q, want %d %q", rr.Code, seen, tc.wantCode, tc.wantRole)
			}
		})
	}
}

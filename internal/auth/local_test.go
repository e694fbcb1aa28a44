package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mind-engage/examprep/internal/audit"
	authmw "github.com/mind-engage/examprep/internal/auth/middleware"
	"github.com/mind-engage/examprep/internal/users"
)

type fakeAccounts struct {
	byName map[string]users.User
	pw     map[string]string
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byName: map[string]users.User{}, pw: map[string]string{}}
}

func (f *fakeAccounts) Create(_ context.Context, username, email, password string) (users.User, error) {
	for _, u := range f.byName {
		if u.Username == username {
			return users.User{}, users.ErrUsernameTaken
		}
		if u.Email == email {
			return users.User{}, users.ErrEmailTaken
		}
	}
	u := users.User{ID: "id-" + username, Username: username, Email: email, Role: users.RoleStudent}
	f.byName[username] = u
	f.pw[username] = password
	return u, nil
}

func (f *fakeAccounts) Authenticate(_ context.Context, identifier, password string) (users.User, error) {
	for name, u := range f.byName {
		if (u.Username == identifier || u.Email == identifier) && f.pw[name] == password {
			return u, nil
		}
	}
	return users.User{}, users.ErrInvalidCredentials
}

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	return rr
}

func TestRegisterHandler(t *testing.T) {
	a := authmw.NewAuthService("k")
	accts := newFakeAccounts()
	h := RegisterHandler(a, accts, audit.Nop{})
	long := strings.Repeat("p", 80)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"ok", `{"username":"asha","email":"asha@example.com","password":"secret1","confirm_password":"secret1"}`, http.StatusCreated},
		{"dup username", `{"username":"asha","email":"x@example.com","password":"secret1","confirm_password":"secret1"}`, http.StatusConflict},
		{"dup email", `{"username":"ravi","email":"asha@example.com","password":"secret1","confirm_password":"secret1"}`, http.StatusConflict},
		{"missing field", `{"username":"ravi","email":"ravi@example.com","password":"secret1"}`, http.StatusBadRequest},
		{"bad email", `{"username":"ravi","email":"not-an-email","password":"secret1","confirm_password":"secret1"}`, http.StatusBadRequest},
		{"mismatch", `{"username":"ravi","email":"ravi@example.com","password":"secret1","confirm_password":"secret2"}`, http.StatusBadRequest},
		{"short", `{"username":"ravi","email":"ravi@example.com","password":"abc","confirm_password":"abc"}`, http.StatusBadRequest},
		{"too long", `{"username":"ravi","email":"ravi@example.com","password":"` + long + `","confirm_password":"` + long + `"}`, http.StatusBadRequest},
		{"bad json", `{`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := post(h, tc.body)
			if rr.Code != tc.want {
				t.Fatalf("status %d want %d: %s", rr.Code, tc.want, rr.Body.String())
			}
		})
	}
}

func TestLoginHandler(t *testing.T) {
	a := authmw.NewAuthService("k")
	accts := newFakeAccounts()
	if _, err := accts.Create(context.Background(), "asha", "asha@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}
	h := LoginHandler(a, accts, audit.Nop{})

	for _, body := range []string{
		`{"identifier":"asha@example.com","password":"secret1"}`,
		`{"username":"asha","password":"secret1"}`,
	} {
		rr := post(h, body)
		if rr.Code != http.StatusOK {
			t.Fatalf("login %s: status %d", body, rr.Code)
		}
		var out struct {
			AccessToken string `json:"access_token"`
		}
		if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
			t.Fatal(err)
		}
		c, err := a.Parse(out.AccessToken)
		if err != nil || c.Sub != "id-asha" || c.Role != users.RoleStudent {
			t.Fatalf("token claims %+v err %v", c, err)
		}
	}

	if rr := post(h, `{"identifier":"asha","password":"nope"}`); rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: status %d", rr.Code)
	}
}

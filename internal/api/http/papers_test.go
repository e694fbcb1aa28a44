package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/examprep/internal/audit"
	authmw "github.com/mind-engage/examprep/internal/auth/middleware"
	"github.com/mind-engage/examprep/internal/storage"
	"github.com/mind-engage/examprep/internal/users"
)

func newPaperStore(t *testing.T, names ...string) *storage.FSStore {
	t.Helper()
	bs, err := storage.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range names {
		if _, err := bs.Put("papers/"+n, strings.NewReader("%PDF "+n)); err != nil {
			t.Fatal(err)
		}
	}
	return bs
}

func TestPaperTitle(t *testing.T) {
	for in, want := range map[string]string{
		"ssc_cgl_2019.pdf":      "Ssc Cgl 2019",
		"TIER_one__mock.PDF":    "Tier One Mock",
		"general awareness.pdf": "General Awareness",
	} {
		if got := paperTitle(in); got != want {
			t.Errorf("paperTitle(%q)=%q want %q", in, got, want)
		}
	}
}

func TestListPapersHandler(t *testing.T) {
	var names []string
	for i := 1; i <= 7; i++ {
		names = append(names, fmt.Sprintf("mock_test_%d.pdf", i))
	}
	names = append(names, "notes.txt")
	bs := newPaperStore(t, names...)
	h := ListPapersHandler(bs, 5)

	get := func(q string) paperPage {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/papers"+q, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("status %d", rr.Code)
		}
		var p paperPage
		if err := json.NewDecoder(rr.Body).Decode(&p); err != nil {
			t.Fatal(err)
		}
		return p
	}

	p1 := get("")
	if p1.Page != 1 || p1.TotalPages != 2 || p1.Total != 7 || len(p1.Papers) != 5 {
		t.Fatalf("page 1: %+v", p1)
	}
	if p1.Papers[0].Filename != "mock_test_1.pdf" || p1.Papers[0].Title != "Mock Test 1" {
		t.Fatalf("first paper %+v", p1.Papers[0])
	}
	if p2 := get("?page=2"); len(p2.Papers) != 2 || p2.Papers[1].Filename != "mock_test_7.pdf" {
		t.Fatalf("page 2: %+v", p2)
	}
	if p9 := get("?page=9"); len(p9.Papers) != 0 || p9.TotalPages != 2 {
		t.Fatalf("page 9: %+v", p9)
	}
	if huge := get("?page=1844674407370955163"); len(huge.Papers) != 0 || huge.Total != 7 {
		t.Fatalf("huge page: %+v", huge)
	}
}

func TestDownloadAndUploadPaper(t *testing.T) {
	bs := newPaperStore(t, "set_a.pdf")
	r := chi.NewRouter()
	r.Get("/papers/{filename}", DownloadPaperHandler(bs))
	r.Put("/admin/papers/{filename}", UploadPaperHandler(bs, audit.Nop{}))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/papers/set_a.pdf", nil))
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "application/pdf" || rr.Body.String() != "%PDF set_a.pdf" {
		t.Fatalf("download: %d %q", rr.Code, rr.Body.String())
	}
	if cd := rr.Header().Get("Content-Disposition"); cd != "inline; filename=set_a.pdf" {
		t.Fatalf("content disposition %q", cd)
	}

	for _, p := range []string{"/papers/missing.pdf", "/papers/notes.txt", "/papers/..%2Fsecret.pdf"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, p, nil))
		if rr.Code != http.StatusNotFound {
			t.Errorf("%s: status %d", p, rr.Code)
		}
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/admin/papers/set_b.pdf", strings.NewReader("%PDF new")))
	if rr.Code != http.StatusCreated {
		t.Fatalf("upload: status %d", rr.Code)
	}
	rc, err := bs.Get("papers/set_b.pdf")
	if err != nil {
		t.Fatalf("uploaded paper missing: %v", err)
	}
	b, _ := io.ReadAll(rc)
	rc.Close()
	if string(b) != "%PDF new" {
		t.Fatalf("content %q", b)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/admin/papers/evil.exe", strings.NewReader("x")))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad upload name: status %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, `/admin/papers/a%22b.pdf`, strings.NewReader("x")))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("quoted upload name: status %d", rr.Code)
	}
	if validPaperName(`a"b.pdf`) {
		t.Fatal(`a"b.pdf accepted`)
	}
}

type fakePasswords struct{ err error }

func (f fakePasswords) ChangePassword(context.Context, string, string, string) error { return f.err }

func TestChangePasswordHandler(t *testing.T) {
	cases := []struct {
		name string
		user string
		body string
		err  error
		want int
	}{
		{"ok", "u1", `{"old_password":"secret1","new_password":"secret2"}`, nil, http.StatusNoContent},
		{"anonymous", "", `{"old_password":"secret1","new_password":"secret2"}`, nil, http.StatusUnauthorized},
		{"short", "u1", `{"old_password":"secret1","new_password":"abc"}`, nil, http.StatusBadRequest},
		{"too long", "u1", `{"old_password":"secret1","new_password":"` + strings.Repeat("p", 73) + `"}`, nil, http.StatusBadRequest},
		{"wrong old", "u1", `{"old_password":"x","new_password":"secret2"}`, users.ErrInvalidCredentials, http.StatusForbidden},
		{"gone", "u1", `{"old_password":"x","new_password":"secret2"}`, users.ErrNotFound, http.StatusNotFound},
		{"db error", "u1", `{"old_password":"x","new_password":"secret2"}`, errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/users/change-password", strings.NewReader(tc.body))
			req = req.WithContext(authmw.WithSubject(req.Context(), tc.user))
			rr := httptest.NewRecorder()
			ChangePasswordHandler(fakePasswords{err: tc.err}).ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("status %d want %d", rr.Code, tc.want)
			}
		})
	}
}

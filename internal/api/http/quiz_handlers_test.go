package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/examprep/internal/audit"
	authmw "github.com/mind-engage/examprep/internal/auth/middleware"
	"github.com/mind-engage/examprep/internal/quiz"
)

const goodCompletion = `Question: What is 2+2?
A) 3
B) 4
C) 5
D) 6
Answer: B
Explanation: 2+2 equals 4.`

type cannedLLM struct {
	reply string
	err   error
}

func (c cannedLLM) Complete(context.Context, string) (string, error) { return c.reply, c.err }

func newQuizRouter(llm quiz.Completer, available bool) http.Handler {
	svc := quiz.NewService(llm, quiz.NewInMemoryStore(quiz.DefaultStoreOptions()), nil,
		quiz.ServiceConfig{DefaultQuestions: 5, MaxQuestions: 10, Concurrency: 2}, available)

	r := chi.NewRouter()
	// stands in for JWTMiddleware: the user id comes from a header
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(authmw.WithSubject(r.Context(), r.Header.Get("X-User"))))
		})
	})
	r.Get("/quiz/status", QuizStatusHandler(svc))
	r.Post("/quiz/fetch", FetchQuizHandler(svc, audit.Nop{}))
	r.Post("/answer", AnswerHandler(svc))
	r.Get("/quiz/sessions/{sessionID}", SessionHandler(svc))
	return r
}

func do(t *testing.T, h http.Handler, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User", user)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func fetch(t *testing.T, h http.Handler, user, body string) quiz.PublicQuiz {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/quiz/fetch", user, body)
	if rr.Code != http.StatusOK {
		t.Fatalf("fetch: status %d body %s", rr.Code, rr.Body.String())
	}
	var out quiz.PublicQuiz
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func TestFetchAndAnswer(t *testing.T) {
	h := newQuizRouter(cannedLLM{reply: goodCompletion}, true)

	rr := do(t, h, http.MethodPost, "/quiz/fetch", "u1", `{"topic":"Arithmetic","num_questions":3}`)
	if strings.Contains(rr.Body.String(), "correct_answer") || strings.Contains(rr.Body.String(), "Explanation") {
		t.Fatalf("fetch leaked the answer key: %s", rr.Body.String())
	}

	q := fetch(t, h, "u1", `{"topic":"Arithmetic","num_questions":"2"}`)
	if !strings.HasPrefix(q.SessionID, "session_") || len(q.Questions) != 2 {
		t.Fatalf("unexpected quiz %+v", q)
	}
	if q.Questions[0].Options.Get(quiz.LabelB) != "4" {
		t.Fatalf("options not returned: %+v", q.Questions[0])
	}

	body := `{"session_id":"` + q.SessionID + `","question_id":"` + q.Questions[0].ID + `","answer":"b"}`
	rr = do(t, h, http.MethodPost, "/answer", "u1", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("answer: status %d %s", rr.Code, rr.Body.String())
	}
	var verdict map[string]string
	_ = json.NewDecoder(rr.Body).Decode(&verdict)
	if verdict["result"] != "correct" || verdict["correct_answer"] != "B" || verdict["explanation"] != "2+2 equals 4." {
		t.Fatalf("unexpected verdict %v", verdict)
	}

	body = `{"session_id":"` + q.SessionID + `","question_id":"` + q.Questions[1].ID + `","answer":"A"}`
	rr = do(t, h, http.MethodPost, "/answer", "u1", body)
	_ = json.NewDecoder(rr.Body).Decode(&verdict)
	if verdict["result"] != "incorrect" || verdict["correct_answer"] != "B" {
		t.Fatalf("unexpected verdict %v", verdict)
	}

	rr = do(t, h, http.MethodGet, "/quiz/sessions/"+q.SessionID, "u1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("session: status %d", rr.Code)
	}
	var view quiz.SessionView
	_ = json.NewDecoder(rr.Body).Decode(&view)
	if view.Answered != 2 || view.Correct != 1 || view.Total != 2 {
		t.Fatalf("unexpected view %+v", view)
	}

	if rr := do(t, h, http.MethodGet, "/quiz/sessions/"+q.SessionID, "u2", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("other user's session: status %d", rr.Code)
	}
}

func TestFetchErrors(t *testing.T) {
	cases := []struct {
		name      string
		llm       quiz.Completer
		available bool
		body      string
		want      int
		wantMsg   string
	}{
		{"missing topic", cannedLLM{reply: goodCompletion}, true, `{"level":"Hard"}`, http.StatusBadRequest, "Topic is required."},
		{"bad count", cannedLLM{reply: goodCompletion}, true, `{"topic":"x","num_questions":"many"}`, http.StatusBadRequest, "Invalid request body."},
		{"malformed replies", cannedLLM{reply: "no idea"}, true, `{"topic":"x"}`, http.StatusInternalServerError, "Failed to generate questions from AI."},
		{"collaborator error", cannedLLM{err: errors.New("upstream 500: secret detail")}, true, `{"topic":"x"}`, http.StatusInternalServerError, "Failed to generate questions from AI."},
		{"not configured", cannedLLM{}, false, `{"topic":"x"}`, http.StatusServiceUnavailable, "Question generation is not configured."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newQuizRouter(tc.llm, tc.available)
			rr := do(t, h, http.MethodPost, "/quiz/fetch", "u1", tc.body)
			if rr.Code != tc.want {
				t.Fatalf("status %d want %d", rr.Code, tc.want)
			}
			var out map[string]string
			_ = json.NewDecoder(rr.Body).Decode(&out)
			if out["error"] != tc.wantMsg {
				t.Fatalf("error %q want %q", out["error"], tc.wantMsg)
			}
		})
	}
}

func TestAnswerErrors(t *testing.T) {
	h := newQuizRouter(cannedLLM{reply: goodCompletion}, true)
	q := fetch(t, h, "u1", `{"topic":"Arithmetic","num_questions":1}`)
	qid := q.Questions[0].ID

	cases := []struct {
		name string
		user string
		body string
		want string
	}{
		{"missing", "u1", `{"session_id":"` + q.SessionID + `"}`, "Missing parameters."},
		{"unknown session", "u1", `{"session_id":"session_nope","question_id":"` + qid + `","answer":"A"}`, "Invalid or expired session ID."},
		{"unknown question", "u1", `{"session_id":"` + q.SessionID + `","question_id":"q9","answer":"A"}`, "Invalid question ID for this session."},
		{"bad letter", "u1", `{"session_id":"` + q.SessionID + `","question_id":"` + qid + `","answer":"E"}`, "Answer must be one of A, B, C or D."},
		{"not owner", "u2", `{"session_id":"` + q.SessionID + `","question_id":"` + qid + `","answer":"A"}`, "Invalid or expired session ID."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/answer", tc.user, tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status %d", rr.Code)
			}
			var out map[string]string
			_ = json.NewDecoder(rr.Body).Decode(&out)
			if out["error"] != tc.want {
				t.Fatalf("error %q want %q", out["error"], tc.want)
			}
		})
	}
}

func TestQuizStatus(t *testing.T) {
	for _, available := range []bool{true, false} {
		rr := do(t, newQuizRouter(cannedLLM{}, available), http.MethodGet, "/quiz/status", "u1", "")
		var out map[string]bool
		_ = json.NewDecoder(rr.Body).Decode(&out)
		if out["available"] != available {
			t.Fatalf("available=%v, got %v", available, out)
		}
	}
}

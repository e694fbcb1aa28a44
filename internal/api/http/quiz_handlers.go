package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/examprep/internal/audit"
	authmw "github.com/mind-engage/examprep/internal/auth/middleware"
	"github.com/mind-engage/examprep/internal/quiz"
)

// numberish accepts 5 or "5".
type numberish int

func (n *numberish) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return errors.New("num_questions must be a number")
		}
		v = int(f)
	}
	*n = numberish(v)
	return nil
}

type fetchQuizReq struct {
	Topic        string    `json:"topic"`
	Level        string    `json:"level"`
	NumQuestions numberish `json:"num_questions"`
}

type answerReq struct {
	SessionID  string `json:"session_id"`
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

type answerResp struct {
	Result        string     `json:"result"`
	CorrectAnswer quiz.Label `json:"correct_answer"`
	Explanation   string     `json:"explanation"`
}

// GET /quiz/status
func QuizStatusHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"available": svc.Available()})
	}
}

// POST /quiz/fetch  { "topic", "level", "num_questions" }
func FetchQuizHandler(svc *quiz.Service, rec audit.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !svc.Available() {
			writeError(w, http.StatusServiceUnavailable, "Question generation is not configured.")
			return
		}
		var req fetchQuizReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body.")
			return
		}
		if strings.TrimSpace(req.Topic) == "" {
			writeError(w, http.StatusBadRequest, "Topic is required.")
			return
		}

		userID := authmw.SubjectFromContext(r.Context())
		out, err := svc.Generate(r.Context(), quiz.GenerateRequest{
			UserID:       userID,
			Topic:        req.Topic,
			Level:        req.Level,
			NumQuestions: int(req.NumQuestions),
		})
		switch {
		case errors.Is(err, quiz.ErrMissingParameter):
			writeError(w, http.StatusBadRequest, "Topic is required.")
			return
		case err != nil:
			log.Printf("quiz fetch: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to generate questions from AI.")
			return
		}
		rec.Record(r.Context(), audit.QuizGenerated, out.SessionID, map[string]any{
			"user_id":   userID,
			"topic":     strings.TrimSpace(req.Topic),
			"requested": int(req.NumQuestions),
			"questions": len(out.Questions),
		})
		writeJSON(w, http.StatusOK, out)
	}
}

// POST /answer  { "session_id", "question_id", "answer" }
func AnswerHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req answerReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body.")
			return
		}
		v, err := svc.Answer(r.Context(), authmw.SubjectFromContext(r.Context()),
			req.SessionID, req.QuestionID, req.Answer)
		if err != nil {
			status, msg := answerError(err)
			writeError(w, status, msg)
			return
		}
		writeJSON(w, http.StatusOK, answerResp{
			Result:        v.Result(),
			CorrectAnswer: v.CorrectAnswer,
			Explanation:   v.Explanation,
		})
	}
}

func answerError(err error) (int, string) {
	switch {
	case errors.Is(err, quiz.ErrMissingParameter):
		return http.StatusBadRequest, "Missing parameters."
	case errors.Is(err, quiz.ErrInvalidLabel):
		return http.StatusBadRequest, "Answer must be one of A, B, C or D."
	case errors.Is(err, quiz.ErrSessionNotFound):
		return http.StatusBadRequest, "Invalid or expired session ID."
	case errors.Is(err, quiz.ErrQuestionNotFound):
		return http.StatusBadRequest, "Invalid question ID for this session."
	case errors.Is(err, quiz.ErrAlreadyAnswered):
		return http.StatusBadRequest, "Question already answered."
	default:
		log.Printf("quiz answer: %v", err)
		return http.StatusInternalServerError, "internal error"
	}
}

// GET /quiz/sessions/{sessionID}
func SessionHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := svc.Session(r.Context(), authmw.SubjectFromContext(r.Context()), chi.URLParam(r, "sessionID"))
		if errors.Is(err, quiz.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "Invalid or expired session ID.")
			return
		}
		if err != nil {
			log.Printf("quiz session: %v", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

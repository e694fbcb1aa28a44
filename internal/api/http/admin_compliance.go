package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/examprep/internal/audit"
	"github.com/mind-engage/examprep/internal/quiz"
	"github.com/mind-engage/examprep/internal/users"
)

type UserData interface {
	Get(ctx context.Context, id string) (users.User, error)
	Delete(ctx context.Context, target string) (string, error)
}

type AuditSearcher interface {
	Search(ctx context.Context, q string, limit int) ([]audit.Event, error)
}

// GET /admin/users/{userID}/export
// Everything stored about one user as a downloadable JSON file.
func AdminUserExportHandler(store UserData, archive quiz.Archive) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "userID")
		u, err := store.Get(r.Context(), id)
		if errors.Is(err, users.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		if err != nil {
			log.Printf("admin export %s: %v", id, err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		var questions []quiz.ArchivedQuestion
		for offset := 0; ; {
			page, err := archive.List(r.Context(), quiz.ArchiveListOpts{UserID: u.ID, Limit: 200, Offset: offset})
			if err != nil {
				log.Printf("admin export %s: %v", id, err)
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			questions = append(questions, page...)
			if len(page) < 200 {
				break
			}
			offset += len(page)
		}

		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "user_"+u.ID+".json"))
		writeJSON(w, http.StatusOK, map[string]any{
			"user":      u,
			"questions": questions,
		})
	}
}

// DELETE /admin/users/{userID}
func AdminUserDeleteHandler(store UserData, rec audit.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := chi.URLParam(r, "userID")
		id, err := store.Delete(r.Context(), target)
		switch {
		case err == nil:
			rec.Record(r.Context(), audit.UserDeleted, id, map[string]string{"target": target})
			writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
		case errors.Is(err, users.ErrNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, users.ErrLastAdmin):
			writeError(w, http.StatusBadRequest, "cannot delete the last admin")
		default:
			log.Printf("admin delete %s: %v", target, err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
	}
}

// GET /admin/audit?q=&limit=
func AdminAuditSearchHandler(events AuditSearcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		out, err := events.Search(r.Context(), q, parseIntDefault(r.URL.Query().Get("limit"), 100))
		if err != nil {
			log.Printf("admin audit: %v", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

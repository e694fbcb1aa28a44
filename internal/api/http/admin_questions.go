package http

import (
	"log"
	"net/http"

	"github.com/mind-engage/examprep/internal/quiz"
)

// GET /admin/questions?topic=&user_id=&limit=&offset=
func ListArchivedQuestionsHandler(archive quiz.Archive) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		list, err := archive.List(r.Context(), quiz.ArchiveListOpts{
			Topic:  q.Get("topic"),
			UserID: q.Get("user_id"),
			Limit:  parseIntDefault(q.Get("limit"), 50),
			Offset: parseIntDefault(q.Get("offset"), 0),
		})
		if err != nil {
			log.Printf("admin questions: %v", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

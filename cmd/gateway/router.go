package main

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/mind-engage/examprep/internal/api/http"
	"github.com/mind-engage/examprep/internal/audit"
	"github.com/mind-engage/examprep/internal/auth"
	authmw "github.com/mind-engage/examprep/internal/auth/middleware"
	"github.com/mind-engage/examprep/internal/config"
	"github.com/mind-engage/examprep/internal/quiz"
	"github.com/mind-engage/examprep/internal/rbac"
	"github.com/mind-engage/examprep/internal/storage"
	"github.com/mind-engage/examprep/internal/users"
)

type deps struct {
	cfg     config.Config
	db      *sql.DB
	authSvc *authmw.AuthService
	users   *users.SQLStore
	quiz    *quiz.Service
	archive quiz.Archive
	blobs   storage.BlobStore
	events  *audit.EventRepo
}

func newRouter(d deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	if d.cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(d.cfg.RequestTimeout))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := d.db.PingContext(r.Context()); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	// Local accounts (on by default; can be disabled when fronted by another IdP)
	if d.cfg.EnableLocalAuth {
		r.Post("/auth/register", auth.RegisterHandler(d.authSvc, d.users, d.events))
		r.Post("/auth/login", auth.LoginHandler(d.authSvc, d.users, d.events))
	}

	// Protected API (JWT → role from DB → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(d.authSvc))
		pr.Use(authmw.AttachRoleFromDB(d.users, d.cfg.Mode == config.ModeOffline))

		pr.Get("/quiz/status", api.QuizStatusHandler(d.quiz))
		pr.With(rbac.Require(rbac.PermQuizGenerate)).
			Post("/quiz/fetch", api.FetchQuizHandler(d.quiz, d.events))
		pr.With(rbac.Require(rbac.PermQuizAnswer)).
			Post("/answer", api.AnswerHandler(d.quiz))
		pr.With(rbac.Require(rbac.PermQuizView)).
			Get("/quiz/sessions/{sessionID}", api.SessionHandler(d.quiz))

		pr.With(rbac.Require(rbac.PermPapersView)).
			Get("/papers", api.ListPapersHandler(d.blobs, d.cfg.PapersPerPage))
		pr.With(rbac.Require(rbac.PermPapersView)).
			Get("/papers/{filename}", api.DownloadPaperHandler(d.blobs))

		pr.With(rbac.Require(rbac.PermChangePassword)).
			Post("/users/change-password", api.ChangePasswordHandler(d.users))

		pr.Route("/admin", func(ar chi.Router) {
			ar.With(rbac.Require(rbac.PermQuestionsList)).
				Get("/questions", api.ListArchivedQuestionsHandler(d.archive))
			ar.With(rbac.Require(rbac.PermPapersUpload)).
				Put("/papers/{filename}", api.UploadPaperHandler(d.blobs, d.events))
			ar.With(rbac.Require(rbac.PermUsersList)).
				Get("/users", api.ListUsersHandler(d.users))
			ar.With(rbac.Require(rbac.PermUsersUpdate)).
				Patch("/users/{userID}", api.AdminUpdateUserRoleHandler(d.users, d.events))
			ar.With(rbac.Require(rbac.PermUsersDelete)).
				Delete("/users/{userID}", api.AdminUserDeleteHandler(d.users, d.events))
			ar.With(rbac.Require(rbac.PermUsersExport)).
				Get("/users/{userID}/export", api.AdminUserExportHandler(d.users, d.archive))
			ar.With(rbac.Require(rbac.PermAuditView)).
				Get("/audit", api.AdminAuditSearchHandler(d.events))
		})
	})

	return r
}

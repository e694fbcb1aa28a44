package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/mind-engage/examprep/internal/audit"
	"github.com/mind-engage/examprep/internal/config"
	"github.com/mind-engage/examprep/internal/db"
	"github.com/mind-engage/examprep/internal/llm"
	"github.com/mind-engage/examprep/internal/quiz"
	"github.com/mind-engage/examprep/internal/storage"
	"github.com/mind-engage/examprep/internal/users"

	authmw "github.com/mind-engage/examprep/internal/auth/middleware"
)

func main() {
	cfg := config.Load()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer dbh.Close()

	userStore := users.NewSQLStore(dbh)
	if created, err := userStore.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatalf("bootstrap admin: %v", err)
	} else if created {
		log.Printf("created admin account %q", cfg.AdminUsername)
	}

	// --- Language model (generation is disabled without an API key) ---
	var completer quiz.Completer = llm.Disabled{}
	available := false
	oa, err := llm.NewOpenAI(llm.Options{
		APIKey:       cfg.OpenAIKey,
		Model:        cfg.OpenAIModel,
		BaseURL:      cfg.OpenAIBaseURL,
		Temperature:  cfg.OpenAITemperature,
		SystemPrompt: quiz.SystemPrompt,
	})
	switch {
	case err == nil:
		completer, available = oa, true
	case errors.Is(err, llm.ErrNotConfigured):
		log.Printf("OPENAI_API_KEY not set; quiz generation disabled")
	default:
		log.Fatalf("llm: %v", err)
	}

	// --- Quiz ---
	archive := quiz.NewSQLArchive(dbh)
	sessions := quiz.NewInMemoryStore(quiz.StoreOptions{
		TTL:                     cfg.SessionTTL,
		AllowResubmit:           cfg.AllowResubmit,
		DeleteSingleAfterAnswer: cfg.DeleteSingleAfterAnswer,
	})
	quizSvc := quiz.NewService(completer, sessions, archive, quiz.ServiceConfig{
		DefaultQuestions:  cfg.DefaultQuestions,
		MaxQuestions:      cfg.MaxQuestions,
		Concurrency:       cfg.GenerateConcurrency,
		CompletionTimeout: cfg.CompletionTimeout,
	}, available)

	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	h := newRouter(deps{
		cfg:     cfg,
		db:      dbh,
		authSvc: authmw.NewAuthService(cfg.AuthSecret),
		users:   userStore,
		quiz:    quizSvc,
		archive: archive,
		blobs:   bs,
		events:  audit.NewEventRepo(dbh),
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: h, ReadHeaderTimeout: 10 * time.Second}

	stop, release := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer release()
	go func() {
		<-stop.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("listening on %s (mode=%s, db=%s, generation=%v)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver, available)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

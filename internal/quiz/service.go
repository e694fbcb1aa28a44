package quiz

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

var (
	ErrMissingParameter = errors.New("missing parameter")
	ErrGenerationFailed = errors.New("failed to generate questions")
)

// Completer is the language-model collaborator: prompt in, free text out.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type ServiceConfig struct {
	DefaultQuestions  int
	MaxQuestions      int
	Concurrency       int
	CompletionTimeout time.Duration
}

type Service struct {
	llm       Completer
	store     SessionStore
	archive   Archive // optional
	cfg       ServiceConfig
	available bool
}

func NewService(llm Completer, store SessionStore, archive Archive, cfg ServiceConfig, available bool) *Service {
	if cfg.DefaultQuestions <= 0 {
		cfg.DefaultQuestions = 5
	}
	if cfg.MaxQuestions <= 0 {
		cfg.MaxQuestions = 20
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Service{llm: llm, store: store, archive: archive, cfg: cfg, available: available}
}

// Available reports whether a real completion backend is configured.
func (s *Service) Available() bool { return s.available }

type GenerateRequest struct {
	UserID       string
	Topic        string
	Level        string
	NumQuestions int
}

// PublicQuestion is what a client sees before answering: no key, no explanation.
type PublicQuestion struct {
	ID       string  `json:"id"`
	Question string  `json:"question"`
	Options  Options `json:"options"`
}

type PublicQuiz struct {
	SessionID string           `json:"session_id"`
	Questions []PublicQuestion `json:"questions"`
}

// Generate asks the collaborator for req.NumQuestions questions, keeps the
// ones that parse and opens a session for them. Individual failures are
// logged and skipped; only an empty batch fails the request.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (PublicQuiz, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return PublicQuiz{}, fmt.Errorf("%w: topic", ErrMissingParameter)
	}
	level := strings.TrimSpace(req.Level)
	if level == "" {
		level = DefaultLevel
	}
	n := req.NumQuestions
	if n <= 0 {
		n = s.cfg.DefaultQuestions
	}
	n = min(n, s.cfg.MaxQuestions)

	prompt := BuildPrompt(topic, level, DefaultNumOptions)
	slots := make([]*Question, n)

	// Attempts never fail the group; a failed slot stays nil.
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i := range slots {
		i := i
		g.Go(func() error {
			q, err := s.generateOne(ctx, prompt)
			if err != nil {
				log.Printf("quiz: attempt %d/%d for topic %q skipped: %v", i+1, n, topic, err)
				return nil
			}
			slots[i] = &q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return PublicQuiz{}, err
	}

	questions := lo.FilterMap(slots, func(q *Question, _ int) (Question, bool) {
		if q == nil {
			return Question{}, false
		}
		return *q, true
	})
	if len(questions) == 0 {
		if err := ctx.Err(); err != nil {
			return PublicQuiz{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
		}
		return PublicQuiz{}, ErrGenerationFailed
	}
	log.Printf("quiz: generated %d/%d questions for topic %q (%s)", len(questions), n, topic, level)

	sess, err := s.store.Create(req.UserID, topic, level, questions)
	if err != nil {
		return PublicQuiz{}, err
	}
	s.archiveSession(ctx, sess)

	return PublicQuiz{
		SessionID: sess.ID,
		Questions: lo.Map(sess.Items, func(it Item, _ int) PublicQuestion {
			return PublicQuestion{ID: it.ID, Question: it.Question.Text, Options: it.Question.Options}
		}),
	}, nil
}

func (s *Service) generateOne(ctx context.Context, prompt string) (Question, error) {
	if s.cfg.CompletionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CompletionTimeout)
		defer cancel()
	}
	text, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return Question{}, fmt.Errorf("completion: %w", err)
	}
	q, err := ParseCompletion(text)
	if err != nil {
		log.Printf("quiz: unparseable completion:\n%s", text)
		return Question{}, err
	}
	return q, nil
}

func (s *Service) archiveSession(ctx context.Context, sess Session) {
	if s.archive == nil {
		return
	}
	for _, it := range sess.Items {
		err := s.archive.Save(ctx, ArchivedQuestion{
			UserID:    sess.OwnerID,
			SessionID: sess.ID,
			Topic:     sess.Topic,
			Level:     sess.Level,
			Question:  it.Question,
			CreatedAt: sess.CreatedAt,
		})
		if err != nil {
			log.Printf("quiz: archive question %s: %v", it.ID, err)
		}
	}
}

// Answer grades a submitted letter for one question of the caller's session.
func (s *Service) Answer(ctx context.Context, userID, sessionID, questionID, answer string) (Verdict, error) {
	sessionID = strings.TrimSpace(sessionID)
	questionID = strings.TrimSpace(questionID)
	if sessionID == "" || questionID == "" || strings.TrimSpace(answer) == "" {
		return Verdict{}, ErrMissingParameter
	}
	letter, err := ParseLabel(answer)
	if err != nil {
		return Verdict{}, err
	}
	return s.store.RecordAnswer(userID, sessionID, questionID, letter)
}

// ItemView reveals the key and explanation only once the item is answered.
type ItemView struct {
	ID            string  `json:"id"`
	Question      string  `json:"question"`
	Options       Options `json:"options"`
	UserAnswer    *Label  `json:"user_answer,omitempty"`
	CorrectAnswer *Label  `json:"correct_answer,omitempty"`
	Explanation   string  `json:"explanation,omitempty"`
	Correct       *bool   `json:"correct,omitempty"`
}

type SessionView struct {
	SessionID string     `json:"session_id"`
	Topic     string     `json:"topic"`
	Level     string     `json:"level"`
	Answered  int        `json:"answered"`
	Correct   int        `json:"correct"`
	Total     int        `json:"total"`
	Items     []ItemView `json:"questions"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at,omitempty"`
}

// Session returns the caller's progress through one session.
func (s *Service) Session(ctx context.Context, userID, sessionID string) (SessionView, error) {
	sess, err := s.store.Get(strings.TrimSpace(sessionID))
	if err != nil {
		return SessionView{}, err
	}
	if sess.OwnerID != userID {
		return SessionView{}, ErrSessionNotFound
	}

	v := SessionView{
		SessionID: sess.ID,
		Topic:     sess.Topic,
		Level:     sess.Level,
		Total:     len(sess.Items),
		Items:     make([]ItemView, 0, len(sess.Items)),
		CreatedAt: sess.CreatedAt,
		ExpiresAt: sess.ExpiresAt,
	}
	for _, it := range sess.Items {
		iv := ItemView{ID: it.ID, Question: it.Question.Text, Options: it.Question.Options}
		if it.UserAnswer != nil {
			key := it.Question.Answer
			ok := *it.UserAnswer == key
			iv.UserAnswer = it.UserAnswer
			iv.CorrectAnswer = &key
			iv.Explanation = it.Question.Explanation
			iv.Correct = &ok
			v.Answered++
			if ok {
				v.Correct++
			}
		}
		v.Items = append(v.Items, iv)
	}
	return v, nil
}

package quiz

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrAlreadyAnswered  = errors.New("question already answered")
	ErrEmptySession     = errors.New("session needs at least one question")
)

// SessionStore holds live quiz sessions. Implementations must be safe for
// concurrent use and must serialize answer updates within one session.
type SessionStore interface {
	Create(ownerID, topic, level string, questions []Question) (Session, error)
	Get(sessionID string) (Session, error)
	// RecordAnswer grades one answer. A session owned by someone other than
	// ownerID is reported as ErrSessionNotFound.
	RecordAnswer(ownerID, sessionID, questionID string, letter Label) (Verdict, error)
	Delete(sessionID string)
}

type StoreOptions struct {
	// TTL bounds a session's lifetime; zero keeps sessions until deleted.
	TTL time.Duration
	// AllowResubmit lets a later answer overwrite an earlier one.
	AllowResubmit bool
	// DeleteSingleAfterAnswer drops one-question sessions once graded.
	DeleteSingleAfterAnswer bool
	// PurgeEvery controls how many creates happen between sweeps of expired sessions.
	PurgeEvery int
	Now        func() time.Time
}

func DefaultStoreOptions() StoreOptions {
	return StoreOptions{TTL: 2 * time.Hour, AllowResubmit: true, PurgeEvery: 256}
}

type liveSession struct {
	mu      sync.Mutex
	session Session
	index   map[string]int
	gone    bool // set under mu once the session is graded out
}

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*liveSession
	opts     StoreOptions
	creates  uint64
}

func NewInMemoryStore(opts StoreOptions) SessionStore {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PurgeEvery <= 0 {
		opts.PurgeEvery = 256
	}
	return &memoryStore{
		sessions: map[string]*liveSession{},
		opts:     opts,
	}
}

func newSessionID() string { return "session_" + uuid.NewString() }

func newQuestionID(n int) string { return fmt.Sprintf("q%d_%s", n, uuid.NewString()[:8]) }

func (m *memoryStore) Create(ownerID, topic, level string, questions []Question) (Session, error) {
	if len(questions) == 0 {
		return Session{}, ErrEmptySession
	}
	now := m.opts.Now()
	s := Session{
		ID:        newSessionID(),
		OwnerID:   ownerID,
		Topic:     topic,
		Level:     level,
		Items:     make([]Item, 0, len(questions)),
		CreatedAt: now,
	}
	if m.opts.TTL > 0 {
		s.ExpiresAt = now.Add(m.opts.TTL)
	}
	idx := make(map[string]int, len(questions))
	for i, q := range questions {
		id := newQuestionID(i + 1)
		idx[id] = i
		s.Items = append(s.Items, Item{ID: id, Question: q})
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.creates%uint64(m.opts.PurgeEvery) == 0 {
		m.purgeLocked(now)
	}
	m.sessions[s.ID] = &liveSession{session: s, index: idx}
	return copySession(s), nil
}

func (m *memoryStore) Get(sessionID string) (Session, error) {
	ls, err := m.lookup(sessionID)
	if err != nil {
		return Session{}, err
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.gone {
		return Session{}, ErrSessionNotFound
	}
	return copySession(ls.session), nil
}

func (m *memoryStore) RecordAnswer(ownerID, sessionID, questionID string, letter Label) (Verdict, error) {
	if !letter.Valid() {
		return Verdict{}, ErrInvalidLabel
	}
	ls, err := m.lookup(sessionID)
	if err != nil {
		return Verdict{}, err
	}

	ls.mu.Lock()
	if ls.gone || ls.session.OwnerID != ownerID {
		ls.mu.Unlock()
		return Verdict{}, ErrSessionNotFound
	}
	i, ok := ls.index[questionID]
	if !ok {
		ls.mu.Unlock()
		return Verdict{}, ErrQuestionNotFound
	}
	it := &ls.session.Items[i]
	if it.UserAnswer != nil && !m.opts.AllowResubmit {
		ls.mu.Unlock()
		return Verdict{}, ErrAlreadyAnswered
	}
	a := letter
	it.UserAnswer = &a
	v := Verdict{
		Correct:       letter == it.Question.Answer,
		CorrectAnswer: it.Question.Answer,
		Explanation:   it.Question.Explanation,
	}
	drop := len(ls.session.Items) == 1 && m.opts.DeleteSingleAfterAnswer
	if drop {
		ls.gone = true
	}
	ls.mu.Unlock()

	if drop {
		m.Delete(sessionID)
	}
	return v, nil
}

func (m *memoryStore) Delete(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

// lookup returns the live session, evicting it when expired.
func (m *memoryStore) lookup(sessionID string) (*liveSession, error) {
	m.mu.RLock()
	ls, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if m.expired(ls, m.opts.Now()) {
		m.Delete(sessionID)
		return nil, ErrSessionNotFound
	}
	return ls, nil
}

// expiry is fixed at creation, so reading it needs no session lock.
func (m *memoryStore) expired(ls *liveSession, now time.Time) bool {
	return !ls.session.ExpiresAt.IsZero() && !now.Before(ls.session.ExpiresAt)
}

func (m *memoryStore) purgeLocked(now time.Time) {
	for id, ls := range m.sessions {
		if m.expired(ls, now) {
			delete(m.sessions, id)
		}
	}
}

func copySession(s Session) Session {
	out := s
	out.Items = make([]Item, len(s.Items))
	for i, it := range s.Items {
		out.Items[i] = it
		if it.UserAnswer != nil {
			a := *it.UserAnswer
			out.Items[i].UserAnswer = &a
		}
	}
	return out
}

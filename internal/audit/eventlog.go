// Package audit keeps an append-only log of account, admin and quiz events.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"
)

const (
	UserRegistered  = "user.registered"
	UserLogin       = "user.login"
	UserRoleChanged = "user.role_changed"
	UserDeleted     = "user.deleted"
	QuizGenerated   = "quiz.generated"
	PaperUploaded   = "paper.uploaded"
)

type Event struct {
	ID        int64           `json:"id"`
	Type      string          `json:"type"`
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Recorder is what handlers depend on. Recording never fails the request.
type Recorder interface {
	Record(ctx context.Context, typ, key string, data any)
}

type Nop struct{}

func (Nop) Record(context.Context, string, string, any) {}

type EventRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db, now: time.Now} }

func (r *EventRepo) Append(ctx context.Context, typ, key string, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO event_log (typ, key, data, created_at) VALUES ($1,$2,$3,$4)`,
		typ, key, string(b), r.now().Unix())
	return err
}

func (r *EventRepo) Record(ctx context.Context, typ, key string, data any) {
	if err := r.Append(ctx, typ, key, data); err != nil {
		log.Printf("audit: %s %s: %v", typ, key, err)
	}
}

// Search returns the newest events whose type or key contains q.
func (r *EventRepo) Search(ctx context.Context, q string, limit int) ([]Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, typ, key, data, created_at FROM event_log
		 WHERE typ LIKE '%' || CAST($1 AS TEXT) || '%' OR key LIKE '%' || CAST($1 AS TEXT) || '%'
		 ORDER BY id DESC LIMIT $2`, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var (
			e         Event
			data      string
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.Type, &e.Key, &data, &createdAt); err != nil {
			return nil, err
		}
		if data != "" && data != "null" {
			e.Data = json.RawMessage(data)
		}
		e.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}

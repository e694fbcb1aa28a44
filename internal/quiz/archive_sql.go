package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// ArchivedQuestion is a generated question kept for later review.
type ArchivedQuestion struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	Topic     string    `json:"topic"`
	Level     string    `json:"level"`
	Question  Question  `json:"question"`
	CreatedAt time.Time `json:"created_at"`
}

type ArchiveListOpts struct {
	Topic  string
	UserID string
	Limit  int
	Offset int
}

// Archive records generated questions. Saving is best-effort from the
// orchestrator's point of view.
type Archive interface {
	Save(ctx context.Context, q ArchivedQuestion) error
	List(ctx context.Context, opts ArchiveListOpts) ([]ArchivedQuestion, error)
}

type SQLArchive struct {
	db *sql.DB
}

func NewSQLArchive(db *sql.DB) *SQLArchive {
	return &SQLArchive{db: db}
}

func (s *SQLArchive) Save(ctx context.Context, q ArchivedQuestion) error {
	oj, err := json.Marshal(q.Question.Options)
	if err != nil {
		return err
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO quiz_questions
		(user_id,session_id,topic,level,question,options_json,correct_answer,explanation,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		q.UserID, q.SessionID, q.Topic, q.Level, q.Question.Text, string(oj),
		q.Question.Answer.String(), q.Question.Explanation, q.CreatedAt.Unix())
	return err
}

func (s *SQLArchive) List(ctx context.Context, opts ArchiveListOpts) ([]ArchivedQuestion, error) {
	if opts.Limit <= 0 || opts.Limit > 200 {
		opts.Limit = 50
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	var where []string
	var args []any
	if t := strings.TrimSpace(opts.Topic); t != "" {
		args = append(args, t)
		where = append(where, "topic=$"+strconv.Itoa(len(args)))
	}
	if u := strings.TrimSpace(opts.UserID); u != "" {
		args = append(args, u)
		where = append(where, "user_id=$"+strconv.Itoa(len(args)))
	}
	q := `SELECT id,user_id,session_id,topic,level,question,options_json,correct_answer,explanation,created_at
		FROM quiz_questions`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, opts.Limit, opts.Offset)
	q += " ORDER BY id DESC LIMIT $" + strconv.Itoa(len(args)-1) + " OFFSET $" + strconv.Itoa(len(args))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ArchivedQuestion{}
	for rows.Next() {
		var (
			a         ArchivedQuestion
			oj, ans   string
			createdAt int64
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.SessionID, &a.Topic, &a.Level,
			&a.Question.Text, &oj, &ans, &a.Question.Explanation, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(oj), &a.Question.Options); err != nil {
			return nil, err
		}
		l, err := ParseLabel(ans)
		if err != nil {
			return nil, err
		}
		a.Question.Answer = l
		a.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, a)
	}
	return out, rows.Err()
}

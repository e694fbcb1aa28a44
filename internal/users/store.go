// Package users persists accounts and verifies their passwords.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"

	bcryptCost = 12
	// MaxPasswordBytes is the longest password bcrypt will hash.
	MaxPasswordBytes = 72
)

var (
	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("user not found")
	ErrPasswordTooLong    = errors.New("password longer than 72 bytes")
)

type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt int64  `json:"created_at"`

	passwordHash string
}

type SQLStore struct{ DB *sql.DB }

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{DB: db} }

// Create registers a student account.
func (s *SQLStore) Create(ctx context.Context, username, email, password string) (User, error) {
	return s.CreateWithRole(ctx, username, email, password, RoleStudent)
}

func (s *SQLStore) CreateWithRole(ctx context.Context, username, email, password, role string) (User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	// Checked up front so callers get a specific error; the UNIQUE constraints still back it.
	if taken, err := s.exists(ctx, `SELECT 1 FROM users WHERE username=$1`, username); err != nil {
		return User{}, err
	} else if taken {
		return User{}, ErrUsernameTaken
	}
	if taken, err := s.exists(ctx, `SELECT 1 FROM users WHERE email=$1`, email); err != nil {
		return User{}, err
	} else if taken {
		return User{}, ErrEmailTaken
	}

	if len(password) > MaxPasswordBytes {
		return User{}, ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	u := User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		Role:      role,
		CreatedAt: time.Now().Unix(),
	}
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, role, created_at) VALUES ($1,$2,$3,$4,$5,$6)`,
		u.ID, u.Username, u.Email, string(hash), u.Role, u.CreatedAt)
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// Authenticate accepts either the username or the email as identifier.
func (s *SQLStore) Authenticate(ctx context.Context, identifier, password string) (User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}
	u, err := s.scanOne(ctx,
		`SELECT id, username, email, password_hash, role, created_at FROM users WHERE username=$1 OR email=$2`,
		identifier, strings.ToLower(identifier))
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.passwordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// ChangePassword requires the current password.
func (s *SQLStore) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.passwordHash), []byte(oldPassword)) != nil {
		return ErrInvalidCredentials
	}
	if len(newPassword) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = s.DB.ExecContext(ctx, `UPDATE users SET password_hash=$1 WHERE id=$2`, string(hash), id)
	return err
}

func (s *SQLStore) Get(ctx context.Context, id string) (User, error) {
	return s.scanOne(ctx,
		`SELECT id, username, email, password_hash, role, created_at FROM users WHERE id=$1`, id)
}

func (s *SQLStore) Role(ctx context.Context, id string) (string, error) {
	var role string
	err := s.DB.QueryRowContext(ctx, `SELECT role FROM users WHERE id=$1`, id).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return role, err
}

func (s *SQLStore) exists(ctx context.Context, q string, arg any) (bool, error) {
	err := s.DB.QueryRowContext(ctx, q, arg).Scan(new(int))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	default:
		return false, err
	}
}

func (s *SQLStore) scanOne(ctx context.Context, q string, args ...any) (User, error) {
	var u User
	err := s.DB.QueryRowContext(ctx, q, args...).
		Scan(&u.ID, &u.Username, &u.Email, &u.passwordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

var (
	ErrInvalidRole = errors.New("invalid role")
	ErrLastAdmin   = errors.New("cannot demote the last admin")
)

func ValidRole(role string) bool { return role == RoleStudent || role == RoleAdmin }

// List returns users ordered by username, optionally filtered by role.
func (s *SQLStore) List(ctx context.Context, role string) ([]User, error) {
	q := `SELECT id, username, email, password_hash, role, created_at FROM users`
	var args []any
	if role != "" {
		q += ` WHERE role=$1`
		args = append(args, role)
	}
	rows, err := s.DB.QueryContext(ctx, q+` ORDER BY username`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.passwordHash, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// SetRole changes the role of the user with the given id or username.
func (s *SQLStore) SetRole(ctx context.Context, target, role string) error {
	if !ValidRole(role) {
		return ErrInvalidRole
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var id, cur string
	err = tx.QueryRowContext(ctx, `SELECT id, role FROM users WHERE id=$1 OR username=$1`, target).Scan(&id, &cur)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if cur == RoleAdmin && role != RoleAdmin {
		var admins int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE role=$1`, RoleAdmin).Scan(&admins); err != nil {
			return err
		}
		if admins <= 1 {
			return ErrLastAdmin
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE users SET role=$1 WHERE id=$2`, role, id); err != nil {
		return err
	}
	return tx.Commit()
}

// EnsureAdmin creates the bootstrap admin account unless a user with that
// username already exists.
func (s *SQLStore) EnsureAdmin(ctx context.Context, username, email, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}
	taken, err := s.exists(ctx, `SELECT 1 FROM users WHERE username=$1`, strings.TrimSpace(username))
	if err != nil || taken {
		return false, err
	}
	if _, err := s.CreateWithRole(ctx, username, email, password, RoleAdmin); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes the user with the given id or username together with the
// questions archived for them. It returns the deleted user's id.
func (s *SQLStore) Delete(ctx context.Context, target string) (string, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	var id, role string
	err = tx.QueryRowContext(ctx, `SELECT id, role FROM users WHERE id=$1 OR username=$1`, target).Scan(&id, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if role == RoleAdmin {
		var admins int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE role=$1`, RoleAdmin).Scan(&admins); err != nil {
			return "", err
		}
		if admins <= 1 {
			return "", ErrLastAdmin
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM quiz_questions WHERE user_id=$1`, id); err != nil {
		return "", err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, id); err != nil {
		return "", err
	}
	return id, tx.Commit()
}

package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bcp-export/internal/domain"
	"bcp-export/internal/session/migrations"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

const DefaultMaxUsers = 10

var ErrNotFound = errors.New("session not found")

// Store keeps the signed-in users in a local SQLite file.
type Store struct {
	db       *sql.DB
	maxUsers int
	now      func() time.Time
}

func Open(path string, maxUsers int) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create session directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	// one writer keeps sqlite from returning SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("session pragma: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	if maxUsers <= 0 {
		maxUsers = DefaultMaxUsers
	}
	return &Store{db: db, maxUsers: maxUsers, now: time.Now}, nil
}

func migrate(db *sql.DB) error {
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("run session migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM active_users").Scan(&n); err != nil {
		return 0, fmt.Errorf("count active users: %w", err)
	}
	return n, nil
}

// CanLogin reports whether another user fits under the active user limit.
func (s *Store) CanLogin(ctx context.Context) (bool, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return false, err
	}
	return n < s.maxUsers, nil
}

func (s *Store) Add(ctx context.Context, token, email string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO active_users (user_token, email, login_time) VALUES (?, ?, ?)
		ON CONFLICT (user_token) DO UPDATE SET email = excluded.email, login_time = excluded.login_time
	`, token, email, s.now().Unix())
	if err != nil {
		return fmt.Errorf("add active user: %w", err)
	}
	return nil
}

func (s *Store) FindByToken(ctx context.Context, token string) (domain.ActiveUser, error) {
	var (
		u     domain.ActiveUser
		login int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT user_token, email, login_time FROM active_users WHERE user_token = ?", token,
	).Scan(&u.Token, &u.Email, &login)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ActiveUser{}, ErrNotFound
	}
	if err != nil {
		return domain.ActiveUser{}, fmt.Errorf("find active user: %w", err)
	}
	u.LoginTime = time.Unix(login, 0)
	return u, nil
}

func (s *Store) IsEmailActive(ctx context.Context, email string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM active_users WHERE email = ?", email).Scan(&n); err != nil {
		return false, fmt.Errorf("check active email: %w", err)
	}
	return n > 0, nil
}

func (s *Store) Remove(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM active_users WHERE user_token = ?", token); err != nil {
		return fmt.Errorf("remove active user: %w", err)
	}
	return nil
}

// CleanupInactive drops users that logged in more than maxAge ago and
// returns how many were removed.
func (s *Store) CleanupInactive(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := s.now().Add(-maxAge).Unix()
	res, err := s.db.ExecContext(ctx, "DELETE FROM active_users WHERE login_time < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup active users: %w", err)
	}
	return res.RowsAffected()
}

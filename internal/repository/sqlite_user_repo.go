package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"go-minimal-auth/internal/model"
)

// SQLiteUserRepository stores users in a local SQLite database. created_at is
// kept as unix milliseconds.
type SQLiteUserRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db, now: time.Now}
}

func (r *SQLiteUserRepository) FindByUsername(ctx context.Context, username string) (model.User, bool, error) {
	var (
		u         model.User
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at
		 FROM users WHERE username = ?
		 LIMIT 1`, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &createdAt)

	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, false, nil
	}
	if err != nil {
		return model.User{}, false, fmt.Errorf("%w: find user by username: %w", model.ErrStore, err)
	}
	u.CreatedAt = time.UnixMilli(createdAt).UTC()
	return u, true, nil
}

func (r *SQLiteUserRepository) Insert(ctx context.Context, username string, passwordHash string) (model.User, error) {
	createdAt := r.now().UTC()

	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (username, password_hash, created_at)
		 VALUES (?, ?, ?)
		 RETURNING id`,
		username, passwordHash, createdAt.UnixMilli()).Scan(&id)

	if isSQLiteUniqueViolation(err) {
		return model.User{}, model.ErrUserAlreadyExists
	}
	if err != nil {
		return model.User{}, fmt.Errorf("%w: insert user: %w", model.ErrStore, err)
	}

	return model.User{
		ID:           id,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.UnixMilli(createdAt.UnixMilli()).UTC(),
	}, nil
}

func (r *SQLiteUserRepository) ListUsernamesOrderedByCreation(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT username FROM users ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: list usernames: %w", model.ErrStore, err)
	}
	defer rows.Close()

	usernames := make([]string, 0)
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, fmt.Errorf("%w: scan username: %w", model.ErrStore, err)
		}
		usernames = append(usernames, username)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list usernames: %w", model.ErrStore, err)
	}
	return usernames, nil
}

func (r *SQLiteUserRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", model.ErrStore, err)
	}
	return nil
}

func isSQLiteUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}

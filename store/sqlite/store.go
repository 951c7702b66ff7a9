// Package sqlite provides a SQLite-backed store.Store.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/wricardo/tictactoe-arena/store"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

//go:embed schema.sql
var schema string

// Store persists accounts and stats in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ store.Store = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store at path and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreateUser inserts one account.
func (s *Store) CreateUser(ctx context.Context, u store.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO users (nick, email, password_hash, wins, losses, draws, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.Nick,
		strings.ToLower(u.Email),
		u.PasswordHash,
		u.Stats.Wins,
		u.Stats.Losses,
		u.Stats.Draws,
		toMillis(createdAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

const userColumns = `nick, email, password_hash, wins, losses, draws, created_at`

// GetUserByNick returns one account by nick.
func (s *Store) GetUserByNick(ctx context.Context, nick string) (store.User, error) {
	if err := ctx.Err(); err != nil {
		return store.User{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE nick = ?`, nick)
	return scanUser(row)
}

// GetUserByEmail returns one account by email, ignoring case.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	if err := ctx.Err(); err != nil {
		return store.User{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(email))
	return scanUser(row)
}

func scanUser(row *sql.Row) (store.User, error) {
	var (
		u         store.User
		createdAt int64
	)
	err := row.Scan(&u.Nick, &u.Email, &u.PasswordHash, &u.Stats.Wins, &u.Stats.Losses, &u.Stats.Draws, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.User{}, store.ErrNotFound
		}
		return store.User{}, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = fromMillis(createdAt)
	return u, nil
}

// RecordOutcome increments one stats column.
func (s *Store) RecordOutcome(ctx context.Context, nick string, outcome store.Outcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var column string
	switch outcome {
	case store.OutcomeWin:
		column = "wins"
	case store.OutcomeLose:
		column = "losses"
	case store.OutcomeDraw:
		column = "draws"
	default:
		return fmt.Errorf("unknown outcome %q", outcome)
	}

	res, err := s.sqlDB.ExecContext(ctx, `UPDATE users SET `+column+` = `+column+` + 1 WHERE nick = ?`, nick)
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Ranking lists accounts by wins.
func (s *Store) Ranking(ctx context.Context, limit int) ([]store.RankEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT nick, wins FROM users ORDER BY wins DESC, nick ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("ranking: %w", err)
	}
	defer rows.Close()

	var entries []store.RankEntry
	for rows.Next() {
		var e store.RankEntry
		if err := rows.Scan(&e.Nick, &e.Wins); err != nil {
			return nil, fmt.Errorf("scan ranking: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ranking: %w", err)
	}
	return entries, nil
}

// PutGuest inserts or refreshes a guest reservation.
func (s *Store) PutGuest(ctx context.Context, g store.Guest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO guests (nick, expires_at) VALUES (?, ?)
		 ON CONFLICT(nick) DO UPDATE SET expires_at = excluded.expires_at`,
		g.Nick,
		toMillis(g.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("put guest: %w", err)
	}
	return nil
}

// GetGuest returns one guest reservation.
func (s *Store) GetGuest(ctx context.Context, nick string) (store.Guest, error) {
	if err := ctx.Err(); err != nil {
		return store.Guest{}, err
	}
	var expiresAt int64
	err := s.sqlDB.QueryRowContext(ctx, `SELECT expires_at FROM guests WHERE nick = ?`, nick).Scan(&expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Guest{}, store.ErrNotFound
		}
		return store.Guest{}, fmt.Errorf("get guest: %w", err)
	}
	return store.Guest{Nick: nick, ExpiresAt: fromMillis(expiresAt)}, nil
}

// DeleteGuest drops a guest reservation.
func (s *Store) DeleteGuest(ctx context.Context, nick string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM guests WHERE nick = ?`, nick); err != nil {
		return fmt.Errorf("delete guest: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

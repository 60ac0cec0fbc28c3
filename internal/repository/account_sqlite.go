package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ggsolution/autotok/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLiteAccountRepository stores accounts in a SQLite database.
type SQLiteAccountRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteAccountRepository opens (creating if needed) the database at path.
func NewSQLiteAccountRepository(path string) (*SQLiteAccountRepository, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection serializes writes and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			nickname TEXT NOT NULL DEFAULT '',
			avatar TEXT NOT NULL DEFAULT '',
			access_token TEXT NOT NULL DEFAULT '',
			refresh_token TEXT NOT NULL DEFAULT '',
			seq INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_accounts_seq ON accounts(seq);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteAccountRepository{db: db, now: time.Now}, nil
}

// Close closes the database.
func (r *SQLiteAccountRepository) Close() error {
	return r.db.Close()
}

// Ping checks the database is reachable.
func (r *SQLiteAccountRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// List returns all accounts in connection order.
func (r *SQLiteAccountRepository) List(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, nickname, avatar, access_token, refresh_token, updated_at
		FROM accounts ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	accounts := []domain.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

// Get returns the account with the given id.
func (r *SQLiteAccountRepository) Get(ctx context.Context, id domain.AccountID) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, nickname, avatar, access_token, refresh_token, updated_at
		FROM accounts WHERE id = ?
	`, string(id))
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	return a, err
}

// Upsert inserts the account or replaces the row with the same id, keeping
// its original position.
func (r *SQLiteAccountRepository) Upsert(ctx context.Context, account domain.Account) error {
	if account.ID == "" {
		return domain.NewInvalidInputError("id", "is required")
	}
	updated := r.now().UTC().Format(time.RFC3339Nano)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, nickname, avatar, access_token, refresh_token, seq, updated_at)
		VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM accounts), ?)
		ON CONFLICT(id) DO UPDATE SET
			nickname = excluded.nickname,
			avatar = excluded.avatar,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			updated_at = excluded.updated_at
	`, string(account.ID), account.Nickname, account.Avatar, account.AccessToken, account.RefreshToken, updated)
	if err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}
	return nil
}

// Remove deletes the account with the given id.
func (r *SQLiteAccountRepository) Remove(ctx context.Context, id domain.AccountID) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", string(id))
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if n == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(s rowScanner) (*domain.Account, error) {
	var (
		a       domain.Account
		id      string
		updated string
	)
	if err := s.Scan(&id, &a.Nickname, &a.Avatar, &a.AccessToken, &a.RefreshToken, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	a.ID = domain.AccountID(id)
	if t, err := time.Parse(time.RFC3339Nano, updated); err == nil {
		a.UpdatedAt = t
	}
	return &a, nil
}

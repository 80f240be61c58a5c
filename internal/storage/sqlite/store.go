// Package sqlite implements storage.Store on SQLite through database/sql and
// the pure-Go modernc driver. The schema is managed by embedded migrations.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bajeti/internal/core"
	"bajeti/internal/storage"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
	*queries
}

var _ storage.Store = (*Store)(nil)

func dsn(path string) string {
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Open opens (creating if needed) the database at dbPath and migrates it.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, queries: &queries{db: db, now: time.Now}}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// View runs fn inside a read-only deferred transaction. Under WAL the first
// read pins a snapshot that every later read in fn shares.
func (s *Store) View(ctx context.Context, fn func(storage.Reader) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("begin read transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&queries{db: tx, now: s.now}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) RegisterUser(ctx context.Context, u *core.User, first *core.Budget) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := &queries{db: tx, now: s.now}
	if err := q.createUser(ctx, u); err != nil {
		return err
	}
	if first != nil {
		first.UserID = u.ID
		if err := q.CreateBudget(ctx, first); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit registration: %w", err)
	}
	return nil
}

// translate maps driver errors onto domain errors.
func translate(err error, notFound, conflict string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return core.NotFound(notFound)
	case storage.IsUniqueViolation(err):
		return core.Conflict(conflict)
	case isForeignKeyViolation(err):
		return core.NotFound(notFound)
	default:
		return err
	}
}

// Package postgres implements storage.Store on PostgreSQL through gorm.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"bajeti/internal/core"
	"bajeti/internal/storage"
)

type Store struct {
	*repo
}

var _ storage.Store = (*Store)(nil)

// Open connects to dsn and, when autoMigrate is set, creates or updates the
// schema from the model definitions.
func Open(dsn string, autoMigrate bool) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if autoMigrate {
		// One model at a time so the failing table shows in the error.
		for _, m := range allModels() {
			if err := db.AutoMigrate(m); err != nil {
				return nil, fmt.Errorf("auto migrate %T: %w", m, err)
			}
		}
		slog.Info("Postgres schema migrated", "component", "storage")
	}

	return &Store{repo: &repo{db: db}}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// View runs fn inside a read-only repeatable-read transaction, so all reads in
// fn observe one snapshot.
func (s *Store) View(ctx context.Context, fn func(storage.Reader) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&repo{db: tx})
	}, &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead})
}

func (s *Store) RegisterUser(ctx context.Context, u *core.User, first *core.Budget) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := &repo{db: tx}
		if err := r.createUser(ctx, u); err != nil {
			return err
		}
		if first == nil {
			return nil
		}
		first.UserID = u.ID
		return r.CreateBudget(ctx, first)
	})
}

func translate(err error, notFound, conflict string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return core.NotFound(notFound)
	case errors.Is(err, gorm.ErrDuplicatedKey), storage.IsUniqueViolation(err):
		return core.Conflict(conflict)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return core.NotFound(notFound)
	default:
		return err
	}
}

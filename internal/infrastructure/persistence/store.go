package persistence

import (
	"context"

	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/repository/common"
	"github.com/jmoiron/sqlx"
)

// Store - хранилище леджера поверх PostgreSQL.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// conn - соединение, через которое работают репозитории: пул или открытая транзакция.
type conn struct {
	q  sqlx.ExtContext
	tx *sqlx.Tx
	db *sqlx.DB
}

func (s *Store) repositories(c *conn) repository.Repositories {
	return repository.Repositories{
		Orders:     &orderRepo{c: c},
		Payments:   &paymentRepo{c: c},
		Executions: &executionRepo{c: c},
		Disputes:   &disputeRepo{c: c},
		Audit:      &auditRepo{c: c},
		Events:     &eventRepo{c: c},
		Services:   &serviceRepo{c: c},
	}
}

func (s *Store) Repositories() repository.Repositories {
	return s.repositories(&conn{q: s.db, db: s.db})
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	return common.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		return fn(ctx, s.repositories(&conn{q: tx, tx: tx, db: s.db}))
	})
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "база данных недоступна")
	}
	return nil
}

func dbError(err error, message string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperror.As(err); ok {
		return err
	}
	return apperror.Wrap(err, apperror.ErrCodeDatabaseError, message)
}

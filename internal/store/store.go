// Package store is the Postgres persistence layer behind the services.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"ytmanager-backend-go/internal/db"
)

var errNoRows = sql.ErrNoRows

type Store struct {
	DB *sqlx.DB
}

func New(conn *sqlx.DB) *Store {
	return &Store{DB: conn}
}

func (s *Store) PingContext(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *Store) tx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return db.WithTx(ctx, s.DB, fn)
}

// affected returns a not-found error when a write touched no rows.
func affected(res interface{ RowsAffected() (int64, error) }, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, errNoRows)
	}
	return nil
}

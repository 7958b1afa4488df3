package db

import (
	"context"
	"database/sql"

	"github.com/mediahub/mediahub/internal/auth"
)

// Store is responsible for interacting with the credential database.
//
// Writes go through a transaction on the write pool, FindUsers
// outside of a transaction uses the read pool.
type Store struct {
	write *sql.DB
	read  *sql.DB
}

// New creates a new Store. write and read may be the same pool.
func New(write, read *sql.DB) *Store {
	return &Store{
		write: write,
		read:  read,
	}
}

// BeginTx starts a new transaction.
func (s *Store) BeginTx(ctx context.Context) (auth.Tx, error) {
	tx, err := s.write.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{
		ctx: ctx,
		tx:  tx,
	}, nil
}

// FindUsers queries for users based on the provided filter.
// It returns an empty slice if no users are found.
func (s *Store) FindUsers(ctx context.Context, filter *auth.UserFilter) ([]auth.User, error) {
	return selectUsers(ctx, s.read.QueryContext, filter)
}

package db

import (
	"context"
	"database/sql"

	"github.com/mediahub/mediahub/internal/auth"
)

type Tx struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// CreateUser creates a user in the database.
// It sets the users ID when successful.
func (t *Tx) CreateUser(u *auth.User) error {
	return insertUser(t.ctx, t.tx.ExecContext, u)
}

// UpdateUser updates every field of a user except its ID and Username.
// It returns errorz.ErrNotFound if no user is found.
func (t *Tx) UpdateUser(u *auth.User) error {
	return updateUser(t.ctx, t.tx.ExecContext, u)
}

// DeleteUser deletes the user with the given ID.
// It returns errorz.ErrNotFound if no user is found.
func (t *Tx) DeleteUser(id int) error {
	return deleteUser(t.ctx, t.tx.ExecContext, id)
}

// FindUsers queries for users based on the provided filter.
// It returns an empty slice if no users are found.
func (t *Tx) FindUsers(filter *auth.UserFilter) ([]auth.User, error) {
	return selectUsers(t.ctx, t.tx.QueryContext, filter)
}

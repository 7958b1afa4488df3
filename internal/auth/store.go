package auth

import (
	"context"

	"github.com/mediahub/mediahub/internal/email"
	"github.com/mediahub/mediahub/internal/krypto"
)

// UserFilter is used filter users.
// Returned users must match all the provided fields.
// If a field is empty or nil, it's ignored.
type UserFilter struct {
	IDs       []int
	Usernames []Username
	Emails    []email.Address
	IsAdmin   *bool
}

// Store provides access to the credential store.
type Store interface {
	BeginTx(ctx context.Context) (Tx, error)
	FindUsers(ctx context.Context, filter *UserFilter) ([]User, error)
}

// Tx is a transaction. If an error occurs on any of the Create/Update/Delete/Find
// methods, the transaction is considered to have failed and should be rolled back.
// Tx is not safe for concurrent use.
type Tx interface {
	Commit() error
	Rollback() error

	// CreateUser assigns the ID of u. It returns ErrDuplicateUsername or
	// ErrDuplicateEmail when a unique constraint is violated.
	CreateUser(u *User) error
	// UpdateUser returns errorz.ErrNotFound if no user has the ID of u.
	UpdateUser(u *User) error
	// DeleteUser returns errorz.ErrNotFound if no user has the ID.
	DeleteUser(id int) error
	FindUsers(filter *UserFilter) ([]User, error)
}

// Sessions binds session tokens to users.
type Sessions interface {
	Create(ctx context.Context, userID int) (krypto.Token, error)
	Resolve(ctx context.Context, token krypto.Token) (int, error)
	Destroy(ctx context.Context, token krypto.Token) error
	DestroyForUser(ctx context.Context, userID int) error
}

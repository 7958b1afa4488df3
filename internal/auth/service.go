package auth

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/mediahub/mediahub/internal/email"
	"github.com/mediahub/mediahub/internal/errorz"
	"github.com/mediahub/mediahub/internal/krypto"
	"golang.org/x/sync/semaphore"
)

var (
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccessDenied       = errors.New("access denied")
	ErrSelfDelete         = errors.New("cannot delete yourself")
)

// ErrFunc is a function that handles errors.
type ErrFunc func(error)

// ServiceConfig is the configuration for the Service.
type ServiceConfig struct {
	// MaxConcurrentHashes bounds the number of scrypt derivations that run
	// at the same time. Every derivation allocates 16MiB. Defaults to
	// GOMAXPROCS when zero.
	MaxConcurrentHashes int64
}

// Service is the type that provides the main rules for
// authentication.
type Service struct {
	store      Store
	sessions   Sessions
	errHandler ErrFunc
	hashSem    *semaphore.Weighted

	// comparisonHash is used to compare passwords when no user was found.
	comparisonHash krypto.ScryptHash

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

func NewService(s Store, sessions Sessions, errHandler ErrFunc, cfg ServiceConfig) (*Service, error) {
	tok, err := krypto.GenerateToken()
	if err != nil {
		return nil, err
	}

	hash, err := krypto.HashScrypt(tok[:])
	if err != nil {
		return nil, err
	}

	maxHashes := cfg.MaxConcurrentHashes
	if maxHashes <= 0 {
		maxHashes = int64(runtime.GOMAXPROCS(0))
	}

	return &Service{
		store:          s,
		sessions:       sessions,
		errHandler:     errHandler,
		hashSem:        semaphore.NewWeighted(maxHashes),
		comparisonHash: hash,
		NowFunc:        time.Now,
	}, nil
}

// Register creates a new regular user and starts a session for it.
// It returns ErrDuplicateUsername or ErrDuplicateEmail if either is taken,
// the username is checked first.
func (s *Service) Register(ctx context.Context, reg Registration) (User, krypto.Token, error) {
	// Hash before starting the transaction, it's the slowest part.
	pwdHash, err := s.hash(ctx, reg.Password)
	if err != nil {
		return User{}, krypto.Token{}, err
	}

	user := User{
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: pwdHash,
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		IsAdmin:      false,
		CreatedAt:    s.NowFunc().UTC(),
	}

	err = s.inTx(ctx, func(tx Tx) error {
		// The unique constraints of the store are what guarantee uniqueness,
		// these lookups only make sure the username error wins when both are taken.
		txErr := checkAvailable(tx, user.Username, user.Email)
		if txErr != nil {
			return txErr
		}

		return tx.CreateUser(&user)
	})
	if err != nil {
		return User{}, krypto.Token{}, err
	}

	token, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return User{}, krypto.Token{}, err
	}

	return user, token, nil
}

func checkAvailable(tx Tx, username Username, addr email.Address) error {
	users, err := tx.FindUsers(&UserFilter{Usernames: []Username{username}})
	if err != nil {
		return err
	}

	if len(users) > 0 {
		return ErrDuplicateUsername
	}

	users, err = tx.FindUsers(&UserFilter{Emails: []email.Address{addr}})
	if err != nil {
		return err
	}

	if len(users) > 0 {
		return ErrDuplicateEmail
	}

	return nil
}

// Login checks the credentials and starts a session for the user.
// It returns ErrInvalidCredentials without revealing which part was wrong.
func (s *Service) Login(ctx context.Context, c Credentials) (User, krypto.Token, error) {
	user, err := s.authenticate(ctx, c)
	if err != nil {
		return User{}, krypto.Token{}, err
	}

	token, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return User{}, krypto.Token{}, err
	}

	return user, token, nil
}

// AdminLogin is like Login, but only admins get a session. Credentials are
// fully verified first, so a non-admin with a wrong password gets
// ErrInvalidCredentials and a non-admin with the right password gets
// ErrAccessDenied. No session is created in either case.
func (s *Service) AdminLogin(ctx context.Context, c Credentials) (User, krypto.Token, error) {
	user, err := s.authenticate(ctx, c)
	if err != nil {
		return User{}, krypto.Token{}, err
	}

	if !user.IsAdmin {
		return User{}, krypto.Token{}, ErrAccessDenied
	}

	token, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return User{}, krypto.Token{}, err
	}

	return user, token, nil
}

func (s *Service) authenticate(ctx context.Context, c Credentials) (User, error) {
	users, err := s.store.FindUsers(ctx, &UserFilter{
		Usernames: []Username{c.Username},
	})
	if err != nil {
		return User{}, err
	}

	if len(users) != 1 {
		// Even if no user is found we compare to a hash to prevent timing differences
		// that could result in user enumeration attacks.
		_, err = s.match(ctx, c.Password, s.comparisonHash)
		if err != nil {
			return User{}, err
		}
		return User{}, ErrInvalidCredentials
	}

	ok, err := s.match(ctx, c.Password, users[0].PasswordHash)
	if err != nil {
		return User{}, err
	}

	if !ok {
		return User{}, ErrInvalidCredentials
	}

	return users[0], nil
}

// Logout ends the session identified by token. It's idempotent and never
// fails for the caller, store errors are passed to the error handler.
func (s *Service) Logout(ctx context.Context, token krypto.Token) {
	err := s.sessions.Destroy(ctx, token)
	if err != nil {
		s.errHandler(fmt.Errorf("failed to destroy session: %w", err))
	}
}

// CurrentUser returns the user the session belongs to. It returns
// errorz.ErrNotFound if the session is unknown or expired, or when the
// user was deleted after the session started.
func (s *Service) CurrentUser(ctx context.Context, token krypto.Token) (User, error) {
	userID, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		return User{}, err
	}

	return s.GetUser(ctx, userID)
}

// GetUser returns the user with the given ID or errorz.ErrNotFound.
func (s *Service) GetUser(ctx context.Context, id int) (User, error) {
	users, err := s.store.FindUsers(ctx, &UserFilter{IDs: []int{id}})
	if err != nil {
		return User{}, err
	}

	if len(users) != 1 {
		return User{}, errorz.ErrNotFound
	}

	return users[0], nil
}

// ListUsers returns all users matching the filter, ordered by ID.
func (s *Service) ListUsers(ctx context.Context, filter UserFilter) ([]User, error) {
	return s.store.FindUsers(ctx, &filter)
}

// UpdateUser applies a partial update to the user with the given ID.
// Changing the password ends every session of the user.
func (s *Service) UpdateUser(ctx context.Context, id int, upd UserUpdate) (User, error) {
	var pwdHash *krypto.ScryptHash
	if upd.Password != nil {
		h, err := s.hash(ctx, *upd.Password)
		if err != nil {
			return User{}, err
		}
		pwdHash = &h
	}

	var user User
	err := s.inTx(ctx, func(tx Tx) error {
		users, txErr := tx.FindUsers(&UserFilter{IDs: []int{id}})
		if txErr != nil {
			return txErr
		}

		if len(users) != 1 {
			return errorz.ErrNotFound
		}

		user = users[0]
		upd.apply(&user)
		if pwdHash != nil {
			user.PasswordHash = *pwdHash
		}

		if upd.Email != nil && *upd.Email != users[0].Email {
			others, txErr := tx.FindUsers(&UserFilter{Emails: []email.Address{user.Email}})
			if txErr != nil {
				return txErr
			}

			if len(others) > 0 {
				return ErrDuplicateEmail
			}
		}

		return tx.UpdateUser(&user)
	})
	if err != nil {
		return User{}, err
	}

	if pwdHash != nil {
		err = s.sessions.DestroyForUser(ctx, id)
		if err != nil {
			return User{}, err
		}
	}

	return user, nil
}

// DeleteUser deletes the user with the given ID and ends its sessions.
// actorID is the user performing the deletion, users can't delete themselves.
// Sessions that could not be ended no longer resolve to a user, so failing
// to end them is reported to the error handler and does not fail the call.
func (s *Service) DeleteUser(ctx context.Context, actorID, id int) error {
	if actorID == id {
		return ErrSelfDelete
	}

	err := s.inTx(ctx, func(tx Tx) error {
		return tx.DeleteUser(id)
	})
	if err != nil {
		return err
	}

	err = s.sessions.DestroyForUser(ctx, id)
	if err != nil {
		s.errHandler(fmt.Errorf("failed to destroy sessions of deleted user %d: %w", id, err))
	}

	return nil
}

// EnsureAdmin creates the admin described by seed, unless a user with the
// same username already exists. It reports whether a user was created.
func (s *Service) EnsureAdmin(ctx context.Context, seed AdminSeed) (bool, error) {
	existing, err := s.store.FindUsers(ctx, &UserFilter{Usernames: []Username{seed.Username}})
	if err != nil {
		return false, err
	}

	if len(existing) > 0 {
		return false, nil
	}

	pwdHash, err := s.hash(ctx, seed.Password)
	if err != nil {
		return false, err
	}

	user := User{
		Username:     seed.Username,
		Email:        seed.Email,
		PasswordHash: pwdHash,
		IsAdmin:      true,
		CreatedAt:    s.NowFunc().UTC(),
	}

	err = s.inTx(ctx, func(tx Tx) error {
		return tx.CreateUser(&user)
	})
	if errors.Is(err, ErrDuplicateUsername) {
		// Someone else created it in the meantime.
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

// hash hashes p, waiting for a free hashing slot.
func (s *Service) hash(ctx context.Context, p Password) (krypto.ScryptHash, error) {
	err := s.hashSem.Acquire(ctx, 1)
	if err != nil {
		return krypto.ScryptHash{}, err
	}
	defer s.hashSem.Release(1)

	return p.Hash()
}

// match compares p to h, waiting for a free hashing slot.
func (s *Service) match(ctx context.Context, p Password, h krypto.ScryptHash) (bool, error) {
	err := s.hashSem.Acquire(ctx, 1)
	if err != nil {
		return false, err
	}
	defer s.hashSem.Release(1)

	return p.Match(h), nil
}

func (s *Service) inTx(ctx context.Context, f func(tx Tx) error) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return err
	}

	err = f(tx)
	if err != nil {
		rBackErr := tx.Rollback()
		if rBackErr != nil {
			err = errors.Join(err, rBackErr)
		}
		return err
	}

	err = tx.Commit()
	if err != nil {
		return err
	}

	return nil
}

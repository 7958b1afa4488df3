package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mediahub/mediahub/internal/errorz"
	"github.com/mediahub/mediahub/internal/krypto"
)

// DefaultTTL is how long a session lives when no TTL is configured.
const DefaultTTL = 24 * time.Hour

// Session binds a token to a user for a limited time.
// Only the hash of the token is kept.
type Session struct {
	TokenHash krypto.TokenHash
	UserID    int
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsExpired reports whether s is expired at the given time.
func (s Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store persists sessions.
type Store interface {
	// Save creates or replaces a session.
	Save(ctx context.Context, s Session) error
	// Find returns errorz.ErrNotFound if no session has the given hash.
	// It may return expired sessions.
	Find(ctx context.Context, h krypto.TokenHash) (Session, error)
	// Delete removes a session, deleting an unknown session is not an error.
	Delete(ctx context.Context, h krypto.TokenHash) error
	DeleteForUser(ctx context.Context, userID int) error
	// DeleteExpired removes every session that expired at or before now,
	// and returns the number of removed sessions.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// Manager creates and resolves sessions.
type Manager struct {
	store Store
	ttl   time.Duration

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

// NewManager creates a new Manager. A zero ttl uses DefaultTTL.
func NewManager(store Store, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Manager{
		store:   store,
		ttl:     ttl,
		NowFunc: time.Now,
	}
}

// TTL returns the lifetime of new sessions.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Create starts a new session for the user and returns its token.
func (m *Manager) Create(ctx context.Context, userID int) (krypto.Token, error) {
	token, err := krypto.GenerateToken()
	if err != nil {
		return krypto.Token{}, fmt.Errorf("failed to generate token: %w", err)
	}

	now := m.NowFunc().UTC()
	err = m.store.Save(ctx, Session{
		TokenHash: token.Hash(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	})
	if err != nil {
		return krypto.Token{}, err
	}

	return token, nil
}

// Resolve returns the ID of the user the token belongs to. It returns
// errorz.ErrNotFound for unknown and expired sessions, expired sessions
// are removed.
func (m *Manager) Resolve(ctx context.Context, token krypto.Token) (int, error) {
	h := token.Hash()

	s, err := m.store.Find(ctx, h)
	if err != nil {
		return 0, err
	}

	if s.IsExpired(m.NowFunc()) {
		err = m.store.Delete(ctx, h)
		return 0, errors.Join(errorz.ErrNotFound, err)
	}

	return s.UserID, nil
}

// Destroy ends the session of token. Destroying an unknown session is not an error.
func (m *Manager) Destroy(ctx context.Context, token krypto.Token) error {
	return m.store.Delete(ctx, token.Hash())
}

// DestroyForUser ends every session of the user.
func (m *Manager) DestroyForUser(ctx context.Context, userID int) error {
	return m.store.DeleteForUser(ctx, userID)
}

// PurgeExpired removes all expired sessions.
func (m *Manager) PurgeExpired(ctx context.Context) (int, error) {
	return m.store.DeleteExpired(ctx, m.NowFunc())
}

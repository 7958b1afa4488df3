package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/mediahub/mediahub/internal/db"
	"github.com/mediahub/mediahub/internal/errorz"
	"github.com/mediahub/mediahub/internal/krypto"
	"github.com/mediahub/mediahub/internal/session"
)

// Store keeps sessions in the sessions table.
// Timestamps are stored as unix nanoseconds so expiry checks are plain
// integer comparisons.
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

func (s *Store) Save(ctx context.Context, sess session.Session) error {
	var q db.Query
	q.Unsafe(`INSERT OR REPLACE INTO sessions (token_hash, user_id, created_at, expires_at) VALUES (`)
	q.Params(sess.TokenHash.String(), sess.UserID, sess.CreatedAt.UnixNano(), sess.ExpiresAt.UnixNano())
	q.Unsafe(`)`)

	query, params := q.Get()
	_, err := s.write.ExecContext(ctx, query, params...)
	return errorz.MapDBErr(err)
}

func (s *Store) Find(ctx context.Context, h krypto.TokenHash) (session.Session, error) {
	var q db.Query
	q.Unsafe(`SELECT user_id, created_at, expires_at FROM sessions WHERE token_hash = `)
	q.Param(h.String())

	query, params := q.Get()
	row := s.read.QueryRowContext(ctx, query, params...)

	var sess session.Session
	var createdAt, expiresAt int64
	err := row.Scan(&sess.UserID, &createdAt, &expiresAt)
	if err != nil {
		return session.Session{}, errorz.MapDBErr(err)
	}

	sess.TokenHash = h
	sess.CreatedAt = time.Unix(0, createdAt).UTC()
	sess.ExpiresAt = time.Unix(0, expiresAt).UTC()

	return sess, nil
}

func (s *Store) Delete(ctx context.Context, h krypto.TokenHash) error {
	var q db.Query
	q.Unsafe(`DELETE FROM sessions WHERE token_hash = `)
	q.Param(h.String())

	query, params := q.Get()
	_, err := s.write.ExecContext(ctx, query, params...)
	return errorz.MapDBErr(err)
}

func (s *Store) DeleteForUser(ctx context.Context, userID int) error {
	var q db.Query
	q.Unsafe(`DELETE FROM sessions WHERE user_id = `)
	q.Param(userID)

	query, params := q.Get()
	_, err := s.write.ExecContext(ctx, query, params...)
	return errorz.MapDBErr(err)
}

func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	var q db.Query
	q.Unsafe(`DELETE FROM sessions WHERE expires_at <= `)
	q.Param(now.UnixNano())

	query, params := q.Get()
	result, err := s.write.ExecContext(ctx, query, params...)
	if err != nil {
		return 0, errorz.MapDBErr(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, errorz.MapDBErr(err)
	}

	return int(n), nil
}

// Package redisstore keeps sessions in Redis.
//
// Every session is a hash under "session:<token hash>" that expires with the
// session. The hashes of a user's sessions are tracked in the set
// "user_sessions:<user id>" so they can be removed together.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mediahub/mediahub/internal/errorz"
	"github.com/mediahub/mediahub/internal/krypto"
	"github.com/mediahub/mediahub/internal/session"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix     = "session:"
	userSessionKeyPrefix = "user_sessions:"

	fieldUserID    = "user_id"
	fieldCreatedAt = "created_at"
	fieldExpiresAt = "expires_at"
)

// Store is a session.Store backed by Redis.
type Store struct {
	rdb redis.UniversalClient
}

// New creates a new Store.
func New(rdb redis.UniversalClient) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) Save(ctx context.Context, sess session.Session) error {
	key := sessionKey(sess.TokenHash)
	userKey := userSessionsKey(sess.UserID)

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			fieldUserID, sess.UserID,
			fieldCreatedAt, sess.CreatedAt.UnixNano(),
			fieldExpiresAt, sess.ExpiresAt.UnixNano(),
		)
		pipe.PExpireAt(ctx, key, sess.ExpiresAt)

		pipe.SAdd(ctx, userKey, sess.TokenHash.String())
		// All sessions share the same lifetime, so the newest one expires last.
		pipe.PExpireAt(ctx, userKey, sess.ExpiresAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

func (s *Store) Find(ctx context.Context, h krypto.TokenHash) (session.Session, error) {
	vals, err := s.rdb.HGetAll(ctx, sessionKey(h)).Result()
	if err != nil {
		return session.Session{}, fmt.Errorf("failed to find session: %w", err)
	}

	if len(vals) == 0 {
		return session.Session{}, errorz.ErrNotFound
	}

	userID, err := strconv.Atoi(vals[fieldUserID])
	if err != nil {
		return session.Session{}, fmt.Errorf("invalid %s in session: %w", fieldUserID, err)
	}

	createdAt, err := parseNanos(vals[fieldCreatedAt])
	if err != nil {
		return session.Session{}, fmt.Errorf("invalid %s in session: %w", fieldCreatedAt, err)
	}

	expiresAt, err := parseNanos(vals[fieldExpiresAt])
	if err != nil {
		return session.Session{}, fmt.Errorf("invalid %s in session: %w", fieldExpiresAt, err)
	}

	return session.Session{
		TokenHash: h,
		UserID:    userID,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}, nil
}

// deleteScript removes a session and its entry in the set of its user.
// KEYS[1] is the session key, ARGV[1] the user set prefix and ARGV[2] the token hash.
var deleteScript = redis.NewScript(`
local userID = redis.call("HGET", KEYS[1], "` + fieldUserID + `")
if not userID then
	return 0
end
redis.call("DEL", KEYS[1])
redis.call("SREM", ARGV[1] .. userID, ARGV[2])
return 1
`)

func (s *Store) Delete(ctx context.Context, h krypto.TokenHash) error {
	err := deleteScript.Run(ctx, s.rdb, []string{sessionKey(h)}, userSessionKeyPrefix, h.String()).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

func (s *Store) DeleteForUser(ctx context.Context, userID int) error {
	userKey := userSessionsKey(userID)

	hashes, err := s.rdb.SMembers(ctx, userKey).Result()
	if err != nil {
		return fmt.Errorf("failed to list sessions of user: %w", err)
	}

	keys := make([]string, 0, len(hashes)+1)
	for _, h := range hashes {
		keys = append(keys, sessionKeyPrefix+h)
	}
	keys = append(keys, userKey)

	err = s.rdb.Del(ctx, keys...).Err()
	if err != nil {
		return fmt.Errorf("failed to delete sessions of user: %w", err)
	}

	return nil
}

// DeleteExpired is a no-op, Redis expires sessions by itself.
func (s *Store) DeleteExpired(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}

func sessionKey(h krypto.TokenHash) string {
	return sessionKeyPrefix + h.String()
}

func userSessionsKey(userID int) string {
	return userSessionKeyPrefix + strconv.Itoa(userID)
}

func parseNanos(v string) (time.Time, error) {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, n).UTC(), nil
}

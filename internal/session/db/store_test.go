package db_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/mediahub/mediahub/internal/db/testdb"
	"github.com/mediahub/mediahub/internal/errorz"
	"github.com/mediahub/mediahub/internal/krypto"
	"github.com/mediahub/mediahub/internal/session"
	"github.com/mediahub/mediahub/internal/session/db"
)

func Test_Store_SaveFind(t *testing.T) {
	t.Run("ok, find saved session", func(t *testing.T) {
		store := storeForTest(t)
		want := testSession(t, 1, 0)

		err := store.Save(context.Background(), want)
		if err != nil {
			t.Fatalf("failed to save session: %v", err)
		}

		got, err := store.Find(context.Background(), want.TokenHash)
		if err != nil {
			t.Fatalf("failed to find session: %v", err)
		}

		if !reflect.DeepEqual(got, want) {
			t.Errorf("got\n%#v\nwant\n%#v\n", got, want)
		}
	})

	t.Run("ok, expired sessions are still found", func(t *testing.T) {
		store := storeForTest(t)
		sess := testSession(t, 1, -48*time.Hour)

		err := store.Save(context.Background(), sess)
		if err != nil {
			t.Fatalf("failed to save session: %v", err)
		}

		_, err = store.Find(context.Background(), sess.TokenHash)
		if err != nil {
			t.Fatalf("failed to find session: %v", err)
		}
	})

	t.Run("fail, not found", func(t *testing.T) {
		store := storeForTest(t)

		_, err := store.Find(context.Background(), testSession(t, 1, 0).TokenHash)
		if !errors.Is(err, errorz.ErrNotFound) {
			t.Fatalf("expected error %v, got %v (via errors.Is)", errorz.ErrNotFound, err)
		}
	})
}

func Test_Store_Delete(t *testing.T) {
	store := storeForTest(t)
	a := testSession(t, 1, 0)
	b := testSession(t, 1, 0)
	c := testSession(t, 2, 0)
	saveAll(t, store, a, b, c)

	t.Run("ok, delete one", func(t *testing.T) {
		err := store.Delete(context.Background(), a.TokenHash)
		if err != nil {
			t.Fatalf("failed to delete: %v", err)
		}

		assertNotFound(t, store, a)
		assertFound(t, store, b)
	})

	t.Run("ok, delete unknown", func(t *testing.T) {
		err := store.Delete(context.Background(), a.TokenHash)
		if err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
	})

	t.Run("ok, delete for user", func(t *testing.T) {
		err := store.DeleteForUser(context.Background(), 1)
		if err != nil {
			t.Fatalf("failed to delete: %v", err)
		}

		assertNotFound(t, store, b)
		assertFound(t, store, c)
	})
}

func Test_Store_DeleteExpired(t *testing.T) {
	store := storeForTest(t)
	expired := testSession(t, 1, -25*time.Hour)
	edge := testSession(t, 1, -24*time.Hour)
	valid := testSession(t, 2, 0)
	saveAll(t, store, expired, edge, valid)

	n, err := store.DeleteExpired(context.Background(), now(t))
	if err != nil {
		t.Fatalf("failed to delete expired: %v", err)
	}

	if n != 2 {
		t.Errorf("deleted %d sessions, want 2", n)
	}

	assertNotFound(t, store, expired)
	assertNotFound(t, store, edge)
	assertFound(t, store, valid)
}

func storeForTest(t *testing.T) *db.Store {
	t.Helper()

	testDB := testdb.RunWhile(t)
	return db.New(testDB, testDB)
}

func now(t *testing.T) time.Time {
	t.Helper()

	ts, err := time.Parse(time.RFC3339, "2024-03-01T12:00:00Z")
	if err != nil {
		t.Fatalf("failed to parse time: %v", err)
	}

	return ts
}

// testSession returns a 24 hour session created at now + offset.
func testSession(t *testing.T, userID int, offset time.Duration) session.Session {
	t.Helper()

	token, err := krypto.GenerateToken()
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	createdAt := now(t).Add(offset)
	return session.Session{
		TokenHash: token.Hash(),
		UserID:    userID,
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(24 * time.Hour),
	}
}

func saveAll(t *testing.T, store *db.Store, sessions ...session.Session) {
	t.Helper()

	for _, s := range sessions {
		err := store.Save(context.Background(), s)
		if err != nil {
			t.Fatalf("failed to save session: %v", err)
		}
	}
}

func assertFound(t *testing.T, store *db.Store, s session.Session) {
	t.Helper()

	_, err := store.Find(context.Background(), s.TokenHash)
	if err != nil {
		t.Fatalf("expected session to be found, got %v", err)
	}
}

func assertNotFound(t *testing.T, store *db.Store, s session.Session) {
	t.Helper()

	_, err := store.Find(context.Background(), s.TokenHash)
	if !errors.Is(err, errorz.ErrNotFound) {
		t.Fatalf("expected error %v, got %v (via errors.Is)", errorz.ErrNotFound, err)
	}
}

package testdb

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/mediahub/mediahub/internal/db"
	"github.com/mediahub/mediahub/internal/db/migrate"
	"github.com/mediahub/mediahub/migrations"
)

// RunWhile runs a database while the provided test is executing.
// It returns an empty in-memory database with all migrations applied.
//
// In-memory databases are private to a connection, so the returned pool
// always has a single connection and should be used for reads and writes.
func RunWhile(t *testing.T) *sql.DB {
	t.Helper()

	db := RunUnmigratedWhile(t, true)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := migrate.RunFS(ctx, db, migrations.FS, migrate.Metadata{})
	if err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

// RunUnmigratedWhile runs a database while the provided test is executing.
// It returns an empty database without any migrations applied.
func RunUnmigratedWhile(t *testing.T, write bool) *sql.DB {
	t.Helper()

	sqlDB, err := db.OpenSQLite(":memory:", write)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	// OpenSQLite only limits the pool for writers, an in-memory
	// database needs a single connection regardless.
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		err := sqlDB.Close()
		if err != nil {
			t.Errorf("failed to close database: %v", err)
		}
	})

	return sqlDB
}

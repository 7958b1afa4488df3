package migrate_test

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"
	"testing/fstest"
	"time"

	"github.com/mediahub/mediahub/internal/db/migrate"
	"github.com/mediahub/mediahub/internal/db/testdb"
)

const (
	createTable = `CREATE TABLE test_table (id INTEGER PRIMARY KEY, value TEXT NOT NULL);`
	insertRow   = `INSERT INTO test_table (value) VALUES ('a');`
)

func Test_RunFS(t *testing.T) {
	t.Run("ok, empty fs", func(t *testing.T) {
		db := testdb.RunUnmigratedWhile(t, true)

		got, err := migrate.RunFS(context.Background(), db, fstest.MapFS{}, meta(t, "v1.0.0"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		assertMigrations(t, got, []migrate.Migration{})
		assertTable(t, db, []migrate.Migration{})
	})

	t.Run("ok, subdirs and non-sql files are skipped", func(t *testing.T) {
		db := testdb.RunUnmigratedWhile(t, true)

		fsys := fstest.MapFS{
			"0001_create.sql":     {Data: []byte(createTable)},
			"README.md":           {Data: []byte("not a migration")},
			"nested/0002_add.sql": {Data: []byte(insertRow)},
		}

		got, err := migrate.RunFS(context.Background(), db, fsys, meta(t, "v1.0.0"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []migrate.Migration{
			{Sequence: 0, Filename: "0001_create.sql", Metadata: meta(t, "v1.0.0")},
		}
		assertMigrations(t, got, want)
		assertTable(t, db, want)
		assertNrOfRowsInTestTable(t, db, 0)
	})

	t.Run("ok, progression of migrations", func(t *testing.T) {
		db := testdb.RunUnmigratedWhile(t, true)

		fsys := fstest.MapFS{
			"0001_create.sql": {Data: []byte(createTable)},
		}

		_, err := migrate.RunFS(context.Background(), db, fsys, meta(t, "v1.0.0"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		fsys["0002_insert.sql"] = &fstest.MapFile{Data: []byte(insertRow)}
		fsys["0003_insert.sql"] = &fstest.MapFile{Data: []byte(insertRow)}

		got, err := migrate.RunFS(context.Background(), db, fsys, meta(t, "v2.0.0"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []migrate.Migration{
			{Sequence: 1, Filename: "0002_insert.sql", Metadata: meta(t, "v2.0.0")},
			{Sequence: 2, Filename: "0003_insert.sql", Metadata: meta(t, "v2.0.0")},
		}
		assertMigrations(t, got, want)
		assertNrOfRowsInTestTable(t, db, 2)

		// Running again is a no-op.
		got, err = migrate.RunFS(context.Background(), db, fsys, meta(t, "v3.0.0"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		assertMigrations(t, got, []migrate.Migration{})
		assertNrOfRowsInTestTable(t, db, 2)
	})

	t.Run("fail, error in migration rolls back the whole run", func(t *testing.T) {
		db := testdb.RunUnmigratedWhile(t, true)

		fsys := fstest.MapFS{
			"0001_create.sql": {Data: []byte(createTable)},
			"0002_typo.sql":   {Data: []byte(`INSERT INTO tset_table (value) VALUES ('a');`)},
		}

		_, err := migrate.RunFS(context.Background(), db, fsys, meta(t, "v1.0.0"))

		var mErr migrate.MigrationError
		if !errors.As(err, &mErr) {
			t.Fatalf("got %T, want %T", err, mErr)
		}

		if mErr.Sequence != 1 || mErr.Filename != "0002_typo.sql" {
			t.Errorf("got %v, want sequence 1 for 0002_typo.sql", mErr)
		}

		_, err = migrate.QueryMigrations(context.Background(), db)
		if !errors.Is(err, migrate.ErrNoTable) {
			t.Errorf("expected migrations table to be rolled back, got %v", err)
		}
	})

	t.Run("fail, applied migration was removed", func(t *testing.T) {
		db := testdb.RunUnmigratedWhile(t, true)

		fsys := fstest.MapFS{
			"0001_create.sql": {Data: []byte(createTable)},
			"0002_insert.sql": {Data: []byte(insertRow)},
		}

		_, err := migrate.RunFS(context.Background(), db, fsys, meta(t, "v1.0.0"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		delete(fsys, "0002_insert.sql")

		_, err = migrate.RunFS(context.Background(), db, fsys, meta(t, "v2.0.0"))
		if !errors.Is(err, migrate.ErrMigrationsMismatch) {
			t.Fatalf("got %v, want %v (via errors.Is)", err, migrate.ErrMigrationsMismatch)
		}
	})

	t.Run("fail, applied migration was renamed", func(t *testing.T) {
		db := testdb.RunUnmigratedWhile(t, true)

		fsys := fstest.MapFS{
			"0001_create.sql": {Data: []byte(createTable)},
		}

		_, err := migrate.RunFS(context.Background(), db, fsys, meta(t, "v1.0.0"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		renamed := fstest.MapFS{
			"0001_create_table.sql": {Data: []byte(createTable)},
		}

		_, err = migrate.RunFS(context.Background(), db, renamed, meta(t, "v2.0.0"))
		if !errors.Is(err, migrate.ErrMigrationsMismatch) {
			t.Fatalf("got %v, want %v (via errors.Is)", err, migrate.ErrMigrationsMismatch)
		}
	})
}

func Test_Pending(t *testing.T) {
	fsys := fstest.MapFS{
		"0001_create.sql": {Data: []byte(createTable)},
		"0002_insert.sql": {Data: []byte(insertRow)},
	}

	t.Run("ok, everything pending without table", func(t *testing.T) {
		db := testdb.RunUnmigratedWhile(t, true)

		got, err := migrate.Pending(context.Background(), db, fsys)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{"0001_create.sql", "0002_insert.sql"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("ok, nothing pending after run", func(t *testing.T) {
		db := testdb.RunUnmigratedWhile(t, true)

		_, err := migrate.RunFS(context.Background(), db, fsys, meta(t, "v1.0.0"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, err := migrate.Pending(context.Background(), db, fsys)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(got) != 0 {
			t.Errorf("expected no pending migrations, got %v", got)
		}
	})
}

func Test_QueryMigrations(t *testing.T) {
	t.Run("fail, no table", func(t *testing.T) {
		db := testdb.RunUnmigratedWhile(t, true)

		_, err := migrate.QueryMigrations(context.Background(), db)
		if !errors.Is(err, migrate.ErrNoTable) {
			t.Fatalf("got %v, want %v (via errors.Is)", err, migrate.ErrNoTable)
		}
	})
}

func assertTable(t *testing.T, db *sql.DB, want []migrate.Migration) {
	t.Helper()

	got, err := migrate.QueryMigrations(context.Background(), db)
	if err != nil {
		t.Fatalf("failed to query migrations: %v", err)
	}

	assertMigrations(t, got, want)
}

func assertMigrations(t *testing.T, got, want []migrate.Migration) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("got\n%+v\nwant\n%+v\n", got, want)
	}

	for i := range got {
		if !got[i].Equal(want[i]) {
			t.Errorf("got\n%+v\nwant\n%+v\n", got, want)
		}
	}
}

// assertNrOfRowsInTestTable checks the number of rows in test_table,
// some migrations above add rows to it.
func assertNrOfRowsInTestTable(t *testing.T, db *sql.DB, want int) {
	t.Helper()

	row := db.QueryRow("SELECT COUNT(*) FROM test_table")

	var got int
	err := row.Scan(&got)
	if err != nil {
		t.Fatalf("failed to scan test_table: %v", err)
	}

	if got != want {
		t.Errorf("got %d, want %d", got, want)
	}
}

func meta(t *testing.T, version string) migrate.Metadata {
	t.Helper()

	ts, err := time.Parse(time.RFC3339, "2024-03-20T14:56:00Z")
	if err != nil {
		t.Fatalf("failed to parse time: %v", err)
	}

	return migrate.Metadata{AppVersion: version, Timestamp: ts}
}

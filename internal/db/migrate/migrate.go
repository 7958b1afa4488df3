package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"
)

// Migration is a migration that was applied to a database.
type Migration struct {
	// Sequence is the position of the migration, starting at 0.
	Sequence int
	Filename string
	Metadata Metadata
}

// Equal checks if two migrations are equal.
func (m Migration) Equal(other Migration) bool {
	return m.Sequence == other.Sequence &&
		m.Filename == other.Filename &&
		m.Metadata.AppVersion == other.Metadata.AppVersion &&
		m.Metadata.Timestamp.Equal(other.Metadata.Timestamp)
}

// Metadata is recorded next to every applied migration to help with debugging.
type Metadata struct {
	AppVersion string
	Timestamp  time.Time
}

const migrationsTableQuery = `CREATE TABLE IF NOT EXISTS migrations (
	sequence    INTEGER PRIMARY KEY,
	filename    TEXT NOT NULL,
	app_version TEXT NOT NULL,
	timestamp   TIMESTAMP NOT NULL
)
`

var (
	// ErrNoTable indicates the migrations table does not exist.
	ErrNoTable = errors.New("migrations table does not exist")
	// ErrMigrationsMismatch indicates the applied migrations don't match the available files.
	ErrMigrationsMismatch = errors.New("migrations mismatch")
)

// MigrationError is an error that occurred while applying a migration.
type MigrationError struct {
	Sequence int
	Filename string
	Err      error
}

func (m MigrationError) Error() string {
	return fmt.Sprintf("migration [%d] %q failed: %v", m.Sequence, m.Filename, m.Err)
}

func (m MigrationError) Unwrap() error {
	return m.Err
}

// RunFS applies all pending .sql files in the root of fileSys, in lexical order,
// inside a single transaction. Either all pending migrations are applied or none.
// It returns the migrations that were applied by this call.
func RunFS(ctx context.Context, db *sql.DB, fileSys fs.FS, meta Metadata) ([]Migration, error) {
	files, err := loadFiles(fileSys)
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	_, err = tx.ExecContext(ctx, migrationsTableQuery)
	if err != nil {
		return nil, rollback(tx, fmt.Errorf("failed to create migrations table: %w", err))
	}

	applied, err := queryWith(func(q string) (*sql.Rows, error) {
		return tx.QueryContext(ctx, q)
	})
	if err != nil {
		return nil, rollback(tx, err)
	}

	pending, err := pendingFiles(applied, files)
	if err != nil {
		return nil, rollback(tx, err)
	}

	result := make([]Migration, 0, len(pending))
	for i, f := range pending {
		m := Migration{
			Sequence: len(applied) + i,
			Filename: f.name,
			Metadata: meta,
		}

		_, err := tx.ExecContext(ctx, f.content)
		if err != nil {
			return nil, rollback(tx, MigrationError{Sequence: m.Sequence, Filename: m.Filename, Err: err})
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO migrations (sequence, filename, app_version, timestamp) VALUES (?, ?, ?, ?)`,
			m.Sequence, m.Filename, m.Metadata.AppVersion, m.Metadata.Timestamp,
		)
		if err != nil {
			return nil, rollback(tx, fmt.Errorf("failed to record migration %q: %w", m.Filename, err))
		}

		result = append(result, m)
	}

	err = tx.Commit()
	if err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return result, nil
}

// Pending returns the filenames in fileSys that have not been applied to db yet.
// A database without a migrations table has every file pending.
func Pending(ctx context.Context, db *sql.DB, fileSys fs.FS) ([]string, error) {
	files, err := loadFiles(fileSys)
	if err != nil {
		return nil, err
	}

	applied, err := QueryMigrations(ctx, db)
	if err != nil && !errors.Is(err, ErrNoTable) {
		return nil, err
	}

	pending, err := pendingFiles(applied, files)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(pending))
	for _, f := range pending {
		names = append(names, f.name)
	}

	return names, nil
}

// pendingFiles verifies that applied is a prefix of files and returns the rest.
func pendingFiles(applied []Migration, files []file) ([]file, error) {
	if len(applied) > len(files) {
		return nil, fmt.Errorf(
			"found %d applied migrations but only %d files: %w",
			len(applied), len(files), ErrMigrationsMismatch,
		)
	}

	for i, m := range applied {
		if m.Sequence != i {
			return nil, fmt.Errorf("migration sequence mismatch, wanted %d got %d", i, m.Sequence)
		}

		if m.Filename != files[i].name {
			return nil, fmt.Errorf(
				"migration %d was applied as %s, but now found %s: %w",
				i, m.Filename, files[i].name, ErrMigrationsMismatch,
			)
		}
	}

	return files[len(applied):], nil
}

// QueryMigrations returns all migrations applied to db.
// If the migrations table does not exist yet, it returns ErrNoTable.
func QueryMigrations(ctx context.Context, db *sql.DB) ([]Migration, error) {
	return queryWith(func(q string) (*sql.Rows, error) {
		return db.QueryContext(ctx, q)
	})
}

func queryWith(rowsFunc func(q string) (*sql.Rows, error)) ([]Migration, error) {
	const q = `SELECT sequence, filename, app_version, timestamp FROM migrations ORDER BY sequence`
	rows, err := rowsFunc(q)
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return nil, ErrNoTable
		}
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	migrations := make([]Migration, 0)
	for rows.Next() {
		var m Migration
		err := rows.Scan(&m.Sequence, &m.Filename, &m.Metadata.AppVersion, &m.Metadata.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan migration: %w", err)
		}

		migrations = append(migrations, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate over rows: %w", err)
	}

	return migrations, nil
}

type file struct {
	name    string
	content string
}

func loadFiles(fileSys fs.FS) ([]file, error) {
	entries, err := fs.ReadDir(fileSys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	files := make([]file, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		content, err := fs.ReadFile(fileSys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %q: %w", entry.Name(), err)
		}

		files = append(files, file{
			name:    entry.Name(),
			content: string(content),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].name < files[j].name
	})

	return files, nil
}

func rollback(tx *sql.Tx, err error) error {
	rErr := tx.Rollback()
	if rErr != nil {
		return errors.Join(err, rErr)
	}

	return err
}

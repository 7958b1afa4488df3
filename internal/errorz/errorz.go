package errorz

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConstraintViolated = errors.New("constraint violated")
	// ErrUnauthenticated indicates a request lacks a valid session.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrForbidden indicates the principal lacks the required role.
	ErrForbidden = errors.New("forbidden")
)

// ConstraintError identifies the unique constraint that was violated.
// It unwraps to ErrConstraintViolated.
type ConstraintError struct {
	Table  string
	Column string
}

func (e ConstraintError) Error() string {
	return "unique constraint violated on " + e.Table + "." + e.Column
}

func (e ConstraintError) Unwrap() error {
	return ErrConstraintViolated
}

// MapDBErr maps database errors to appropriate errorz errors.
// If err is nil, MapDBErr returns nil.
func MapDBErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	sErr := sqlite3.Error{}
	if errors.As(err, &sErr) {
		if sErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			if cErr, ok := parseUniqueViolation(sErr.Error()); ok {
				return cErr
			}
		}

		if sErr.Code == sqlite3.ErrConstraint {
			return ErrConstraintViolated
		}
	}

	return err
}

// parseUniqueViolation extracts the table and column from messages like
// "UNIQUE constraint failed: users.username".
func parseUniqueViolation(msg string) (ConstraintError, bool) {
	_, cols, ok := strings.Cut(msg, "UNIQUE constraint failed: ")
	if !ok {
		return ConstraintError{}, false
	}

	// Composite constraints list multiple columns, we only report the first.
	first, _, _ := strings.Cut(cols, ",")
	table, column, ok := strings.Cut(strings.TrimSpace(first), ".")
	if !ok {
		return ConstraintError{}, false
	}

	return ConstraintError{Table: table, Column: column}, true
}

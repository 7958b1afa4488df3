package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mediahub/mediahub/internal/auth"
	"github.com/mediahub/mediahub/internal/db"
	"github.com/mediahub/mediahub/internal/errorz"
)

type execFunc func(ctx context.Context, query string, params ...any) (sql.Result, error)
type queryFunc func(ctx context.Context, query string, params ...any) (*sql.Rows, error)

func insertUser(ctx context.Context, ef execFunc, u *auth.User) error {
	if u.ID != 0 {
		return fmt.Errorf("user already has id %d: %w", u.ID, errorz.ErrConstraintViolated)
	}

	var q db.Query
	q.Unsafe(`INSERT INTO users (username, email, password_hash, first_name, last_name, is_admin, created_at) VALUES (`)
	q.Params(u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.IsAdmin, u.CreatedAt)
	q.Unsafe(`)`)

	s, params := q.Get()
	result, err := ef(ctx, s, params...)
	if err != nil {
		return mapUserErr(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return errorz.MapDBErr(err)
	}

	u.ID = int(id)
	return nil
}

func updateUser(ctx context.Context, ef execFunc, u *auth.User) error {
	var q db.Query
	q.Unsafe(`UPDATE users SET `)

	q.Unsafe(`email = `)
	q.Param(u.Email)

	q.Unsafe(`, password_hash = `)
	q.Param(u.PasswordHash)

	q.Unsafe(`, first_name = `)
	q.Param(u.FirstName)

	q.Unsafe(`, last_name = `)
	q.Param(u.LastName)

	q.Unsafe(`, is_admin = `)
	q.Param(u.IsAdmin)

	q.Unsafe(` WHERE id = `)
	q.Param(u.ID)

	s, params := q.Get()
	result, err := ef(ctx, s, params...)
	if err != nil {
		return mapUserErr(err)
	}

	return expectAffected(result, "user")
}

func deleteUser(ctx context.Context, ef execFunc, id int) error {
	var q db.Query
	q.Unsafe(`DELETE FROM users WHERE id = `)
	q.Param(id)

	s, params := q.Get()
	result, err := ef(ctx, s, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	return expectAffected(result, "user")
}

func selectUsers(ctx context.Context, qf queryFunc, f *auth.UserFilter) ([]auth.User, error) {
	var q db.Query
	q.Unsafe(`SELECT id, username, email, password_hash, first_name, last_name, is_admin, created_at FROM users WHERE 1=1 `)

	if f != nil {
		if len(f.IDs) > 0 {
			q.Unsafe(`AND `)
			q.In("id", db.AnySlice(f.IDs)...)
			q.Unsafe(` `)
		}

		if len(f.Usernames) > 0 {
			q.Unsafe(`AND `)
			q.In("username", db.AnySlice(f.Usernames)...)
			q.Unsafe(` `)
		}

		if len(f.Emails) > 0 {
			q.Unsafe(`AND `)
			q.In("email", db.AnySlice(f.Emails)...)
			q.Unsafe(` `)
		}

		if f.IsAdmin != nil {
			q.Unsafe(`AND is_admin = `)
			q.Param(*f.IsAdmin)
			q.Unsafe(` `)
		}
	}

	q.Unsafe(`ORDER BY id ASC`)

	s, params := q.Get()
	rows, err := qf(ctx, s, params...)
	if err != nil {
		return nil, errorz.MapDBErr(err)
	}

	defer rows.Close()

	out := make([]auth.User, 0)
	for rows.Next() {
		var u auth.User
		err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.IsAdmin, &u.CreatedAt)
		if err != nil {
			return nil, errorz.MapDBErr(err)
		}

		out = append(out, u)
	}

	if err := rows.Err(); err != nil {
		return nil, errorz.MapDBErr(err)
	}

	return out, nil
}

// mapUserErr maps unique constraint violations on the users table to the
// errors the auth package expects.
func mapUserErr(err error) error {
	err = errorz.MapDBErr(err)

	var cErr errorz.ConstraintError
	if errors.As(err, &cErr) && cErr.Table == "users" {
		switch cErr.Column {
		case "username":
			return auth.ErrDuplicateUsername
		case "email":
			return auth.ErrDuplicateEmail
		}
	}

	return err
}

func expectAffected(result sql.Result, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return errorz.MapDBErr(err)
	}

	if n == 0 {
		return fmt.Errorf("%s not found: %w", what, errorz.ErrNotFound)
	}

	return nil
}

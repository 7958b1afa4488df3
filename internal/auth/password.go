package auth

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mediahub/mediahub/internal/krypto"
)

const (
	minNewPasswordBytes = 8
	// We put a generous upper cap on password length, so people can use
	// passphrases but we don't allow MBs of data as a password.
	maxPasswordBytes = 512

	// SecretMarker is a string we can look for in logs to see if the app
	// is accidentally exposing secrets.
	SecretMarker = krypto.SecretMarker
)

var (
	ErrInvalidPassword  = errors.New("invalid password")
	ErrPasswordTooShort = fmt.Errorf("%w: must be at least %d bytes", ErrInvalidPassword, minNewPasswordBytes)
	ErrPasswordTooLong  = fmt.Errorf("%w: must be at most %d bytes", ErrInvalidPassword, maxPasswordBytes)
)

// Password is a plaintext password.
//
// It should never be persisted, logged or exposed in any other way. To
// protect ourselves from accidentally doing so, the type implements
// several common interfaces that would allow it to be used inappropriately.
//
// There are only two operations allowed on a Password:
// - Converting it to a hash.
// - Comparing it with an existing hash to see if they match.
type Password struct {
	plain []byte
}

// ParseNewPassword creates a Password that is about to be stored, it
// enforces the password policy.
func ParseNewPassword(pwd string) (Password, error) {
	if len(pwd) < minNewPasswordBytes {
		return Password{}, ErrPasswordTooShort
	}

	return ParsePassword(pwd)
}

// ParsePassword creates a Password that will be compared to a stored hash.
// Any non-empty password within the length cap is accepted, so that the
// outcome of a login only depends on whether the password matches.
func ParsePassword(pwd string) (Password, error) {
	if len(pwd) == 0 {
		return Password{}, ErrInvalidPassword
	}

	if len(pwd) > maxPasswordBytes {
		return Password{}, ErrPasswordTooLong
	}

	return Password{
		plain: []byte(pwd),
	}, nil
}

// Match checks if the plaintext password matches the given hash.
func (p Password) Match(h krypto.ScryptHash) bool {
	return h.Match(p.plain)
}

// Hash hashes the plaintext password using scrypt.
func (p Password) Hash() (krypto.ScryptHash, error) {
	return krypto.HashScrypt(p.plain)
}

// IsZero reports whether p was never parsed.
func (p Password) IsZero() bool {
	return len(p.plain) == 0
}

func (p Password) Format(f fmt.State, verb rune) {
	f.Write([]byte(SecretMarker))
}

func (p Password) MarshalText() ([]byte, error) {
	return []byte(SecretMarker), nil
}

// LogValue implements the slog.Valuer interface.
func (p Password) LogValue() slog.Value {
	return slog.StringValue(SecretMarker)
}

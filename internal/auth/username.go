package auth

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	minUsernameRunes = 3
	maxUsernameRunes = 64
)

var ErrInvalidUsername = errors.New("invalid username")

// Username is a unique, human chosen name of a user.
//
// Usernames are NFKC normalized, so that visually identical names that
// differ in their unicode encoding map to the same user.
type Username string

// ParseUsername normalizes and validates a username.
func ParseUsername(raw string) (Username, error) {
	s := norm.NFKC.String(strings.TrimSpace(raw))

	n := utf8.RuneCountInString(s)
	if n < minUsernameRunes || n > maxUsernameRunes {
		return "", ErrInvalidUsername
	}

	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) || !unicode.IsPrint(r) {
			return "", ErrInvalidUsername
		}
	}

	return Username(s), nil
}

// LoginUsername normalizes a username that is used to log in. Unlike
// ParseUsername it does not validate the shape, an invalid name will
// simply not be found.
func LoginUsername(raw string) Username {
	return Username(norm.NFKC.String(strings.TrimSpace(raw)))
}

func (u Username) String() string {
	return string(u)
}

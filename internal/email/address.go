package email

import (
	"errors"
	"net/mail"
	"strings"
)

// maxLen is the longest address that fits in a SMTP path.
const maxLen = 254

// ErrInvalidEmail indicates an email address is not valid.
var ErrInvalidEmail = errors.New("invalid email address")

// Address is how MediaHub represents email addresses.
type Address string

// ParseAddress parses the given string and checks if it's shaped like an email address.
// The domain part is lower cased, the local part is kept as provided.
// Note that this doesn't guarantee the email address actually exists, it only checks the format.
func ParseAddress(raw string) (Address, error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) > maxLen {
		return Address(""), ErrInvalidEmail
	}

	addr, err := mail.ParseAddress(trimmed)
	if err != nil {
		return Address(""), ErrInvalidEmail
	}

	// mail.ParseAddress accepts addresses with names and comments:
	// "Alice <alice@example.com>(comment)".
	//
	// We only want to accept inputs that consist of the address part.
	if addr.Address != trimmed {
		return Address(""), ErrInvalidEmail
	}

	at := strings.LastIndex(addr.Address, "@")
	return Address(addr.Address[:at] + strings.ToLower(addr.Address[at:])), nil
}

func (a Address) String() string {
	return string(a)
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	addr, err := ParseAddress(string(text))
	if err != nil {
		return err
	}

	*a = addr

	return nil
}

package krypto

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

const (
	keyLen = 32

	// SecretMarker is a string we can look for in logs to see if the app
	// is accidentally exposing secrets.
	SecretMarker = "<!SECRET_REDACTED!>"
)

var (
	ErrInvalidKey = errors.New("invalid key")
)

// Key is a 32 byte secret key, for example used to sign session cookies.
type Key struct {
	value []byte
}

// ParseKey expects a hex encoded key of 32 bytes (64 bytes as hex).
func ParseKey(raw string) (Key, error) {
	if len(raw) != keyLen*2 {
		return Key{}, ErrInvalidKey
	}

	k := make([]byte, keyLen)
	_, err := hex.Decode(k, []byte(raw))
	if err != nil {
		return Key{}, ErrInvalidKey
	}

	return Key{
		value: k,
	}, nil
}

// ParseKeys parses a comma separated list of hex encoded keys.
// The order of the keys is preserved, at least one key is required.
func ParseKeys(raw string) ([]Key, error) {
	parts := strings.Split(raw, ",")
	keys := make([]Key, 0, len(parts))
	for i, part := range parts {
		k, err := ParseKey(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i, err)
		}
		keys = append(keys, k)
	}

	return keys, nil
}

func (k Key) Format(f fmt.State, verb rune) {
	f.Write([]byte(SecretMarker))
}

func (k Key) MarshalText() ([]byte, error) {
	return []byte(SecretMarker), nil
}

// LogValue implements the slog.Valuer interface.
func (k Key) LogValue() slog.Value {
	return slog.StringValue(SecretMarker)
}

// SecretValue returns the key as a byte slice. This is provided
// as an escape hatch for cases where the key needs to be provided
// to third party packages or libraries.
func (k Key) SecretValue() []byte {
	return k.value
}

package krypto

import (
	"fmt"
	"log/slog"
)

// Secret is arbitrary sensitive data that needs to be passed
// around but not exposed, like the password of the session cache.
type Secret struct {
	value []byte
}

// NewSecret creates a new secret.
func NewSecret(raw string) Secret {
	return Secret{
		value: []byte(raw),
	}
}

// IsZero reports whether the secret is empty.
func (k Secret) IsZero() bool {
	return len(k.value) == 0
}

func (k Secret) Format(f fmt.State, verb rune) {
	f.Write([]byte(SecretMarker))
}

func (k Secret) MarshalText() ([]byte, error) {
	return []byte(SecretMarker), nil
}

// LogValue implements the slog.Valuer interface.
func (k Secret) LogValue() slog.Value {
	return slog.StringValue(SecretMarker)
}

// SecretValue returns the secret as a byte slice. This is provided
// as an escape hatch for cases where the secret needs to be provided
// to third party packages or libraries.
func (k Secret) SecretValue() []byte {
	return k.value
}

// SecretString is like SecretValue, but returns a string.
func (k Secret) SecretString() string {
	return string(k.value)
}

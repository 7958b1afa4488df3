package krypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
)

const (
	tokenLen = 32
)

var ErrInvalidToken = errors.New("invalid token")

// Token is a random token that identifies a session.
//
// The token is only ever handed to the client that owns the session.
// Tokens are confidential and should never be exposed in logs or
// persisted in plaintext, store the TokenHash instead.
type Token [tokenLen]byte

// TokenHash is the SHA-256 digest of a token. It's safe to persist and
// to use as a lookup key.
type TokenHash [sha256.Size]byte

// GenerateToken creates a new random token.
func GenerateToken() (Token, error) {
	b, err := genRandomBytes(tokenLen)
	if err != nil {
		return [tokenLen]byte{}, err
	}
	return [tokenLen]byte(b), nil
}

// ParseToken parses a token from a string.
func ParseToken(raw string) (Token, error) {
	if len(raw) != tokenLen*2 {
		return [tokenLen]byte{}, ErrInvalidToken
	}

	b, err := hex.DecodeString(raw)
	if err != nil {
		return [tokenLen]byte{}, ErrInvalidToken
	}

	return [tokenLen]byte(b), nil
}

// String returns the hex representation of the token.
// As opposed to a Password this is allowed, the token needs
// to be stored in the session cookie.
func (t Token) String() string {
	return hex.EncodeToString(t[:])
}

// Hash returns the digest of the token.
func (t Token) Hash() TokenHash {
	return sha256.Sum256(t[:])
}

// LogValue implements the slog.Valuer interface.
func (t Token) LogValue() slog.Value {
	return slog.StringValue(SecretMarker)
}

// String returns the hex representation of the digest.
func (h TokenHash) String() string {
	return hex.EncodeToString(h[:])
}

func genRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		return nil, err
	}
	return b, nil
}

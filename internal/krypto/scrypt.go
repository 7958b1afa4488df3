package krypto

import (
	"crypto/subtle"
	"database/sql/driver"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	scryptN      = 16384
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 64
	scryptSalt   = 16

	scryptSeparator = "."
)

var ErrInvalidScryptHash = errors.New("invalid scrypt hash")

// ScryptHash is a salted scrypt derived key.
//
// Its text form is hex(key) + "." + hex(salt). The hex text of the salt is what
// goes into the key derivation, which keeps hashes created by earlier versions
// of MediaHub valid.
type ScryptHash struct {
	Key  []byte
	Salt []byte
}

// HashScrypt derives a key from data using a new random salt.
func HashScrypt(data []byte) (ScryptHash, error) {
	salt, err := genRandomBytes(scryptSalt)
	if err != nil {
		return ScryptHash{}, err
	}

	key, err := deriveScrypt(data, salt, scryptKeyLen)
	if err != nil {
		return ScryptHash{}, err
	}

	return ScryptHash{
		Key:  key,
		Salt: salt,
	}, nil
}

// ParseScryptHash parses the text form of a hash.
func ParseScryptHash(raw string) (ScryptHash, error) {
	keyHex, saltHex, ok := strings.Cut(raw, scryptSeparator)
	if !ok || keyHex == "" || saltHex == "" {
		return ScryptHash{}, ErrInvalidScryptHash
	}

	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return ScryptHash{}, ErrInvalidScryptHash
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return ScryptHash{}, ErrInvalidScryptHash
	}

	return ScryptHash{
		Key:  key,
		Salt: salt,
	}, nil
}

// VerifyScrypt reports whether data matches the stored text form of a hash.
// A malformed stored value never matches.
func VerifyScrypt(data []byte, stored string) bool {
	h, err := ParseScryptHash(stored)
	if err != nil {
		return false
	}

	return h.Match(data)
}

// Match reports whether data derives to the same key as h.
// The comparison runs in constant time, a failing derivation is a mismatch.
func (h ScryptHash) Match(data []byte) bool {
	if len(h.Key) == 0 || len(h.Salt) == 0 {
		return false
	}

	key, err := deriveScrypt(data, h.Salt, len(h.Key))
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(key, h.Key) == 1
}

// String returns the text form of the hash.
func (h ScryptHash) String() string {
	return hex.EncodeToString(h.Key) + scryptSeparator + hex.EncodeToString(h.Salt)
}

func (h ScryptHash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *ScryptHash) UnmarshalText(text []byte) error {
	parsed, err := ParseScryptHash(string(text))
	if err != nil {
		return err
	}

	*h = parsed
	return nil
}

// Value implements driver.Valuer.
func (h ScryptHash) Value() (driver.Value, error) {
	return h.String(), nil
}

// Scan implements sql.Scanner. A malformed stored value scans into the zero
// hash, which never matches, so a corrupt row fails verification instead of
// failing every query that reads it.
func (h *ScryptHash) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into scrypt hash", src)
	}

	parsed, err := ParseScryptHash(raw)
	if err != nil {
		*h = ScryptHash{}
		return nil
	}

	*h = parsed
	return nil
}

func deriveScrypt(data, salt []byte, keyLen int) ([]byte, error) {
	return scrypt.Key(data, []byte(hex.EncodeToString(salt)), scryptN, scryptR, scryptP, keyLen)
}

package krypto_test

import (
	"reflect"
	"testing"

	"github.com/mediahub/mediahub/internal/krypto"
)

// knownHash was derived from "adminpassword" with salt 0x01..0x10, in the
// format earlier versions of MediaHub stored.
const knownHash = "b48c7554bb536f7afa1ac6a474f90a4855ddc2ae9842f1c5d1a653e841ed683560820b5ca991c9480c4b19767254b84ead6ee3d5302e34ea84ff475308b3ff2d.0102030405060708090a0b0c0d0e0f10"

func Test_HashScrypt(t *testing.T) {
	t.Run("ok, matches own hash", func(t *testing.T) {
		h, err := krypto.HashScrypt([]byte("secret123"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !h.Match([]byte("secret123")) {
			t.Errorf("expected password to match its own hash %s", h)
		}

		if !krypto.VerifyScrypt([]byte("secret123"), h.String()) {
			t.Errorf("expected password to verify against text form %s", h)
		}
	})

	t.Run("ok, different password does not match", func(t *testing.T) {
		h := must(krypto.HashScrypt([]byte("secret123")))

		if h.Match([]byte("secret124")) {
			t.Errorf("expected other password not to match")
		}
	})

	t.Run("ok, same password hashes differently", func(t *testing.T) {
		a := must(krypto.HashScrypt([]byte("secret123")))
		b := must(krypto.HashScrypt([]byte("secret123")))

		if a.String() == b.String() {
			t.Errorf("expected different hashes due to salt, got %s twice", a)
		}

		if !a.Match([]byte("secret123")) || !b.Match([]byte("secret123")) {
			t.Errorf("expected both hashes to match")
		}
	})

	t.Run("ok, verifies known hash", func(t *testing.T) {
		if !krypto.VerifyScrypt([]byte("adminpassword"), knownHash) {
			t.Errorf("expected known hash to verify")
		}

		if krypto.VerifyScrypt([]byte("adminpassword2"), knownHash) {
			t.Errorf("expected known hash not to verify other password")
		}
	})

	t.Run("ok, text form has key and salt", func(t *testing.T) {
		h := must(krypto.HashScrypt([]byte("secret123")))

		if len(h.Key) != 64 {
			t.Errorf("expected 64 byte key, got %d", len(h.Key))
		}

		if len(h.Salt) != 16 {
			t.Errorf("expected 16 byte salt, got %d", len(h.Salt))
		}

		got, err := krypto.ParseScryptHash(h.String())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !reflect.DeepEqual(got, h) {
			t.Errorf("got\n%#v\nwant\n%#v", got, h)
		}
	})
}

func Test_VerifyScrypt_Malformed(t *testing.T) {
	cases := map[string]string{
		"fail, empty":           "",
		"fail, no separator":    "b48c7554bb536f7a",
		"fail, empty key":       ".0102030405060708090a0b0c0d0e0f10",
		"fail, empty salt":      "b48c7554bb536f7a.",
		"fail, non-hex key":     "zz8c7554bb536f7a.0102030405060708090a0b0c0d0e0f10",
		"fail, non-hex salt":    "b48c7554bb536f7a.zz02030405060708090a0b0c0d0e0f10",
		"fail, truncated key":   knownHash[2:],
		"fail, wrong separator": "b48c7554bb536f7a:0102030405060708090a0b0c0d0e0f10",
	}

	for name, stored := range cases {
		t.Run(name, func(t *testing.T) {
			if krypto.VerifyScrypt([]byte("adminpassword"), stored) {
				t.Errorf("expected %q not to verify", stored)
			}
		})
	}

	t.Run("fail, zero hash never matches", func(t *testing.T) {
		if (krypto.ScryptHash{}).Match([]byte("")) {
			t.Errorf("expected zero hash not to match")
		}
	})
}

func Test_ScryptHash_Scan(t *testing.T) {
	t.Run("ok, string", func(t *testing.T) {
		var h krypto.ScryptHash
		err := h.Scan(knownHash)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if h.String() != knownHash {
			t.Errorf("got %s, want %s", h, knownHash)
		}
	})

	t.Run("ok, bytes", func(t *testing.T) {
		var h krypto.ScryptHash
		err := h.Scan([]byte(knownHash))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("ok, malformed text never matches", func(t *testing.T) {
		h := must(krypto.HashScrypt([]byte("adminpassword")))

		err := h.Scan("not-a-hash")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if h.Match([]byte("adminpassword")) || h.Match([]byte("")) {
			t.Errorf("expected malformed hash not to match")
		}
	})

	t.Run("fail, other type", func(t *testing.T) {
		var h krypto.ScryptHash
		err := h.Scan(12)
		if err == nil {
			t.Fatalf("expected error, got <nil>")
		}
	})
}

// Package sessions keeps the session token in a signed cookie.
package sessions

import (
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/mediahub/mediahub/internal/krypto"
)

const (
	CookieName = "mediahub-session"
	tokenKey   = "token"
)

// CookieOptions configure the session cookie.
type CookieOptions struct {
	MaxAge time.Duration
	Secure bool
}

// NewCookieStore creates a cookie store that signs cookies with keys. The
// first key signs new cookies, the others are only used to verify cookies,
// so keys can be rotated.
func NewCookieStore(keys []krypto.Key, opts CookieOptions) *sessions.CookieStore {
	pairs := make([][]byte, 0, len(keys)*2)
	for _, k := range keys {
		// No encryption key, the cookie only carries an opaque token.
		pairs = append(pairs, k.SecretValue(), nil)
	}

	cs := sessions.NewCookieStore(pairs...)
	cs.MaxAge(int(opts.MaxAge.Seconds()))
	cs.Options.Path = "/"
	cs.Options.HttpOnly = true
	cs.Options.Secure = opts.Secure
	cs.Options.SameSite = http.SameSiteLaxMode

	return cs
}

// Store reads and writes the session token of a request.
type Store struct {
	store sessions.Store
}

func NewStore(store sessions.Store) *Store {
	return &Store{store: store}
}

// Token returns the token in the session cookie of r. Missing, tampered
// and malformed cookies are reported as no token.
func (s *Store) Token(r *http.Request) (krypto.Token, bool) {
	base, err := s.store.Get(r, CookieName)
	if err != nil || base.IsNew {
		return krypto.Token{}, false
	}

	raw, ok := base.Values[tokenKey].(string)
	if !ok {
		return krypto.Token{}, false
	}

	token, err := krypto.ParseToken(raw)
	if err != nil {
		return krypto.Token{}, false
	}

	return token, true
}

// SetToken writes a session cookie carrying token.
func (s *Store) SetToken(w http.ResponseWriter, r *http.Request, token krypto.Token) error {
	// A cookie that failed to decode still yields a usable new session.
	base, _ := s.store.Get(r, CookieName)

	base.Values[tokenKey] = token.String()
	return s.store.Save(r, w, base)
}

// Clear instructs the client to remove the session cookie.
func (s *Store) Clear(w http.ResponseWriter, r *http.Request) error {
	base, _ := s.store.Get(r, CookieName)

	delete(base.Values, tokenKey)
	base.Options.MaxAge = -1 // Setting the age in the past will delete the cookie.
	return s.store.Save(r, w, base)
}

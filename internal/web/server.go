package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/schema"
	"github.com/gorilla/sessions"
	"github.com/mediahub/mediahub/internal/auth"
	websessions "github.com/mediahub/mediahub/internal/web/sessions"
)

// ServerDeps are the dependencies for the server.
type ServerDeps struct {
	Logger      *slog.Logger
	AuthService *auth.Service
	CookieStore sessions.Store
}

// ServerConfig is the configuration for the server.
type ServerConfig struct {
	// SessionTTL is reported by the health endpoint, the cookie store
	// already carries it as the cookie max age.
	SessionTTL time.Duration
	Version    string
}

type Server struct {
	deps    *ServerDeps
	cfg     ServerConfig
	mux     *http.ServeMux
	decoder *schema.Decoder
	cookies *websessions.Store
	handler http.Handler
}

func NewServer(deps *ServerDeps, cfg ServerConfig) *Server {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	s := &Server{
		deps:    deps,
		cfg:     cfg,
		mux:     http.NewServeMux(),
		decoder: decoder,
		cookies: websessions.NewStore(deps.CookieStore),
	}

	// Most endpoints below are created using the map functions.
	// These functions return handlers that automatically map between HTTP requests, target functions and HTTP responses.
	// The request mapping and response writing is customizable.

	s.public("GET /api/health", mapResponse(s, s.health))

	// Authentication endpoints.
	{
		h := mapBoth(s, s.register)
		h.response(func(r result[registerRequest, loginResult]) error {
			return r.s.startSession(r.w, r.r, http.StatusCreated, r.out)
		})

		s.public("POST /api/auth/register", h)
	}
	{
		h := mapBoth(s, s.login)
		h.response(func(r result[credentialsRequest, loginResult]) error {
			return r.s.startSession(r.w, r.r, http.StatusOK, r.out)
		})

		s.public("POST /api/auth/login", h)
	}
	{
		h := mapResponse(s, s.logout)
		h.response(func(r result[struct{}, messageResponse]) error {
			err := r.s.cookies.Clear(r.w, r.r)
			if err != nil {
				return err
			}

			return writeJSON(r.w, http.StatusOK, r.out)
		})

		// Logout is public, ending a session that doesn't exist is not an error.
		s.public("POST /api/auth/logout", h)
	}

	s.authenticated("GET /api/auth/user", mapResponse(s, currentUser))

	// Admin endpoints.
	{
		h := mapBoth(s, s.adminLogin)
		h.response(func(r result[credentialsRequest, loginResult]) error {
			return r.s.startSession(r.w, r.r, http.StatusOK, r.out)
		})

		s.public("POST /api/admin/login", h)
	}

	s.admin("GET /api/admin/user", mapResponse(s, currentUser))

	// User management endpoints, admin only.
	{
		h := mapBoth(s, s.listUsers)
		h.request(func(r *http.Request) (listUsersQuery, error) {
			return queryRequest[listUsersQuery](s, r)
		})

		s.admin("GET /api/users", h)
	}
	{
		h := mapBoth(s, s.getUser)
		h.request(pathID)

		s.admin("GET /api/users/{id}", h)
	}
	{
		h := mapBoth(s, s.updateUser)
		h.request(func(r *http.Request) (userUpdate, error) {
			id, err := pathID(r)
			if err != nil {
				return userUpdate{}, err
			}

			req, err := defaultRequest[updateUserRequest](r)
			if err != nil {
				return userUpdate{}, err
			}

			return userUpdate{id: id, req: req}, nil
		})

		s.admin("PUT /api/users/{id}", h)
	}
	{
		h := mapRequest(s, s.deleteUser)
		h.request(pathID)

		s.admin("DELETE /api/users/{id}", h)
	}

	// Wrap the mux with global middlewares.
	middlewares := []func(http.Handler) http.Handler{
		requestIDMiddleware,
		principalMiddleware(s),
	}
	s.handler = s.mux
	for i := len(middlewares) - 1; i >= 0; i-- {
		s.handler = middlewares[i](s.handler)
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// startSession ends the session the request carried, if any, and writes
// the cookie of the new session together with the user.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, status int, res loginResult) error {
	old, ok := tokenFromCtx(r.Context())
	if ok {
		s.deps.AuthService.Logout(r.Context(), old)
	}

	err := s.cookies.SetToken(w, r, res.token)
	if err != nil {
		return err
	}

	return writeJSON(w, status, res.user.Public())
}

const requestIDHeader = "X-Request-Id"

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New()
		w.Header().Set(requestIDHeader, id.String())

		ctx := context.WithValue(r.Context(), requestIDCtxKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

const requestIDCtxKey ctxKey = "_requestID"

func requestIDFromCtx(ctx context.Context) string {
	id, ok := ctx.Value(requestIDCtxKey).(uuid.UUID)
	if !ok {
		return ""
	}
	return id.String()
}

package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/mediahub/mediahub/internal/auth"
	"github.com/mediahub/mediahub/internal/errorz"
	"github.com/mediahub/mediahub/internal/krypto"
)

// public routes are reachable by anyone.
func (s *Server) public(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
}

// authenticated routes require a session that resolves to a user.
func (s *Server) authenticated(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, requireAuthenticated(s, handler))
}

// admin routes require a session that resolves to an admin.
func (s *Server) admin(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, requireAdmin(s, handler))
}

func requireAuthenticated(s *Server, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := userFromCtx(r.Context())
		if !ok {
			if resolveFailed(r.Context()) {
				// Logged by principalMiddleware.
				s.writeError(w, r, http.StatusInternalServerError, errorResponse{
					Message: "Internal server error",
				})
				return
			}

			s.handleError(w, r, errorz.ErrUnauthenticated)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func requireAdmin(s *Server, next http.Handler) http.Handler {
	return requireAuthenticated(s, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := userFromCtx(r.Context())
		if !user.IsAdmin {
			s.handleError(w, r, errorz.ErrForbidden)
			return
		}

		next.ServeHTTP(w, r)
	}))
}

// principalMiddleware resolves the session cookie of a request to a user,
// once per request. Requests without a valid session continue anonymously.
// When the session can't be resolved at all the request also continues
// anonymously, but guarded routes answer it with an internal error.
func principalMiddleware(s *Server) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := s.cookies.Token(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx := ctxWithToken(r.Context(), token)

			user, err := s.deps.AuthService.CurrentUser(ctx, token)
			switch {
			case err == nil:
				ctx = ctxWithUser(ctx, user)
			case errors.Is(err, errorz.ErrNotFound):
				// Expired or ended session, or the user is gone.
			default:
				s.deps.Logger.Error("failed to resolve session",
					"requestId", requestIDFromCtx(ctx),
					"method", r.Method,
					"path", r.URL.Path,
					"error", err,
				)
				ctx = ctxWithResolveErr(ctx, err)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type ctxKey string

const (
	userCtxKey       ctxKey = "_user"
	tokenCtxKey      ctxKey = "_token"
	resolveErrCtxKey ctxKey = "_resolveErr"
)

func ctxWithUser(ctx context.Context, user auth.User) context.Context {
	return context.WithValue(ctx, userCtxKey, user)
}

func userFromCtx(ctx context.Context) (auth.User, bool) {
	user, ok := ctx.Value(userCtxKey).(auth.User)
	return user, ok
}

// ctxWithToken stores the session token the request carried, whether or
// not it still resolves to a user.
func ctxWithToken(ctx context.Context, token krypto.Token) context.Context {
	return context.WithValue(ctx, tokenCtxKey, token)
}

func tokenFromCtx(ctx context.Context) (krypto.Token, bool) {
	token, ok := ctx.Value(tokenCtxKey).(krypto.Token)
	return token, ok
}

func ctxWithResolveErr(ctx context.Context, err error) context.Context {
	return context.WithValue(ctx, resolveErrCtxKey, err)
}

// resolveFailed reports whether the request carried a session that could
// not be resolved because of an internal error.
func resolveFailed(ctx context.Context) bool {
	_, ok := ctx.Value(resolveErrCtxKey).(error)
	return ok
}

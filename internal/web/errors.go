package web

import (
	"errors"
	"net/http"

	"github.com/mediahub/mediahub/internal/auth"
	"github.com/mediahub/mediahub/internal/errorz"
)

// errorResponse is the body of every error response.
type errorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// handleError is the single place where errors are mapped to responses.
// Unknown errors are logged and reported as a generic 500.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var invalidInput errorz.InvalidInput
	if errors.As(err, &invalidInput) {
		s.writeError(w, r, http.StatusBadRequest, errorResponse{
			Message: "Invalid input",
			Errors:  invalidInput.Fields(),
		})
		return
	}

	status, msg := http.StatusInternalServerError, "Internal server error"
	switch {
	case errors.Is(err, auth.ErrDuplicateUsername):
		status, msg = http.StatusBadRequest, "Username already exists"
	case errors.Is(err, auth.ErrDuplicateEmail):
		status, msg = http.StatusBadRequest, "Email already exists"
	case errors.Is(err, auth.ErrSelfDelete):
		status, msg = http.StatusBadRequest, "Cannot delete yourself"
	case errors.Is(err, auth.ErrInvalidCredentials):
		status, msg = http.StatusUnauthorized, "Invalid username or password"
	case errors.Is(err, errorz.ErrUnauthenticated):
		status, msg = http.StatusUnauthorized, "Not authenticated"
	case errors.Is(err, auth.ErrAccessDenied), errors.Is(err, errorz.ErrForbidden):
		status, msg = http.StatusForbidden, "Access denied"
	case errors.Is(err, errorz.ErrNotFound):
		status, msg = http.StatusNotFound, "Not found"
	default:
		s.deps.Logger.Error("internal server error",
			"requestId", requestIDFromCtx(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}

	s.writeError(w, r, status, errorResponse{Message: msg})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, body errorResponse) {
	err := writeJSON(w, status, body)
	if err != nil {
		s.deps.Logger.Error("failed to write error response",
			"requestId", requestIDFromCtx(r.Context()),
			"error", err,
		)
	}
}

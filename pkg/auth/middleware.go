package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Middleware provides HTTP authentication middleware.
// It is thin and delegates authentication logic to AuthService.
type Middleware struct {
	authService AuthService
	logger      *zap.Logger
}

// NewMiddleware creates a new auth middleware with the given AuthService.
func NewMiddleware(authService AuthService, logger *zap.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		logger:      logger,
	}
}

// RequireWorkspace validates the JWT and matches the URL path workspace ID to
// the token. Use for endpoints like /api/workspaces/{wid}/... where the URL
// carries workspace scope. pathParamName is the name used in r.PathValue().
func (m *Middleware) RequireWorkspace(pathParamName string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, token, err := m.authService.ValidateRequest(r)
			if err != nil {
				m.unauthorized(w, "Authentication required")
				return
			}

			if err := m.authService.RequireWorkspace(claims); err != nil {
				m.badRequest(w, "Missing workspace ID in token")
				return
			}

			// Path parameter via Go 1.22+ http.ServeMux
			urlWorkspaceID := r.PathValue(pathParamName)

			if err := m.authService.ValidateWorkspaceIDMatch(claims, urlWorkspaceID); err != nil {
				m.logger.Warn("Workspace ID mismatch between token and URL",
					zap.String("path", r.URL.Path),
					zap.String("url_workspace_id", urlWorkspaceID))
				m.forbidden(w, "Workspace ID mismatch between token and URL")
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			ctx = context.WithValue(ctx, TokenKey, token)
			next(w, r.WithContext(ctx))
		}
	}
}

// unauthorized returns a 401 response with JSON error body.
func (m *Middleware) unauthorized(w http.ResponseWriter, message string) {
	writeAuthError(w, http.StatusUnauthorized, "unauthorized", message)
}

// badRequest returns a 400 response with JSON error body.
func (m *Middleware) badRequest(w http.ResponseWriter, message string) {
	writeAuthError(w, http.StatusBadRequest, "bad_request", message)
}

// forbidden returns a 403 response with JSON error body.
func (m *Middleware) forbidden(w http.ResponseWriter, message string) {
	writeAuthError(w, http.StatusForbidden, "forbidden", message)
}

func writeAuthError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

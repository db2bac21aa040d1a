// Package auth provides JWT-based authentication for promptwatch-engine.
// Tokens are validated against the workspace registry's JWKS endpoints.
package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing JWT claims.
	ClaimsKey contextKey = "claims"
	// TokenKey is the context key for storing the raw JWT token string.
	TokenKey contextKey = "token"
)

// Claims represents the JWT claims structure issued by the workspace registry.
// It embeds RegisteredClaims for standard JWT fields (sub, iss, exp, etc.)
// and adds custom claims for tenant context.
type Claims struct {
	jwt.RegisteredClaims
	OrgID       string `json:"oid,omitempty"` // Organization UUID
	WorkspaceID string `json:"wid,omitempty"` // Workspace UUID (one per brand)
	Email       string `json:"email,omitempty"`
}

// GetClaims retrieves JWT claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// GetToken retrieves the raw JWT token string from the request context.
// Returns empty string and false if token is not present.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}

// TenantFromContext extracts org and workspace IDs from JWT claims in context.
// Returns an error if not authenticated or the claims are malformed.
func TenantFromContext(ctx context.Context) (uuid.UUID, uuid.UUID, error) {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("authentication required: no claims in context")
	}

	orgID, err := uuid.Parse(claims.OrgID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid org ID in JWT claims: %w", err)
	}

	workspaceID, err := uuid.Parse(claims.WorkspaceID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid workspace ID in JWT claims: %w", err)
	}

	return orgID, workspaceID, nil
}

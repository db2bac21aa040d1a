// Package testhelpers provides utilities for testing promptwatch-engine components.
package testhelpers

import (
	"encoding/base64"
	"fmt"
)

// GenerateTestJWT creates a test JWT token for use when verification is disabled.
// The token has a valid structure but no signature (alg: none).
// This is useful for testing auth flows without needing real JWKS validation.
func GenerateTestJWT(sub, orgID, workspaceID string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))

	payload := fmt.Sprintf(`{"sub":"%s","aud":"engine"`, sub)
	if orgID != "" {
		payload += fmt.Sprintf(`,"oid":"%s"`, orgID)
	}
	if workspaceID != "" {
		payload += fmt.Sprintf(`,"wid":"%s"`, workspaceID)
	}
	payload += "}"

	encodedPayload := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return fmt.Sprintf("%s.%s.", header, encodedPayload)
}

// GenerateTestJWTWithBearer returns token with "Bearer " prefix for Authorization header.
func GenerateTestJWTWithBearer(sub, orgID, workspaceID string) string {
	return "Bearer " + GenerateTestJWT(sub, orgID, workspaceID)
}

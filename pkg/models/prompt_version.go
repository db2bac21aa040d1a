package models

import (
	"time"

	"github.com/google/uuid"
)

// ProviderVersionUnknown is recorded when a provider reports no usable
// fingerprint or model-version token, or when the provider itself is unknown.
const ProviderVersionUnknown = "unknown"

// PromptVersion records one sighting of a provider-reported model/version
// identity for a template. A template accumulates versions over time as the
// provider's backend drifts. Stored in prompt_versions.
type PromptVersion struct {
	ID                    uuid.UUID  `json:"id"`
	OrgID                 uuid.UUID  `json:"org_id"`
	WorkspaceID           uuid.UUID  `json:"workspace_id"`
	TemplateID            uuid.UUID  `json:"template_id"`
	Provider              string     `json:"provider"`
	ProviderVersionKey    string     `json:"provider_version_key"`
	ModelID               string     `json:"model_id"`
	FingerprintCapturedAt *time.Time `json:"fingerprint_captured_at,omitempty"` // first real capture wins
	FirstSeenAt           time.Time  `json:"first_seen_at"`
	LastSeenAt            time.Time  `json:"last_seen_at"`
}

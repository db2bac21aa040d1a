package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PromptResult is an immutable audit record of one execution. Rows are
// append-only: never updated, never deleted. Stored in prompt_results.
type PromptResult struct {
	ID                     uuid.UUID       `json:"id"`
	OrgID                  uuid.UUID       `json:"org_id"`
	WorkspaceID            uuid.UUID       `json:"workspace_id"`
	TemplateID             uuid.UUID       `json:"template_id"`
	VersionID              uuid.UUID       `json:"version_id"`
	// ProviderVersionKey always carries the resolved version identity for
	// this run (live fingerprint, model-version echo, or probed key, in that
	// order of preference).
	ProviderVersionKey string `json:"provider_version_key"`

	// SystemFingerprint is the raw backend fingerprint from this run's
	// response only. Empty means the provider reported none (Anthropic never
	// does); the fallback chain is deliberately not written here so the
	// column stays a faithful record of what the response said.
	SystemFingerprint string `json:"system_fingerprint,omitempty"`
	RequestPayload         json.RawMessage `json:"request_payload,omitempty"`
	ResponsePayload        json.RawMessage `json:"response_payload,omitempty"`
	GroundingModeRequested string          `json:"grounding_mode_requested"`
	GroundedEffective      bool            `json:"grounded_effective"`
	ToolCallCount          int             `json:"tool_call_count"`
	CitationCount          int             `json:"citation_count"`
	EnforcementFailed      bool            `json:"enforcement_failed"`
	EnforcementReason      string          `json:"enforcement_reason,omitempty"`
	PromptContentHash      string          `json:"prompt_content_hash"` // SHA-256 of the rendered prompt, for after-the-fact integrity checks
	RunCountry             string          `json:"run_country,omitempty"`
	CreatedAt              time.Time       `json:"created_at"`
}

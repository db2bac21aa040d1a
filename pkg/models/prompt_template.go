package models

import (
	"time"

	"github.com/google/uuid"
)

// PromptConfig is the logical generation configuration a caller submits.
// It is the input to canonical hashing and the payload stored on a template.
// Tenant identifiers and analysis metadata (brand names, aliases) never appear
// here: the hash covers generation configuration only.
type PromptConfig struct {
	Name                string           `json:"name"`
	Provider            string           `json:"provider,omitempty"` // explicit override; inferred from ModelID when empty
	ModelID             string           `json:"model_id"`
	SystemInstructions  string           `json:"system_instructions,omitempty"`
	UserPromptTemplate  string           `json:"user_prompt_template"`
	Countries           []string         `json:"countries,omitempty"`
	InferenceParams     map[string]any   `json:"inference_params,omitempty"`
	ToolsSpec           []map[string]any `json:"tools_spec,omitempty"` // order is semantically meaningful
	ResponseFormat      map[string]any   `json:"response_format,omitempty"`
	GroundingMode       string           `json:"grounding_mode,omitempty"`
	GroundingProfileID  string           `json:"grounding_profile_id,omitempty"`
	GroundingSnapshotID string           `json:"grounding_snapshot_id,omitempty"`
	RetrievalParams     map[string]any   `json:"retrieval_params,omitempty"`
}

// PromptTemplate is a deduplicated, immutable-once-created generation
// configuration. Stored in prompt_templates.
type PromptTemplate struct {
	ID                  uuid.UUID        `json:"id"`
	OrgID               uuid.UUID        `json:"org_id"`
	WorkspaceID         uuid.UUID        `json:"workspace_id"`
	Name                string           `json:"name"`
	Provider            string           `json:"provider,omitempty"`
	ModelID             string           `json:"model_id"`
	SystemInstructions  string           `json:"system_instructions,omitempty"`
	UserPromptTemplate  string           `json:"user_prompt_template"`
	Countries           []string         `json:"countries,omitempty"`
	InferenceParams     map[string]any   `json:"inference_params,omitempty"`
	ToolsSpec           []map[string]any `json:"tools_spec,omitempty"`
	ResponseFormat      map[string]any   `json:"response_format,omitempty"`
	GroundingMode       string           `json:"grounding_mode,omitempty"`
	GroundingProfileID  string           `json:"grounding_profile_id,omitempty"`
	GroundingSnapshotID string           `json:"grounding_snapshot_id,omitempty"`
	RetrievalParams     map[string]any   `json:"retrieval_params,omitempty"`
	ConfigHash          string           `json:"config_hash"`
	ConfigCanonicalJSON string           `json:"config_canonical_json,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	DeletedAt           *time.Time       `json:"deleted_at,omitempty"`
}

// Config reconstructs the logical configuration from a stored template.
func (t *PromptTemplate) Config() *PromptConfig {
	return &PromptConfig{
		Name:                t.Name,
		Provider:            t.Provider,
		ModelID:             t.ModelID,
		SystemInstructions:  t.SystemInstructions,
		UserPromptTemplate:  t.UserPromptTemplate,
		Countries:           t.Countries,
		InferenceParams:     t.InferenceParams,
		ToolsSpec:           t.ToolsSpec,
		ResponseFormat:      t.ResponseFormat,
		GroundingMode:       t.GroundingMode,
		GroundingProfileID:  t.GroundingProfileID,
		GroundingSnapshotID: t.GroundingSnapshotID,
		RetrievalParams:     t.RetrievalParams,
	}
}

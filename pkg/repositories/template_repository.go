package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/promptwatch/promptwatch-engine/pkg/apperrors"
	"github.com/promptwatch/promptwatch-engine/pkg/database"
	"github.com/promptwatch/promptwatch-engine/pkg/models"
)

// TemplateRepository provides data access for prompt templates. It owns the
// "one active template per (org, workspace, config hash)" invariant, enforced
// by a partial unique index in the store.
type TemplateRepository interface {
	// Create inserts a new template. If an active template with the same
	// config hash already exists in the workspace, it returns
	// *apperrors.DuplicateTemplateError carrying the existing row's identity.
	Create(ctx context.Context, t *models.PromptTemplate) error

	// FindActiveByHash returns the active (not soft-deleted) template with the
	// given config hash, or nil if none exists.
	FindActiveByHash(ctx context.Context, configHash string) (*models.PromptTemplate, error)

	GetByID(ctx context.Context, id uuid.UUID) (*models.PromptTemplate, error)
	ListActive(ctx context.Context) ([]*models.PromptTemplate, error)

	// SoftDelete sets deleted_at. The same configuration may be recreated
	// afterwards under a brand-new id; history is not resurrected.
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type templateRepository struct{}

// NewTemplateRepository creates a new TemplateRepository.
func NewTemplateRepository() TemplateRepository {
	return &templateRepository{}
}

var _ TemplateRepository = (*templateRepository)(nil)

const templateColumns = `
	id, org_id, workspace_id, name, provider, model_id,
	system_instructions, user_prompt_template, countries,
	inference_params, tools_spec, response_format,
	grounding_mode, grounding_profile_id, grounding_snapshot_id, retrieval_params,
	config_hash, config_canonical_json, created_at, deleted_at`

func (r *templateRepository) Create(ctx context.Context, t *models.PromptTemplate) error {
	scope, ok := database.GetWorkspaceScope(ctx)
	if !ok {
		return fmt.Errorf("no workspace scope in context")
	}

	query := `
		INSERT INTO prompt_templates (
			org_id, workspace_id, name, provider, model_id,
			system_instructions, user_prompt_template, countries,
			inference_params, tools_spec, response_format,
			grounding_mode, grounding_profile_id, grounding_snapshot_id, retrieval_params,
			config_hash, config_canonical_json, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id, created_at`

	err := scope.Conn.QueryRow(ctx, query,
		t.OrgID,
		t.WorkspaceID,
		t.Name,
		nullString(t.Provider),
		t.ModelID,
		nullString(t.SystemInstructions),
		t.UserPromptTemplate,
		t.Countries,
		jsonbValue(t.InferenceParams),
		jsonbValue(t.ToolsSpec),
		jsonbValue(t.ResponseFormat),
		nullString(t.GroundingMode),
		nullString(t.GroundingProfileID),
		nullString(t.GroundingSnapshotID),
		jsonbValue(t.RetrievalParams),
		t.ConfigHash,
		t.ConfigCanonicalJSON,
		time.Now(),
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			// Lost a create race (or the configuration already existed).
			// Fetch the winner's row so the caller can reuse it.
			existing, fetchErr := r.FindActiveByHash(ctx, t.ConfigHash)
			if fetchErr != nil {
				return fmt.Errorf("fetch existing template after conflict: %w", fetchErr)
			}
			if existing == nil {
				// Winner was deleted between insert and fetch; surface the
				// conflict without identity rather than guessing.
				return fmt.Errorf("template create conflict: %w", apperrors.ErrConflict)
			}
			return &apperrors.DuplicateTemplateError{
				ExistingID:   existing.ID,
				ExistingName: existing.Name,
				ConfigHash:   t.ConfigHash,
			}
		}
		return fmt.Errorf("failed to create template: %w", err)
	}

	return nil
}

func (r *templateRepository) FindActiveByHash(ctx context.Context, configHash string) (*models.PromptTemplate, error) {
	scope, ok := database.GetWorkspaceScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no workspace scope in context")
	}

	query := `
		SELECT ` + templateColumns + `
		FROM prompt_templates
		WHERE org_id = $1 AND workspace_id = $2 AND config_hash = $3 AND deleted_at IS NULL`

	row := scope.Conn.QueryRow(ctx, query, scope.OrgID, scope.WorkspaceID, configHash)
	t, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

func (r *templateRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PromptTemplate, error) {
	scope, ok := database.GetWorkspaceScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no workspace scope in context")
	}

	query := `
		SELECT ` + templateColumns + `
		FROM prompt_templates
		WHERE id = $1 AND org_id = $2 AND workspace_id = $3`

	row := scope.Conn.QueryRow(ctx, query, id, scope.OrgID, scope.WorkspaceID)
	t, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *templateRepository) ListActive(ctx context.Context) ([]*models.PromptTemplate, error) {
	scope, ok := database.GetWorkspaceScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no workspace scope in context")
	}

	query := `
		SELECT ` + templateColumns + `
		FROM prompt_templates
		WHERE org_id = $1 AND workspace_id = $2 AND deleted_at IS NULL
		ORDER BY created_at DESC`

	rows, err := scope.Conn.Query(ctx, query, scope.OrgID, scope.WorkspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()

	var templates []*models.PromptTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating templates: %w", err)
	}

	return templates, nil
}

func (r *templateRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	scope, ok := database.GetWorkspaceScope(ctx)
	if !ok {
		return fmt.Errorf("no workspace scope in context")
	}

	query := `
		UPDATE prompt_templates
		SET deleted_at = $4
		WHERE id = $1 AND org_id = $2 AND workspace_id = $3 AND deleted_at IS NULL`

	result, err := scope.Conn.Exec(ctx, query, id, scope.OrgID, scope.WorkspaceID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// ============================================================================
// Helper Functions
// ============================================================================

func scanTemplate(row pgx.Row) (*models.PromptTemplate, error) {
	var t models.PromptTemplate
	var provider, systemInstructions, groundingMode, profileID, snapshotID *string
	var inferenceParams, toolsSpec, responseFormat, retrievalParams []byte

	err := row.Scan(
		&t.ID,
		&t.OrgID,
		&t.WorkspaceID,
		&t.Name,
		&provider,
		&t.ModelID,
		&systemInstructions,
		&t.UserPromptTemplate,
		&t.Countries,
		&inferenceParams,
		&toolsSpec,
		&responseFormat,
		&groundingMode,
		&profileID,
		&snapshotID,
		&retrievalParams,
		&t.ConfigHash,
		&t.ConfigCanonicalJSON,
		&t.CreatedAt,
		&t.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan template: %w", err)
	}

	if provider != nil {
		t.Provider = *provider
	}
	if systemInstructions != nil {
		t.SystemInstructions = *systemInstructions
	}
	if groundingMode != nil {
		t.GroundingMode = *groundingMode
	}
	if profileID != nil {
		t.GroundingProfileID = *profileID
	}
	if snapshotID != nil {
		t.GroundingSnapshotID = *snapshotID
	}

	if err := jsonUnmarshal(inferenceParams, &t.InferenceParams); err != nil {
		return nil, fmt.Errorf("failed to unmarshal inference_params: %w", err)
	}
	if err := jsonUnmarshal(toolsSpec, &t.ToolsSpec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tools_spec: %w", err)
	}
	if err := jsonUnmarshal(responseFormat, &t.ResponseFormat); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response_format: %w", err)
	}
	if err := jsonUnmarshal(retrievalParams, &t.RetrievalParams); err != nil {
		return nil, fmt.Errorf("failed to unmarshal retrieval_params: %w", err)
	}

	return &t, nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// nullString returns nil if the string is empty, otherwise returns the string pointer.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// jsonbValue converts a value to JSONB format for database insertion.
// Returns nil for nil/empty values to store NULL in the database.
func jsonbValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		if len(val) == 0 {
			return nil
		}
		return val
	case []map[string]any:
		if len(val) == 0 {
			return nil
		}
		return val
	default:
		return v
	}
}

// jsonUnmarshal unmarshals JSONB data from the database, treating NULL and
// empty values as absent.
func jsonUnmarshal(data []byte, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, v)
}

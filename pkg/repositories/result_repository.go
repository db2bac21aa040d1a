package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/promptwatch/promptwatch-engine/pkg/apperrors"
	"github.com/promptwatch/promptwatch-engine/pkg/database"
	"github.com/promptwatch/promptwatch-engine/pkg/models"
)

// ResultRepository provides data access for prompt results. The table is
// append-only: rows are never updated or deleted.
type ResultRepository interface {
	Create(ctx context.Context, res *models.PromptResult) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PromptResult, error)
	ListByTemplate(ctx context.Context, templateID uuid.UUID, limit int) ([]*models.PromptResult, error)
}

type resultRepository struct{}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository() ResultRepository {
	return &resultRepository{}
}

var _ ResultRepository = (*resultRepository)(nil)

const resultColumns = `
	id, org_id, workspace_id, template_id, version_id, provider_version_key,
	system_fingerprint, request_payload, response_payload,
	grounding_mode_requested, grounded_effective, tool_call_count, citation_count,
	enforcement_failed, enforcement_reason, prompt_content_hash, run_country, created_at`

func (r *resultRepository) Create(ctx context.Context, res *models.PromptResult) error {
	scope, ok := database.GetWorkspaceScope(ctx)
	if !ok {
		return fmt.Errorf("no workspace scope in context")
	}

	query := `
		INSERT INTO prompt_results (
			org_id, workspace_id, template_id, version_id, provider_version_key,
			system_fingerprint, request_payload, response_payload,
			grounding_mode_requested, grounded_effective, tool_call_count, citation_count,
			enforcement_failed, enforcement_reason, prompt_content_hash, run_country, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id, created_at`

	err := scope.Conn.QueryRow(ctx, query,
		res.OrgID,
		res.WorkspaceID,
		res.TemplateID,
		res.VersionID,
		res.ProviderVersionKey,
		nullString(res.SystemFingerprint),
		[]byte(res.RequestPayload),
		[]byte(res.ResponsePayload),
		res.GroundingModeRequested,
		res.GroundedEffective,
		res.ToolCallCount,
		res.CitationCount,
		res.EnforcementFailed,
		nullString(res.EnforcementReason),
		res.PromptContentHash,
		nullString(res.RunCountry),
		time.Now(),
	).Scan(&res.ID, &res.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create result: %w", err)
	}

	return nil
}

func (r *resultRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PromptResult, error) {
	scope, ok := database.GetWorkspaceScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no workspace scope in context")
	}

	query := `
		SELECT ` + resultColumns + `
		FROM prompt_results
		WHERE id = $1 AND org_id = $2 AND workspace_id = $3`

	row := scope.Conn.QueryRow(ctx, query, id, scope.OrgID, scope.WorkspaceID)
	res, err := scanResult(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return res, nil
}

func (r *resultRepository) ListByTemplate(ctx context.Context, templateID uuid.UUID, limit int) ([]*models.PromptResult, error) {
	scope, ok := database.GetWorkspaceScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no workspace scope in context")
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT ` + resultColumns + `
		FROM prompt_results
		WHERE org_id = $1 AND workspace_id = $2 AND template_id = $3
		ORDER BY created_at DESC
		LIMIT $4`

	rows, err := scope.Conn.Query(ctx, query, scope.OrgID, scope.WorkspaceID, templateID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var results []*models.PromptResult
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}

	return results, nil
}

func scanResult(row pgx.Row) (*models.PromptResult, error) {
	var res models.PromptResult
	var fingerprint, reason, country *string
	var requestPayload, responsePayload []byte

	err := row.Scan(
		&res.ID,
		&res.OrgID,
		&res.WorkspaceID,
		&res.TemplateID,
		&res.VersionID,
		&res.ProviderVersionKey,
		&fingerprint,
		&requestPayload,
		&responsePayload,
		&res.GroundingModeRequested,
		&res.GroundedEffective,
		&res.ToolCallCount,
		&res.CitationCount,
		&res.EnforcementFailed,
		&reason,
		&res.PromptContentHash,
		&country,
		&res.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan result: %w", err)
	}

	if fingerprint != nil {
		res.SystemFingerprint = *fingerprint
	}
	if reason != nil {
		res.EnforcementReason = *reason
	}
	if country != nil {
		res.RunCountry = *country
	}
	res.RequestPayload = requestPayload
	res.ResponsePayload = responsePayload

	return &res, nil
}

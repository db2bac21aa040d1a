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

// VersionRepository provides data access for prompt versions. Rows are unique
// on (org, workspace, template, provider_version_key) and are never deleted.
type VersionRepository interface {
	// Upsert creates the version row for v's 4-tuple or touches the existing
	// one: last_seen_at takes the max, fingerprint_captured_at keeps the
	// earliest non-null value (first real capture wins). Safe to call from
	// many concurrent run requests for the same template; an insert race is
	// resolved by re-fetching the winner's row and merging into it.
	// On return v reflects the stored row.
	Upsert(ctx context.Context, v *models.PromptVersion) error

	GetByID(ctx context.Context, id uuid.UUID) (*models.PromptVersion, error)
	ListByTemplate(ctx context.Context, templateID uuid.UUID) ([]*models.PromptVersion, error)
}

type versionRepository struct{}

// NewVersionRepository creates a new VersionRepository.
func NewVersionRepository() VersionRepository {
	return &versionRepository{}
}

var _ VersionRepository = (*versionRepository)(nil)

const versionColumns = `
	id, org_id, workspace_id, template_id, provider, provider_version_key,
	model_id, fingerprint_captured_at, first_seen_at, last_seen_at`

func (r *versionRepository) Upsert(ctx context.Context, v *models.PromptVersion) error {
	scope, ok := database.GetWorkspaceScope(ctx)
	if !ok {
		return fmt.Errorf("no workspace scope in context")
	}

	now := time.Now()
	if v.LastSeenAt.IsZero() {
		v.LastSeenAt = now
	}

	// Lookup first: the common case after the first run is an existing row.
	existing, err := r.findByKey(ctx, v.TemplateID, v.ProviderVersionKey)
	if err != nil {
		return err
	}
	if existing != nil {
		return r.touch(ctx, v, existing.ID)
	}

	query := `
		INSERT INTO prompt_versions (
			org_id, workspace_id, template_id, provider, provider_version_key,
			model_id, fingerprint_captured_at, first_seen_at, last_seen_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING id, first_seen_at, last_seen_at`

	err = scope.Conn.QueryRow(ctx, query,
		scope.OrgID,
		scope.WorkspaceID,
		v.TemplateID,
		v.Provider,
		v.ProviderVersionKey,
		v.ModelID,
		v.FingerprintCapturedAt,
		v.LastSeenAt,
	).Scan(&v.ID, &v.FirstSeenAt, &v.LastSeenAt)
	if err != nil {
		if isUniqueViolation(err) {
			// Lost the insert race. Merge into the winner's row instead of
			// erroring: version capture must be idempotent.
			winner, fetchErr := r.findByKey(ctx, v.TemplateID, v.ProviderVersionKey)
			if fetchErr != nil {
				return fmt.Errorf("fetch version after conflict: %w", fetchErr)
			}
			if winner == nil {
				return fmt.Errorf("version row vanished after conflict: %w", apperrors.ErrConflict)
			}
			return r.touch(ctx, v, winner.ID)
		}
		return fmt.Errorf("failed to create version: %w", err)
	}

	v.OrgID = scope.OrgID
	v.WorkspaceID = scope.WorkspaceID
	return nil
}

// touch merges v's sighting into the stored row identified by id:
// last_seen_at takes the max, fingerprint_captured_at is backfilled only if
// previously unset. v is updated to the merged row.
func (r *versionRepository) touch(ctx context.Context, v *models.PromptVersion, id uuid.UUID) error {
	scope, ok := database.GetWorkspaceScope(ctx)
	if !ok {
		return fmt.Errorf("no workspace scope in context")
	}

	query := `
		UPDATE prompt_versions
		SET last_seen_at = GREATEST(last_seen_at, $2),
		    fingerprint_captured_at = COALESCE(fingerprint_captured_at, $3)
		WHERE id = $1
		RETURNING ` + versionColumns

	row := scope.Conn.QueryRow(ctx, query, id, v.LastSeenAt, v.FingerprintCapturedAt)
	merged, err := scanVersion(row)
	if err != nil {
		return fmt.Errorf("failed to touch version: %w", err)
	}

	*v = *merged
	return nil
}

func (r *versionRepository) findByKey(ctx context.Context, templateID uuid.UUID, providerVersionKey string) (*models.PromptVersion, error) {
	scope, ok := database.GetWorkspaceScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no workspace scope in context")
	}

	query := `
		SELECT ` + versionColumns + `
		FROM prompt_versions
		WHERE org_id = $1 AND workspace_id = $2 AND template_id = $3 AND provider_version_key = $4`

	row := scope.Conn.QueryRow(ctx, query, scope.OrgID, scope.WorkspaceID, templateID, providerVersionKey)
	v, err := scanVersion(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}

func (r *versionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PromptVersion, error) {
	scope, ok := database.GetWorkspaceScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no workspace scope in context")
	}

	query := `
		SELECT ` + versionColumns + `
		FROM prompt_versions
		WHERE id = $1 AND org_id = $2 AND workspace_id = $3`

	row := scope.Conn.QueryRow(ctx, query, id, scope.OrgID, scope.WorkspaceID)
	v, err := scanVersion(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

func (r *versionRepository) ListByTemplate(ctx context.Context, templateID uuid.UUID) ([]*models.PromptVersion, error) {
	scope, ok := database.GetWorkspaceScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no workspace scope in context")
	}

	query := `
		SELECT ` + versionColumns + `
		FROM prompt_versions
		WHERE org_id = $1 AND workspace_id = $2 AND template_id = $3
		ORDER BY first_seen_at ASC`

	rows, err := scope.Conn.Query(ctx, query, scope.OrgID, scope.WorkspaceID, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to query versions: %w", err)
	}
	defer rows.Close()

	var versions []*models.PromptVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating versions: %w", err)
	}

	return versions, nil
}

func scanVersion(row pgx.Row) (*models.PromptVersion, error) {
	var v models.PromptVersion

	err := row.Scan(
		&v.ID,
		&v.OrgID,
		&v.WorkspaceID,
		&v.TemplateID,
		&v.Provider,
		&v.ProviderVersionKey,
		&v.ModelID,
		&v.FingerprintCapturedAt,
		&v.FirstSeenAt,
		&v.LastSeenAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan version: %w", err)
	}

	return &v, nil
}

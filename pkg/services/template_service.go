package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/promptwatch/promptwatch-engine/pkg/apperrors"
	"github.com/promptwatch/promptwatch-engine/pkg/canonical"
	"github.com/promptwatch/promptwatch-engine/pkg/database"
	"github.com/promptwatch/promptwatch-engine/pkg/grounding"
	"github.com/promptwatch/promptwatch-engine/pkg/models"
	"github.com/promptwatch/promptwatch-engine/pkg/repositories"
)

// DuplicateCheck is the result of a non-mutating duplicate probe.
type DuplicateCheck struct {
	ExactMatch bool       `json:"exact_match"`
	TemplateID *uuid.UUID `json:"template_id,omitempty"`
	ConfigHash string     `json:"config_hash"`
}

// TemplateService owns template creation and the dedup invariant: at most one
// active template per (org, workspace, config hash).
type TemplateService interface {
	// CreateTemplate canonicalizes the configuration and creates a template.
	// If an active template with the same hash exists, it returns
	// *apperrors.DuplicateTemplateError; the caller is expected to reuse the
	// existing template, never to create a second one.
	CreateTemplate(ctx context.Context, cfg *models.PromptConfig) (*models.PromptTemplate, error)

	// CheckDuplicate reports whether the configuration already exists as an
	// active template, without creating anything.
	CheckDuplicate(ctx context.Context, cfg *models.PromptConfig) (*DuplicateCheck, error)

	GetTemplate(ctx context.Context, id uuid.UUID) (*models.PromptTemplate, error)
	ListTemplates(ctx context.Context) ([]*models.PromptTemplate, error)

	// DeleteTemplate soft-deletes. Recreating the identical configuration
	// afterwards succeeds with a brand-new id.
	DeleteTemplate(ctx context.Context, id uuid.UUID) error
}

type templateService struct {
	repo   repositories.TemplateRepository
	logger *zap.Logger
}

// NewTemplateService creates a new TemplateService.
func NewTemplateService(repo repositories.TemplateRepository, logger *zap.Logger) TemplateService {
	return &templateService{
		repo:   repo,
		logger: logger.Named("template-service"),
	}
}

var _ TemplateService = (*templateService)(nil)

func (s *templateService) CreateTemplate(ctx context.Context, cfg *models.PromptConfig) (*models.PromptTemplate, error) {
	scope, ok := database.GetWorkspaceScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no workspace scope in context")
	}

	canonicalJSON, hash, err := canonical.Canonicalize(cfg)
	if err != nil {
		return nil, fmt.Errorf("canonicalize config: %w", err)
	}

	// Fast path: an existing active template short-circuits the insert.
	// The partial unique index still backstops the check-then-insert race.
	if existing, err := s.repo.FindActiveByHash(ctx, hash); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, &apperrors.DuplicateTemplateError{
			ExistingID:   existing.ID,
			ExistingName: existing.Name,
			ConfigHash:   hash,
		}
	}

	t := &models.PromptTemplate{
		OrgID:               scope.OrgID,
		WorkspaceID:         scope.WorkspaceID,
		Name:                cfg.Name,
		Provider:            cfg.Provider,
		ModelID:             cfg.ModelID,
		SystemInstructions:  cfg.SystemInstructions,
		UserPromptTemplate:  cfg.UserPromptTemplate,
		Countries:           canonical.NormalizeCountries(cfg.Countries),
		InferenceParams:     cfg.InferenceParams,
		ToolsSpec:           cfg.ToolsSpec,
		ResponseFormat:      cfg.ResponseFormat,
		GroundingMode:       string(grounding.NormalizeMode(cfg.GroundingMode)),
		GroundingProfileID:  cfg.GroundingProfileID,
		GroundingSnapshotID: cfg.GroundingSnapshotID,
		RetrievalParams:     cfg.RetrievalParams,
		ConfigHash:          hash,
		ConfigCanonicalJSON: canonicalJSON,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info("Created template",
		zap.String("template_id", t.ID.String()),
		zap.String("config_hash", hash),
		zap.String("workspace_id", t.WorkspaceID.String()))

	return t, nil
}

func (s *templateService) CheckDuplicate(ctx context.Context, cfg *models.PromptConfig) (*DuplicateCheck, error) {
	_, hash, err := canonical.Canonicalize(cfg)
	if err != nil {
		return nil, fmt.Errorf("canonicalize config: %w", err)
	}

	existing, err := s.repo.FindActiveByHash(ctx, hash)
	if err != nil {
		return nil, err
	}

	check := &DuplicateCheck{ConfigHash: hash}
	if existing != nil {
		check.ExactMatch = true
		check.TemplateID = &existing.ID
	}
	return check, nil
}

func (s *templateService) GetTemplate(ctx context.Context, id uuid.UUID) (*models.PromptTemplate, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *templateService) ListTemplates(ctx context.Context) ([]*models.PromptTemplate, error) {
	return s.repo.ListActive(ctx)
}

func (s *templateService) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Soft-deleted template", zap.String("template_id", id.String()))
	return nil
}

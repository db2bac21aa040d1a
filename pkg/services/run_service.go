package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/promptwatch/promptwatch-engine/pkg/apperrors"
	"github.com/promptwatch/promptwatch-engine/pkg/canonical"
	"github.com/promptwatch/promptwatch-engine/pkg/database"
	"github.com/promptwatch/promptwatch-engine/pkg/grounding"
	"github.com/promptwatch/promptwatch-engine/pkg/llm"
	"github.com/promptwatch/promptwatch-engine/pkg/logging"
	"github.com/promptwatch/promptwatch-engine/pkg/models"
	"github.com/promptwatch/promptwatch-engine/pkg/providers"
	"github.com/promptwatch/promptwatch-engine/pkg/repositories"
)

// RunRequest is one execution of a template. The prompt arrives fully
// rendered; variable substitution happens upstream of this service.
type RunRequest struct {
	TemplateID     uuid.UUID `json:"template_id"`
	RenderedPrompt string    `json:"rendered_prompt"`
	Country        string    `json:"country,omitempty"`
	GroundingMode  string    `json:"grounding_mode,omitempty"` // overrides the template's mode when set
}

// RunService executes rendered prompts against the template's provider and
// records an immutable result per attempt. An enforcement failure is a normal
// persisted outcome, not an error; provider call failures surface as errors
// and write no result row.
type RunService interface {
	Run(ctx context.Context, req *RunRequest) (*models.PromptResult, error)
	GetResult(ctx context.Context, id uuid.UUID) (*models.PromptResult, error)
	ListResults(ctx context.Context, templateID uuid.UUID, limit int) ([]*models.PromptResult, error)
}

type runService struct {
	templates repositories.TemplateRepository
	results   repositories.ResultRepository
	versions  VersionService
	factory   llm.Factory
	logger    *zap.Logger
}

// NewRunService creates a new RunService.
func NewRunService(templates repositories.TemplateRepository, results repositories.ResultRepository, versions VersionService, factory llm.Factory, logger *zap.Logger) RunService {
	return &runService{
		templates: templates,
		results:   results,
		versions:  versions,
		factory:   factory,
		logger:    logger.Named("run-service"),
	}
}

var _ RunService = (*runService)(nil)

func (s *runService) Run(ctx context.Context, req *RunRequest) (*models.PromptResult, error) {
	scope, ok := database.GetWorkspaceScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no workspace scope in context")
	}
	if req.RenderedPrompt == "" {
		return nil, fmt.Errorf("rendered_prompt is required")
	}

	template, err := s.templates.GetByID(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}
	if template.DeletedAt != nil {
		return nil, apperrors.ErrTemplateDeleted
	}

	mode := grounding.NormalizeMode(template.GroundingMode)
	if req.GroundingMode != "" {
		mode = grounding.NormalizeMode(req.GroundingMode)
	}

	provider := providers.Resolve(template.Provider, template.ModelID)
	client, err := s.factory.ForProvider(provider)
	if err != nil {
		return nil, fmt.Errorf("resolve provider client: %w", err)
	}

	country := normalizeRunCountry(req.Country)

	// Ensure the version row exists before dispatch so the result always has
	// a version to hang off, even if the response carries no identity.
	version, err := s.versions.EnsureVersion(ctx, template)
	if err != nil {
		return nil, err
	}

	llmReq := &llm.Request{
		ModelID:            template.ModelID,
		SystemInstructions: template.SystemInstructions,
		Prompt:             req.RenderedPrompt,
		InferenceParams:    template.InferenceParams,
		ToolsSpec:          template.ToolsSpec,
		RequestGrounding:   mode != grounding.ModeNotGrounded,
	}

	s.logger.Debug("Dispatching prompt",
		zap.String("provider", provider),
		zap.String("model_id", template.ModelID),
		zap.String("prompt_preview", logging.SanitizePayload(req.RenderedPrompt)))

	resp, err := client.Complete(ctx, llmReq)
	if err != nil {
		// No result row for failed provider calls; callers may retry the
		// whole run, which is idempotent for template and version state.
		return nil, err
	}

	// The live response is a better version signal than the pre-run probe:
	// fingerprint first, resolved model name second.
	observedKey := resp.Fingerprint
	if observedKey == "" {
		observedKey = resp.ModelVersion
	}
	if observedKey != "" && observedKey != version.ProviderVersionKey {
		version, err = s.versions.RecordObserved(ctx, template, observedKey, resp.Fingerprint != "")
		if err != nil {
			return nil, err
		}
	}

	verdict := grounding.Evaluate(mode, grounding.Signals{
		ToolCallCount:    resp.ToolCallCount,
		CitationCount:    resp.CitationCount,
		ReportsToolCalls: resp.ReportsToolCalls,
	})

	requestPayload, err := json.Marshal(map[string]any{
		"model_id":            template.ModelID,
		"system_instructions": template.SystemInstructions,
		"rendered_prompt":     req.RenderedPrompt,
		"inference_params":    template.InferenceParams,
		"tools_spec":          template.ToolsSpec,
		"grounding_mode":      string(mode),
		"country":             country,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request payload: %w", err)
	}

	result := &models.PromptResult{
		OrgID:                  scope.OrgID,
		WorkspaceID:            scope.WorkspaceID,
		TemplateID:             template.ID,
		VersionID:              version.ID,
		ProviderVersionKey:     version.ProviderVersionKey,
		SystemFingerprint:      resp.Fingerprint,
		RequestPayload:         requestPayload,
		ResponsePayload:        resp.Raw,
		GroundingModeRequested: string(mode),
		GroundedEffective:      verdict.GroundedEffective,
		ToolCallCount:          resp.ToolCallCount,
		CitationCount:          resp.CitationCount,
		EnforcementFailed:      verdict.EnforcementFailed,
		EnforcementReason:      verdict.Reason,
		PromptContentHash:      canonical.HashPrompt(req.RenderedPrompt),
		RunCountry:             country,
	}

	if err := s.results.Create(ctx, result); err != nil {
		return nil, err
	}

	if verdict.EnforcementFailed {
		s.logger.Warn("Run recorded with enforcement failure",
			zap.String("template_id", template.ID.String()),
			zap.String("result_id", result.ID.String()),
			zap.String("reason", verdict.Reason))
	} else {
		s.logger.Info("Run recorded",
			zap.String("template_id", template.ID.String()),
			zap.String("result_id", result.ID.String()),
			zap.Bool("grounded_effective", verdict.GroundedEffective))
	}

	return result, nil
}

func (s *runService) GetResult(ctx context.Context, id uuid.UUID) (*models.PromptResult, error) {
	return s.results.GetByID(ctx, id)
}

func (s *runService) ListResults(ctx context.Context, templateID uuid.UUID, limit int) ([]*models.PromptResult, error) {
	return s.results.ListByTemplate(ctx, templateID, limit)
}

func normalizeRunCountry(country string) string {
	if country == "" {
		return ""
	}
	normalized := canonical.NormalizeCountries([]string{country})
	if len(normalized) == 0 {
		return ""
	}
	return normalized[0]
}

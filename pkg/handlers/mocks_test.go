package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/promptwatch/promptwatch-engine/pkg/apperrors"
	"github.com/promptwatch/promptwatch-engine/pkg/models"
	"github.com/promptwatch/promptwatch-engine/pkg/services"
)

type mockTemplateService struct {
	CreateTemplateFunc func(ctx context.Context, cfg *models.PromptConfig) (*models.PromptTemplate, error)
	CheckDuplicateFunc func(ctx context.Context, cfg *models.PromptConfig) (*services.DuplicateCheck, error)
	GetTemplateFunc    func(ctx context.Context, id uuid.UUID) (*models.PromptTemplate, error)
	ListTemplatesFunc  func(ctx context.Context) ([]*models.PromptTemplate, error)
	DeleteTemplateFunc func(ctx context.Context, id uuid.UUID) error
}

func (m *mockTemplateService) CreateTemplate(ctx context.Context, cfg *models.PromptConfig) (*models.PromptTemplate, error) {
	if m.CreateTemplateFunc != nil {
		return m.CreateTemplateFunc(ctx, cfg)
	}
	return &models.PromptTemplate{ID: uuid.New()}, nil
}

func (m *mockTemplateService) CheckDuplicate(ctx context.Context, cfg *models.PromptConfig) (*services.DuplicateCheck, error) {
	if m.CheckDuplicateFunc != nil {
		return m.CheckDuplicateFunc(ctx, cfg)
	}
	return &services.DuplicateCheck{ConfigHash: "abc"}, nil
}

func (m *mockTemplateService) GetTemplate(ctx context.Context, id uuid.UUID) (*models.PromptTemplate, error) {
	if m.GetTemplateFunc != nil {
		return m.GetTemplateFunc(ctx, id)
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockTemplateService) ListTemplates(ctx context.Context) ([]*models.PromptTemplate, error) {
	if m.ListTemplatesFunc != nil {
		return m.ListTemplatesFunc(ctx)
	}
	return nil, nil
}

func (m *mockTemplateService) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	if m.DeleteTemplateFunc != nil {
		return m.DeleteTemplateFunc(ctx, id)
	}
	return nil
}

type mockVersionService struct {
	EnsureVersionFunc  func(ctx context.Context, template *models.PromptTemplate) (*models.PromptVersion, error)
	RecordObservedFunc func(ctx context.Context, template *models.PromptTemplate, versionKey string, fingerprintSeen bool) (*models.PromptVersion, error)
	ListVersionsFunc   func(ctx context.Context, templateID uuid.UUID) ([]*models.PromptVersion, error)
}

func (m *mockVersionService) EnsureVersion(ctx context.Context, template *models.PromptTemplate) (*models.PromptVersion, error) {
	if m.EnsureVersionFunc != nil {
		return m.EnsureVersionFunc(ctx, template)
	}
	return &models.PromptVersion{ID: uuid.New(), ProviderVersionKey: "fp_abc"}, nil
}

func (m *mockVersionService) RecordObserved(ctx context.Context, template *models.PromptTemplate, versionKey string, fingerprintSeen bool) (*models.PromptVersion, error) {
	if m.RecordObservedFunc != nil {
		return m.RecordObservedFunc(ctx, template, versionKey, fingerprintSeen)
	}
	return &models.PromptVersion{ID: uuid.New(), ProviderVersionKey: versionKey}, nil
}

func (m *mockVersionService) ListVersions(ctx context.Context, templateID uuid.UUID) ([]*models.PromptVersion, error) {
	if m.ListVersionsFunc != nil {
		return m.ListVersionsFunc(ctx, templateID)
	}
	return nil, nil
}

type mockRunService struct {
	RunFunc         func(ctx context.Context, req *services.RunRequest) (*models.PromptResult, error)
	GetResultFunc   func(ctx context.Context, id uuid.UUID) (*models.PromptResult, error)
	ListResultsFunc func(ctx context.Context, templateID uuid.UUID, limit int) ([]*models.PromptResult, error)
}

func (m *mockRunService) Run(ctx context.Context, req *services.RunRequest) (*models.PromptResult, error) {
	if m.RunFunc != nil {
		return m.RunFunc(ctx, req)
	}
	return &models.PromptResult{ID: uuid.New()}, nil
}

func (m *mockRunService) GetResult(ctx context.Context, id uuid.UUID) (*models.PromptResult, error) {
	if m.GetResultFunc != nil {
		return m.GetResultFunc(ctx, id)
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockRunService) ListResults(ctx context.Context, templateID uuid.UUID, limit int) ([]*models.PromptResult, error) {
	if m.ListResultsFunc != nil {
		return m.ListResultsFunc(ctx, templateID, limit)
	}
	return nil, nil
}

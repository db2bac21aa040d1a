package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/promptwatch/promptwatch-engine/pkg/apperrors"
	"github.com/promptwatch/promptwatch-engine/pkg/database"
	"github.com/promptwatch/promptwatch-engine/pkg/models"
)

// scopedContext returns a context carrying a workspace scope. Unit tests never
// touch the scope's connection; only the tenant identifiers are read.
func scopedContext(t *testing.T) (context.Context, uuid.UUID, uuid.UUID) {
	t.Helper()
	orgID := uuid.New()
	workspaceID := uuid.New()
	ctx := database.SetWorkspaceScope(context.Background(), &database.WorkspaceScope{
		OrgID:       orgID,
		WorkspaceID: workspaceID,
	})
	return ctx, orgID, workspaceID
}

type mockTemplateRepo struct {
	CreateFunc           func(ctx context.Context, tpl *models.PromptTemplate) error
	FindActiveByHashFunc func(ctx context.Context, configHash string) (*models.PromptTemplate, error)
	GetByIDFunc          func(ctx context.Context, id uuid.UUID) (*models.PromptTemplate, error)
	ListActiveFunc       func(ctx context.Context) ([]*models.PromptTemplate, error)
	SoftDeleteFunc       func(ctx context.Context, id uuid.UUID) error
}

func (m *mockTemplateRepo) Create(ctx context.Context, tpl *models.PromptTemplate) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tpl)
	}
	tpl.ID = uuid.New()
	return nil
}

func (m *mockTemplateRepo) FindActiveByHash(ctx context.Context, configHash string) (*models.PromptTemplate, error) {
	if m.FindActiveByHashFunc != nil {
		return m.FindActiveByHashFunc(ctx, configHash)
	}
	return nil, nil
}

func (m *mockTemplateRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.PromptTemplate, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockTemplateRepo) ListActive(ctx context.Context) ([]*models.PromptTemplate, error) {
	if m.ListActiveFunc != nil {
		return m.ListActiveFunc(ctx)
	}
	return nil, nil
}

func (m *mockTemplateRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	if m.SoftDeleteFunc != nil {
		return m.SoftDeleteFunc(ctx, id)
	}
	return nil
}

type mockVersionRepo struct {
	UpsertFunc         func(ctx context.Context, v *models.PromptVersion) error
	GetByIDFunc        func(ctx context.Context, id uuid.UUID) (*models.PromptVersion, error)
	ListByTemplateFunc func(ctx context.Context, templateID uuid.UUID) ([]*models.PromptVersion, error)

	UpsertCalls []*models.PromptVersion
}

func (m *mockVersionRepo) Upsert(ctx context.Context, v *models.PromptVersion) error {
	m.UpsertCalls = append(m.UpsertCalls, v)
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, v)
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

func (m *mockVersionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.PromptVersion, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockVersionRepo) ListByTemplate(ctx context.Context, templateID uuid.UUID) ([]*models.PromptVersion, error) {
	if m.ListByTemplateFunc != nil {
		return m.ListByTemplateFunc(ctx, templateID)
	}
	return nil, nil
}

type mockResultRepo struct {
	CreateFunc         func(ctx context.Context, res *models.PromptResult) error
	GetByIDFunc        func(ctx context.Context, id uuid.UUID) (*models.PromptResult, error)
	ListByTemplateFunc func(ctx context.Context, templateID uuid.UUID, limit int) ([]*models.PromptResult, error)

	Created []*models.PromptResult
}

func (m *mockResultRepo) Create(ctx context.Context, res *models.PromptResult) error {
	m.Created = append(m.Created, res)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, res)
	}
	res.ID = uuid.New()
	return nil
}

func (m *mockResultRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.PromptResult, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockResultRepo) ListByTemplate(ctx context.Context, templateID uuid.UUID, limit int) ([]*models.PromptResult, error) {
	if m.ListByTemplateFunc != nil {
		return m.ListByTemplateFunc(ctx, templateID, limit)
	}
	return nil, nil
}

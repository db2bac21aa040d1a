package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/promptwatch/promptwatch-engine/pkg/llm"
	"github.com/promptwatch/promptwatch-engine/pkg/models"
	"github.com/promptwatch/promptwatch-engine/pkg/providers"
	"github.com/promptwatch/promptwatch-engine/pkg/repositories"
)

const probeTimeout = 10 * time.Second

// VersionService tracks which provider-side model builds a template has been
// seen running against. Version capture never blocks or fails a run: when the
// provider cannot be identified or probed, the sighting is recorded under the
// "unknown" key instead of erroring.
type VersionService interface {
	// EnsureVersion probes the provider for the model's current version key
	// and upserts the sighting for this template.
	EnsureVersion(ctx context.Context, template *models.PromptTemplate) (*models.PromptVersion, error)

	// RecordObserved upserts a version identity taken from a live completion
	// response. fingerprintSeen marks whether versionKey came from a real
	// backend fingerprint rather than a model name.
	RecordObserved(ctx context.Context, template *models.PromptTemplate, versionKey string, fingerprintSeen bool) (*models.PromptVersion, error)

	ListVersions(ctx context.Context, templateID uuid.UUID) ([]*models.PromptVersion, error)
}

type versionService struct {
	repo     repositories.VersionRepository
	factory  llm.Factory
	cache    *redis.Client // nil disables probe caching
	probeTTL time.Duration
	logger   *zap.Logger
}

// NewVersionService creates a new VersionService. cache may be nil.
func NewVersionService(repo repositories.VersionRepository, factory llm.Factory, cache *redis.Client, probeTTL time.Duration, logger *zap.Logger) VersionService {
	return &versionService{
		repo:     repo,
		factory:  factory,
		cache:    cache,
		probeTTL: probeTTL,
		logger:   logger.Named("version-service"),
	}
}

var _ VersionService = (*versionService)(nil)

func (s *versionService) EnsureVersion(ctx context.Context, template *models.PromptTemplate) (*models.PromptVersion, error) {
	provider := providers.Resolve(template.Provider, template.ModelID)

	key := models.ProviderVersionUnknown
	if provider != providers.Unknown {
		key = s.probeVersionKey(ctx, provider, template.ModelID)
	}

	// A probe that only echoes the requested model name back is not a real
	// fingerprint capture.
	fingerprintSeen := key != models.ProviderVersionUnknown && key != template.ModelID

	return s.RecordObserved(ctx, template, key, fingerprintSeen)
}

func (s *versionService) RecordObserved(ctx context.Context, template *models.PromptTemplate, versionKey string, fingerprintSeen bool) (*models.PromptVersion, error) {
	if versionKey == "" {
		versionKey = models.ProviderVersionUnknown
	}

	v := &models.PromptVersion{
		TemplateID:         template.ID,
		Provider:           providers.Resolve(template.Provider, template.ModelID),
		ProviderVersionKey: versionKey,
		ModelID:            template.ModelID,
		LastSeenAt:         time.Now(),
	}
	if fingerprintSeen {
		now := time.Now()
		v.FingerprintCapturedAt = &now
	}

	if err := s.repo.Upsert(ctx, v); err != nil {
		return nil, fmt.Errorf("upsert version: %w", err)
	}

	s.logger.Debug("Recorded version sighting",
		zap.String("template_id", template.ID.String()),
		zap.String("provider", v.Provider),
		zap.String("provider_version_key", v.ProviderVersionKey))

	return v, nil
}

func (s *versionService) ListVersions(ctx context.Context, templateID uuid.UUID) ([]*models.PromptVersion, error) {
	return s.repo.ListByTemplate(ctx, templateID)
}

// probeVersionKey asks the provider what build currently serves modelID,
// consulting the cache first. Returns "unknown" on any failure.
func (s *versionService) probeVersionKey(ctx context.Context, provider, modelID string) string {
	cacheKey := fmt.Sprintf("version-probe:%s:%s", provider, modelID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
			return cached
		}
	}

	client, err := s.factory.ForProvider(provider)
	if err != nil {
		s.logger.Warn("No client for provider, recording unknown version",
			zap.String("provider", provider),
			zap.String("model_id", modelID))
		return models.ProviderVersionUnknown
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	key, err := client.ProbeVersion(probeCtx, modelID)
	if err != nil || key == "" {
		s.logger.Warn("Version probe failed, recording unknown version",
			zap.String("provider", provider),
			zap.String("model_id", modelID),
			zap.Error(err))
		return models.ProviderVersionUnknown
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, key, s.probeTTL).Err(); err != nil {
			s.logger.Warn("Failed to cache version probe", zap.Error(err))
		}
	}

	return key
}

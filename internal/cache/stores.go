package cache

import (
	"context"

	"go.uber.org/zap"

	"github.com/awslabs/game-analytics-pipeline/internal/domain"
	"github.com/awslabs/game-analytics-pipeline/internal/repository"
)

// NewDirectory creates the registered applications cache
func NewDirectory(repo repository.ApplicationRepository, cfg Config, log *zap.Logger) *ReadThrough[domain.Application] {
	return New("applications", cfg, repo.GetApplication, log)
}

// NewExperiments creates the current experiment per remote config cache
func NewExperiments(repo repository.ExperimentRepository, cfg Config, log *zap.Logger) *ReadThrough[domain.Experiment] {
	return New("experiments", cfg, repo.ActiveExperiment, log)
}

// NewOverrides creates the active overrides per remote config name cache
func NewOverrides(repo repository.OverrideRepository, cfg Config, log *zap.Logger) *ReadThrough[[]domain.RemoteConfigOverride] {
	return New("overrides", cfg, func(ctx context.Context, remoteConfigName string) ([]domain.RemoteConfigOverride, bool, error) {
		overrides, err := repo.ActiveOverrides(ctx, remoteConfigName)
		return overrides, len(overrides) > 0, err
	}, log)
}

// NewAudiences creates the audiences per audience type cache
func NewAudiences(repo repository.OverrideRepository, cfg Config, log *zap.Logger) *ReadThrough[[]domain.Audience] {
	return New("audiences", cfg, func(ctx context.Context, audienceType string) ([]domain.Audience, bool, error) {
		audiences, err := repo.AudiencesByType(ctx, audienceType)
		return audiences, len(audiences) > 0, err
	}, log)
}

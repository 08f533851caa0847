package remoteconfig

import (
	"context"

	"github.com/awslabs/game-analytics-pipeline/internal/domain"
)

// ExperimentLookup returns the current experiment of a remote config
type ExperimentLookup interface {
	Get(ctx context.Context, remoteConfigID string) (domain.Experiment, bool, error)
}

// Random is the source of bucketing draws. *rand.Rand satisfies it.
type Random interface {
	Float64() float64
	IntN(n int) int
}

// OverrideLookup returns the active overrides of a remote config by config name
type OverrideLookup interface {
	Get(ctx context.Context, remoteConfigName string) ([]domain.RemoteConfigOverride, bool, error)
}

// AudienceLookup returns the audiences of one audience type
type AudienceLookup interface {
	Get(ctx context.Context, audienceType string) ([]domain.Audience, bool, error)
}

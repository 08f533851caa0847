package service

import (
	"context"
	"errors"

	"github.com/awslabs/game-analytics-pipeline/internal/domain"
	"github.com/awslabs/game-analytics-pipeline/internal/dto"
)

// ErrInvalidRequest is returned for requests that fail service-level validation
var ErrInvalidRequest = errors.New("invalid request")

// RemoteConfigServicer defines the interface for remote config operations
type RemoteConfigServicer interface {
	GetRemoteConfigs(ctx context.Context, req *dto.GetRemoteConfigsRequest) (*dto.GetRemoteConfigsResponse, error)
}

// IngestionStatsServicer defines the interface for ingestion statistics operations
type IngestionStatsServicer interface {
	GetIngestionStats(ctx context.Context, req *dto.GetIngestionStatsRequest) (*dto.GetIngestionStatsResponse, error)
}

// ConfigResolver resolves remote config values for a user
type ConfigResolver interface {
	Resolve(ctx context.Context, user domain.User, configs []domain.RemoteConfig) (map[string]domain.ResolvedValue, error)
}

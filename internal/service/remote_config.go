package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/awslabs/game-analytics-pipeline/internal/domain"
	"github.com/awslabs/game-analytics-pipeline/internal/dto"
	"github.com/awslabs/game-analytics-pipeline/internal/repository"
)

// RemoteConfigService resolves the active remote configs of an application for a user
type RemoteConfigService struct {
	configs  repository.RemoteConfigRepository
	resolver ConfigResolver
	log      *zap.Logger
}

// NewRemoteConfigService creates a new remote config service
func NewRemoteConfigService(configs repository.RemoteConfigRepository, resolver ConfigResolver, log *zap.Logger) *RemoteConfigService {
	return &RemoteConfigService{
		configs:  configs,
		resolver: resolver,
		log:      log,
	}
}

// GetRemoteConfigs lists the active remote configs and resolves each of them for the user
func (s *RemoteConfigService) GetRemoteConfigs(ctx context.Context, req *dto.GetRemoteConfigsRequest) (*dto.GetRemoteConfigsResponse, error) {
	configs, err := s.configs.ListActive(ctx, req.ApplicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active remote configs: %w", err)
	}

	s.log.Debug("Resolving remote configs",
		zap.String("user_id", req.UserID),
		zap.String("application_id", req.ApplicationID),
		zap.Int("config_count", len(configs)))

	user := domain.User{
		ID:            req.UserID,
		ApplicationID: req.ApplicationID,
		Country:       req.Country,
	}

	values, err := s.resolver.Resolve(ctx, user, configs)
	if err != nil {
		return nil, err
	}

	return &dto.GetRemoteConfigsResponse{
		UserID:  req.UserID,
		Configs: values,
	}, nil
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/awslabs/game-analytics-pipeline/internal/domain"
	"github.com/awslabs/game-analytics-pipeline/internal/dto"
	"github.com/awslabs/game-analytics-pipeline/internal/repository"
)

const (
	testFrom int64 = 1766702551
	testTo   int64 = 1766788951
)

// MockEventRepository is a mock implementation of repository.EventRepository
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) InsertBatch(ctx context.Context, events []*domain.CanonicalEvent) (repository.InsertResult, error) {
	args := m.Called(ctx, events)
	return args.Get(0).(repository.InsertResult), args.Error(1)
}

func (m *MockEventRepository) InitSchema(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockEventRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockEventRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockEventRepository) GetIngestionStats(ctx context.Context, query repository.StatsQuery) (*repository.StatsResult, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.StatsResult), args.Error(1)
}

// MockRemoteConfigRepository is a mock implementation of repository.RemoteConfigRepository
type MockRemoteConfigRepository struct {
	mock.Mock
}

func (m *MockRemoteConfigRepository) ListActive(ctx context.Context, applicationID string) ([]domain.RemoteConfig, error) {
	args := m.Called(ctx, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RemoteConfig), args.Error(1)
}

// MockConfigResolver is a mock implementation of ConfigResolver
type MockConfigResolver struct {
	mock.Mock
}

func (m *MockConfigResolver) Resolve(ctx context.Context, user domain.User, configs []domain.RemoteConfig) (map[string]domain.ResolvedValue, error) {
	args := m.Called(ctx, user, configs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.ResolvedValue), args.Error(1)
}

func TestRemoteConfigService_GetRemoteConfigs_Success(t *testing.T) {
	configs := new(MockRemoteConfigRepository)
	resolver := new(MockConfigResolver)
	service := NewRemoteConfigService(configs, resolver, zap.NewNop())

	active := []domain.RemoteConfig{{ID: "rc1", Name: "difficulty", ReferenceValue: "normal"}}
	resolved := map[string]domain.ResolvedValue{"difficulty": {Value: "hard", ValueOrigin: domain.OriginABTest}}
	configs.On("ListActive", mock.Anything, "A1").Return(active, nil)
	user := domain.User{ID: "u1", ApplicationID: "A1", Country: "FR"}
	resolver.On("Resolve", mock.Anything, user, active).Return(resolved, nil)

	response, err := service.GetRemoteConfigs(context.Background(), &dto.GetRemoteConfigsRequest{UserID: "u1", ApplicationID: "A1", Country: "FR"})

	require.NoError(t, err)
	assert.Equal(t, "u1", response.UserID)
	assert.Equal(t, resolved, response.Configs)
	configs.AssertExpectations(t)
	resolver.AssertExpectations(t)
}

func TestRemoteConfigService_GetRemoteConfigs_ListError(t *testing.T) {
	configs := new(MockRemoteConfigRepository)
	resolver := new(MockConfigResolver)
	service := NewRemoteConfigService(configs, resolver, zap.NewNop())

	depErr := &repository.DependencyError{Store: "remote_configs", Op: "Query", Err: errors.New("timeout")}
	configs.On("ListActive", mock.Anything, "").Return(nil, depErr)

	response, err := service.GetRemoteConfigs(context.Background(), &dto.GetRemoteConfigsRequest{UserID: "u1"})

	assert.Nil(t, response)
	assert.True(t, repository.IsDependencyError(err))
	resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything)
}

func TestRemoteConfigService_GetRemoteConfigs_ResolveError(t *testing.T) {
	configs := new(MockRemoteConfigRepository)
	resolver := new(MockConfigResolver)
	service := NewRemoteConfigService(configs, resolver, zap.NewNop())

	configs.On("ListActive", mock.Anything, "A1").Return([]domain.RemoteConfig{}, nil)
	resolver.On("Resolve", mock.Anything, domain.User{ID: "u1", ApplicationID: "A1"}, []domain.RemoteConfig{}).Return(nil, errors.New("both stores down"))

	_, err := service.GetRemoteConfigs(context.Background(), &dto.GetRemoteConfigsRequest{UserID: "u1", ApplicationID: "A1"})

	assert.EqualError(t, err, "both stores down")
}

func TestIngestionStatsService_GetIngestionStats_Success(t *testing.T) {
	repo := new(MockEventRepository)
	service := NewIngestionStatsService(repo, zap.NewNop())

	query := repository.StatsQuery{ApplicationID: "A1", From: testFrom, To: testTo, GroupBy: "status"}
	repo.On("GetIngestionStats", mock.Anything, query).Return(&repository.StatsResult{
		TotalCount: 15,
		Groups: []repository.StatsGroupResult{
			{GroupValue: "ok", TotalCount: 10},
			{GroupValue: "schema_mismatch", TotalCount: 3},
			{GroupValue: "unregistered", TotalCount: 2},
		},
	}, nil)

	response, err := service.GetIngestionStats(context.Background(), &dto.GetIngestionStatsRequest{
		ApplicationID: "A1", From: testFrom, To: testTo, GroupBy: "status",
	})

	require.NoError(t, err)
	assert.Equal(t, uint64(15), response.TotalCount)
	assert.Equal(t, "status", response.GroupBy)
	require.Len(t, response.Groups, 3)
	assert.Equal(t, "schema_mismatch", response.Groups[1].GroupValue)
	repo.AssertExpectations(t)
}

func TestIngestionStatsService_GetIngestionStats_InvalidTimeRange(t *testing.T) {
	repo := new(MockEventRepository)
	service := NewIngestionStatsService(repo, zap.NewNop())

	_, err := service.GetIngestionStats(context.Background(), &dto.GetIngestionStatsRequest{
		ApplicationID: "A1", From: testTo, To: testFrom,
	})

	assert.ErrorIs(t, err, ErrInvalidRequest)
	repo.AssertNotCalled(t, "GetIngestionStats", mock.Anything, mock.Anything)
}

func TestIngestionStatsService_GetIngestionStats_InvalidGroupBy(t *testing.T) {
	repo := new(MockEventRepository)
	service := NewIngestionStatsService(repo, zap.NewNop())

	_, err := service.GetIngestionStats(context.Background(), &dto.GetIngestionStatsRequest{
		ApplicationID: "A1", From: testFrom, To: testTo, GroupBy: "channel",
	})

	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Contains(t, err.Error(), "invalid group_by value")
}

func TestIngestionStatsService_GetIngestionStats_HourlyGroupingTooLargeRange(t *testing.T) {
	repo := new(MockEventRepository)
	service := NewIngestionStatsService(repo, zap.NewNop())

	_, err := service.GetIngestionStats(context.Background(), &dto.GetIngestionStatsRequest{
		ApplicationID: "A1", From: testFrom, To: testFrom + 91*24*3600, GroupBy: "hour",
	})

	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Contains(t, err.Error(), "time range too large")
}

func TestIngestionStatsService_GetIngestionStats_RepositoryError(t *testing.T) {
	repo := new(MockEventRepository)
	service := NewIngestionStatsService(repo, zap.NewNop())

	repo.On("GetIngestionStats", mock.Anything, mock.Anything).Return(nil, errors.New("clickhouse down"))

	_, err := service.GetIngestionStats(context.Background(), &dto.GetIngestionStatsRequest{
		ApplicationID: "A1", From: testFrom, To: testTo,
	})

	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidRequest)
	assert.Contains(t, err.Error(), "failed to get ingestion stats from repository")
}

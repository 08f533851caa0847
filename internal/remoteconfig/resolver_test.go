package remoteconfig

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/awslabs/game-analytics-pipeline/internal/domain"
	"github.com/awslabs/game-analytics-pipeline/internal/repository"
)

// MockExperimentLookup is a mock implementation of ExperimentLookup
type MockExperimentLookup struct {
	mock.Mock
}

func (m *MockExperimentLookup) Get(ctx context.Context, remoteConfigID string) (domain.Experiment, bool, error) {
	args := m.Called(ctx, remoteConfigID)
	return args.Get(0).(domain.Experiment), args.Bool(1), args.Error(2)
}

// memoryAssignments is an in-memory AssignmentRepository with first-writer-wins semantics
type memoryAssignments struct {
	mu       sync.Mutex
	items    map[string]domain.UserAssignment
	getErr   error
	writeErr error
	writes   int
}

func newMemoryAssignments() *memoryAssignments {
	return &memoryAssignments{items: make(map[string]domain.UserAssignment)}
}

func (m *memoryAssignments) GetAssignment(ctx context.Context, userID, experimentID string) (domain.UserAssignment, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return domain.UserAssignment{}, false, m.getErr
	}
	a, ok := m.items[userID+"/"+experimentID]
	return a, ok, nil
}

func (m *memoryAssignments) CreateAssignment(ctx context.Context, assignment domain.UserAssignment) (domain.UserAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return domain.UserAssignment{}, m.writeErr
	}
	key := assignment.UserID + "/" + assignment.ExperimentID
	if existing, ok := m.items[key]; ok {
		return existing, nil
	}
	m.items[key] = assignment
	m.writes++
	return assignment, nil
}

// fixedRandom returns the same draws every time
type fixedRandom struct {
	float float64
	index int
}

func (f fixedRandom) Float64() float64 { return f.float }
func (f fixedRandom) IntN(n int) int   { return f.index % n }

// MockOverrideLookup is a mock implementation of OverrideLookup
type MockOverrideLookup struct {
	mock.Mock
}

func (m *MockOverrideLookup) Get(ctx context.Context, remoteConfigName string) ([]domain.RemoteConfigOverride, bool, error) {
	args := m.Called(ctx, remoteConfigName)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]domain.RemoteConfigOverride), args.Bool(1), args.Error(2)
}

// MockAudienceLookup is a mock implementation of AudienceLookup
type MockAudienceLookup struct {
	mock.Mock
}

func (m *MockAudienceLookup) Get(ctx context.Context, audienceType string) ([]domain.Audience, bool, error) {
	args := m.Called(ctx, audienceType)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]domain.Audience), args.Bool(1), args.Error(2)
}

var difficulty = domain.RemoteConfig{ID: "rc1", Name: "difficulty", Active: 1, ReferenceValue: "normal"}

func experiment(target float64) domain.Experiment {
	return domain.Experiment{
		ID:                "exp1",
		RemoteConfigID:    "rc1",
		Active:            1,
		TargetUserPercent: target,
		Variants:          []string{"easy", "hard"},
	}
}

func TestResolver_NoExperimentReturnsReference(t *testing.T) {
	experiments := new(MockExperimentLookup)
	experiments.On("Get", mock.Anything, "rc1").Return(domain.Experiment{}, false, nil)
	assignments := newMemoryAssignments()
	resolver := NewResolver(experiments, assignments, zap.NewNop())

	values, err := resolver.Resolve(context.Background(), domain.User{ID: "u1"}, []domain.RemoteConfig{difficulty})

	require.NoError(t, err)
	assert.Equal(t, domain.ResolvedValue{Value: "normal", ValueOrigin: domain.OriginReferenceValue}, values["difficulty"])
	assert.Equal(t, 0, assignments.writes)
}

func TestResolver_PausedExperimentReturnsReference(t *testing.T) {
	paused := experiment(100)
	paused.Paused = true
	experiments := new(MockExperimentLookup)
	experiments.On("Get", mock.Anything, "rc1").Return(paused, true, nil)
	resolver := NewResolver(experiments, newMemoryAssignments(), zap.NewNop())

	values, err := resolver.Resolve(context.Background(), domain.User{ID: "u1"}, []domain.RemoteConfig{difficulty})

	require.NoError(t, err)
	assert.Equal(t, domain.OriginReferenceValue, values["difficulty"].ValueOrigin)
}

func TestResolver_StickyAcrossTargetChange(t *testing.T) {
	experiments := new(MockExperimentLookup)
	experiments.On("Get", mock.Anything, "rc1").Return(experiment(100), true, nil).Once()
	experiments.On("Get", mock.Anything, "rc1").Return(experiment(0), true, nil)
	assignments := newMemoryAssignments()
	resolver := NewResolver(experiments, assignments, zap.NewNop(), WithRandom(fixedRandom{float: 0.5, index: 2}))

	first, err := resolver.Resolve(context.Background(), domain.User{ID: "u1"}, []domain.RemoteConfig{difficulty})
	require.NoError(t, err)
	second, err := resolver.Resolve(context.Background(), domain.User{ID: "u1"}, []domain.RemoteConfig{difficulty})
	require.NoError(t, err)
	third, err := resolver.Resolve(context.Background(), domain.User{ID: "u1"}, []domain.RemoteConfig{difficulty})
	require.NoError(t, err)

	assert.Equal(t, domain.ResolvedValue{Value: "hard", ValueOrigin: domain.OriginABTest}, first["difficulty"])
	assert.Equal(t, first, second)
	assert.Equal(t, first, third)
	assert.Equal(t, 1, assignments.writes)
}

func TestResolver_TargetZeroNeverInTest(t *testing.T) {
	experiments := new(MockExperimentLookup)
	experiments.On("Get", mock.Anything, "rc1").Return(experiment(0), true, nil)
	resolver := NewResolver(experiments, newMemoryAssignments(), zap.NewNop(),
		WithRandom(rand.New(rand.NewPCG(1, 2))))

	for i := 0; i < 200; i++ {
		values, err := resolver.Resolve(context.Background(), domain.User{ID: fmt.Sprintf("user-%d", i)}, []domain.RemoteConfig{difficulty})
		require.NoError(t, err)
		assert.Equal(t, domain.ResolvedValue{Value: "normal", ValueOrigin: domain.OriginReferenceValue}, values["difficulty"])
	}
}

func TestResolver_TargetHundredAlwaysInTest(t *testing.T) {
	experiments := new(MockExperimentLookup)
	experiments.On("Get", mock.Anything, "rc1").Return(experiment(100), true, nil)
	resolver := NewResolver(experiments, newMemoryAssignments(), zap.NewNop(),
		WithRandom(rand.New(rand.NewPCG(3, 4))))

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		values, err := resolver.Resolve(context.Background(), domain.User{ID: fmt.Sprintf("user-%d", i)}, []domain.RemoteConfig{difficulty})
		require.NoError(t, err)
		assert.Equal(t, domain.OriginABTest, values["difficulty"].ValueOrigin)
		seen[values["difficulty"].Value] = true
	}

	assert.Equal(t, map[string]bool{"normal": true, "easy": true, "hard": true}, seen)
}

func TestResolver_ZeroDrawIsInTestWhenTargetPositive(t *testing.T) {
	experiments := new(MockExperimentLookup)
	experiments.On("Get", mock.Anything, "rc1").Return(experiment(0.5), true, nil)
	resolver := NewResolver(experiments, newMemoryAssignments(), zap.NewNop(), WithRandom(fixedRandom{float: 0, index: 0}))

	values, err := resolver.Resolve(context.Background(), domain.User{ID: "u1"}, []domain.RemoteConfig{difficulty})

	require.NoError(t, err)
	assert.Equal(t, domain.ResolvedValue{Value: "normal", ValueOrigin: domain.OriginABTest}, values["difficulty"])
}

func TestResolver_ExistingAssignmentReused(t *testing.T) {
	experiments := new(MockExperimentLookup)
	experiments.On("Get", mock.Anything, "rc1").Return(experiment(100), true, nil)
	assignments := newMemoryAssignments()
	assignments.items["u1/exp1"] = domain.UserAssignment{UserID: "u1", ExperimentID: "exp1", IsInTest: false, Value: "legacy"}
	resolver := NewResolver(experiments, assignments, zap.NewNop())

	values, err := resolver.Resolve(context.Background(), domain.User{ID: "u1"}, []domain.RemoteConfig{difficulty})

	require.NoError(t, err)
	assert.Equal(t, domain.ResolvedValue{Value: "legacy", ValueOrigin: domain.OriginReferenceValue}, values["difficulty"])
	assert.Equal(t, 0, assignments.writes)
}

func TestResolver_ConcurrentFirstResolutionsAgree(t *testing.T) {
	experiments := new(MockExperimentLookup)
	experiments.On("Get", mock.Anything, "rc1").Return(experiment(100), true, nil)
	assignments := newMemoryAssignments()
	resolver := NewResolver(experiments, assignments, zap.NewNop(), WithRandom(rand.New(rand.NewPCG(5, 6))))

	results := make([]domain.ResolvedValue, 20)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			values, err := resolver.Resolve(context.Background(), domain.User{ID: "u1"}, []domain.RemoteConfig{difficulty})
			assert.NoError(t, err)
			results[i] = values["difficulty"]
		}()
	}
	wg.Wait()

	for _, result := range results {
		assert.Equal(t, results[0], result)
	}
	assert.Equal(t, 1, assignments.writes)
}

func TestResolver_ConfigsResolvedIndependently(t *testing.T) {
	theme := domain.RemoteConfig{ID: "rc2", Name: "theme", Active: 1, ReferenceValue: "dark"}
	experiments := new(MockExperimentLookup)
	experiments.On("Get", mock.Anything, "rc1").Return(experiment(100), true, nil)
	experiments.On("Get", mock.Anything, "rc2").Return(domain.Experiment{}, false, errors.New("timeout"))
	resolver := NewResolver(experiments, newMemoryAssignments(), zap.NewNop(), WithRandom(fixedRandom{float: 0.1, index: 1}))

	values, err := resolver.Resolve(context.Background(), domain.User{ID: "u1"}, []domain.RemoteConfig{difficulty, theme})

	require.NoError(t, err)
	assert.Equal(t, domain.ResolvedValue{Value: "easy", ValueOrigin: domain.OriginABTest}, values["difficulty"])
	assert.Equal(t, domain.ResolvedValue{Value: "dark", ValueOrigin: domain.OriginReferenceValue}, values["theme"])
}

func TestResolver_AssignmentWriteFailureFallsBack(t *testing.T) {
	experiments := new(MockExperimentLookup)
	experiments.On("Get", mock.Anything, "rc1").Return(experiment(100), true, nil)
	assignments := newMemoryAssignments()
	assignments.writeErr = &repository.DependencyError{Store: "users_abtests", Op: "PutItem", Err: errors.New("throttled")}
	resolver := NewResolver(experiments, assignments, zap.NewNop())

	values, err := resolver.Resolve(context.Background(), domain.User{ID: "u1"}, []domain.RemoteConfig{difficulty})

	require.NoError(t, err)
	assert.Equal(t, domain.ResolvedValue{Value: "normal", ValueOrigin: domain.OriginReferenceValue}, values["difficulty"])
}

func TestResolver_BothStoresFailing(t *testing.T) {
	theme := domain.RemoteConfig{ID: "rc2", Name: "theme", Active: 1, ReferenceValue: "dark"}
	experiments := new(MockExperimentLookup)
	experiments.On("Get", mock.Anything, "rc1").Return(experiment(50), true, nil)
	experiments.On("Get", mock.Anything, "rc2").
		Return(domain.Experiment{}, false, &repository.DependencyError{Store: "abtests", Op: "Query", Err: errors.New("timeout")})
	assignments := newMemoryAssignments()
	assignments.getErr = &repository.DependencyError{Store: "users_abtests", Op: "GetItem", Err: errors.New("timeout")}
	resolver := NewResolver(experiments, assignments, zap.NewNop())

	values, err := resolver.Resolve(context.Background(), domain.User{ID: "u1"}, []domain.RemoteConfig{difficulty, theme})

	assert.Nil(t, values)
	assert.True(t, repository.IsDependencyError(err))
}

func TestResolver_MissingTableFailsFast(t *testing.T) {
	experiments := new(MockExperimentLookup)
	experiments.On("Get", mock.Anything, "rc1").Return(domain.Experiment{}, false,
		&repository.DependencyError{Store: "abtests", Op: "Query", Missing: true, Err: errors.New("ResourceNotFoundException")})
	resolver := NewResolver(experiments, newMemoryAssignments(), zap.NewNop())

	values, err := resolver.Resolve(context.Background(), domain.User{ID: "u1"}, []domain.RemoteConfig{difficulty})

	assert.Nil(t, values)
	assert.True(t, repository.IsMissingTable(err))
}

func TestResolver_NoConfigs(t *testing.T) {
	resolver := NewResolver(new(MockExperimentLookup), newMemoryAssignments(), zap.NewNop())

	values, err := resolver.Resolve(context.Background(), domain.User{ID: "u1"}, nil)

	require.NoError(t, err)
	assert.Empty(t, values)
}

var (
	frenchPlayers  = domain.Audience{Name: "french_players", Type: domain.AudienceTypePropertyBased, Condition: "country=FR"}
	belgianPlayers = domain.Audience{Name: "belgian_players", Type: domain.AudienceTypePropertyBased, Condition: "country=BE||country=LU"}
	frenchUser     = domain.User{ID: "u1", ApplicationID: "a1", Country: "FR"}
)

func overridesResolver(experiments ExperimentLookup, assignments repository.AssignmentRepository, overrides []domain.RemoteConfigOverride) (*Resolver, *MockOverrideLookup, *MockAudienceLookup) {
	overrideLookup := new(MockOverrideLookup)
	overrideLookup.On("Get", mock.Anything, "difficulty").Return(overrides, len(overrides) > 0, nil)
	audienceLookup := new(MockAudienceLookup)
	audienceLookup.On("Get", mock.Anything, domain.AudienceTypePropertyBased).
		Return([]domain.Audience{frenchPlayers, belgianPlayers}, true, nil)

	resolver := NewResolver(experiments, assignments, zap.NewNop(),
		WithOverrides(overrideLookup, audienceLookup),
		WithRandom(fixedRandom{float: 0, index: 2}))
	return resolver, overrideLookup, audienceLookup
}

func TestResolver_FixedOverrideWinsOverExperiment(t *testing.T) {
	experiments := new(MockExperimentLookup)
	assignments := newMemoryAssignments()
	resolver, _, _ := overridesResolver(experiments, assignments, []domain.RemoteConfigOverride{
		{RemoteConfigName: "difficulty", AudienceName: "belgian_players", OverrideType: domain.OverrideFixed, OverrideValue: "hard"},
		{RemoteConfigName: "difficulty", AudienceName: "french_players", OverrideType: domain.OverrideFixed, OverrideValue: "easy"},
	})

	values, err := resolver.Resolve(context.Background(), frenchUser, []domain.RemoteConfig{difficulty})

	require.NoError(t, err)
	assert.Equal(t, domain.ResolvedValue{Value: "easy", ValueOrigin: domain.OriginReferenceValue}, values["difficulty"])
	experiments.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	assert.Zero(t, assignments.writes)
}

func TestResolver_OverrideForOtherAudienceFallsThroughToExperiment(t *testing.T) {
	experiments := new(MockExperimentLookup)
	experiments.On("Get", mock.Anything, "rc1").Return(experiment(100), true, nil)
	assignments := newMemoryAssignments()
	resolver, _, _ := overridesResolver(experiments, assignments, []domain.RemoteConfigOverride{
		{RemoteConfigName: "difficulty", AudienceName: "belgian_players", OverrideType: domain.OverrideFixed, OverrideValue: "hard"},
	})

	values, err := resolver.Resolve(context.Background(), frenchUser, []domain.RemoteConfig{difficulty})

	require.NoError(t, err)
	assert.Equal(t, domain.ResolvedValue{Value: "hard", ValueOrigin: domain.OriginABTest}, values["difficulty"])
	assert.Equal(t, 1, assignments.writes)
}

func TestResolver_ABTestOverrideUsesExperiment(t *testing.T) {
	experiments := new(MockExperimentLookup)
	experiments.On("Get", mock.Anything, "rc1").Return(experiment(100), true, nil)
	assignments := newMemoryAssignments()
	resolver, _, _ := overridesResolver(experiments, assignments, []domain.RemoteConfigOverride{
		{RemoteConfigName: "difficulty", AudienceName: "french_players", OverrideType: domain.OverrideABTest, OverrideValue: "exp1"},
	})

	values, err := resolver.Resolve(context.Background(), frenchUser, []domain.RemoteConfig{difficulty})

	require.NoError(t, err)
	assert.Equal(t, domain.OriginABTest, values["difficulty"].ValueOrigin)
	experiments.AssertExpectations(t)
}

func TestResolver_UserWithoutAudienceSkipsOverrides(t *testing.T) {
	experiments := new(MockExperimentLookup)
	experiments.On("Get", mock.Anything, "rc1").Return(domain.Experiment{}, false, nil)
	resolver, overrideLookup, _ := overridesResolver(experiments, newMemoryAssignments(), nil)

	values, err := resolver.Resolve(context.Background(), domain.User{ID: "u2", Country: "DE"}, []domain.RemoteConfig{difficulty})

	require.NoError(t, err)
	assert.Equal(t, domain.ResolvedValue{Value: "normal", ValueOrigin: domain.OriginReferenceValue}, values["difficulty"])
	overrideLookup.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestResolver_OverrideLookupErrorFallsBack(t *testing.T) {
	experiments := new(MockExperimentLookup)
	overrideLookup := new(MockOverrideLookup)
	overrideLookup.On("Get", mock.Anything, "difficulty").Return(nil, false, errors.New("throttled"))
	audienceLookup := new(MockAudienceLookup)
	audienceLookup.On("Get", mock.Anything, domain.AudienceTypePropertyBased).Return([]domain.Audience{frenchPlayers}, true, nil)
	resolver := NewResolver(experiments, newMemoryAssignments(), zap.NewNop(), WithOverrides(overrideLookup, audienceLookup))

	values, err := resolver.Resolve(context.Background(), frenchUser, []domain.RemoteConfig{difficulty})

	require.NoError(t, err)
	assert.Equal(t, domain.ResolvedValue{Value: "normal", ValueOrigin: domain.OriginReferenceValue}, values["difficulty"])
	experiments.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestResolver_MissingAudiencesTableFailsRequest(t *testing.T) {
	experiments := new(MockExperimentLookup)
	audienceLookup := new(MockAudienceLookup)
	audienceLookup.On("Get", mock.Anything, domain.AudienceTypePropertyBased).
		Return(nil, false, &repository.DependencyError{Store: "audiences", Op: "Query", Missing: true, Err: errors.New("not found")})
	resolver := NewResolver(experiments, newMemoryAssignments(), zap.NewNop(), WithOverrides(new(MockOverrideLookup), audienceLookup))

	values, err := resolver.Resolve(context.Background(), frenchUser, []domain.RemoteConfig{difficulty})

	assert.Nil(t, values)
	assert.True(t, repository.IsMissingTable(err))
}

func TestResolver_AudienceLookupErrorResolvesWithoutOverrides(t *testing.T) {
	experiments := new(MockExperimentLookup)
	experiments.On("Get", mock.Anything, "rc1").Return(domain.Experiment{}, false, nil)
	overrideLookup := new(MockOverrideLookup)
	audienceLookup := new(MockAudienceLookup)
	audienceLookup.On("Get", mock.Anything, domain.AudienceTypePropertyBased).Return(nil, false, errors.New("throttled"))
	resolver := NewResolver(experiments, newMemoryAssignments(), zap.NewNop(), WithOverrides(overrideLookup, audienceLookup))

	values, err := resolver.Resolve(context.Background(), frenchUser, []domain.RemoteConfig{difficulty})

	require.NoError(t, err)
	assert.Equal(t, "normal", values["difficulty"].Value)
	overrideLookup.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

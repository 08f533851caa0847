package remoteconfig

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/awslabs/game-analytics-pipeline/internal/domain"
	"github.com/awslabs/game-analytics-pipeline/internal/metrics"
	"github.com/awslabs/game-analytics-pipeline/internal/repository"
)

var tracer = otel.Tracer("github.com/awslabs/game-analytics-pipeline/internal/remoteconfig")

// maxConcurrentConfigs bounds the configs resolved in parallel for one user
const maxConcurrentConfigs = 8

// globalRandom draws from the goroutine-safe top-level math/rand/v2 source
type globalRandom struct{}

func (globalRandom) Float64() float64 { return rand.Float64() }
func (globalRandom) IntN(n int) int   { return rand.IntN(n) }

// Option configures a Resolver
type Option func(*Resolver)

// WithRandom overrides the bucketing source
func WithRandom(random Random) Option {
	return func(r *Resolver) {
		r.random = random
	}
}

// WithOverrides applies audience-targeted fixed overrides ahead of experiments
func WithOverrides(overrides OverrideLookup, audiences AudienceLookup) Option {
	return func(r *Resolver) {
		r.overrides = overrides
		r.audiences = audiences
	}
}

// Resolver determines the effective value of remote configs for a user.
// Assignments to experiments are sticky: once written for a user and
// experiment, the same value is returned on every later call.
type Resolver struct {
	experiments ExperimentLookup
	assignments repository.AssignmentRepository
	overrides   OverrideLookup
	audiences   AudienceLookup
	random      Random
	randomMu    sync.Mutex
	log         *zap.Logger
}

func NewResolver(experiments ExperimentLookup, assignments repository.AssignmentRepository, log *zap.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		experiments: experiments,
		assignments: assignments,
		random:      globalRandom{},
		log:         log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// failure records which store a single config resolution could not reach
type failure struct {
	override   error
	experiment error
	assignment error
}

// Resolve returns the value of every config keyed by config name. A fixed
// override targeting one of the user's audiences wins over any experiment.
// Configs are resolved concurrently; a config whose stores fail falls back to
// its reference value. An error is returned when a backing table is missing,
// or when both the experiment lookup and the assignment store failed during
// the request.
func (r *Resolver) Resolve(ctx context.Context, user domain.User, configs []domain.RemoteConfig) (map[string]domain.ResolvedValue, error) {
	ctx, span := tracer.Start(ctx, "remoteconfig.Resolve",
		trace.WithAttributes(
			attribute.String("user.id", user.ID),
			attribute.Int("configs", len(configs)),
		),
	)
	defer span.End()

	audiences, err := r.userAudiences(ctx, user)
	if err != nil {
		if repository.IsMissingTable(err) {
			err = fmt.Errorf("failed to resolve remote configs: %w", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		r.log.Warn("Resolving without audience overrides",
			zap.String("user_id", user.ID),
			zap.Error(err))
	}

	values := make([]domain.ResolvedValue, len(configs))
	failures := make([]failure, len(configs))

	var g errgroup.Group
	g.SetLimit(maxConcurrentConfigs)
	for i, config := range configs {
		g.Go(func() error {
			values[i], failures[i] = r.resolveConfig(ctx, user, audiences, config)
			return nil
		})
	}
	_ = g.Wait()

	if err := requestError(failures); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	resolved := make(map[string]domain.ResolvedValue, len(configs))
	for i, config := range configs {
		resolved[config.Name] = values[i]
	}
	return resolved, nil
}

func (r *Resolver) resolveConfig(ctx context.Context, user domain.User, audiences map[string]struct{}, config domain.RemoteConfig) (domain.ResolvedValue, failure) {
	userID := user.ID
	reference := domain.ResolvedValue{Value: config.ReferenceValue, ValueOrigin: domain.OriginReferenceValue}

	if len(audiences) > 0 {
		override, found, err := r.matchOverride(ctx, config, audiences)
		if err != nil {
			r.fallback(userID, config, "override lookup", err)
			return reference, failure{override: err}
		}
		if found && override.OverrideType == domain.OverrideFixed {
			r.log.Debug("Applied fixed override",
				zap.String("user_id", userID),
				zap.String("remote_config_name", config.Name),
				zap.String("audience_name", override.AudienceName))
			metrics.FixedOverridesTotal.Inc()
			return domain.ResolvedValue{Value: override.OverrideValue, ValueOrigin: domain.OriginReferenceValue}, failure{}
		}
	}

	experiment, found, err := r.experiments.Get(ctx, config.ID)
	if err != nil {
		r.fallback(userID, config, "experiment lookup", err)
		return reference, failure{experiment: err}
	}
	if !found || !experiment.Running() {
		return reference, failure{}
	}

	assignment, found, err := r.assignments.GetAssignment(ctx, userID, experiment.ID)
	if err != nil {
		r.fallback(userID, config, "assignment lookup", err)
		return reference, failure{assignment: err}
	}
	if found {
		metrics.AssignmentsTotal.WithLabelValues(string(assignment.Origin()), "existing").Inc()
		return domain.ResolvedValue{Value: assignment.Value, ValueOrigin: assignment.Origin()}, failure{}
	}

	stored, err := r.assignments.CreateAssignment(ctx, r.assign(userID, config, experiment))
	if err != nil {
		r.fallback(userID, config, "assignment write", err)
		return reference, failure{assignment: err}
	}

	r.log.Debug("Assigned user to experiment",
		zap.String("user_id", userID),
		zap.String("experiment_id", experiment.ID),
		zap.Bool("is_in_test", stored.IsInTest))
	metrics.AssignmentsTotal.WithLabelValues(string(stored.Origin()), "new").Inc()

	return domain.ResolvedValue{Value: stored.Value, ValueOrigin: stored.Origin()}, failure{}
}

// userAudiences returns the names of the property based audiences the user
// belongs to, or nil when overrides are disabled
func (r *Resolver) userAudiences(ctx context.Context, user domain.User) (map[string]struct{}, error) {
	if r.overrides == nil || r.audiences == nil {
		return nil, nil
	}

	audiences, _, err := r.audiences.Get(ctx, domain.AudienceTypePropertyBased)
	if err != nil {
		return nil, err
	}

	matched := make(map[string]struct{})
	for _, audience := range audiences {
		ok, err := audience.Matches(user)
		if err != nil {
			r.log.Warn("Skipping audience with invalid condition",
				zap.String("audience_name", audience.Name),
				zap.Error(err))
			continue
		}
		if ok {
			matched[audience.Name] = struct{}{}
		}
	}
	return matched, nil
}

// matchOverride returns the first active override of the config that targets
// one of the user's audiences
func (r *Resolver) matchOverride(ctx context.Context, config domain.RemoteConfig, audiences map[string]struct{}) (domain.RemoteConfigOverride, bool, error) {
	overrides, _, err := r.overrides.Get(ctx, config.Name)
	if err != nil {
		return domain.RemoteConfigOverride{}, false, err
	}
	for _, override := range overrides {
		if _, ok := audiences[override.AudienceName]; ok {
			return override, true, nil
		}
	}
	return domain.RemoteConfigOverride{}, false, nil
}

// assign buckets a user: a draw in [0,100) below the target percentage puts the
// user in the test group, which picks uniformly among the reference value and
// the experiment's variants
func (r *Resolver) assign(userID string, config domain.RemoteConfig, experiment domain.Experiment) domain.UserAssignment {
	r.randomMu.Lock()
	defer r.randomMu.Unlock()

	assignment := domain.UserAssignment{
		UserID:       userID,
		ExperimentID: experiment.ID,
		Value:        config.ReferenceValue,
	}

	draw := r.random.Float64() * 100
	if draw < experiment.TargetUserPercent {
		assignment.IsInTest = true
		choices := append([]string{config.ReferenceValue}, experiment.Variants...)
		assignment.Value = choices[r.random.IntN(len(choices))]
	}

	return assignment
}

func (r *Resolver) fallback(userID string, config domain.RemoteConfig, op string, err error) {
	metrics.ResolveFallbacksTotal.Inc()
	r.log.Warn("Falling back to reference value",
		zap.String("user_id", userID),
		zap.String("remote_config_id", config.ID),
		zap.String("operation", op),
		zap.Error(err))
}

func requestError(failures []failure) error {
	var experimentErr, assignmentErr error
	for _, f := range failures {
		for _, err := range []error{f.override, f.experiment, f.assignment} {
			if repository.IsMissingTable(err) {
				return fmt.Errorf("failed to resolve remote configs: %w", err)
			}
		}
		if experimentErr == nil {
			experimentErr = f.experiment
		}
		if assignmentErr == nil {
			assignmentErr = f.assignment
		}
	}

	if experimentErr != nil && assignmentErr != nil {
		return fmt.Errorf("failed to resolve remote configs: %w", errors.Join(experimentErr, assignmentErr))
	}
	return nil
}

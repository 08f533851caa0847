package repository

import (
	"context"

	"github.com/awslabs/game-analytics-pipeline/internal/domain"
)

// InsertResult reports how a batch of canonical events was written
type InsertResult struct {
	Inserted int
	// Rejected maps the batch index of every event the store cannot hold to the reason
	Rejected map[int]error
}

// StatsQuery represents ingestion statistics query parameters
type StatsQuery struct {
	ApplicationID string
	From          int64
	To            int64
	GroupBy       string
}

// StatsGroupResult represents aggregated counts for a specific group
type StatsGroupResult struct {
	GroupValue string
	TotalCount uint64
}

// StatsResult represents the result of an ingestion statistics query
type StatsResult struct {
	TotalCount uint64
	Groups     []StatsGroupResult
}

// EventRepository defines the interface for canonical event storage operations
type EventRepository interface {
	// InsertBatch writes a batch of canonical events. Events that can never be
	// stored are reported in the result; an error means nothing was written.
	InsertBatch(ctx context.Context, events []*domain.CanonicalEvent) (InsertResult, error)

	// InitSchema initializes the database schema (creates tables if they don't exist)
	InitSchema(ctx context.Context) error

	// Ping checks if the database connection is alive
	Ping(ctx context.Context) error

	// Close closes the repository and releases resources
	Close() error

	// GetIngestionStats retrieves aggregated ingestion counts for an application
	GetIngestionStats(ctx context.Context, query StatsQuery) (*StatsResult, error)
}

// ApplicationRepository reads registered applications
type ApplicationRepository interface {
	// GetApplication returns the application and true, or false when it is not registered
	GetApplication(ctx context.Context, applicationID string) (domain.Application, bool, error)
}

// RemoteConfigRepository reads remote configs
type RemoteConfigRepository interface {
	// ListActive returns active remote configs, restricted to one application when applicationID is set
	ListActive(ctx context.Context, applicationID string) ([]domain.RemoteConfig, error)
}

// ExperimentRepository reads experiments
type ExperimentRepository interface {
	// ActiveExperiment returns the current running experiment of a remote config, or false when there is none
	ActiveExperiment(ctx context.Context, remoteConfigID string) (domain.Experiment, bool, error)
}

// OverrideRepository reads audience-targeted remote config overrides
type OverrideRepository interface {
	// ActiveOverrides returns the active overrides of a remote config, by config name
	ActiveOverrides(ctx context.Context, remoteConfigName string) ([]domain.RemoteConfigOverride, error)

	// AudiencesByType returns every audience of the given type
	AudiencesByType(ctx context.Context, audienceType string) ([]domain.Audience, error)
}

// AssignmentRepository reads and writes sticky user assignments
type AssignmentRepository interface {
	// GetAssignment returns the stored assignment for the user and experiment, or false when none exists
	GetAssignment(ctx context.Context, userID, experimentID string) (domain.UserAssignment, bool, error)

	// CreateAssignment stores a new assignment unless one already exists.
	// It returns the assignment that is stored once the call completes.
	CreateAssignment(ctx context.Context, assignment domain.UserAssignment) (domain.UserAssignment, error)
}

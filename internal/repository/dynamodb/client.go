package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	envConfig "github.com/awslabs/game-analytics-pipeline/internal/config"
	"github.com/awslabs/game-analytics-pipeline/internal/repository"
)

// API is the subset of the DynamoDB client used by the repository
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Tables holds the names of the backing tables
type Tables struct {
	Applications  string
	RemoteConfigs string
	Experiments   string
	Assignments   string
	Overrides     string
	Audiences     string
}

// TablesFromConfig maps the DynamoDB configuration to table names
func TablesFromConfig(cfg envConfig.DynamoDB) Tables {
	return Tables{
		Applications:  cfg.ApplicationsTable,
		RemoteConfigs: cfg.RemoteConfigsTable,
		Experiments:   cfg.ExperimentsTable,
		Assignments:   cfg.AssignmentsTable,
		Overrides:     cfg.OverridesTable,
		Audiences:     cfg.AudiencesTable,
	}
}

// NewClient creates a new DynamoDB client
func NewClient(ctx context.Context, dynamoConfig envConfig.DynamoDB, log *zap.Logger) (*dynamodb.Client, error) {
	configOpts := []func(*config.LoadOptions) error{
		config.WithRegion(dynamoConfig.Region),
	}

	var clientOpts []func(*dynamodb.Options)

	// Configure for local development with DynamoDB Local
	if dynamoConfig.Endpoint != "" {
		log.Info("Configuring DynamoDB for local development",
			zap.String("endpoint", dynamoConfig.Endpoint))
		configOpts = append(configOpts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("dummy", "dummy", "")))

		clientOpts = append(clientOpts, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(dynamoConfig.Endpoint)
		})
	}

	cfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(cfg, clientOpts...)

	log.Info("DynamoDB client created",
		zap.String("region", dynamoConfig.Region),
		zap.String("applications_table", dynamoConfig.ApplicationsTable))

	return client, nil
}

// Repository implements the application, remote config, experiment, override and assignment repositories on DynamoDB
type Repository struct {
	api    API
	tables Tables
	log    *zap.Logger
}

// NewRepository creates a new DynamoDB repository
func NewRepository(api API, tables Tables, log *zap.Logger) *Repository {
	return &Repository{
		api:    api,
		tables: tables,
		log:    log,
	}
}

func dependencyError(table, op string, err error) error {
	var notFound *types.ResourceNotFoundException
	return &repository.DependencyError{
		Store:   table,
		Op:      op,
		Missing: errors.As(err, &notFound),
		Err:     err,
	}
}

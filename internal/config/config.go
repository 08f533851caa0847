package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config groups the settings of every binary. Groups are embedded so each
// variable is read under its full name only.
type Config struct {
	Service
	Cache
	DynamoDB
	Schema
	Processor
	SQS
	ClickHouse
	Consumer
}

type Service struct {
	Environment string `envconfig:"SERVICE_ENVIRONMENT" required:"true"`
	APIPort     string `envconfig:"SERVICE_API_PORT" default:"8080"`
	Host        string `envconfig:"SERVICE_HOST" default:"localhost:8080"`
}

// Cache configures the applications and experiments caches
type Cache struct {
	TimeoutSeconds       int    `envconfig:"CACHE_TIMEOUT_SECONDS" default:"300"`
	SweepIntervalSeconds int    `envconfig:"CACHE_SWEEP_INTERVAL_SECONDS" default:"60"`
	MaxKeys              uint64 `envconfig:"CACHE_MAX_KEYS" default:"1000"`
}

// TTL returns the cache entry lifetime
func (c Cache) TTL() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SweepInterval returns how often expired entries are purged
func (c Cache) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

type DynamoDB struct {
	Region             string `envconfig:"DYNAMODB_REGION" required:"true"`
	Endpoint           string `envconfig:"DYNAMODB_ENDPOINT"`
	ApplicationsTable  string `envconfig:"DYNAMODB_APPLICATIONS_TABLE" required:"true"`
	RemoteConfigsTable string `envconfig:"DYNAMODB_REMOTE_CONFIGS_TABLE" default:""`
	ExperimentsTable   string `envconfig:"DYNAMODB_EXPERIMENTS_TABLE" default:""`
	AssignmentsTable   string `envconfig:"DYNAMODB_ASSIGNMENTS_TABLE" default:""`
	OverridesTable     string `envconfig:"DYNAMODB_OVERRIDES_TABLE" default:""`
	AudiencesTable     string `envconfig:"DYNAMODB_AUDIENCES_TABLE" default:""`
}

type Schema struct {
	// Path to a JSON Schema document; the embedded event schema is used when empty
	Path string `envconfig:"SCHEMA_PATH"`
}

type Processor struct {
	Concurrency int `envconfig:"PROCESSOR_CONCURRENCY" default:"16"`
}

type SQS struct {
	Endpoint           string `envconfig:"SQS_ENDPOINT"`
	QueueURL           string `envconfig:"SQS_QUEUE_URL"`
	DeadLetterQueueURL string `envconfig:"SQS_DEAD_LETTER_QUEUE_URL"`
	Region             string `envconfig:"SQS_REGION"`
}

type ClickHouse struct {
	Host            string `envconfig:"CLICKHOUSE_HOST"`
	Port            string `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	Database        string `envconfig:"CLICKHOUSE_DB" default:"analytics"`
	User            string `envconfig:"CLICKHOUSE_USER" default:""`
	Password        string `envconfig:"CLICKHOUSE_PASSWORD" default:""`
	UseTLS          bool   `envconfig:"CLICKHOUSE_USE_TLS" default:"false"`
	MaxOpenConns    int    `envconfig:"CLICKHOUSE_MAX_OPEN_CONNS" default:"5"`
	MaxIdleConns    int    `envconfig:"CLICKHOUSE_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime int    `envconfig:"CLICKHOUSE_CONN_MAX_LIFETIME_SEC" default:"3600"`
}

type Consumer struct {
	BatchSizeMax         int    `envconfig:"CONSUMER_BATCH_SIZE_MAX" default:"2000"`
	BatchTimeoutSec      int    `envconfig:"CONSUMER_BATCH_TIMEOUT_SEC" default:"10"`
	DrainTimeoutSec      int    `envconfig:"CONSUMER_DRAIN_TIMEOUT_SEC" default:"10"`
	ReceiveMaxMessages   int32  `envconfig:"CONSUMER_RECEIVE_MAX_MESSAGES" default:"10"`
	ReceiveWaitSec       int32  `envconfig:"CONSUMER_RECEIVE_WAIT_SEC" default:"20"`
	ReceiveBufferSize    int    `envconfig:"CONSUMER_RECEIVE_BUFFER_SIZE" default:"100"`
	VisibilityTimeoutSec int32  `envconfig:"CONSUMER_VISIBILITY_TIMEOUT_SEC" default:"0"`
	HealthCheckPort      string `envconfig:"CONSUMER_HEALTH_CHECK_PORT" default:"8081"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.Cache.TimeoutSeconds <= 0 {
		return nil, fmt.Errorf("CACHE_TIMEOUT_SECONDS must be positive, got %d", cfg.Cache.TimeoutSeconds)
	}
	if cfg.Processor.Concurrency <= 0 {
		cfg.Processor.Concurrency = 1
	}

	return &cfg, nil
}

// RequireRemoteConfigTables checks the tables needed to resolve remote configs are configured
func (c *Config) RequireRemoteConfigTables() error {
	if c.DynamoDB.RemoteConfigsTable == "" || c.DynamoDB.ExperimentsTable == "" || c.DynamoDB.AssignmentsTable == "" {
		return fmt.Errorf("DYNAMODB_REMOTE_CONFIGS_TABLE, DYNAMODB_EXPERIMENTS_TABLE and DYNAMODB_ASSIGNMENTS_TABLE are required")
	}
	if (c.DynamoDB.OverridesTable == "") != (c.DynamoDB.AudiencesTable == "") {
		return fmt.Errorf("DYNAMODB_OVERRIDES_TABLE and DYNAMODB_AUDIENCES_TABLE must be set together")
	}
	return nil
}

// RequireConsumer checks the queue and sink settings needed by the queue consumer are configured
func (c *Config) RequireConsumer() error {
	if c.SQS.QueueURL == "" || c.SQS.Region == "" {
		return fmt.Errorf("SQS_QUEUE_URL and SQS_REGION are required")
	}
	if c.ClickHouse.Host == "" {
		return fmt.Errorf("CLICKHOUSE_HOST is required")
	}
	return nil
}

package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SERVICE_ENVIRONMENT", "test")
	t.Setenv("DYNAMODB_REGION", "eu-west-1")
	t.Setenv("DYNAMODB_APPLICATIONS_TABLE", "applications")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Service.APIPort)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL())
	assert.Equal(t, time.Minute, cfg.Cache.SweepInterval())
	assert.Equal(t, uint64(1000), cfg.Cache.MaxKeys)
	assert.Equal(t, 16, cfg.Processor.Concurrency)
	assert.Equal(t, "", cfg.Schema.Path)
	assert.Equal(t, 2000, cfg.Consumer.BatchSizeMax)
	assert.Equal(t, 10, cfg.Consumer.DrainTimeoutSec)
	assert.Equal(t, int32(10), cfg.Consumer.ReceiveMaxMessages)
	assert.Equal(t, int32(20), cfg.Consumer.ReceiveWaitSec)
	assert.Equal(t, int32(0), cfg.Consumer.VisibilityTimeoutSec)
	assert.Equal(t, "localhost:8080", cfg.Service.Host)
}

func TestLoad_IgnoresUnprefixedVariables(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PATH", "/var/lang/bin:/usr/local/bin:/usr/bin")
	t.Setenv("USER", "sbx_user1051")
	t.Setenv("HOST", "lambda-host")
	t.Setenv("PORT", "1234")
	t.Setenv("REGION", "us-east-1")
	t.Setenv("ENDPOINT", "http://localhost:4566")
	t.Setenv("ENVIRONMENT", "other")
	for _, key := range []string{"SCHEMA_PATH", "CLICKHOUSE_USER", "CLICKHOUSE_HOST", "CLICKHOUSE_PORT", "SQS_REGION", "SQS_ENDPOINT", "DYNAMODB_ENDPOINT"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "", cfg.Schema.Path)
	assert.Equal(t, "", cfg.ClickHouse.User)
	assert.Equal(t, "", cfg.ClickHouse.Host)
	assert.Equal(t, "9000", cfg.ClickHouse.Port)
	assert.Equal(t, "", cfg.SQS.Region)
	assert.Equal(t, "", cfg.SQS.Endpoint)
	assert.Equal(t, "", cfg.DynamoDB.Endpoint)
	assert.Equal(t, "test", cfg.Service.Environment)
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CACHE_TIMEOUT_SECONDS", "30")
	t.Setenv("SCHEMA_PATH", "/opt/schema.json")
	t.Setenv("SQS_DEAD_LETTER_QUEUE_URL", "https://sqs.eu-west-1.amazonaws.com/123/dlq")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL())
	assert.Equal(t, "/opt/schema.json", cfg.Schema.Path)
	assert.Equal(t, "https://sqs.eu-west-1.amazonaws.com/123/dlq", cfg.SQS.DeadLetterQueueURL)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("SERVICE_ENVIRONMENT", "test")
	t.Setenv("DYNAMODB_REGION", "eu-west-1")
	t.Setenv("DYNAMODB_APPLICATIONS_TABLE", "")
	require.NoError(t, os.Unsetenv("DYNAMODB_APPLICATIONS_TABLE"))

	_, err := Load()

	assert.Error(t, err)
}

func TestLoad_NonPositiveCacheTimeout(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CACHE_TIMEOUT_SECONDS", "0")

	_, err := Load()

	assert.Error(t, err)
}

func TestRequireRemoteConfigTables(t *testing.T) {
	cfg := &Config{DynamoDB: DynamoDB{RemoteConfigsTable: "remote_configs", ExperimentsTable: "abtests"}}
	assert.Error(t, cfg.RequireRemoteConfigTables())

	cfg.DynamoDB.AssignmentsTable = "users_abtests"
	assert.NoError(t, cfg.RequireRemoteConfigTables())
}

func TestRequireRemoteConfigTables_OverridesNeedAudiences(t *testing.T) {
	cfg := &Config{DynamoDB: DynamoDB{
		RemoteConfigsTable: "remote_configs",
		ExperimentsTable:   "abtests",
		AssignmentsTable:   "users_abtests",
		OverridesTable:     "remote_configs_overrides",
	}}
	assert.Error(t, cfg.RequireRemoteConfigTables())

	cfg.DynamoDB.AudiencesTable = "audiences"
	assert.NoError(t, cfg.RequireRemoteConfigTables())
}

func TestRequireConsumer(t *testing.T) {
	cfg := &Config{SQS: SQS{QueueURL: "https://sqs.eu-west-1.amazonaws.com/123/events", Region: "eu-west-1"}}
	assert.Error(t, cfg.RequireConsumer())

	cfg.ClickHouse.Host = "localhost"
	assert.NoError(t, cfg.RequireConsumer())
}

package main

import (
	"context"
	"fmt"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/awslabs/game-analytics-pipeline/internal/cache"
	"github.com/awslabs/game-analytics-pipeline/internal/config"
	"github.com/awslabs/game-analytics-pipeline/internal/lambda"
	"github.com/awslabs/game-analytics-pipeline/internal/logger"
	"github.com/awslabs/game-analytics-pipeline/internal/processor"
	"github.com/awslabs/game-analytics-pipeline/internal/repository/dynamodb"
	"github.com/awslabs/game-analytics-pipeline/internal/schema"
	"github.com/awslabs/game-analytics-pipeline/internal/transform"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log, err := logger.New(cfg.Service.Environment, "events-transformer")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		_ = log.Sync()
	}(log)

	log.Info("Starting events transformer",
		zap.String("environment", cfg.Service.Environment),
		zap.Int("concurrency", cfg.Processor.Concurrency))

	// Caches live for the lifetime of the execution environment
	ctx := context.Background()

	dynamoClient, err := dynamodb.NewClient(ctx, cfg.DynamoDB, log)
	if err != nil {
		log.Fatal("Failed to create DynamoDB client", zap.Error(err))
	}
	repo := dynamodb.NewRepository(dynamoClient, dynamodb.TablesFromConfig(cfg.DynamoDB), log)

	directory := cache.NewDirectory(repo, cache.ConfigFrom(cfg.Cache), log)
	directory.StartSweeper(ctx)

	validator, err := schema.Load(cfg.Schema.Path)
	if err != nil {
		log.Fatal("Failed to load event schema", zap.Error(err))
	}

	transformer := transform.NewTransformer(directory, validator, log)
	batchProcessor := processor.NewProcessor(transformer, cfg.Processor, log)

	handler := lambda.NewFirehoseHandler(batchProcessor, log)

	awslambda.Start(handler.Handle)
}

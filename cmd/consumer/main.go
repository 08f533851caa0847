package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/awslabs/game-analytics-pipeline/internal/cache"
	"github.com/awslabs/game-analytics-pipeline/internal/config"
	"github.com/awslabs/game-analytics-pipeline/internal/consumer"
	"github.com/awslabs/game-analytics-pipeline/internal/logger"
	"github.com/awslabs/game-analytics-pipeline/internal/metrics"
	"github.com/awslabs/game-analytics-pipeline/internal/processor"
	"github.com/awslabs/game-analytics-pipeline/internal/queue/sqs"
	"github.com/awslabs/game-analytics-pipeline/internal/repository/clickhouse"
	"github.com/awslabs/game-analytics-pipeline/internal/repository/dynamodb"
	"github.com/awslabs/game-analytics-pipeline/internal/schema"
	"github.com/awslabs/game-analytics-pipeline/internal/transform"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log, err := logger.New(cfg.Service.Environment, "events-consumer")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		err := log.Sync()
		if err != nil {
			log.Error("Failed to sync logger", zap.Error(err))
		}
	}(log)

	if err := cfg.RequireConsumer(); err != nil {
		log.Fatal("Invalid consumer configuration", zap.Error(err))
	}

	log.Info("Starting consumer service",
		zap.String("environment", cfg.Service.Environment))

	metrics.Register()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize ClickHouse client
	chClient, err := clickhouse.NewClient(ctx, &cfg.ClickHouse, log)
	if err != nil {
		log.Fatal("Failed to create ClickHouse client", zap.Error(err))
	}
	defer func() {
		if err := chClient.Close(); err != nil {
			log.Error("Failed to close ClickHouse client", zap.Error(err))
		}
	}()

	// Initialize repository
	repo := clickhouse.NewRepository(chClient, log)

	// Initialize schema (create tables if not exist)
	if err := repo.InitSchema(ctx); err != nil {
		log.Fatal("Failed to initialize schema", zap.Error(err))
	}
	log.Info("Database schema initialized")

	// Initialize applications directory
	dynamoClient, err := dynamodb.NewClient(ctx, cfg.DynamoDB, log)
	if err != nil {
		log.Fatal("Failed to create DynamoDB client", zap.Error(err))
	}
	dynamoRepo := dynamodb.NewRepository(dynamoClient, dynamodb.TablesFromConfig(cfg.DynamoDB), log)

	directory := cache.NewDirectory(dynamoRepo, cache.ConfigFrom(cfg.Cache), log)
	directory.StartSweeper(ctx)

	validator, err := schema.Load(cfg.Schema.Path)
	if err != nil {
		log.Fatal("Failed to load event schema", zap.Error(err))
	}

	transformer := transform.NewTransformer(directory, validator, log)
	batchProcessor := processor.NewProcessor(transformer, cfg.Processor, log)

	// Initialize SQS client
	sqsClient, err := sqs.NewClient(ctx, cfg.SQS, log)
	if err != nil {
		log.Fatal("Failed to create SQS client", zap.Error(err))
	}
	if !sqsClient.Enabled() {
		log.Warn("No dead-letter queue configured, failed records stay on the queue")
	}

	// Initialize consumer
	c := consumer.NewConsumer(cfg, sqsClient, sqsClient, batchProcessor, repo, log)

	// Start health check and metrics endpoint
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			if err := repo.Ping(r.Context()); err != nil {
				log.Warn("Health check failed", zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		})
		mux.Handle("/metrics", promhttp.Handler())

		addr := ":" + cfg.Consumer.HealthCheckPort
		log.Info("Health check server starting", zap.String("address", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("Health check server error", zap.Error(err))
		}
	}()

	log.Info("Consumer starting")

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := c.Start(ctx); err != nil {
			log.Error("Consumer error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down consumer gracefully")
	cancel()
	<-done
}

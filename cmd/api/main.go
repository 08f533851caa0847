package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/awslabs/game-analytics-pipeline/docs"
	"github.com/awslabs/game-analytics-pipeline/internal/cache"
	"github.com/awslabs/game-analytics-pipeline/internal/config"
	"github.com/awslabs/game-analytics-pipeline/internal/handler"
	"github.com/awslabs/game-analytics-pipeline/internal/logger"
	"github.com/awslabs/game-analytics-pipeline/internal/metrics"
	"github.com/awslabs/game-analytics-pipeline/internal/remoteconfig"
	"github.com/awslabs/game-analytics-pipeline/internal/repository/clickhouse"
	"github.com/awslabs/game-analytics-pipeline/internal/repository/dynamodb"
	"github.com/awslabs/game-analytics-pipeline/internal/service"
)

const shutdownTimeout = 10 * time.Second

// @title Game Analytics Pipeline API
// @version 1.0
// @description Remote config resolution with A/B test assignment, and ingestion statistics
// @host localhost:8080
// @BasePath /
// @schemes http https
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log, err := logger.New(cfg.Service.Environment, "remote-configs-api")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		err := log.Sync()
		if err != nil {
			log.Error("Failed to sync logger", zap.Error(err))
		}
	}(log)

	if err := cfg.RequireRemoteConfigTables(); err != nil {
		log.Fatal("Invalid API configuration", zap.Error(err))
	}

	log.Info("Starting API service",
		zap.String("environment", cfg.Service.Environment),
		zap.String("port", cfg.Service.APIPort))

	docs.SwaggerInfo.Host = cfg.Service.Host

	metrics.Register()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize DynamoDB repository
	dynamoClient, err := dynamodb.NewClient(ctx, cfg.DynamoDB, log)
	if err != nil {
		log.Fatal("Failed to create DynamoDB client", zap.Error(err))
	}
	repo := dynamodb.NewRepository(dynamoClient, dynamodb.TablesFromConfig(cfg.DynamoDB), log)

	experiments := cache.NewExperiments(repo, cache.ConfigFrom(cfg.Cache), log)
	experiments.StartSweeper(ctx)

	var resolverOpts []remoteconfig.Option
	if cfg.DynamoDB.OverridesTable != "" {
		overrides := cache.NewOverrides(repo, cache.ConfigFrom(cfg.Cache), log)
		overrides.StartSweeper(ctx)
		audiences := cache.NewAudiences(repo, cache.ConfigFrom(cfg.Cache), log)
		audiences.StartSweeper(ctx)
		resolverOpts = append(resolverOpts, remoteconfig.WithOverrides(overrides, audiences))
	}

	resolver := remoteconfig.NewResolver(experiments, repo, log, resolverOpts...)
	remoteConfigService := service.NewRemoteConfigService(repo, resolver, log)

	// Ingestion stats are served only when a ClickHouse host is configured
	var statsService service.IngestionStatsServicer
	if cfg.ClickHouse.Host != "" {
		clickhouseClient, err := clickhouse.NewClient(ctx, &cfg.ClickHouse, log)
		if err != nil {
			log.Fatal("Failed to create ClickHouse client", zap.Error(err))
		}
		defer func(clickhouseClient *clickhouse.Client) {
			if err := clickhouseClient.Close(); err != nil {
				log.Error("Failed to close ClickHouse client", zap.Error(err))
			}
		}(clickhouseClient)

		statsService = service.NewIngestionStatsService(clickhouse.NewRepository(clickhouseClient, log), log)
	}

	// Initialize handler
	h := handler.NewHandler(remoteConfigService, statsService, log)

	addr := fmt.Sprintf(":%s", cfg.Service.APIPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("API server starting", zap.String("address", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start API server", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down API server gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shut down API server", zap.Error(err))
	}
}

package lambda

import (
	"context"

	"github.com/awslabs/game-analytics-pipeline/internal/domain"
	"github.com/awslabs/game-analytics-pipeline/internal/processor"
	"github.com/awslabs/game-analytics-pipeline/internal/transform"
)

// BatchProcessor defines the interface for processing a batch of raw records
type BatchProcessor interface {
	Process(ctx context.Context, records []domain.Record, ingestion transform.IngestionContext) processor.Batch
}

package consumer

import (
	"context"

	"github.com/awslabs/game-analytics-pipeline/internal/domain"
	"github.com/awslabs/game-analytics-pipeline/internal/processor"
	"github.com/awslabs/game-analytics-pipeline/internal/transform"
)

// BatchProcessor transforms a batch of raw records into per-record outcomes
type BatchProcessor interface {
	Process(ctx context.Context, records []domain.Record, ingestion transform.IngestionContext) processor.Batch
}

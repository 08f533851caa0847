package processor

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	envConfig "github.com/awslabs/game-analytics-pipeline/internal/config"
	"github.com/awslabs/game-analytics-pipeline/internal/domain"
	"github.com/awslabs/game-analytics-pipeline/internal/metrics"
	"github.com/awslabs/game-analytics-pipeline/internal/transform"
)

var tracer = otel.Tracer("github.com/awslabs/game-analytics-pipeline/internal/processor")

// RecordTransformer transforms a single raw record
type RecordTransformer interface {
	Transform(ctx context.Context, raw []byte, recordID string, ingestion transform.IngestionContext) domain.Outcome
}

// Counters summarizes the outcomes of a batch
type Counters struct {
	Input            int
	OK               int
	ProcessingFailed int
	ByStatus         map[domain.ProcessingStatus]int
}

// Batch holds one outcome per input record, in input order
type Batch struct {
	Outcomes []domain.Outcome
	Counters Counters
}

// Processor transforms batches of records
type Processor struct {
	transformer RecordTransformer
	concurrency int
	log         *zap.Logger
}

func NewProcessor(transformer RecordTransformer, cfg envConfig.Processor, log *zap.Logger) *Processor {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Processor{
		transformer: transformer,
		concurrency: concurrency,
		log:         log,
	}
}

// Process transforms every record of the batch independently. It never fails:
// a record that cannot be transformed is reported as ProcessingFailed and the
// rest of the batch is unaffected. Outcomes are returned in input order.
func (p *Processor) Process(ctx context.Context, records []domain.Record, ingestion transform.IngestionContext) Batch {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "processor.Process",
		trace.WithAttributes(
			attribute.Int("batch.size", len(records)),
			attribute.String("invocation.id", ingestion.InvocationID),
		),
	)
	defer span.End()

	outcomes := make([]domain.Outcome, len(records))

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, record := range records {
		g.Go(func() error {
			outcomes[i] = p.transformRecord(ctx, record, ingestion)
			return nil
		})
	}
	_ = g.Wait()

	counters := count(outcomes)

	span.SetAttributes(
		attribute.Int("batch.ok", counters.OK),
		attribute.Int("batch.processing_failed", counters.ProcessingFailed),
	)
	metrics.BatchDuration.Observe(time.Since(start).Seconds())
	metrics.RecordsTotal.WithLabelValues(string(domain.ResultOK)).Add(float64(counters.OK))
	metrics.RecordsTotal.WithLabelValues(string(domain.ResultProcessingFailed)).Add(float64(counters.ProcessingFailed))
	for status, n := range counters.ByStatus {
		metrics.EventsByStatusTotal.WithLabelValues(string(status)).Add(float64(n))
	}

	p.log.Info("Processing completed",
		zap.String("invocation_id", ingestion.InvocationID),
		zap.Int("input_events", counters.Input),
		zap.Int("events_processed_status_ok", counters.OK),
		zap.Int("events_processed_status_failed", counters.ProcessingFailed),
		zap.Int("events_status_ok", counters.ByStatus[domain.StatusOK]),
		zap.Int("events_status_schema_mismatch", counters.ByStatus[domain.StatusSchemaMismatch]),
		zap.Int("events_status_unregistered", counters.ByStatus[domain.StatusUnregistered]),
		zap.Duration("duration", time.Since(start)))

	return Batch{Outcomes: outcomes, Counters: counters}
}

// transformRecord isolates a single record so a panic only fails that record
func (p *Processor) transformRecord(ctx context.Context, record domain.Record, ingestion transform.IngestionContext) (outcome domain.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("Recovered from panic while transforming record",
				zap.String("record_id", record.RecordID),
				zap.Any("panic", r))
			outcome = domain.Outcome{
				RecordID: record.RecordID,
				Result:   domain.ResultProcessingFailed,
				Data:     record.Data,
				Err:      fmt.Errorf("panic while transforming record: %v", r),
			}
		}
	}()

	outcome = p.transformer.Transform(ctx, record.Data, record.RecordID, ingestion)
	outcome.RecordID = record.RecordID
	return outcome
}

func count(outcomes []domain.Outcome) Counters {
	counters := Counters{
		Input:    len(outcomes),
		ByStatus: make(map[domain.ProcessingStatus]int),
	}
	for _, outcome := range outcomes {
		if outcome.Failed() {
			counters.ProcessingFailed++
			continue
		}
		counters.OK++
		counters.ByStatus[outcome.Status]++
	}
	return counters
}

package lambda

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.uber.org/zap"

	"github.com/awslabs/game-analytics-pipeline/internal/domain"
	"github.com/awslabs/game-analytics-pipeline/internal/transform"
)

// FirehoseHandler adapts the batch processor to Kinesis Data Firehose record transformation
type FirehoseHandler struct {
	processor BatchProcessor
	log       *zap.Logger
}

// NewFirehoseHandler creates a new Firehose transformation handler
func NewFirehoseHandler(processor BatchProcessor, log *zap.Logger) *FirehoseHandler {
	return &FirehoseHandler{
		processor: processor,
		log:       log,
	}
}

// Handle transforms every record of the invocation. It returns exactly one
// response record per input record, in input order, and never fails the invocation.
func (h *FirehoseHandler) Handle(ctx context.Context, event events.KinesisFirehoseEvent) (events.KinesisFirehoseResponse, error) {
	records := make([]domain.Record, len(event.Records))
	for i, record := range event.Records {
		records[i] = domain.Record{
			RecordID: record.RecordID,
			Data:     record.Data,
		}
	}

	batch := h.processor.Process(ctx, records, transform.IngestionContext{
		InvocationID: invocationID(ctx, event),
	})

	response := events.KinesisFirehoseResponse{
		Records: make([]events.KinesisFirehoseResponseRecord, len(batch.Outcomes)),
	}
	for i, outcome := range batch.Outcomes {
		response.Records[i] = events.KinesisFirehoseResponseRecord{
			RecordID: outcome.RecordID,
			Result:   firehoseResult(outcome.Result),
			Data:     outcome.Data,
		}
	}

	return response, nil
}

// invocationID prefers the delivery stream invocation id and falls back to the Lambda request id
func invocationID(ctx context.Context, event events.KinesisFirehoseEvent) string {
	if event.InvocationID != "" {
		return event.InvocationID
	}
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		return lc.AwsRequestID
	}
	return ""
}

func firehoseResult(result domain.RecordResult) string {
	if result == domain.ResultOK {
		return events.KinesisFirehoseTransformedStateOk
	}
	return events.KinesisFirehoseTransformedStateProcessingFailed
}

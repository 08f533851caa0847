package consumer

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/awslabs/game-analytics-pipeline/internal/domain"
	"github.com/awslabs/game-analytics-pipeline/internal/metrics"
	"github.com/awslabs/game-analytics-pipeline/internal/queue"
	"github.com/awslabs/game-analytics-pipeline/internal/transform"
)

var errDeadLetterDisabled = errors.New("no dead-letter queue configured")

// TransformStage runs received message batches through the batch processor.
// Transformed events continue to the batch writer; records that failed
// processing are forwarded to the dead-letter queue with their original payload.
type TransformStage struct {
	consumer    queue.QueueConsumer
	deadLetters queue.DeadLetterPublisher
	processor   BatchProcessor
	log         *zap.Logger
}

// NewTransformStage creates a new transform stage
func NewTransformStage(consumer queue.QueueConsumer, deadLetters queue.DeadLetterPublisher, processor BatchProcessor, log *zap.Logger) *TransformStage {
	return &TransformStage{
		consumer:    consumer,
		deadLetters: deadLetters,
		processor:   processor,
		log:         log,
	}
}

// Start begins transforming message batches and outputs envelopes
func (s *TransformStage) Start(ctx context.Context, in <-chan []types.Message, out chan<- *Envelope) {
	defer close(out)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Transform stage shutting down")
			return
		case messages, ok := <-in:
			if !ok {
				s.log.Info("Transform stage input channel closed")
				return
			}

			for _, envelope := range s.transformBatch(ctx, messages) {
				select {
				case <-ctx.Done():
					return
				case out <- envelope:
					// Envelope sent to next stage
				}
			}
		}
	}
}

// transformBatch processes one received batch and returns envelopes for the transformed events
func (s *TransformStage) transformBatch(ctx context.Context, messages []types.Message) []*Envelope {
	records := make([]domain.Record, len(messages))
	for i, msg := range messages {
		records[i] = domain.Record{
			RecordID: aws.ToString(msg.MessageId),
			Data:     []byte(aws.ToString(msg.Body)),
		}
	}

	// the queue URL keeps ingestion ids stable when a message is redelivered
	batch := s.processor.Process(ctx, records, transform.IngestionContext{InvocationID: s.consumer.QueueURL()})

	envelopes := make([]*Envelope, 0, len(messages))
	for i, outcome := range batch.Outcomes {
		if outcome.Failed() {
			reason := ""
			if outcome.Err != nil {
				reason = outcome.Err.Error()
			}
			if err := s.deadLetter(ctx, messages[i], records[i].Data, reason, "transform"); err != nil {
				s.log.Warn("Record failed processing, leaving message on queue",
					zap.String("message_id", outcome.RecordID),
					zap.String("reason", reason),
					zap.Error(err))
			}
			continue
		}

		settle := s.settlement(messages[i], records[i].Data)
		envelopes = append(envelopes, NewEnvelope(outcome.RecordID, outcome.Event, settle))
	}

	return envelopes
}

// settlement binds the ack and dead-letter actions of one transformed message
func (s *TransformStage) settlement(msg types.Message, payload []byte) Settlement {
	return Settlement{
		Ack: func(ctx context.Context) error {
			return s.deleteMessage(ctx, msg)
		},
		DeadLetter: func(ctx context.Context, reason string) error {
			return s.deadLetter(ctx, msg, payload, reason, "store")
		},
	}
}

// deadLetter forwards the original payload and deletes the message. Without a
// dead-letter queue, or when forwarding fails, the message stays on the queue
// for its redrive policy.
func (s *TransformStage) deadLetter(ctx context.Context, msg types.Message, payload []byte, reason, stage string) error {
	messageID := aws.ToString(msg.MessageId)

	if !s.deadLetters.Enabled() {
		return errDeadLetterDisabled
	}

	if err := s.deadLetters.PublishFailedRecord(ctx, messageID, payload, reason); err != nil {
		return fmt.Errorf("failed to forward message %s: %w", messageID, err)
	}
	metrics.DeadLetteredTotal.WithLabelValues(stage).Inc()

	return s.deleteMessage(ctx, msg)
}

// deleteMessage deletes a message from SQS
func (s *TransformStage) deleteMessage(ctx context.Context, msg types.Message) error {
	_, err := s.consumer.DeleteMessage(ctx, &awssqs.DeleteMessageInput{
		QueueUrl:      aws.String(s.consumer.QueueURL()),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		s.log.Error("Failed to delete message",
			zap.String("message_id", aws.ToString(msg.MessageId)),
			zap.Error(err))
		return err
	}
	s.log.Debug("Deleted message from SQS",
		zap.String("message_id", aws.ToString(msg.MessageId)))
	return nil
}

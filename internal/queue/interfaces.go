package queue

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// DeadLetterPublisher forwards records that could not be processed, with their original payload
type DeadLetterPublisher interface {
	PublishFailedRecord(ctx context.Context, recordID string, payload []byte, reason string) error
	// Enabled reports whether a dead-letter queue is configured
	Enabled() bool
}

// QueueConsumer defines the interface for consuming messages from a queue
type QueueConsumer interface {
	ReceiveMessages(ctx context.Context, input *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, input *sqs.DeleteMessageInput) (*sqs.DeleteMessageOutput, error)
	QueueURL() string
}

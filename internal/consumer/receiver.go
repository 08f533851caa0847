package consumer

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/awslabs/game-analytics-pipeline/internal/metrics"
	"github.com/awslabs/game-analytics-pipeline/internal/queue"
)

const (
	defaultMaxMessages   = 10
	defaultWaitSeconds   = 20
	defaultRetryDelay    = time.Second
	defaultMaxRetryDelay = 30 * time.Second
)

// ReceiverConfig configures the SQS receiver
type ReceiverConfig struct {
	MaxMessages     int32
	WaitTimeSeconds int32
	// VisibilityTimeout overrides the queue's visibility timeout when positive
	VisibilityTimeout int32
	BufferSize        int
	RetryDelay        time.Duration
	MaxRetryDelay     time.Duration
}

// Receiver long-polls the source queue and hands every non-empty batch downstream.
// Consecutive receive failures back off exponentially up to MaxRetryDelay.
type Receiver struct {
	consumer queue.QueueConsumer
	config   ReceiverConfig
	log      *zap.Logger
}

// NewReceiver creates a new SQS receiver
func NewReceiver(consumer queue.QueueConsumer, config ReceiverConfig, log *zap.Logger) *Receiver {
	if config.MaxMessages <= 0 {
		config.MaxMessages = defaultMaxMessages
	}
	if config.WaitTimeSeconds <= 0 {
		config.WaitTimeSeconds = defaultWaitSeconds
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = defaultRetryDelay
	}
	if config.MaxRetryDelay < config.RetryDelay {
		config.MaxRetryDelay = max(defaultMaxRetryDelay, config.RetryDelay)
	}
	return &Receiver{
		consumer: consumer,
		config:   config,
		log:      log,
	}
}

// Start receives until ctx is done and closes out on return. A batch still
// in hand at shutdown is left on the queue for redelivery.
func (r *Receiver) Start(ctx context.Context, out chan<- []types.Message) {
	defer close(out)

	delay := r.config.RetryDelay
	for ctx.Err() == nil {
		messages, err := r.receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			metrics.QueueReceivesTotal.WithLabelValues("error").Inc()
			r.log.Error("Failed to receive messages",
				zap.Error(err),
				zap.Duration("retry_in", delay))

			select {
			case <-ctx.Done():
			case <-time.After(delay):
			}
			delay = min(delay*2, r.config.MaxRetryDelay)
			continue
		}
		delay = r.config.RetryDelay

		if len(messages) == 0 {
			metrics.QueueReceivesTotal.WithLabelValues("empty").Inc()
			continue
		}
		metrics.QueueReceivesTotal.WithLabelValues("messages").Inc()
		r.log.Debug("Received messages", zap.Int("message_count", len(messages)))

		select {
		case <-ctx.Done():
		case out <- messages:
		}
	}

	r.log.Info("Receiver stopped")
}

func (r *Receiver) receive(ctx context.Context) ([]types.Message, error) {
	input := &awssqs.ReceiveMessageInput{
		QueueUrl:              aws.String(r.consumer.QueueURL()),
		MaxNumberOfMessages:   r.config.MaxMessages,
		WaitTimeSeconds:       r.config.WaitTimeSeconds,
		MessageAttributeNames: []string{"All"},
	}
	if r.config.VisibilityTimeout > 0 {
		input.VisibilityTimeout = r.config.VisibilityTimeout
	}

	result, err := r.consumer.ReceiveMessages(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to receive messages: %w", err)
	}
	return result.Messages, nil
}

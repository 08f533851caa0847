package consumer

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/awslabs/game-analytics-pipeline/internal/config"
	"github.com/awslabs/game-analytics-pipeline/internal/queue"
	"github.com/awslabs/game-analytics-pipeline/internal/repository"
)

// Consumer drains the source queue into the event store: received batches are
// transformed into canonical events, which are written in size or time bounded
// batches and only then settled on the queue
type Consumer struct {
	receiver    *Receiver
	transformer *TransformStage
	batchWriter *BatchWriter
	log         *zap.Logger
}

// NewConsumer wires the receive, transform and write stages from the consumer settings
func NewConsumer(cfg *config.Config, queueConsumer queue.QueueConsumer, deadLetters queue.DeadLetterPublisher, processor BatchProcessor, repo repository.EventRepository, log *zap.Logger) *Consumer {
	settings := cfg.Consumer

	receiver := NewReceiver(queueConsumer, ReceiverConfig{
		MaxMessages:       settings.ReceiveMaxMessages,
		WaitTimeSeconds:   settings.ReceiveWaitSec,
		VisibilityTimeout: settings.VisibilityTimeoutSec,
		BufferSize:        settings.ReceiveBufferSize,
	}, log)

	batchWriter := NewBatchWriter(repo, BatchWriterConfig{
		MaxBatchSize: settings.BatchSizeMax,
		FlushTimeout: time.Duration(settings.BatchTimeoutSec) * time.Second,
		DrainTimeout: time.Duration(settings.DrainTimeoutSec) * time.Second,
	}, log)

	return &Consumer{
		receiver:    receiver,
		transformer: NewTransformStage(queueConsumer, deadLetters, processor, log),
		batchWriter: batchWriter,
		log:         log,
	}
}

// Start runs the pipeline until ctx is done. Each stage closes its output on
// return, so the writer flushes whatever reached it before Start returns.
func (c *Consumer) Start(ctx context.Context) error {
	batches := make(chan []types.Message, max(c.receiver.config.BufferSize, 1))
	envelopes := make(chan *Envelope, max(c.batchWriter.config.MaxBatchSize, 1))

	c.log.Info("Consumer pipeline started",
		zap.Int32("receive_max_messages", c.receiver.config.MaxMessages),
		zap.Int("batch_size_max", c.batchWriter.config.MaxBatchSize),
		zap.Duration("batch_timeout", c.batchWriter.config.FlushTimeout))

	var g errgroup.Group
	g.Go(func() error {
		c.receiver.Start(ctx, batches)
		return nil
	})
	g.Go(func() error {
		c.transformer.Start(ctx, batches, envelopes)
		return nil
	})
	g.Go(func() error {
		c.batchWriter.Start(ctx, envelopes)
		return nil
	})

	err := g.Wait()
	c.log.Info("Consumer pipeline stopped")
	return err
}

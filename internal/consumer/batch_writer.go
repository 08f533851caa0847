package consumer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/awslabs/game-analytics-pipeline/internal/domain"
	"github.com/awslabs/game-analytics-pipeline/internal/metrics"
	"github.com/awslabs/game-analytics-pipeline/internal/repository"
)

const defaultDrainTimeout = 10 * time.Second

// BatchWriterConfig configures the batch writer
type BatchWriterConfig struct {
	MaxBatchSize int
	FlushTimeout time.Duration
	// DrainTimeout bounds the final write after shutdown begins
	DrainTimeout time.Duration
}

// BatchWriter groups canonical events into size or time bounded inserts and
// settles every message once the store has answered for its event
type BatchWriter struct {
	repository repository.EventRepository
	config     BatchWriterConfig
	log        *zap.Logger
}

// NewBatchWriter creates a new batch writer
func NewBatchWriter(repo repository.EventRepository, config BatchWriterConfig, log *zap.Logger) *BatchWriter {
	if config.DrainTimeout <= 0 {
		config.DrainTimeout = defaultDrainTimeout
	}
	return &BatchWriter{
		repository: repo,
		config:     config,
		log:        log,
	}
}

// Start consumes envelopes until the input closes or ctx is done, writing the
// pending batch before returning
func (w *BatchWriter) Start(ctx context.Context, in <-chan *Envelope) {
	ticker := time.NewTicker(w.config.FlushTimeout)
	defer ticker.Stop()

	pending := make([]*Envelope, 0, w.config.MaxBatchSize)

	for {
		select {
		case <-ctx.Done():
			w.drain(ctx, pending)
			return

		case envelope, ok := <-in:
			if !ok {
				w.drain(ctx, pending)
				return
			}

			pending = append(pending, envelope)
			if len(pending) >= w.config.MaxBatchSize {
				w.write(ctx, pending)
				pending = make([]*Envelope, 0, w.config.MaxBatchSize)
				ticker.Reset(w.config.FlushTimeout)
			}

		case <-ticker.C:
			if len(pending) > 0 {
				w.write(ctx, pending)
				pending = make([]*Envelope, 0, w.config.MaxBatchSize)
			}
		}
	}
}

// drain writes the last batch on a context detached from shutdown
func (w *BatchWriter) drain(ctx context.Context, pending []*Envelope) {
	if len(pending) == 0 {
		return
	}
	w.log.Info("Writing final batch", zap.Int("envelope_count", len(pending)))

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.config.DrainTimeout)
	defer cancel()
	w.write(drainCtx, pending)
}

// write inserts a batch and settles each envelope: stored events are acked,
// rejected events are dead-lettered, and a failed insert leaves every message
// on the queue for redelivery
func (w *BatchWriter) write(ctx context.Context, envelopes []*Envelope) {
	events := make([]*domain.CanonicalEvent, len(envelopes))
	for i, env := range envelopes {
		events[i] = env.Event
	}

	result, err := w.repository.InsertBatch(ctx, events)
	if err != nil {
		w.log.Error("Failed to insert batch, messages will be redelivered",
			zap.Int("event_count", len(events)),
			zap.Error(err))
		metrics.SinkEventsTotal.WithLabelValues("retried").Add(float64(len(events)))
		return
	}

	for i, env := range envelopes {
		if reason, rejected := result.Rejected[i]; rejected {
			if err := env.DeadLetter(ctx, reason.Error()); err != nil {
				w.log.Error("Failed to dead-letter rejected event",
					zap.String("message_id", env.MessageID),
					zap.Error(err))
			}
			continue
		}
		if err := env.Ack(ctx); err != nil {
			w.log.Error("Failed to ack stored event",
				zap.String("message_id", env.MessageID),
				zap.Error(err))
		}
	}

	metrics.SinkEventsTotal.WithLabelValues("stored").Add(float64(result.Inserted))
	metrics.SinkEventsTotal.WithLabelValues("rejected").Add(float64(len(result.Rejected)))

	w.log.Info("Batch written",
		zap.Int("stored", result.Inserted),
		zap.Int("rejected", len(result.Rejected)))
}

package consumer

import (
	"context"

	"github.com/awslabs/game-analytics-pipeline/internal/domain"
)

// Settlement decides the fate of the queue message behind an envelope
type Settlement struct {
	// Ack removes the message from the queue
	Ack func(ctx context.Context) error
	// DeadLetter forwards the original payload with a reason, then removes the message
	DeadLetter func(ctx context.Context, reason string) error
}

// Envelope carries a canonical event through the pipeline together with the
// settlement of the message it came from. A message that is neither acked nor
// dead-lettered reappears after its visibility timeout.
type Envelope struct {
	MessageID string
	Event     *domain.CanonicalEvent
	settle    Settlement
}

// NewEnvelope creates a new message envelope
func NewEnvelope(messageID string, event *domain.CanonicalEvent, settle Settlement) *Envelope {
	return &Envelope{
		MessageID: messageID,
		Event:     event,
		settle:    settle,
	}
}

// Ack settles the message as stored
func (e *Envelope) Ack(ctx context.Context) error {
	if e.settle.Ack == nil {
		return nil
	}
	return e.settle.Ack(ctx)
}

// DeadLetter settles the message as unstorable
func (e *Envelope) DeadLetter(ctx context.Context, reason string) error {
	if e.settle.DeadLetter == nil {
		return nil
	}
	return e.settle.DeadLetter(ctx, reason)
}

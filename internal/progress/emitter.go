package progress

import (
	"context"
	"sync"

	"frameworks/herald/pkg/logging"
)

// Emitter publishes a single job's events. Everything after the first
// terminal event is dropped, so each job ends with exactly one end or error.
type Emitter struct {
	sink      Sink
	channelID string
	logger    logging.Logger

	mu     sync.Mutex
	closed bool
}

func NewEmitter(sink Sink, channelID string, logger logging.Logger) *Emitter {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Emitter{sink: sink, channelID: channelID, logger: logger}
}

// Emit publishes ev and reports whether it was accepted. Publish failures
// are logged; the event still counts as sent.
func (e *Emitter) Emit(ctx context.Context, ev Event) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		e.logger.WithFields(logging.Fields{
			"channel_id": e.channelID,
			"type":       ev.Type,
		}).Debug("Dropping event after terminal event")
		return false
	}
	if ev.Terminal() {
		e.closed = true
	}

	if err := e.sink.Publish(ctx, e.channelID, ev); err != nil {
		e.logger.WithError(err).WithFields(logging.Fields{
			"channel_id": e.channelID,
			"type":       ev.Type,
		}).Warn("Failed to publish progress event")
	}
	return true
}

// Content streams a text fragment. Empty fragments are skipped.
func (e *Emitter) Content(ctx context.Context, text string) {
	if text == "" {
		return
	}
	e.Emit(ctx, Content(text))
}

// Closed reports whether a terminal event has been emitted.
func (e *Emitter) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const defaultBuffer = 256

// Recorder accepts events from request handlers and hands them to a
// background worker. When the buffer is full the event is dropped and
// counted rather than stalling the request.
type Recorder struct {
	inbox      chan Event
	publishers []Publisher
	dropped    prometheus.Counter
	logger     *slog.Logger
}

func NewRecorder(logger *slog.Logger, dropped prometheus.Counter, publishers ...Publisher) *Recorder {
	return &Recorder{
		inbox:      make(chan Event, defaultBuffer),
		publishers: publishers,
		dropped:    dropped,
		logger:     logger,
	}
}

// Record enqueues an event without blocking. The timestamp is stamped here
// when the caller left it zero.
func (r *Recorder) Record(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case r.inbox <- event:
	default:
		r.dropped.Inc()
		r.logger.Warn("audit buffer full, event dropped",
			"action", string(event.Action),
			"path", event.Path,
		)
	}
}

// Run drains the inbox until the context is cancelled, then closes every
// publisher.
func (r *Recorder) Run(ctx context.Context) error {
	defer func() {
		for _, p := range r.publishers {
			if err := p.Close(); err != nil {
				r.logger.Warn("audit publisher close failed", "error", err)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-r.inbox:
			for _, p := range r.publishers {
				if err := p.Publish(ctx, event); err != nil {
					r.logger.Warn("audit publish failed",
						"action", string(event.Action),
						"error", err,
					)
				}
			}
		}
	}
}

// Package events records clickstream events (page views, trade attempts,
// completed trades) on a best-effort basis. Recording is a fire-and-forget
// side channel: a full buffer or a failing sink is logged as a warning and
// never reaches the settlement path.
package events

import (
	"context"
	"log/slog"
	"time"

	"papertrade/internal/domain"
)

// Sink receives recorded events. The durable store and the parquet archive
// both satisfy it.
type Sink interface {
	SaveEvent(ctx context.Context, ev *domain.Event) error
}

// Event type names used across the platform.
const (
	TypePageView       = "page_view"
	TypeTradeAttempt   = "trade_attempt"
	TypeTradeCompleted = "trade_completed"
)

// Recorder buffers events and delivers them to its sinks from a single
// background goroutine.
type Recorder struct {
	sinks []Sink
	log   *slog.Logger
	ch    chan domain.Event
}

// NewRecorder creates a Recorder with the given buffer size. Run must be
// started for events to be delivered.
func NewRecorder(log *slog.Logger, buffer int, sinks ...Sink) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	if buffer <= 0 {
		buffer = 256
	}
	return &Recorder{
		sinks: sinks,
		log:   log,
		ch:    make(chan domain.Event, buffer),
	}
}

// Record enqueues an event without blocking. When the buffer is full the
// event is dropped with a warning; clickstream data is lossy by contract.
func (r *Recorder) Record(ev domain.Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	select {
	case r.ch <- ev:
	default:
		r.log.Warn("event buffer full, dropping event", "type", ev.Type, "account", ev.AccountID)
	}
}

// Run delivers buffered events until the context is cancelled, then drains
// whatever is already buffered before returning.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case ev := <-r.ch:
					r.deliver(ev)
				default:
					return
				}
			}
		case ev := <-r.ch:
			r.deliver(ev)
		}
	}
}

// deliver fans one event out to every sink. Sink failures are observable in
// the log but never propagate.
func (r *Recorder) deliver(ev domain.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, sink := range r.sinks {
		if err := sink.SaveEvent(ctx, &ev); err != nil {
			r.log.Warn("event sink failed",
				"type", ev.Type, "account", ev.AccountID, "error", err)
		}
	}
}

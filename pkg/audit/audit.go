// Package audit defines the events the reconciler emits for every booking
// it creates, updates or queues for review, and a few sinks for them.
//
// The reconciler never persists audit trails itself. Callers plug in a Sink
// that forwards events to whatever system owns the audit log.
package audit

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/agentstation/utc"
	"github.com/rs/zerolog"

	"github.com/agentstation/bookingsync/pkg/logging"
)

// Action is the transition a row went through.
type Action string

// Actions.
const (
	ActionCreated         Action = "created"
	ActionAutoApplied     Action = "auto_applied"
	ActionQueuedForReview Action = "queued_for_review"
)

// Event describes one row outcome.
type Event struct {
	RunID        string    `json:"run_id"`
	Actor        string    `json:"actor"`
	RowNumber    int       `json:"row_number"`
	Action       Action    `json:"action"`
	BookingID    *uint     `json:"booking_id"`
	ConflictTags []string  `json:"conflict_tags"`
	AutoResolved bool      `json:"auto_resolved"`
	DryRun       bool      `json:"dry_run,omitempty"`
	Timestamp    utc.Time  `json:"timestamp"`
}

// Sink receives audit events.
type Sink interface {
	Emit(ctx context.Context, event Event) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, event Event) error

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Nop discards events.
var Nop Sink = SinkFunc(func(context.Context, Event) error { return nil })

// LogSink writes events to a zerolog logger at info level.
type LogSink struct {
	logger *zerolog.Logger
}

// NewLogSink creates a LogSink. A nil logger uses the logger in the
// context of each event, falling back to the default logger.
func NewLogSink(logger *zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Emit implements Sink.
func (s *LogSink) Emit(ctx context.Context, event Event) error {
	logger := s.logger
	if logger == nil {
		logger = logging.FromContext(ctx)
	}

	e := logger.Info().
		Str("audit_action", string(event.Action)).
		Str("run_id", event.RunID).
		Str("actor", event.Actor).
		Int("row", event.RowNumber).
		Strs("conflict_tags", event.ConflictTags).
		Bool("auto_resolved", event.AutoResolved)
	if event.BookingID != nil {
		e = e.Uint("booking_id", *event.BookingID)
	}
	if event.DryRun {
		e = e.Bool("dry_run", true)
	}
	e.Msg("Booking audit event")
	return nil
}

// Recorder keeps events in memory. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit implements Sink.
func (r *Recorder) Emit(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many recorded events have the given action.
func (r *Recorder) Count(action Action) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Action == action {
			n++
		}
	}
	return n
}

// Multi fans an event out to every sink. All sinks are called even when
// some fail; their errors are joined.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(ctx context.Context, event Event) error {
		var errs []error
		for _, s := range sinks {
			if s == nil {
				continue
			}
			if err := s.Emit(ctx, event); err != nil {
				errs = append(errs, err)
			}
		}
		return stderrors.Join(errs...)
	})
}

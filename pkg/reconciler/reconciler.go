// Package reconciler imports booking rows into a store.
//
// Each row is normalized, matched against its scoped identity and then
// either created, left alone, auto-applied or queued for review. Rows are
// processed in order and every write runs in its own transaction, so one
// failing row never affects the others.
package reconciler

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentstation/utc"
	"github.com/rs/zerolog"

	"github.com/agentstation/bookingsync/pkg/audit"
	"github.com/agentstation/bookingsync/pkg/bookings"
	"github.com/agentstation/bookingsync/pkg/conflict"
	"github.com/agentstation/bookingsync/pkg/errors"
	"github.com/agentstation/bookingsync/pkg/logging"
	"github.com/agentstation/bookingsync/pkg/matcher"
	"github.com/agentstation/bookingsync/pkg/normalize"
	"github.com/agentstation/bookingsync/pkg/store"
)

// Reconciler imports rows.
type Reconciler interface {
	// Reconcile processes rows on behalf of actor. The result is always
	// returned, even when every row fails. The error is non-nil only when
	// ctx ends before the last row; rows before that point keep their effects.
	Reconcile(ctx context.Context, actor string, rows []normalize.Row) (*Result, error)
}

// reconciler is the default implementation.
type reconciler struct {
	store      store.Store
	normalizer *normalize.Normalizer
	matcher    *matcher.Matcher
	classifier *conflict.Classifier
	sink       audit.Sink
	dryRun     bool
	logger     *zerolog.Logger
	options    *options
}

// New creates a Reconciler. WithStore is required.
func New(opts ...Option) (Reconciler, error) {
	options, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	if options.store == nil {
		return nil, &errors.ValidationError{
			Field:   "store",
			Message: "is required",
		}
	}
	if options.normalizer == nil {
		if options.normalizer, err = normalize.New(); err != nil {
			return nil, err
		}
	}

	return &reconciler{
		store:      options.store,
		normalizer: options.normalizer,
		matcher:    matcher.New(options.store),
		classifier: conflict.NewClassifier(conflict.WithPolicy(options.policy)),
		sink:       options.sink,
		dryRun:     options.dryRun,
		logger:     options.logger,
		options:    options,
	}, nil
}

// run carries per-call state.
type run struct {
	id     string
	actor  string
	result *Result
}

// Reconcile implements Reconciler.
func (r *reconciler) Reconcile(ctx context.Context, actor string, rows []normalize.Row) (*Result, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return nil, &errors.ValidationError{
			Field:   "actor",
			Message: "is required",
		}
	}

	if r.logger != nil {
		ctx = logging.WithLogger(ctx, r.logger)
	}
	rn := &run{
		id:    r.options.runID(),
		actor: actor,
		result: &Result{
			Ledger: []conflict.Entry{},
			Rows:   make([]RowResult, 0, len(rows)),
			Events: []audit.Event{},
			Metadata: ResultMetadata{
				StartTime: utc.New(r.options.clock()),
				DryRun:    r.dryRun,
			},
		},
	}
	rn.result.Metadata.RunID = rn.id
	rn.result.Metadata.Actor = actor

	ctx = logging.WithRun(ctx, rn.id)
	ctx = logging.WithActor(ctx, actor)
	logger := logging.FromContext(ctx)
	logger.Info().
		Int("row_count", len(rows)).
		Bool("dry_run", r.dryRun).
		Msg("Starting booking reconciliation")

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			rn.result.Metadata.Canceled = true
			rn.result.finish(r.options.clock())
			logger.Warn().
				Err(err).
				Int("processed", rn.result.Summary.TotalRows).
				Int("remaining", len(rows)-i).
				Msg("Reconciliation interrupted")
			return rn.result, fmt.Errorf("%w after %d of %d rows: %w", errors.ErrCanceled, i, len(rows), err)
		}

		rowNumber := i + 1
		rn.result.Summary.TotalRows++
		r.processRow(logging.WithRow(ctx, rowNumber), rn, rowNumber, row)
	}

	rn.result.finish(r.options.clock())
	s := rn.result.Summary
	logger.Info().
		Int("total_rows", s.TotalRows).
		Int("created", s.CreatedCount).
		Int("auto_updated", s.AutoUpdatedCount).
		Int("unchanged", s.UnchangedCount).
		Int("requires_review", s.RequiresReviewCount).
		Int("errors", s.ErrorCount).
		Dur("duration", rn.result.Metadata.Duration).
		Msg("Booking reconciliation completed")
	return rn.result, nil
}

// processRow walks one row through Extracted, Matched and the terminal states.
func (r *reconciler) processRow(ctx context.Context, rn *run, rowNumber int, row normalize.Row) {
	data, err := r.normalizer.Normalize(rowNumber, row)
	if err != nil {
		r.fail(ctx, rn, rowNumber, "normalize", err)
		return
	}

	property, err := r.store.ResolveProperty(ctx, data.Property)
	if err != nil {
		r.fail(ctx, rn, rowNumber, "resolve_property", err)
		return
	}
	data.PropertyID = property.ID

	existing, err := r.matcher.Match(ctx, property, data.Source, data.ExternalCode)
	if err != nil {
		r.fail(ctx, rn, rowNumber, "match", err)
		return
	}
	if existing == nil {
		r.create(ctx, rn, rowNumber, data)
		return
	}

	ctx = logging.WithBooking(ctx, existing.ID)
	rec := r.classifier.Classify(rowNumber, existing, data)
	if rec.IsDuplicate() {
		rn.result.Summary.UnchangedCount++
		rn.result.addRow(RowResult{RowNumber: rowNumber, Outcome: OutcomeUnchanged, BookingID: &existing.ID})
		logging.FromContext(ctx).Debug().Msg("Row unchanged")
		return
	}

	if rec.AutoResolvable {
		r.autoApply(ctx, rn, rec)
		return
	}
	r.queue(ctx, rn, rec)
}

func (r *reconciler) create(ctx context.Context, rn *run, rowNumber int, data bookings.BookingData) {
	b := bookings.NewBooking(data, data.PropertyID, rn.actor)

	var bookingID *uint
	if !r.dryRun {
		err := r.store.Transaction(ctx, func(tx store.Tx) error {
			return tx.Create(ctx, b)
		})
		if err != nil {
			r.fail(ctx, rn, rowNumber, "create", asPersistence("create", 0, err))
			return
		}
		bookingID = &b.ID
	}

	rn.result.Summary.CreatedCount++
	rn.result.addRow(RowResult{RowNumber: rowNumber, Outcome: OutcomeCreated, BookingID: bookingID})
	logging.FromContext(ctx).Debug().
		Str("source", data.Source).
		Str("external_code", data.ExternalCode).
		Msg("Booking created")
	r.emit(ctx, rn, audit.Event{
		RowNumber: rowNumber,
		Action:    audit.ActionCreated,
		BookingID: bookingID,
	})
}

// autoApply writes the record's patch. The lock flag is read again under a
// row lock right before the write; a locked booking sends the row to review.
func (r *reconciler) autoApply(ctx context.Context, rn *run, rec *conflict.Record) {
	id := rec.Existing.ID

	if !r.dryRun {
		err := r.store.Transaction(ctx, func(tx store.Tx) error {
			current, err := tx.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if current.LockedByUser {
				return &errors.LockedError{BookingID: id}
			}
			if rec.Patch.IsEmpty() {
				return nil
			}
			return tx.Update(ctx, id, rec.Patch, rn.actor)
		})
		switch {
		case errors.IsLocked(err):
			rec.AutoResolvable = false
			rec.Reason = "booking was locked by user before the update"
			r.queue(ctx, rn, rec)
			return
		case err != nil:
			r.fail(ctx, rn, rec.RowNumber, "update", asPersistence("update", id, err))
			return
		}
	}

	rn.result.Ledger = append(rn.result.Ledger, rec.Entry(true))
	rn.result.Summary.AutoUpdatedCount++
	rn.result.addRow(RowResult{
		RowNumber:    rec.RowNumber,
		Outcome:      OutcomeAutoApplied,
		BookingID:    &id,
		ConflictTags: rec.TypeNames(),
		Message:      rec.Reason,
	})
	logging.FromContext(ctx).Debug().
		Strs("conflict_tags", rec.TypeNames()).
		Msg("Conflict auto-applied")
	r.emit(ctx, rn, audit.Event{
		RowNumber:    rec.RowNumber,
		Action:       audit.ActionAutoApplied,
		BookingID:    &id,
		ConflictTags: rec.TypeNames(),
		AutoResolved: true,
	})
}

// queue records the conflict for review and leaves the booking untouched.
func (r *reconciler) queue(ctx context.Context, rn *run, rec *conflict.Record) {
	id := rec.Existing.ID

	rn.result.Ledger = append(rn.result.Ledger, rec.Entry(false))
	rn.result.Summary.RequiresReviewCount++
	rn.result.addRow(RowResult{
		RowNumber:    rec.RowNumber,
		Outcome:      OutcomeQueuedForReview,
		BookingID:    &id,
		ConflictTags: rec.TypeNames(),
		Message:      rec.Reason,
	})
	logging.FromContext(ctx).Debug().
		Strs("conflict_tags", rec.TypeNames()).
		Str("severity", string(rec.Severity)).
		Str("reason", rec.Reason).
		Msg("Conflict queued for review")
	r.emit(ctx, rn, audit.Event{
		RowNumber:    rec.RowNumber,
		Action:       audit.ActionQueuedForReview,
		BookingID:    &id,
		ConflictTags: rec.TypeNames(),
	})
}

// fail records a row error. Ambiguous matches break the identity invariant
// and are logged at error level.
func (r *reconciler) fail(ctx context.Context, rn *run, rowNumber int, stage string, err error) {
	rowErr := &errors.RowError{Row: rowNumber, Stage: stage, Err: err}
	rn.result.Errors = append(rn.result.Errors, rowErr)
	rn.result.Summary.ErrorCount++
	rn.result.addRow(RowResult{RowNumber: rowNumber, Outcome: OutcomeError, Message: err.Error()})

	logger := logging.FromContext(logging.WithOperation(ctx, stage))
	event := logger.Warn()
	if errors.IsAmbiguousMatch(err) {
		event = logger.Error()
	}
	event.Err(err).Msg("Row failed")
}

// emit sends an audit event. Sink failures are logged and never fail the row.
func (r *reconciler) emit(ctx context.Context, rn *run, event audit.Event) {
	event.RunID = rn.id
	event.Actor = rn.actor
	event.DryRun = r.dryRun
	event.Timestamp = utc.New(r.options.clock())
	if event.ConflictTags == nil {
		event.ConflictTags = []string{}
	}

	rn.result.Events = append(rn.result.Events, event)
	if err := r.sink.Emit(ctx, event); err != nil {
		logging.FromContext(ctx).Warn().
			Err(err).
			Str("audit_action", string(event.Action)).
			Msg("Failed to emit audit event")
	}
}

// asPersistence makes sure storage failures surface as persistence errors.
func asPersistence(operation string, bookingID uint, err error) error {
	if errors.IsPersistence(err) {
		return err
	}
	return errors.WrapPersistence(operation, bookingID, err)
}

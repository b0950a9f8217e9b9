package reconciler

import (
	"fmt"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/bookingsync/pkg/audit"
	"github.com/agentstation/bookingsync/pkg/conflict"
	"github.com/agentstation/bookingsync/pkg/errors"
)

// Outcome is the terminal state of one row.
type Outcome string

// Row outcomes.
const (
	OutcomeCreated         Outcome = "created"
	OutcomeAutoApplied     Outcome = "auto_applied"
	OutcomeQueuedForReview Outcome = "queued_for_review"
	OutcomeUnchanged       Outcome = "unchanged"
	OutcomeError           Outcome = "error"
)

// Result represents the outcome of a reconciliation run.
type Result struct {
	Summary Summary `json:"summary" yaml:"summary"`

	// Ledger holds one entry per conflicting row, in input order.
	Ledger []conflict.Entry `json:"ledger" yaml:"ledger"`

	// Rows holds the outcome of every processed row, in input order.
	Rows []RowResult `json:"rows" yaml:"rows"`

	// Events are the audit events emitted during the run.
	Events []audit.Event `json:"events" yaml:"events"`

	// Errors lists every row that failed.
	Errors []*errors.RowError `json:"-" yaml:"-"`

	Metadata ResultMetadata `json:"metadata" yaml:"metadata"`
}

// Summary holds the run counters.
type Summary struct {
	TotalRows           int `json:"total_rows" yaml:"total_rows"`
	CreatedCount        int `json:"created_count" yaml:"created_count"`
	AutoUpdatedCount    int `json:"auto_updated_count" yaml:"auto_updated_count"`
	UnchangedCount      int `json:"unchanged_count" yaml:"unchanged_count"`
	RequiresReviewCount int `json:"requires_review_count" yaml:"requires_review_count"`
	ErrorCount          int `json:"error_count" yaml:"error_count"`
}

// String returns a one-line summary.
func (s Summary) String() string {
	return fmt.Sprintf("%d rows: %d created, %d auto-updated, %d unchanged, %d for review, %d errors",
		s.TotalRows, s.CreatedCount, s.AutoUpdatedCount, s.UnchangedCount, s.RequiresReviewCount, s.ErrorCount)
}

// RowResult describes what happened to one row.
type RowResult struct {
	RowNumber    int      `json:"row_number" yaml:"row_number"`
	Outcome      Outcome  `json:"outcome" yaml:"outcome"`
	BookingID    *uint    `json:"booking_id" yaml:"booking_id"`
	ConflictTags []string `json:"conflict_tags,omitempty" yaml:"conflict_tags,omitempty"`
	Message      string   `json:"message,omitempty" yaml:"message,omitempty"`
}

// ResultMetadata contains metadata about the run.
type ResultMetadata struct {
	RunID     string        `json:"run_id" yaml:"run_id"`
	Actor     string        `json:"actor" yaml:"actor"`
	StartTime utc.Time      `json:"start_time" yaml:"start_time"`
	EndTime   utc.Time      `json:"end_time" yaml:"end_time"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	DryRun    bool          `json:"dry_run" yaml:"dry_run"`

	// Canceled is set when the run stopped before the last row.
	Canceled bool `json:"canceled,omitempty" yaml:"canceled,omitempty"`
}

// HasErrors reports whether any row failed.
func (r *Result) HasErrors() bool {
	return r.Summary.ErrorCount > 0
}

// NeedsReview reports whether any row was queued for review.
func (r *Result) NeedsReview() bool {
	return r.Summary.RequiresReviewCount > 0
}

// LedgerJSON encodes the ledger. It never fails.
func (r *Result) LedgerJSON() []byte {
	entries := make([]any, len(r.Ledger))
	for i, e := range r.Ledger {
		entries[i] = map[string]any(e)
	}
	return conflict.Marshal(entries)
}

func (r *Result) addRow(row RowResult) {
	r.Rows = append(r.Rows, row)
}

func (r *Result) finish(end time.Time) {
	r.Metadata.EndTime = utc.New(end)
	r.Metadata.Duration = end.Sub(r.Metadata.StartTime.Time())
}

// Package conflict compares a stored booking with an incoming row, tags every
// difference and decides whether the change is safe to apply without review.
//
// Only external status updates from recognized platforms, and optionally
// cosmetic guest-name fixes, are ever auto-resolvable. Locked bookings and
// bookings entered directly are never auto-resolvable.
package conflict

import (
	"strconv"
	"strings"
	"time"

	"github.com/agentstation/bookingsync/pkg/bookings"
	"github.com/agentstation/bookingsync/pkg/guestname"
)

// FieldChange records one field that differs.
type FieldChange struct {
	Field    string `json:"field"`
	Existing string `json:"existing"`
	Incoming string `json:"incoming"`
}

// Record is the outcome of comparing one row against its matched booking.
type Record struct {
	RowNumber int
	Existing  *bookings.Booking
	Incoming  bookings.BookingData

	Types    []Type
	Changes  []FieldChange
	Severity Severity

	// AutoResolvable is the classifier's verdict. The reconciler may still
	// queue the record when the booking turns out to be locked at write time.
	AutoResolvable bool

	// Reason explains the AutoResolvable verdict.
	Reason string

	// GuestName is set whenever guest names were compared.
	GuestName *guestname.Analysis

	// Patch holds the fields to write when the record is auto-resolved.
	Patch bookings.Patch
}

// Has reports whether t was raised.
func (r *Record) Has(t Type) bool {
	for _, got := range r.Types {
		if got == t {
			return true
		}
	}
	return false
}

// IsDuplicate reports whether the row matches the booking exactly.
func (r *Record) IsDuplicate() bool {
	return len(r.Types) == 1 && r.Types[0] == ExactDuplicate
}

// TypeNames returns the tags as strings.
func (r *Record) TypeNames() []string {
	names := make([]string, len(r.Types))
	for i, t := range r.Types {
		names[i] = string(t)
	}
	return names
}

// Policy holds the product decisions the classifier applies.
type Policy struct {
	// AutoApplyCosmeticNames allows a guest name that differs only in
	// accents or encoding to be updated without review. The record is
	// always written to the ledger either way.
	AutoApplyCosmeticNames bool
}

// DefaultPolicy returns the default policy.
func DefaultPolicy() Policy {
	return Policy{AutoApplyCosmeticNames: true}
}

// Classifier compares bookings against incoming rows.
type Classifier struct {
	policy Policy
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithPolicy overrides DefaultPolicy.
func WithPolicy(p Policy) Option {
	return func(c *Classifier) {
		c.policy = p
	}
}

// NewClassifier creates a Classifier.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{policy: DefaultPolicy()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the active policy.
func (c *Classifier) Policy() Policy {
	return c.policy
}

// Classify compares existing with incoming. It returns nil when existing is
// nil, which means the row creates a new booking. Blank incoming values for
// status, guest name and dates are treated as "not provided" and never
// raise a conflict.
func (c *Classifier) Classify(rowNumber int, existing *bookings.Booking, incoming bookings.BookingData) *Record {
	if existing == nil {
		return nil
	}

	r := &Record{
		RowNumber: rowNumber,
		Existing:  existing.Clone(),
		Incoming:  incoming,
		Severity:  SeverityNone,
	}

	if incoming.PropertyID != 0 && incoming.PropertyID != existing.PropertyID {
		r.raise(PropertyChange, "property_id",
			strconv.FormatUint(uint64(existing.PropertyID), 10),
			strconv.FormatUint(uint64(incoming.PropertyID), 10))
	}
	if incoming.Source != "" && !bookings.SameSource(existing.Source, incoming.Source) {
		r.raise(SourceChange, "source", existing.Source, incoming.Source)
	}

	status := strings.TrimSpace(incoming.Status)
	if status != "" && status != strings.TrimSpace(existing.ExternalStatus) {
		r.raise(StatusChange, "external_status", existing.ExternalStatus, incoming.Status)
	}

	if strings.TrimSpace(incoming.GuestName) != "" {
		analysis := guestname.Classify(existing.GuestName, incoming.GuestName)
		r.GuestName = &analysis
		// A mis-encoded copy of the stored name repairs to the stored name.
		repairsToStored := analysis.IsCosmetic() && analysis.Preferred == existing.GuestName
		if analysis.Classification != guestname.Identical && !repairsToStored {
			r.raise(GuestNameChange, "guest_name", existing.GuestName, incoming.GuestName)
		}
	}

	compareDates(r, existing, incoming)

	if len(r.Types) == 0 {
		r.Types = []Type{ExactDuplicate}
		r.Reason = "all compared fields are identical"
		return r
	}

	r.AutoResolvable, r.Reason = c.resolvable(r)
	if r.AutoResolvable {
		r.Patch = patchFor(r)
	}
	return r
}

func compareDates(r *Record, existing *bookings.Booking, incoming bookings.BookingData) {
	changed := false
	if !incoming.StartDate.IsZero() && !incoming.StartDate.Equal(existing.StartDate) {
		r.Changes = append(r.Changes, FieldChange{Field: "start_date", Existing: formatDate(existing.StartDate), Incoming: formatDate(incoming.StartDate)})
		changed = true
	}
	if !incoming.EndDate.IsZero() && !incoming.EndDate.Equal(existing.EndDate) {
		r.Changes = append(r.Changes, FieldChange{Field: "end_date", Existing: formatDate(existing.EndDate), Incoming: formatDate(incoming.EndDate)})
		changed = true
	}
	hasStay := !incoming.StartDate.IsZero() && !incoming.EndDate.IsZero()
	if (hasStay || incoming.Nights != 0) && incoming.Nights != existing.Nights {
		r.Changes = append(r.Changes, FieldChange{Field: "nights", Existing: strconv.Itoa(existing.Nights), Incoming: strconv.Itoa(incoming.Nights)})
		changed = true
	}
	if changed {
		r.tag(DateChange)
	}
}

func (r *Record) raise(t Type, field, existing, incoming string) {
	r.Changes = append(r.Changes, FieldChange{Field: field, Existing: existing, Incoming: incoming})
	r.tag(t)
}

func (r *Record) tag(t Type) {
	if r.Has(t) {
		return
	}
	r.Types = append(r.Types, t)
	r.Severity = r.Severity.Max(SeverityOf(t))
}

// resolvable applies the auto-resolve policy.
func (c *Classifier) resolvable(r *Record) (bool, string) {
	for _, t := range r.Types {
		if t.IsSubstantive() {
			return false, string(t) + " always requires review"
		}
	}
	if r.Existing.LockedByUser {
		return false, "booking is locked by user"
	}
	if !bookings.IsPlatform(r.Existing.Source) {
		return false, "source " + strconv.Quote(r.Existing.Source) + " is not an external platform"
	}

	if r.Has(GuestNameChange) {
		if r.GuestName == nil || !r.GuestName.IsCosmetic() {
			return false, "guest name change requires review"
		}
		if !c.policy.AutoApplyCosmeticNames {
			return false, "policy requires review of cosmetic guest name changes"
		}
		if r.Has(StatusChange) {
			return true, "status update with cosmetic guest name correction"
		}
		return true, "cosmetic guest name correction"
	}
	return true, "status-only update from platform"
}

// patchFor builds the write for an auto-resolvable record. Cosmetic name fixes
// write the incoming spelling, repaired when it arrived mis-encoded.
func patchFor(r *Record) bookings.Patch {
	var p bookings.Patch
	if r.Has(StatusChange) {
		status := strings.TrimSpace(r.Incoming.Status)
		p.ExternalStatus = &status
	}
	if r.Has(GuestNameChange) && r.GuestName != nil && r.GuestName.Preferred != r.Existing.GuestName {
		name := r.GuestName.Preferred
		p.GuestName = &name
	}
	return p
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

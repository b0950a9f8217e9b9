// Package matcher finds the existing booking an import row refers to.
//
// Identity is scoped: property, source (case-insensitive) and external code
// must all agree. Platform codes are not globally unique, so a code alone
// never identifies a booking.
package matcher

import (
	"context"

	"github.com/agentstation/bookingsync/pkg/bookings"
	"github.com/agentstation/bookingsync/pkg/errors"
	"github.com/agentstation/bookingsync/pkg/store"
)

// Matcher looks up bookings by scoped identity.
type Matcher struct {
	finder store.Finder
}

// New creates a Matcher over finder.
func New(finder store.Finder) *Matcher {
	return &Matcher{finder: finder}
}

// Match returns the booking identified by (property, source, code), or nil
// when there is none. Rows without an external code are never matched.
// More than one hit is an *errors.AmbiguousMatchError.
func (m *Matcher) Match(ctx context.Context, property *bookings.Property, source, code string) (*bookings.Booking, error) {
	if code == "" {
		return nil, nil
	}

	found, err := m.finder.FindByIdentity(ctx, property.ID, source, code)
	if err != nil {
		return nil, err
	}

	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return &found[0], nil
	default:
		return nil, &errors.AmbiguousMatchError{
			Property: property.Name,
			Source:   source,
			Code:     code,
			Count:    len(found),
		}
	}
}

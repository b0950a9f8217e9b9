// Package store defines the persistence contracts the reconciler depends on.
//
// Implementations live in subpackages: memory for tests and dry runs,
// gormstore for MySQL and SQLite.
package store

import (
	"context"

	"github.com/agentstation/bookingsync/pkg/bookings"
)

// PropertyResolver maps a property label from an export to a stored property.
type PropertyResolver interface {
	// ResolveProperty looks the label up case-insensitively. Unknown labels
	// return an *errors.NotFoundError.
	ResolveProperty(ctx context.Context, label string) (*bookings.Property, error)
}

// Finder looks up bookings by scoped identity.
type Finder interface {
	// FindByIdentity returns every booking with the given property, source
	// (case-insensitive) and external code.
	FindByIdentity(ctx context.Context, propertyID uint, source, code string) ([]bookings.Booking, error)
}

// Tx is the write surface available inside a transaction.
type Tx interface {
	// Create inserts b and assigns its ID.
	Create(ctx context.Context, b *bookings.Booking) error

	// GetForUpdate reads a booking and holds a write lock on it until the
	// transaction ends.
	GetForUpdate(ctx context.Context, id uint) (*bookings.Booking, error)

	// Update applies patch to the booking and stamps actor as the updater.
	Update(ctx context.Context, id uint, patch bookings.Patch, actor string) error
}

// Transactor runs fn atomically. If fn returns an error every write made
// through the Tx is discarded.
type Transactor interface {
	Transaction(ctx context.Context, fn func(tx Tx) error) error
}

// Store is the complete storage contract of the reconciler.
type Store interface {
	PropertyResolver
	Finder
	Transactor
}

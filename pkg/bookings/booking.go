// Package bookings defines the reservation data model shared by the
// normalizer, matcher, conflict classifier and reconciler.
package bookings

import (
	"time"
)

// WorkflowStatus is the internal status of a booking. It is owned by the
// operations team and is independent of the platform's external status.
type WorkflowStatus string

// Workflow statuses.
const (
	WorkflowStatusNew        WorkflowStatus = "new"
	WorkflowStatusInProgress WorkflowStatus = "in_progress"
	WorkflowStatusDone       WorkflowStatus = "done"
	WorkflowStatusCancelled  WorkflowStatus = "cancelled"
)

// Property is a rentable unit bookings are attached to.
type Property struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Booking is a persisted reservation.
//
// The scoped identity is (PropertyID, lower(Source), ExternalCode) whenever
// ExternalCode is set. The same code may legitimately appear under a
// different property or source.
type Booking struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	PropertyID     uint           `gorm:"not null;index:idx_booking_identity" json:"property_id"`
	Property       *Property      `gorm:"foreignKey:PropertyID" json:"-"`
	Source         string         `gorm:"size:64;not null;index:idx_booking_identity" json:"source"`
	ExternalCode   string         `gorm:"size:128;index:idx_booking_identity" json:"external_code"`
	GuestName      string         `gorm:"size:255" json:"guest_name"`
	StartDate      time.Time      `json:"start_date"`
	EndDate        time.Time      `json:"end_date"`
	Nights         int            `gorm:"not null;default:0" json:"nights"`
	ExternalStatus string         `gorm:"size:64" json:"external_status"`
	Status         WorkflowStatus `gorm:"size:32;not null;default:new" json:"status"`
	LockedByUser   bool           `gorm:"not null;default:false" json:"locked_by_user"`
	CreatedBy      string         `gorm:"size:128" json:"created_by"`
	UpdatedBy      string         `gorm:"size:128" json:"updated_by"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// BookingData is the canonical, typed form of one import row.
// All dates are in the canonical zone configured on the normalizer.
type BookingData struct {
	Property     string    `json:"property" validate:"required"`
	PropertyID   uint      `json:"property_id,omitempty"`
	Source       string    `json:"source"`
	ExternalCode string    `json:"external_code" validate:"required_without=StartDate"`
	GuestName    string    `json:"guest_name"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	Nights       int       `json:"nights" validate:"gte=0"`
	Status       string    `json:"status"`
}

// HasExternalCode reports whether the row carries a platform confirmation code.
func (d BookingData) HasExternalCode() bool {
	return d.ExternalCode != ""
}

// NewBooking builds an unsaved booking from incoming data.
func NewBooking(d BookingData, propertyID uint, actor string) *Booking {
	return &Booking{
		PropertyID:     propertyID,
		Source:         d.Source,
		ExternalCode:   d.ExternalCode,
		GuestName:      d.GuestName,
		StartDate:      d.StartDate,
		EndDate:        d.EndDate,
		Nights:         d.Nights,
		ExternalStatus: d.Status,
		Status:         WorkflowStatusNew,
		CreatedBy:      actor,
		UpdatedBy:      actor,
	}
}

// Clone returns a copy of the booking that shares no mutable state.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	c := *b
	if b.Property != nil {
		p := *b.Property
		c.Property = &p
	}
	return &c
}

// Patch is the set of fields the reconciler is allowed to change on an
// existing booking. Nil fields are left untouched.
type Patch struct {
	ExternalStatus *string
	GuestName      *string
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.ExternalStatus == nil && p.GuestName == nil
}

// Apply writes the patch onto b.
func (p Patch) Apply(b *Booking) {
	if p.ExternalStatus != nil {
		b.ExternalStatus = *p.ExternalStatus
	}
	if p.GuestName != nil {
		b.GuestName = *p.GuestName
	}
}

// Columns returns the patch as a column map for storage backends.
func (p Patch) Columns() map[string]any {
	cols := make(map[string]any, 2)
	if p.ExternalStatus != nil {
		cols["external_status"] = *p.ExternalStatus
	}
	if p.GuestName != nil {
		cols["guest_name"] = *p.GuestName
	}
	return cols
}

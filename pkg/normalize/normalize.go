// Package normalize turns raw export rows into typed booking data.
//
// A Row is the untyped column-name to cell mapping produced by whatever
// parsed the upload. Normalize is the single boundary where those cells are
// coerced: after it returns, every date is in the canonical zone, the source
// has its display spelling and nights is a trustworthy non-negative count.
package normalize

import (
	stderrors "errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/agentstation/bookingsync/pkg/bookings"
	"github.com/agentstation/bookingsync/pkg/constants"
	"github.com/agentstation/bookingsync/pkg/errors"
)

// Row is one parsed export row keyed by column header.
type Row map[string]any

// Normalizer converts rows into bookings.BookingData.
type Normalizer struct {
	loc           *time.Location
	defaultSource string
	validate      *validator.Validate
}

// Option configures a Normalizer.
type Option func(*Normalizer) error

// WithLocation sets the canonical zone. Naive timestamps are interpreted in
// it and aware ones are converted to it.
func WithLocation(loc *time.Location) Option {
	return func(n *Normalizer) error {
		if loc == nil {
			return &errors.ValidationError{Field: "location", Message: "cannot be nil"}
		}
		n.loc = loc
		return nil
	}
}

// WithTimezone is WithLocation by IANA zone name.
func WithTimezone(name string) Option {
	return func(n *Normalizer) error {
		loc, err := time.LoadLocation(name)
		if err != nil {
			return errors.NewValidationError("timezone", name, err.Error())
		}
		n.loc = loc
		return nil
	}
}

// WithDefaultSource sets the source assigned to rows without one. An empty
// source keeps the default.
func WithDefaultSource(source string) Option {
	return func(n *Normalizer) error {
		if strings.TrimSpace(source) == "" {
			return nil
		}
		n.defaultSource = bookings.NormalizeSource(source)
		return nil
	}
}

// New creates a Normalizer. The canonical zone defaults to UTC.
func New(opts ...Option) (*Normalizer, error) {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	n := &Normalizer{
		loc:           time.UTC,
		defaultSource: constants.DefaultSource,
		validate:      v,
	}
	for _, opt := range opts {
		if err := opt(n); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// Location returns the canonical zone.
func (n *Normalizer) Location() *time.Location {
	return n.loc
}

// Normalize converts one row. rowNumber is 1-based and only used for errors.
// It fails with a *errors.MalformedRowError when the property label is
// missing, when both start date and external code are missing, or when a
// date cell cannot be parsed.
func (n *Normalizer) Normalize(rowNumber int, row Row) (bookings.BookingData, error) {
	cols := indexRow(row)

	data := bookings.BookingData{
		Property:     strings.Join(strings.Fields(toString(cols.lookup(FieldProperty))), " "),
		Source:       bookings.NormalizeSource(toString(cols.lookup(FieldSource))),
		ExternalCode: toString(cols.lookup(FieldExternalCode)),
		GuestName:    toString(cols.lookup(FieldGuestName)),
		Status:       toString(cols.lookup(FieldStatus)),
	}
	if data.Source == "" {
		data.Source = n.defaultSource
	}

	var err error
	if data.StartDate, _, err = parseDate(cols.lookup(FieldStartDate), n.loc); err != nil {
		return bookings.BookingData{}, errors.NewMalformedRowError(rowNumber, string(FieldStartDate), err.Error())
	}
	if data.EndDate, _, err = parseDate(cols.lookup(FieldEndDate), n.loc); err != nil {
		return bookings.BookingData{}, errors.NewMalformedRowError(rowNumber, string(FieldEndDate), err.Error())
	}

	if nights, ok := parseNights(cols.lookup(FieldNights), n.loc); ok {
		data.Nights = nights
	} else {
		data.Nights = daysBetween(data.StartDate, data.EndDate)
	}

	if err := n.validate.Struct(data); err != nil {
		return bookings.BookingData{}, n.malformed(rowNumber, err)
	}
	return data, nil
}

// malformed translates validator output into a MalformedRowError for the first failing field.
func (n *Normalizer) malformed(rowNumber int, err error) error {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return errors.NewMalformedRowError(rowNumber, "", err.Error())
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return errors.NewMalformedRowError(rowNumber, fe.Field(), "is required")
	case "required_without":
		return errors.NewMalformedRowError(rowNumber, fe.Field(), "start date or external code is required")
	default:
		return errors.NewMalformedRowError(rowNumber, fe.Field(), "failed "+fe.Tag()+" check")
	}
}

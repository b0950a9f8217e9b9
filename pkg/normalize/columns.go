package normalize

import (
	"strings"
	"unicode"
)

// Field identifies a canonical booking column.
type Field string

// Canonical columns.
const (
	FieldProperty     Field = "property"
	FieldSource       Field = "source"
	FieldExternalCode Field = "external_code"
	FieldGuestName    Field = "guest_name"
	FieldStartDate    Field = "start_date"
	FieldEndDate      Field = "end_date"
	FieldNights       Field = "nights"
	FieldStatus       Field = "status"
)

// aliases lists accepted header spellings per field, most specific first.
// Headers are compared after NormalizeColumnName.
var aliases = map[Field][]string{
	FieldProperty:     {"property", "property name", "listing", "listing name", "unit", "rental"},
	FieldSource:       {"source", "channel", "platform", "booking source"},
	FieldExternalCode: {"external code", "confirmation code", "reservation code", "reservation id", "booking id", "booking code", "code"},
	FieldGuestName:    {"guest name", "guest", "name"},
	FieldStartDate:    {"start date", "check in", "checkin", "arrival", "arrival date", "start"},
	FieldEndDate:      {"end date", "check out", "checkout", "departure", "departure date", "end"},
	FieldNights:       {"nights", "# of nights", "number of nights", "night count"},
	FieldStatus:       {"status", "booking status", "reservation status"},
}

// NormalizeColumnName lower-cases a header, turns separators into single
// spaces and trims trailing colons, so "Check-In:" and "check_in" compare equal.
func NormalizeColumnName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimRight(name, ":")
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '_' || r == '-':
			return ' '
		case unicode.IsSpace(r):
			return ' '
		}
		return r
	}, name)
	return strings.Join(strings.Fields(name), " ")
}

// columns indexes a row by normalized header.
type columns map[string]any

func indexRow(row Row) columns {
	idx := make(columns, len(row))
	for k, v := range row {
		key := NormalizeColumnName(k)
		if key == "" {
			continue
		}
		if existing, ok := idx[key]; ok && !isBlank(existing) {
			continue
		}
		idx[key] = v
	}
	return idx
}

// lookup returns the first non-blank value among the field's aliases.
func (c columns) lookup(f Field) any {
	for _, alias := range aliases[f] {
		if v, ok := c[alias]; ok && !isBlank(v) {
			return v
		}
	}
	return nil
}

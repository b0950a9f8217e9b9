package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Layouts carrying an explicit offset; parsed values are converted into the
// canonical zone.
var awareLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
}

// Layouts without zone information; parsed in the canonical zone.
var naiveLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04",
	"1/2/06",
	"02.01.2006",
	"2.1.2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
}

// maxSerialDate bounds numeric cells treated as Excel serial dates (year 9999).
const maxSerialDate = 2958465

// isBlank reports whether a cell carries no value.
func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case *time.Time:
		return x == nil || x.IsZero()
	case time.Time:
		return x.IsZero()
	}
	return false
}

// toString renders a cell as trimmed text. Integral floats lose their
// fractional part so that 123456.0 from a spreadsheet reads as "123456".
func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return strconv.FormatFloat(x, 'f', 0, 64)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return toString(float64(x))
	case time.Time:
		return x.Format(time.RFC3339)
	case fmt.Stringer:
		return strings.TrimSpace(x.String())
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// toFloat reports numeric cells as float64.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// parseDate coerces a date-like cell into loc. It returns ok=false for blank
// cells and an error for non-blank cells that are not dates.
func parseDate(v any, loc *time.Location) (time.Time, bool, error) {
	if isBlank(v) {
		return time.Time{}, false, nil
	}

	switch x := v.(type) {
	case time.Time:
		return fromTime(x, loc), true, nil
	case *time.Time:
		return fromTime(*x, loc), true, nil
	case string:
		t, err := parseDateString(strings.TrimSpace(x), loc)
		if err != nil {
			return time.Time{}, false, err
		}
		return t, true, nil
	}

	if f, ok := toFloat(v); ok {
		t, err := fromSerial(f, loc)
		if err != nil {
			return time.Time{}, false, err
		}
		return t, true, nil
	}

	return time.Time{}, false, fmt.Errorf("unsupported date value of type %T", v)
}

// fromTime places t in loc. A UTC midnight is a calendar date produced by a
// zone-unaware reader, so it keeps its date instead of being shifted.
func fromTime(t time.Time, loc *time.Location) time.Time {
	if t.Location() == time.UTC && isMidnight(t) {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	}
	return t.In(loc)
}

// fromSerial converts an Excel 1900-system serial date.
func fromSerial(f float64, loc *time.Location) (time.Time, error) {
	if f <= 0 || f > maxSerialDate {
		return time.Time{}, fmt.Errorf("serial date %v out of range", f)
	}
	t, err := excelize.ExcelDateToTime(f, false)
	if err != nil {
		return time.Time{}, err
	}
	return wallClock(t.Round(time.Second), loc), nil
}

func parseDateString(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range awareLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(loc), nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	if isSerialString(s) {
		f, _ := strconv.ParseFloat(s, 64)
		return fromSerial(f, loc)
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// isSerialString matches spreadsheet serials rendered as text, e.g. "45812"
// or, for date-times, "45812.541666666664". Range is checked by fromSerial.
func isSerialString(s string) bool {
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) && f > 0
}

// isDateShaped reports whether a nights cell actually holds a date, which
// happens when a spreadsheet applies date formatting to a small integer.
func isDateShaped(v any, loc *time.Location) bool {
	switch x := v.(type) {
	case time.Time, *time.Time:
		return true
	case string:
		s := strings.TrimSpace(x)
		if !strings.ContainsAny(s, "-/.:") {
			return false
		}
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			return false
		}
		_, err := parseDateString(s, loc)
		return err == nil
	}
	return false
}

// parseNights returns the nights value when it is a trustworthy non-negative
// integer. Date-shaped, fractional, negative or non-numeric values are
// rejected so the caller derives nights from the stay dates.
func parseNights(v any, loc *time.Location) (int, bool) {
	if isBlank(v) || isDateShaped(v, loc) {
		return 0, false
	}

	if f, ok := toFloat(v); ok {
		return wholeNonNegative(f)
	}

	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return wholeNonNegative(float64(n))
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return wholeNonNegative(f)
	}
	return 0, false
}

func wholeNonNegative(f float64) (int, bool) {
	if f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// daysBetween counts calendar days from start to end, clamped at zero.
func daysBetween(start, end time.Time) int {
	if start.IsZero() || end.IsZero() {
		return 0
	}
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	from := time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)
	to := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	days := int(to.Sub(from).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

// wallClock reinterprets t's wall clock in loc.
func wallClock(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}

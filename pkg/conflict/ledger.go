package conflict

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/agentstation/bookingsync/pkg/errors"
	"github.com/agentstation/bookingsync/pkg/logging"
)

// Entry is the JSON-safe ledger form of a Record. Every value is a string,
// number, bool, nil, []any or map[string]any.
type Entry map[string]any

// Entry serializes the record. autoResolved is the final decision, which
// can differ from AutoResolvable when the booking was locked at write time.
func (r *Record) Entry(autoResolved bool) Entry {
	var existingID any
	if r.Existing != nil {
		existingID = r.Existing.ID
	}

	changes := make([]any, len(r.Changes))
	for i, ch := range r.Changes {
		changes[i] = map[string]any{"field": ch.Field, "existing": ch.Existing, "incoming": ch.Incoming}
	}

	e := Entry{
		"row_number":          r.RowNumber,
		"existing_booking_id": existingID,
		"incoming_data":       incomingData(r),
		"conflict_types":      r.TypeNames(),
		"auto_resolved":       autoResolved,
		"severity":            r.Severity,
		"reason":              r.Reason,
		"changes":             changes,
	}
	if r.GuestName != nil {
		e["guest_name_analysis"] = map[string]any{
			"classification":        r.GuestName.Classification,
			"description":           r.GuestName.Description,
			"likely_encoding_issue": r.GuestName.LikelyEncodingIssue,
			"preferred":             r.GuestName.Preferred,
		}
	}
	return Safe(e).(map[string]any)
}

func incomingData(r *Record) map[string]any {
	d := r.Incoming
	return map[string]any{
		"property":      d.Property,
		"property_id":   d.PropertyID,
		"source":        d.Source,
		"external_code": d.ExternalCode,
		"guest_name":    d.GuestName,
		"start_date":    d.StartDate,
		"end_date":      d.EndDate,
		"nights":        d.Nights,
		"status":        d.Status,
	}
}

// maxDepth bounds recursion through nested values.
const maxDepth = 32

// Safe coerces v into values encoding/json always accepts. Times become
// RFC 3339 strings (zero times become nil), non-finite floats and unknown
// types become their string form. Safe never panics and never fails.
func Safe(v any) any {
	return safe(v, 0)
}

func safe(v any, depth int) (out any) {
	defer func() {
		if recover() != nil {
			out = fmt.Sprintf("%v", v)
		}
	}()
	if depth > maxDepth {
		return fmt.Sprint(v)
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Ptr && rv.IsNil() {
		return nil
	}

	switch x := v.(type) {
	case nil:
		return nil
	case string, bool:
		return x
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return x
	case float64:
		return safeFloat(x)
	case float32:
		return safeFloat(float64(x))
	case time.Time:
		if x.IsZero() {
			return nil
		}
		return x.Format(time.RFC3339)
	case time.Duration:
		return x.String()
	case []byte:
		return string(x)
	case error:
		return x.Error()
	case fmt.Stringer:
		return x.String()
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, val := range x {
			m[k] = safe(val, depth+1)
		}
		return m
	case Entry:
		return safe(map[string]any(x), depth)
	case []any:
		s := make([]any, len(x))
		for i, val := range x {
			s[i] = safe(val, depth+1)
		}
		return s
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return safe(rv.Elem().Interface(), depth+1)
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return safeFloat(rv.Float())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return []any{}
		}
		s := make([]any, rv.Len())
		for i := range s {
			s[i] = safe(rv.Index(i).Interface(), depth+1)
		}
		return s
	case reflect.Map:
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[fmt.Sprint(iter.Key().Interface())] = safe(iter.Value().Interface(), depth+1)
		}
		return m
	}
	return fmt.Sprintf("%+v", v)
}

func safeFloat(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return f
}

// Marshal encodes v as JSON after passing it through Safe. If encoding still
// fails the string form of v is encoded instead, so the result is always
// valid JSON.
func Marshal(v any) []byte {
	b, err := json.Marshal(Safe(v))
	if err == nil {
		return b
	}
	logging.Default().Warn().
		Err(fmt.Errorf("%w: %v", errors.ErrSerialization, err)).
		Msg("Ledger value encoded as plain string")
	b, _ = json.Marshal(fmt.Sprint(v))
	return b
}

// MarshalJSON implements json.Marshaler.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(Safe(map[string]any(e)))
}

package normalize_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/bookingsync/pkg/errors"
	"github.com/agentstation/bookingsync/pkg/normalize"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newNormalizer(t *testing.T, opts ...normalize.Option) *normalize.Normalizer {
	t.Helper()
	n, err := normalize.New(opts...)
	require.NoError(t, err)
	return n
}

func TestNormalizeBasicRow(t *testing.T) {
	n := newNormalizer(t)

	data, err := n.Normalize(1, normalize.Row{
		"Property":          "  Lakeside   Cabin ",
		"Source":            "airbnb",
		"Confirmation Code": "HMABC123",
		"Guest Name":        "Kathrin Müller",
		"Check-In":          "2025-06-01",
		"Check-Out":         "2025-06-05",
		"Nights":            "4",
		"Status":            " confirmed ",
	})
	require.NoError(t, err)

	assert.Equal(t, "Lakeside Cabin", data.Property)
	assert.Equal(t, "Airbnb", data.Source)
	assert.Equal(t, "HMABC123", data.ExternalCode)
	assert.Equal(t, "Kathrin Müller", data.GuestName)
	assert.True(t, data.StartDate.Equal(day(2025, 6, 1)))
	assert.True(t, data.EndDate.Equal(day(2025, 6, 5)))
	assert.Equal(t, 4, data.Nights)
	assert.Equal(t, "confirmed", data.Status)
}

func TestNormalizeSourceCasing(t *testing.T) {
	n := newNormalizer(t)

	tests := map[string]string{
		"booking.com": "Booking.com",
		"VRBO":        "VRBO",
		"vrbo":        "VRBO",
		"":            "Direct",
	}
	for raw, want := range tests {
		t.Run(raw, func(t *testing.T) {
			data, err := n.Normalize(1, normalize.Row{"property": "P", "source": raw, "code": "X1"})
			require.NoError(t, err)
			assert.Equal(t, want, data.Source)
		})
	}
}

func TestNormalizeNightsDerivation(t *testing.T) {
	n := newNormalizer(t)
	base := normalize.Row{
		"property":   "Seaview",
		"code":       "C-1",
		"start date": "2025-03-10",
		"end date":   "2025-03-14",
	}

	tests := []struct {
		name   string
		nights any
		want   int
	}{
		{"date shaped string", "1900-01-19T00:00:00", 4},
		{"date shaped time", time.Date(1900, 1, 19, 0, 0, 0, 0, time.UTC), 4},
		{"absent", nil, 4},
		{"non numeric", "four", 4},
		{"negative", -2, 4},
		{"fractional", 2.5, 4},
		{"integer", 3, 3},
		{"integral float", 6.0, 6},
		{"numeric string", "7", 7},
		{"float string", "2.0", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := normalize.Row{}
			for k, v := range base {
				row[k] = v
			}
			if tt.nights != nil {
				row["nights"] = tt.nights
			}
			data, err := n.Normalize(1, row)
			require.NoError(t, err)
			assert.Equal(t, tt.want, data.Nights)
		})
	}
}

func TestNormalizeNightsNeverNegative(t *testing.T) {
	n := newNormalizer(t)
	data, err := n.Normalize(1, normalize.Row{
		"property": "P", "code": "X", "start": "2025-03-14", "end": "2025-03-10",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, data.Nights)
}

func TestNormalizeDateShapes(t *testing.T) {
	n := newNormalizer(t)
	want := day(2025, 7, 4)

	tests := []struct {
		name  string
		value any
	}{
		{"iso date", "2025-07-04"},
		{"iso datetime", "2025-07-04T00:00:00"},
		{"space datetime", "2025-07-04 00:00:00"},
		{"us slash", "07/04/2025"},
		{"eu dots", "04.07.2025"},
		{"long month", "Jul 4, 2025"},
		{"time value", time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)},
		{"excel serial", 45842.0},
		{"excel serial string", "45842"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := n.Normalize(1, normalize.Row{"property": "P", "start date": tt.value})
			require.NoError(t, err)
			assert.True(t, data.StartDate.Equal(want), "got %v", data.StartDate)
			assert.Equal(t, time.UTC, data.StartDate.Location())
		})
	}
}

func TestNormalizeFractionalSerials(t *testing.T) {
	n := newNormalizer(t)

	tests := []struct {
		name  string
		value any
		want  time.Time
	}{
		{"half day", "45812.5", time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC)},
		{"afternoon", "45812.625", time.Date(2025, 6, 4, 15, 0, 0, 0, time.UTC)},
		{"full precision", "45812.541666666664", time.Date(2025, 6, 4, 13, 0, 0, 0, time.UTC)},
		{"float cell", 45812.625, time.Date(2025, 6, 4, 15, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := n.Normalize(1, normalize.Row{"property": "P", "code": "X", "check-in": tt.value})
			require.NoError(t, err)
			assert.True(t, data.StartDate.Equal(tt.want), "got %v", data.StartDate)
		})
	}

	_, err := n.Normalize(1, normalize.Row{"property": "P", "code": "X", "check-in": "9999999.5"})
	assert.True(t, errors.IsMalformedRow(err))
}

func TestNormalizeCanonicalZone(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	n := newNormalizer(t, normalize.WithLocation(berlin))

	data, err := n.Normalize(1, normalize.Row{
		"property":   "P",
		"start date": "2025-07-04",
		"end date":   "2025-07-06T10:00:00Z",
	})
	require.NoError(t, err)

	assert.Equal(t, berlin, data.StartDate.Location())
	assert.Equal(t, berlin, data.EndDate.Location())
	assert.Equal(t, 12, data.EndDate.Hour())
	assert.Equal(t, 2, data.Nights)
	assert.Equal(t, berlin, n.Location())
}

func TestNormalizeMalformedRows(t *testing.T) {
	n := newNormalizer(t)

	tests := []struct {
		name  string
		row   normalize.Row
		field string
	}{
		{
			name:  "missing property",
			row:   normalize.Row{"code": "X", "start date": "2025-01-01"},
			field: "property",
		},
		{
			name:  "missing start and code",
			row:   normalize.Row{"property": "P", "guest": "Someone"},
			field: "external_code",
		},
		{
			name:  "unparsable start date",
			row:   normalize.Row{"property": "P", "code": "X", "start date": "soon"},
			field: "start_date",
		},
		{
			name:  "unparsable end date",
			row:   normalize.Row{"property": "P", "code": "X", "end date": "later"},
			field: "end_date",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize(5, tt.row)
			require.Error(t, err)
			assert.True(t, errors.IsMalformedRow(err))

			var malformed *errors.MalformedRowError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, 5, malformed.Row)
			assert.Equal(t, tt.field, malformed.Field)
		})
	}
}

func TestNormalizeIdentityAlternatives(t *testing.T) {
	n := newNormalizer(t)

	_, err := n.Normalize(1, normalize.Row{"property": "P", "code": "ONLY-CODE"})
	assert.NoError(t, err)

	_, err = n.Normalize(2, normalize.Row{"property": "P", "start": "2025-01-01"})
	assert.NoError(t, err)
}

func TestNormalizeNumericCode(t *testing.T) {
	n := newNormalizer(t)
	data, err := n.Normalize(1, normalize.Row{"property": "P", "reservation id": 4815162342.0})
	require.NoError(t, err)
	assert.Equal(t, "4815162342", data.ExternalCode)
}

func TestNormalizeColumnName(t *testing.T) {
	assert.Equal(t, "check in", normalize.NormalizeColumnName(" Check-In: "))
	assert.Equal(t, "guest name", normalize.NormalizeColumnName("guest_name"))
	assert.Equal(t, "# of nights", normalize.NormalizeColumnName("#  of   Nights"))
}

func TestNewOptions(t *testing.T) {
	_, err := normalize.New(normalize.WithLocation(nil))
	assert.True(t, errors.IsValidationError(err))

	_, err = normalize.New(normalize.WithTimezone("Mars/Olympus"))
	assert.True(t, errors.IsValidationError(err))

	n, err := normalize.New(normalize.WithDefaultSource("owner"))
	require.NoError(t, err)
	data, err := n.Normalize(1, normalize.Row{"property": "P", "code": "1"})
	require.NoError(t, err)
	assert.Equal(t, "Owner", data.Source)
}

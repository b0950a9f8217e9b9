package matcher_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/bookingsync/pkg/bookings"
	"github.com/agentstation/bookingsync/pkg/errors"
	"github.com/agentstation/bookingsync/pkg/matcher"
	"github.com/agentstation/bookingsync/pkg/store/memory"
)

func TestMatch(t *testing.T) {
	s, err := memory.New()
	require.NoError(t, err)
	lake, err := s.AddProperty("Lakeside")
	require.NoError(t, err)
	sea, err := s.AddProperty("Seaview")
	require.NoError(t, err)

	s.Put(&bookings.Booking{PropertyID: lake.ID, Source: "Airbnb", ExternalCode: "HM1"})
	s.Put(&bookings.Booking{PropertyID: sea.ID, Source: "Airbnb", ExternalCode: "HM1"})
	s.Put(&bookings.Booking{PropertyID: lake.ID, Source: "VRBO", ExternalCode: "HM1"})

	m := matcher.New(s)
	ctx := context.Background()

	tests := []struct {
		name     string
		property *bookings.Property
		source   string
		code     string
		wantID   uint
	}{
		{"exact", lake, "Airbnb", "HM1", 1},
		{"source case-insensitive", lake, "AIRBNB", "HM1", 1},
		{"other property same code", sea, "Airbnb", "HM1", 2},
		{"other source same code", lake, "VRBO", "HM1", 3},
		{"code is case-sensitive", lake, "Airbnb", "hm1", 0},
		{"unknown code", lake, "Airbnb", "HM2", 0},
		{"no code never matches", lake, "Airbnb", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Match(ctx, tt.property, tt.source, tt.code)
			require.NoError(t, err)
			if tt.wantID == 0 {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestMatchAmbiguous(t *testing.T) {
	s, err := memory.New()
	require.NoError(t, err)
	lake, err := s.AddProperty("Lakeside")
	require.NoError(t, err)

	s.Put(&bookings.Booking{PropertyID: lake.ID, Source: "Airbnb", ExternalCode: "DUP"})
	s.Put(&bookings.Booking{PropertyID: lake.ID, Source: "airbnb", ExternalCode: "DUP"})

	got, err := matcher.New(s).Match(context.Background(), lake, "Airbnb", "DUP")
	assert.Nil(t, got)
	require.True(t, errors.IsAmbiguousMatch(err))

	var ambiguous *errors.AmbiguousMatchError
	require.ErrorAs(t, err, &ambiguous)
	assert.Equal(t, 2, ambiguous.Count)
	assert.Equal(t, "Lakeside", ambiguous.Property)
}

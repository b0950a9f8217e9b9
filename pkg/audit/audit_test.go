package audit_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/bookingsync/pkg/audit"
	"github.com/agentstation/bookingsync/pkg/logging"
)

func TestRecorder(t *testing.T) {
	r := audit.NewRecorder()
	ctx := context.Background()

	require.NoError(t, r.Emit(ctx, audit.Event{RowNumber: 1, Action: audit.ActionCreated}))
	require.NoError(t, r.Emit(ctx, audit.Event{RowNumber: 2, Action: audit.ActionQueuedForReview}))
	require.NoError(t, r.Emit(ctx, audit.Event{RowNumber: 3, Action: audit.ActionCreated}))

	events := r.Events()
	require.Len(t, events, 3)
	assert.Equal(t, 2, events[1].RowNumber)
	assert.Equal(t, 2, r.Count(audit.ActionCreated))
	assert.Equal(t, 0, r.Count(audit.ActionAutoApplied))

	events[0].RowNumber = 99
	assert.Equal(t, 1, r.Events()[0].RowNumber)
}

func TestLogSink(t *testing.T) {
	tl := logging.NewTestLogger(t)
	sink := audit.NewLogSink(tl.Logger)

	id := uint(42)
	err := sink.Emit(context.Background(), audit.Event{
		RunID:        "run-1",
		Actor:        "alice",
		RowNumber:    5,
		Action:       audit.ActionAutoApplied,
		BookingID:    &id,
		ConflictTags: []string{"status_change"},
		AutoResolved: true,
	})
	require.NoError(t, err)

	assert.True(t, tl.ContainsAll(
		`"audit_action":"auto_applied"`,
		`"booking_id":42`,
		`"actor":"alice"`,
		`"conflict_tags":["status_change"]`,
	))
}

func TestLogSinkUsesContextLogger(t *testing.T) {
	tl := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), tl.Logger)

	require.NoError(t, audit.NewLogSink(nil).Emit(ctx, audit.Event{Action: audit.ActionCreated}))
	assert.True(t, tl.Contains(`"audit_action":"created"`))
}

func TestMulti(t *testing.T) {
	first, second := audit.NewRecorder(), audit.NewRecorder()
	failing := audit.SinkFunc(func(context.Context, audit.Event) error { return fmt.Errorf("sink down") })

	sink := audit.Multi(first, failing, nil, second)
	err := sink.Emit(context.Background(), audit.Event{Action: audit.ActionCreated})

	assert.ErrorContains(t, err, "sink down")
	assert.Len(t, first.Events(), 1)
	assert.Len(t, second.Events(), 1)

	assert.NoError(t, audit.Multi(first).Emit(context.Background(), audit.Event{}))
	assert.NoError(t, audit.Nop.Emit(context.Background(), audit.Event{}))
}

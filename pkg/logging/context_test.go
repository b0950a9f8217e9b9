package logging_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/bookingsync/pkg/logging"
)

func TestContextFunctions(t *testing.T) {
	t.Run("FromContext falls back to default", func(t *testing.T) {
		assert.Equal(t, logging.Default(), logging.FromContext(context.Background()))
		//nolint:staticcheck // nil context is handled explicitly
		assert.Equal(t, logging.Default(), logging.FromContext(nil))
	})

	t.Run("WithRun stores run id and tags logger", func(t *testing.T) {
		tl := logging.NewTestLogger(t)
		ctx := logging.WithLogger(context.Background(), tl.Logger)
		ctx = logging.WithRun(ctx, "run-123")

		assert.Equal(t, "run-123", logging.RunID(ctx))
		logging.FromContext(ctx).Info().Msg("started")
		assert.True(t, tl.ContainsAll(`"run_id":"run-123"`, `"message":"started"`))
	})

	t.Run("RunID empty when unset", func(t *testing.T) {
		assert.Empty(t, logging.RunID(context.Background()))
	})

	t.Run("row booking and actor fields chain", func(t *testing.T) {
		tl := logging.NewTestLogger(t)
		ctx := logging.WithLogger(context.Background(), tl.Logger)
		ctx = logging.WithRow(ctx, 5)
		ctx = logging.WithBooking(ctx, 42)
		ctx = logging.WithActor(ctx, "ops@example.com")

		logging.Ctx(ctx).Warn().Msg("queued")
		require.Equal(t, 1, tl.Count())
		assert.True(t, tl.ContainsAll(`"row":5`, `"booking_id":42`, `"actor":"ops@example.com"`))
	})

	t.Run("WithFields adds every field", func(t *testing.T) {
		tl := logging.NewTestLogger(t)
		ctx := logging.WithLogger(context.Background(), tl.Logger)
		ctx = logging.WithFields(ctx, map[string]any{"source": "Airbnb", "auto": true})

		logging.FromContext(ctx).Info().Msg("x")
		assert.True(t, tl.ContainsAll(`"source":"Airbnb"`, `"auto":true`))
	})

	t.Run("WithError ignores nil", func(t *testing.T) {
		ctx := context.Background()
		assert.Equal(t, ctx, logging.WithError(ctx, nil))
	})
}

// internal/browser/cdp/context_utils_test.go
package cdp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombineContext(t *testing.T) {
	type ctxKey string
	const key ctxKey = "target"
	const value = "tab-1"

	t.Run("InheritsValuesFromSession", func(t *testing.T) {
		sessionCtx := context.WithValue(context.Background(), key, value)

		ctx, cancel := CombineContext(sessionCtx, context.Background())
		defer cancel()

		assert.Equal(t, value, ctx.Value(key))
		assert.NoError(t, ctx.Err())
	})

	t.Run("CancelledBySession", func(t *testing.T) {
		sessionCtx, cancelSession := context.WithCancel(context.Background())
		ctx, cancel := CombineContext(sessionCtx, context.Background())
		defer cancel()

		cancelSession()

		<-ctx.Done()
		assert.ErrorIs(t, ctx.Err(), context.Canceled)
	})

	t.Run("CancelledByOperation", func(t *testing.T) {
		opErr := errors.New("operator interrupt")
		opCtx, cancelOp := context.WithCancelCause(context.Background())
		ctx, cancel := CombineContext(context.Background(), opCtx)
		defer cancel()

		cancelOp(opErr)

		assert.Eventually(t, func() bool { return ctx.Err() != nil },
			time.Second, 5*time.Millisecond)
		assert.ErrorIs(t, context.Cause(ctx), opErr, "the operation's cause is preserved")
	})

	t.Run("OperationDeadlineIsVisible", func(t *testing.T) {
		deadline := time.Now().Add(50 * time.Millisecond)
		opCtx, cancelOp := context.WithDeadline(context.Background(), deadline)
		defer cancelOp()

		ctx, cancel := CombineContext(context.Background(), opCtx)
		defer cancel()

		got, ok := ctx.Deadline()
		require.True(t, ok)
		assert.True(t, got.Equal(deadline))

		<-ctx.Done()
		assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
	})

	t.Run("SessionDeadlineWinsWhenEarlier", func(t *testing.T) {
		sessionCtx, cancelSession := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancelSession()
		opCtx, cancelOp := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelOp()

		ctx, cancel := CombineContext(sessionCtx, opCtx)
		defer cancel()

		<-ctx.Done()
		assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
		assert.NoError(t, opCtx.Err())
	})

	t.Run("ExplicitCancellation", func(t *testing.T) {
		ctx, cancel := CombineContext(context.Background(), context.Background())
		cancel()
		assert.ErrorIs(t, ctx.Err(), context.Canceled)
	})
}

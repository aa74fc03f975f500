// internal/browser/cdp/context_utils.go
package cdp

import (
	"context"
	"errors"
)

// CombineContext derives a context from sessionCtx, which carries the chromedp
// target and browser values, that also ends when opCtx ends. The caller's
// deadline is copied over so chromedp sees it, and the cause of an early
// cancellation is preserved for context.Cause.
func CombineContext(sessionCtx, opCtx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancelCause := context.WithCancelCause(sessionCtx)

	cancelDeadline := func() {}
	dl, hasDeadline := opCtx.Deadline()
	if hasDeadline {
		ctx, cancelDeadline = context.WithDeadline(ctx, dl)
	}

	stop := context.AfterFunc(opCtx, func() {
		// An expired deadline is reported by the copied deadline itself, so
		// Err stays context.DeadlineExceeded.
		if hasDeadline && errors.Is(opCtx.Err(), context.DeadlineExceeded) {
			return
		}
		cancelCause(context.Cause(opCtx))
	})

	return ctx, func() {
		stop()
		cancelDeadline()
		cancelCause(context.Canceled)
	}
}

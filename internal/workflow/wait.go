package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xkilldash9x/courier-cli/internal/browser"
)

// ErrReadinessTimeout means the page never reported ready within the bound.
// Callers treat it as a soft failure.
var ErrReadinessTimeout = errors.New("page did not become ready in time")

// defaultPollInterval is used when no positive interval is configured.
const defaultPollInterval = 250 * time.Millisecond

// ReadyStateComplete is the document.readyState value that ends the wait.
const ReadyStateComplete = "complete"

// WaitReady polls the document ready state until it is complete or timeout
// elapses. Transient probe errors, common while a navigation is in flight,
// are retried. A lost session or a done context ends the wait immediately.
func WaitReady(ctx context.Context, sess browser.Session, clock Clock, timeout, interval time.Duration) error {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	deadline := clock.Now().Add(timeout)
	last := ""
	for {
		state, err := sess.ReadyState(ctx)
		switch {
		case err == nil && state == ReadyStateComplete:
			return nil
		case err == nil:
			last = state
		case browser.IsFatal(err):
			return err
		case ctx.Err() != nil:
			return ctx.Err()
		}

		remaining := deadline.Sub(clock.Now())
		if remaining <= 0 {
			if last == "" && err != nil {
				return fmt.Errorf("%w after %s: %v", ErrReadinessTimeout, timeout, err)
			}
			return fmt.Errorf("%w after %s (last state %q)", ErrReadinessTimeout, timeout, last)
		}
		if err := clock.Sleep(ctx, min(interval, remaining)); err != nil {
			return err
		}
	}
}

// ScrollToSettle scrolls to the bottom of the page until the scroll height
// stops growing between two consecutive rounds or maxRounds scrolls have been
// made. It returns the number of scrolls made.
func ScrollToSettle(ctx context.Context, sess browser.Session, clock Clock, maxRounds int, pause time.Duration) (int, error) {
	last, err := sess.ScrollHeight(ctx)
	if err != nil {
		return 0, err
	}
	rounds := 0
	for rounds < maxRounds {
		if err := sess.ScrollToBottom(ctx); err != nil {
			return rounds, err
		}
		rounds++
		if err := clock.Sleep(ctx, pause); err != nil {
			return rounds, err
		}
		height, err := sess.ScrollHeight(ctx)
		if err != nil {
			return rounds, err
		}
		if height == last {
			break
		}
		last = height
	}
	return rounds, nil
}

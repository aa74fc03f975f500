package workflow

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/config"
)

// fakeClock advances only when slept on and records every pause.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) slept(d time.Duration) int {
	n := 0
	for _, s := range c.sleeps {
		if s == d {
			n++
		}
	}
	return n
}

// mockOpener is a mock implementation of Opener.
type mockOpener struct {
	mock.Mock
}

func (m *mockOpener) Open(ctx context.Context) (browser.Session, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(browser.Session), args.Error(1)
}

// Every delay is distinct so a recorded pause identifies its step.
const (
	scrollPause        = 600 * time.Millisecond
	triggerSearchDelay = 3 * time.Second
	focusDelay         = 800 * time.Millisecond
	buttonWaitDelay    = 7 * time.Second
	typeSettleDelay    = time.Second
	interMessageDelay  = 10 * time.Second
)

func testConfig() config.WorkflowConfig {
	return config.WorkflowConfig{
		ButtonKeywords:     []string{"Send"},
		InputHints:         []string{"message"},
		Messages:           []string{"hi"},
		InterMessageDelay:  interMessageDelay,
		ButtonWaitDelay:    buttonWaitDelay,
		PageLoadTimeout:    25 * time.Second,
		ScrollMaxRounds:    5,
		ScrollPause:        scrollPause,
		TriggerSearchDelay: triggerSearchDelay,
		FocusDelay:         focusDelay,
		TypeSettleDelay:    typeSettleDelay,
		ReadyPollInterval:  250 * time.Millisecond,
		ActionTimeout:      15 * time.Second,
	}
}

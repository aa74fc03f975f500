package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/browser/browsertest"
	"github.com/xkilldash9x/courier-cli/internal/config"
)

func newTestRunner(t *testing.T, opener Opener, cfg config.WorkflowConfig, clock Clock) *Runner {
	return NewRunner(opener, cfg, zaptest.NewLogger(t), WithClock(clock))
}

func TestRunSequentialLinks(t *testing.T) {
	a, b := "https://a.test", "https://b.test"
	sess := browsertest.NewSession(map[string]*browsertest.Page{a: shopPage("a"), b: shopPage("b")})
	opener := new(mockOpener)
	opener.On("Open", mock.Anything).Return(sess, nil).Once()
	clock := newFakeClock()

	reports, err := newTestRunner(t, opener, testConfig(), clock).Run(context.Background(), []string{a, b})
	require.NoError(t, err)
	opener.AssertExpectations(t)

	require.Len(t, reports, 2)
	for i, want := range []string{a, b} {
		r := reports[i]
		assert.Equal(t, want, r.URL)
		assert.Equal(t, StateDone, r.State)
		assert.LessOrEqual(t, r.ScrollRounds, 5)
		assert.True(t, r.Clicked)
		assert.Equal(t, 1, r.MessagesSent)
	}
	assert.NotEqual(t, reports[0].RunID, reports[1].RunID)

	var clicks, submits []string
	for _, e := range sess.Journal {
		switch e {
		case "click <a-cta>", "click <b-cta>":
			clicks = append(clicks, e)
		case "submit <a-input>", "submit <b-input>":
			submits = append(submits, e)
		}
	}
	assert.Equal(t, []string{"click <a-cta>", "click <b-cta>"}, clicks, "one click attempt per link, in input order")
	assert.Equal(t, []string{"submit <a-input>", "submit <b-input>"}, submits)
	assert.Zero(t, clock.slept(interMessageDelay))
	assert.Equal(t, 1, sess.Closed)
}

func TestRunSkipsMessagingWithoutInput(t *testing.T) {
	a, b := "https://a.test", "https://b.test"
	sess := browsertest.NewSession(map[string]*browsertest.Page{
		a: {Top: &browsertest.Document{Triggers: []*browsertest.Element{{Name: "cta", Content: "send"}}}},
		b: shopPage("b"),
	})
	opener := new(mockOpener)
	opener.On("Open", mock.Anything).Return(sess, nil)

	reports, err := newTestRunner(t, opener, testConfig(), newFakeClock()).Run(context.Background(), []string{a, b})
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, StateDone, reports[0].State)
	assert.False(t, reports[0].InputFound)
	assert.Zero(t, reports[0].MessagesSent)

	assert.Equal(t, StateDone, reports[1].State)
	assert.Equal(t, 1, reports[1].MessagesSent)
	assert.Contains(t, sess.Journal, "submit <b-input>")
}

func TestRunDuplicatesAreProcessedIndependently(t *testing.T) {
	sess := browsertest.NewSession(map[string]*browsertest.Page{url: shopPage("a")})
	opener := new(mockOpener)
	opener.On("Open", mock.Anything).Return(sess, nil)

	reports, err := newTestRunner(t, opener, testConfig(), newFakeClock()).Run(context.Background(), []string{url, url})
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, 1, reports[1].MessagesSent)
}

func TestRunEmptyLinks(t *testing.T) {
	opener := new(mockOpener)

	reports, err := newTestRunner(t, opener, testConfig(), newFakeClock()).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, reports)
	opener.AssertNotCalled(t, "Open", mock.Anything)
}

func TestRunOpenerFailure(t *testing.T) {
	opener := new(mockOpener)
	opener.On("Open", mock.Anything).Return(nil, errors.New("chrome not found"))

	reports, err := newTestRunner(t, opener, testConfig(), newFakeClock()).Run(context.Background(), []string{url})
	assert.ErrorContains(t, err, "failed to acquire browser session: chrome not found")
	assert.Empty(t, reports)
}

func TestRunAbortsOnLostSession(t *testing.T) {
	a, b := "https://a.test", "https://b.test"
	page := shopPage("a")
	page.Top.Triggers[1].ActionErr = browser.ErrSessionLost
	sess := browsertest.NewSession(map[string]*browsertest.Page{a: page, b: shopPage("b")})

	reports, err := newTestRunner(t, OpenerFunc(func(context.Context) (browser.Session, error) {
		return sess, nil
	}), testConfig(), newFakeClock()).Run(context.Background(), []string{a, b})

	assert.True(t, browser.IsFatal(err))
	require.Len(t, reports, 1)
	assert.NotContains(t, sess.Journal, "open "+b)
	assert.Equal(t, 1, sess.Closed, "the session is released on the way out")
}

func TestRunCancelled(t *testing.T) {
	sess := browsertest.NewSession(nil)
	opener := new(mockOpener)
	opener.On("Open", mock.Anything).Return(sess, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestRunner(t, opener, testConfig(), newFakeClock()).Run(ctx, []string{url, url})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sess.Closed)
}

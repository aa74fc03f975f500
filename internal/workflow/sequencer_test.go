package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/browser/browsertest"
	"github.com/xkilldash9x/courier-cli/internal/config"
)

// shopPage has a trigger and a message box on the top-level document.
func shopPage(prefix string) *browsertest.Page {
	return &browsertest.Page{Top: &browsertest.Document{
		Triggers: []*browsertest.Element{
			{Name: prefix + "-home", Content: "Home"},
			{Name: prefix + "-cta", Content: "Send us a note"},
		},
		TextFields: []*browsertest.Element{
			{Name: prefix + "-input", Attrs: map[string]string{"placeholder": "Your message"}},
		},
	}}
}

func newTestSequencer(t *testing.T, sess browser.Session, cfg config.WorkflowConfig, clock Clock) *Sequencer {
	return NewSequencer(sess, cfg, zaptest.NewLogger(t), WithClock(clock))
}

func TestProcessFullSequence(t *testing.T) {
	sess := openPage(t, shopPage("a"))
	clock := newFakeClock()

	report, err := newTestSequencer(t, sess, testConfig(), clock).Process(context.Background(), url)
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, url, report.URL)
	assert.Equal(t, StateDone, report.State)
	assert.False(t, report.OpenFailed)
	assert.False(t, report.ReadyTimedOut)
	assert.Equal(t, 1, report.ScrollRounds)
	assert.Equal(t, "send us a note", report.TriggerLabel)
	assert.True(t, report.Clicked)
	assert.True(t, report.InputFound)
	assert.Equal(t, "top-level", report.InputScope)
	assert.Equal(t, 1, report.MessagesSent)
	assert.Zero(t, report.MessagesFailed)

	assert.Equal(t, []string{
		"open " + url,
		"open " + url,
		"scroll",
		"scroll-into-view <a-cta>",
		"click <a-cta>",
		"scroll-into-view <a-input>",
		"click <a-input>",
		"scroll-into-view <a-input>",
		"clear <a-input>",
		"type hi into <a-input>",
		"submit <a-input>",
	}, sess.Journal)
	assert.Equal(t, []time.Duration{
		scrollPause, triggerSearchDelay, focusDelay, buttonWaitDelay, focusDelay, typeSettleDelay,
	}, clock.sleeps, "a single message has no inter-message pause")
}

func TestProcessMessagePacing(t *testing.T) {
	cfg := testConfig()
	cfg.Messages = []string{"你好", "我想要了解一下", "谢谢"}
	page := shopPage("a")
	input := page.Top.TextFields[0]
	sess := openPage(t, page)
	clock := newFakeClock()

	report, err := newTestSequencer(t, sess, cfg, clock).Process(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, 3, report.MessagesSent)
	assert.Equal(t, 2, clock.slept(interMessageDelay))
	assert.Equal(t, 3, clock.slept(typeSettleDelay))
	assert.Equal(t, "谢谢", input.Value, "the field is cleared before every message")
	assert.Equal(t, interMessageDelay, clock.sleeps[len(clock.sleeps)-2])
	assert.Equal(t, typeSettleDelay, clock.sleeps[len(clock.sleeps)-1], "no trailing pause after the last message")
}

func TestProcessSoftFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("Failed sends are counted and the loop continues", func(t *testing.T) {
		cfg := testConfig()
		cfg.Messages = []string{"one", "two"}
		page := shopPage("a")
		page.Top.TextFields[0].ActionErr = errors.New("element not interactable")
		sess := openPage(t, page)
		clock := newFakeClock()

		report, err := newTestSequencer(t, sess, cfg, clock).Process(ctx, url)
		require.NoError(t, err)
		assert.Equal(t, StateDone, report.State)
		assert.Zero(t, report.MessagesSent)
		assert.Equal(t, 2, report.MessagesFailed)
		assert.Equal(t, 1, clock.slept(interMessageDelay))
	})

	t.Run("Click failure is tolerated", func(t *testing.T) {
		page := shopPage("a")
		page.Top.Triggers[1].ActionErr = errors.New("not clickable")
		sess := openPage(t, page)

		report, err := newTestSequencer(t, sess, testConfig(), newFakeClock()).Process(ctx, url)
		require.NoError(t, err)
		assert.Equal(t, "send us a note", report.TriggerLabel)
		assert.False(t, report.Clicked)
		assert.Equal(t, 1, report.MessagesSent)
	})

	t.Run("Navigation error and readiness timeout", func(t *testing.T) {
		page := shopPage("a")
		page.OpenErr = errors.New("net::ERR_CONNECTION_RESET")
		page.ReadyStates = []string{"loading"}
		sess := browsertest.NewSession(map[string]*browsertest.Page{url: page})
		cfg := testConfig()
		cfg.PageLoadTimeout = time.Second

		report, err := newTestSequencer(t, sess, cfg, newFakeClock()).Process(ctx, url)
		require.NoError(t, err)
		assert.True(t, report.OpenFailed)
		assert.True(t, report.ReadyTimedOut)
		assert.Equal(t, StateDone, report.State)
		assert.Equal(t, 1, report.MessagesSent)
	})

	t.Run("No trigger and no input", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		sess := openPage(t, &browsertest.Page{Top: &browsertest.Document{
			Triggers: []*browsertest.Element{{Content: "Home"}},
		}})
		seq := NewSequencer(sess, testConfig(), zap.New(core), WithClock(newFakeClock()))

		report, err := seq.Process(ctx, url)
		require.NoError(t, err)
		assert.Equal(t, StateDone, report.State)
		assert.False(t, report.Clicked)
		assert.False(t, report.InputFound)
		assert.Zero(t, report.MessagesSent)
		assert.Equal(t, 1, logs.FilterMessage("No control matched the trigger keywords, skipping the click.").Len())
		assert.Equal(t, 1, logs.FilterMessage("No usable input surface found, skipping messaging.").Len())
	})
}

func TestProcessScrollStabilises(t *testing.T) {
	page := shopPage("a")
	page.Heights = []int64{100, 150, 150}
	sess := openPage(t, page)

	report, err := newTestSequencer(t, sess, testConfig(), newFakeClock()).Process(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, 2, report.ScrollRounds)
	assert.Equal(t, 2, countScrolls(sess.Journal))
}

func TestProcessInputInSubDocument(t *testing.T) {
	chat := &browsertest.Element{Name: "chat", Attrs: map[string]string{"aria-label": "Type your message"}}
	sess := openPage(t, &browsertest.Page{
		Top:    &browsertest.Document{Triggers: []*browsertest.Element{{Name: "cta", Content: "send"}}},
		Frames: []*browsertest.Document{nil, {Editables: []*browsertest.Element{chat}}},
	})

	report, err := newTestSequencer(t, sess, testConfig(), newFakeClock()).Process(context.Background(), url)
	require.NoError(t, err)
	assert.True(t, report.InputFound)
	assert.Equal(t, "sub-document #2", report.InputScope)
	assert.Equal(t, "hi", chat.Value)
}

func TestProcessWithoutMessages(t *testing.T) {
	cfg := testConfig()
	cfg.Messages = nil
	sess := openPage(t, &browsertest.Page{
		Top:    shopPage("a").Top,
		Frames: []*browsertest.Document{{}},
	})
	clock := newFakeClock()

	report, err := newTestSequencer(t, sess, cfg, clock).Process(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, StateDone, report.State)
	assert.True(t, report.Clicked)
	assert.False(t, report.InputFound)
	assert.Equal(t, 1, clock.slept(buttonWaitDelay))
	assert.NotContains(t, sess.Journal, "enter sub-document #1", "the input search is not attempted")
}

func TestProcessLostSession(t *testing.T) {
	page := shopPage("a")
	page.Top.Triggers[1].ActionErr = browser.ErrSessionLost
	sess := openPage(t, page)

	report, err := newTestSequencer(t, sess, testConfig(), newFakeClock()).Process(context.Background(), url)
	assert.True(t, browser.IsFatal(err))
	assert.Equal(t, StateScrolled, report.State)
	assert.Zero(t, report.MessagesSent)
}

func TestProcessCancelled(t *testing.T) {
	sess := openPage(t, shopPage("a"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newTestSequencer(t, sess, testConfig(), newFakeClock()).Process(ctx, url)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateOpening, report.State)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "opening", StateOpening.String())
	assert.Equal(t, "messaging", StateMessaging.String())
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "state(42)", State(42).String())
}

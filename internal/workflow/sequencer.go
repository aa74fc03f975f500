// Package workflow drives one browser session through the per-link sequence:
// open, wait for readiness, scroll, click the trigger control, then find the
// message input and send the configured messages.
//
// Every step degrades gracefully. Only a lost browser session or a cancelled
// context ends a link early, and both end the whole run.
package workflow

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/config"
	"github.com/xkilldash9x/courier-cli/internal/hints"
	"github.com/xkilldash9x/courier-cli/internal/locate"
)

// Option customises a Sequencer or a Runner.
type Option func(*Sequencer)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c Clock) Option {
	return func(s *Sequencer) { s.clock = c }
}

// Sequencer runs the per-link sequence against one session. It is not safe
// for concurrent use.
type Sequencer struct {
	sess    browser.Session
	cfg     config.WorkflowConfig
	buttons hints.Keywords
	inputs  hints.Keywords
	locator *locate.Locator
	clock   Clock
	logger  *zap.Logger
}

// NewSequencer builds a Sequencer from the workflow configuration. Keywords
// are normalised once here.
func NewSequencer(sess browser.Session, cfg config.WorkflowConfig, logger *zap.Logger, opts ...Option) *Sequencer {
	s := &Sequencer{
		sess:    sess,
		cfg:     cfg,
		buttons: hints.NewKeywords(cfg.ButtonKeywords...),
		inputs:  hints.NewKeywords(cfg.InputHints...),
		locator: locate.New(logger),
		clock:   RealClock(),
		logger:  logger.Named("workflow"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// escalate returns the error that must end the run, or nil when err is a
// soft failure the sequence recovers from.
func escalate(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if browser.IsFatal(err) {
		return err
	}
	return ctx.Err()
}

// bounded runs one element interaction under the action timeout.
func (s *Sequencer) bounded(ctx context.Context, fn func(context.Context) error) error {
	if s.cfg.ActionTimeout <= 0 {
		return fn(ctx)
	}
	actx, cancel := context.WithTimeout(ctx, s.cfg.ActionTimeout)
	defer cancel()
	return fn(actx)
}

// Process runs the full sequence for url. The report is returned even when
// the error is non-nil; the error is always a lost session or ctx.Err().
func (s *Sequencer) Process(ctx context.Context, url string) (LinkReport, error) {
	return s.process(ctx, url, s.logger)
}

func (s *Sequencer) process(ctx context.Context, url string, logger *zap.Logger) (LinkReport, error) {
	report := LinkReport{RunID: uuid.NewString(), URL: url, State: StateOpening}
	log := logger.With(zap.String("run_id", report.RunID), zap.String("url", url))

	// Opening -> Ready
	log.Info("Opening page.")
	if err := s.open(ctx, url); err != nil {
		if fatal := escalate(ctx, err); fatal != nil {
			return report, fatal
		}
		report.OpenFailed = true
		log.Warn("Navigation did not complete cleanly, continuing.", zap.Error(err))
	}
	if err := WaitReady(ctx, s.sess, s.clock, s.cfg.PageLoadTimeout, s.cfg.ReadyPollInterval); err != nil {
		if !errors.Is(err, ErrReadinessTimeout) {
			return report, err
		}
		report.ReadyTimedOut = true
		log.Warn("Page did not report ready in time, continuing anyway.", zap.Error(err))
	}
	report.State = StateReady

	// Ready -> Scrolled
	rounds, err := ScrollToSettle(ctx, s.sess, s.clock, s.cfg.ScrollMaxRounds, s.cfg.ScrollPause)
	report.ScrollRounds = rounds
	if err != nil {
		if fatal := escalate(ctx, err); fatal != nil {
			return report, fatal
		}
		log.Warn("Scrolling failed, continuing.", zap.Error(err))
	}
	log.Info("Page scrolled.", zap.Int("rounds", rounds))
	report.State = StateScrolled

	// Scrolled -> Clicked
	if err := s.clickTrigger(ctx, &report, log); err != nil {
		return report, err
	}
	report.State = StateClicked
	if err := s.clock.Sleep(ctx, s.cfg.ButtonWaitDelay); err != nil {
		return report, err
	}

	// Clicked -> Messaging
	if len(s.cfg.Messages) == 0 {
		log.Info("No messages configured, skipping messaging.")
		report.State = StateDone
		return report, nil
	}
	match, err := s.locator.LocateAcrossScopes(ctx, s.sess, s.inputs)
	if err != nil {
		return report, err
	}
	if !match.Found() {
		log.Warn("No usable input surface found, skipping messaging.")
		report.State = StateDone
		return report, nil
	}
	report.InputFound = true
	report.InputScope = match.Scope.String()
	report.State = StateMessaging
	log.Info("Input surface found.", zap.String("element", match.Element.Describe()), zap.Stringer("scope", match.Scope))

	// Messaging -> Done
	if err := s.focus(ctx, match.Element, log); err != nil {
		return report, err
	}
	if err := s.sendMessages(ctx, match.Element, &report, log); err != nil {
		return report, err
	}
	report.State = StateDone
	log.Info("Link finished.", zap.Int("sent", report.MessagesSent), zap.Int("failed", report.MessagesFailed))
	return report, nil
}

// open navigates under the page load timeout.
func (s *Sequencer) open(ctx context.Context, url string) error {
	if s.cfg.PageLoadTimeout <= 0 {
		return s.sess.Open(ctx, url)
	}
	octx, cancel := context.WithTimeout(ctx, s.cfg.PageLoadTimeout)
	defer cancel()
	return s.sess.Open(octx, url)
}

// clickTrigger finds the trigger control on the top-level document and clicks
// it. Not finding one, or failing to click it, is narrated and tolerated.
func (s *Sequencer) clickTrigger(ctx context.Context, report *LinkReport, log *zap.Logger) error {
	if err := s.clock.Sleep(ctx, s.cfg.TriggerSearchDelay); err != nil {
		return err
	}
	log.Info("Searching for a trigger control.")
	if err := s.sess.ResetScope(ctx); err != nil {
		if fatal := escalate(ctx, err); fatal != nil {
			return fatal
		}
		log.Warn("Could not return to the top-level document.", zap.Error(err))
	}
	el, err := s.locator.FindTriggerControl(ctx, s.sess, s.buttons)
	if err != nil {
		return err
	}
	if el == nil {
		log.Warn("No control matched the trigger keywords, skipping the click.")
		return nil
	}
	label, _ := locate.Label(ctx, el).Get()
	report.TriggerLabel = label
	log.Info("Trigger control found.", zap.String("label", label), zap.String("element", el.Describe()))

	if err := s.bounded(ctx, el.ScrollIntoView); err != nil {
		if fatal := escalate(ctx, err); fatal != nil {
			return fatal
		}
		log.Debug("Could not scroll the trigger control into view.", zap.Error(err))
	}
	if err := s.clock.Sleep(ctx, s.cfg.FocusDelay); err != nil {
		return err
	}
	if err := s.bounded(ctx, el.Click); err != nil {
		if fatal := escalate(ctx, err); fatal != nil {
			return fatal
		}
		log.Warn("Clicking the trigger control failed.", zap.Error(err))
		return nil
	}
	report.Clicked = true
	log.Info("Trigger control clicked, waiting for the page to respond.", zap.Duration("wait", s.cfg.ButtonWaitDelay))
	return nil
}

// focus brings the input into view and clicks it. Failures are ignored.
func (s *Sequencer) focus(ctx context.Context, el browser.Element, log *zap.Logger) error {
	if err := s.bounded(ctx, el.ScrollIntoView); err != nil {
		if fatal := escalate(ctx, err); fatal != nil {
			return fatal
		}
	}
	if err := s.clock.Sleep(ctx, s.cfg.FocusDelay); err != nil {
		return err
	}
	if err := s.bounded(ctx, el.Click); err != nil {
		if fatal := escalate(ctx, err); fatal != nil {
			return fatal
		}
		log.Debug("Could not focus the input surface.", zap.Error(err))
	}
	return nil
}

func (s *Sequencer) sendMessages(ctx context.Context, el browser.Element, report *LinkReport, log *zap.Logger) error {
	last := len(s.cfg.Messages) - 1
	for i, msg := range s.cfg.Messages {
		mlog := log.With(zap.Int("message", i+1), zap.Int("of", last+1))
		mlog.Info("Sending message.", zap.String("text", msg))
		if err := s.send(ctx, el, msg); err != nil {
			if fatal := escalate(ctx, err); fatal != nil {
				return fatal
			}
			report.MessagesFailed++
			mlog.Warn("Sending message failed.", zap.Error(err))
		} else {
			report.MessagesSent++
			mlog.Info("Message sent.")
		}
		if i < last {
			if err := s.clock.Sleep(ctx, s.cfg.InterMessageDelay); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Sequencer) send(ctx context.Context, el browser.Element, msg string) error {
	if err := s.bounded(ctx, el.ScrollIntoView); err != nil {
		return err
	}
	if err := s.bounded(ctx, el.Clear); err != nil {
		return err
	}
	if err := s.bounded(ctx, func(ctx context.Context) error { return el.Type(ctx, msg) }); err != nil {
		return err
	}
	if err := s.clock.Sleep(ctx, s.cfg.TypeSettleDelay); err != nil {
		return err
	}
	return s.bounded(ctx, el.Submit)
}

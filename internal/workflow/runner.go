package workflow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/config"
)

// closeTimeout bounds session shutdown, which runs even after the run
// context is cancelled.
const closeTimeout = 10 * time.Second

// Opener acquires the browser session for a run.
type Opener interface {
	Open(ctx context.Context) (browser.Session, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context) (browser.Session, error)

func (f OpenerFunc) Open(ctx context.Context) (browser.Session, error) { return f(ctx) }

// Runner processes a link list with one session, strictly in order.
type Runner struct {
	opener Opener
	cfg    config.WorkflowConfig
	logger *zap.Logger
	opts   []Option
}

// NewRunner returns a Runner. opts are applied to the Sequencer it builds.
func NewRunner(opener Opener, cfg config.WorkflowConfig, logger *zap.Logger, opts ...Option) *Runner {
	return &Runner{opener: opener, cfg: cfg, logger: logger, opts: opts}
}

// Run processes links one after another. An empty list finishes without
// acquiring a session. The session is closed on every exit path. The only
// errors are a failure to acquire the session, a lost session, and ctx.Err();
// reports cover every link attempted up to that point.
func (r *Runner) Run(ctx context.Context, links []string) (reports []LinkReport, err error) {
	if len(links) == 0 {
		r.logger.Warn("No links to process.")
		return nil, nil
	}

	sess, err := r.opener.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire browser session: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		if cErr := sess.Close(closeCtx); cErr != nil {
			r.logger.Warn("Failed to close browser session.", zap.Error(cErr))
		}
	}()

	seq := NewSequencer(sess, r.cfg, r.logger, r.opts...)
	for i, url := range links {
		log := seq.logger.With(zap.String("link", fmt.Sprintf("%d/%d", i+1, len(links))))
		log.Info("Processing link.", zap.String("url", url))

		report, pErr := seq.process(ctx, url, log)
		reports = append(reports, report)
		if pErr != nil {
			log.Error("Run aborted.", zap.Stringer("state", report.State), zap.Error(pErr))
			return reports, pErr
		}
	}
	return reports, nil
}

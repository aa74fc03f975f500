// internal/browser/cdp/session.go
package cdp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	cdptypes "github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/browser/stealth"
	"github.com/xkilldash9x/courier-cli/internal/config"
)

// Session drives a single Chrome tab over the DevTools protocol.
type Session struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	// ctx is the chromedp tab context. It lives until Close.
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc

	scope browser.Scope
	// frame is the <iframe> node of the current sub-document scope.
	frame *cdptypes.Node

	closeOnce sync.Once
}

var _ browser.Session = (*Session)(nil)

// New launches a browser and opens a tab. The browser outlives ctx; only
// Close shuts it down. ctx bounds the launch itself.
func New(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	log := logger.Named("cdp")

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), DefaultAllocatorOptions(cfg)...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(log.Sugar().Debugf),
		chromedp.WithErrorf(log.Sugar().Debugf),
	)

	s := &Session{
		logger:      log,
		cfg:         cfg,
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		scope:       browser.TopLevel,
	}

	var setup chromedp.Tasks
	if cfg.Stealth {
		setup = append(setup, stealth.Apply(stealth.PersonaFor(cfg), log))
	}
	if err := s.launch(ctx, setup); err != nil {
		_ = s.Close(context.Background())
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	log.Info("Browser launched.", zap.Bool("headless", cfg.Headless), zap.Bool("stealth", cfg.Stealth))
	return s, nil
}

// launch runs the first actions on the tab context. The first Run allocates
// the browser, and chromedp ties the browser to the context of that call, so
// it has to be the long-lived tab context rather than a derived one.
func (s *Session) launch(ctx context.Context, setup chromedp.Tasks) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(s.ctx, setup) }()

	var timeout <-chan time.Time
	if s.cfg.LaunchTimeout > 0 {
		t := time.NewTimer(s.cfg.LaunchTimeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case err := <-done:
		return err
	case <-timeout:
		s.cancelTab()
		<-done
		return fmt.Errorf("browser did not start within %s", s.cfg.LaunchTimeout)
	case <-ctx.Done():
		s.cancelTab()
		<-done
		return ctx.Err()
	}
}

// run executes actions on the tab, bounded by ctx, and classifies failures.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	opCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	return s.classify(ctx, chromedp.Run(opCtx, actions...))
}

func (s *Session) classify(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case browser.LooksFatal(s.ctx, err):
		return fmt.Errorf("%w: %v", browser.ErrSessionLost, err)
	case ctx.Err() != nil:
		return ctx.Err()
	case browser.LooksStale(err):
		return fmt.Errorf("%w: %v", browser.ErrStaleElement, err)
	default:
		return err
	}
}

func (s *Session) Open(ctx context.Context, url string) error {
	s.scope, s.frame = browser.TopLevel, nil
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	return nil
}

func (s *Session) ReadyState(ctx context.Context) (string, error) {
	var state string
	if err := s.run(ctx, chromedp.Evaluate(browser.ReadyStateJS, &state)); err != nil {
		return "", err
	}
	return state, nil
}

func (s *Session) ScrollToBottom(ctx context.Context) error {
	return s.run(ctx, chromedp.Evaluate(browser.ScrollToBottomJS, nil))
}

func (s *Session) ScrollHeight(ctx context.Context) (int64, error) {
	var h float64
	if err := s.run(ctx, chromedp.Evaluate(browser.ScrollHeightJS, &h)); err != nil {
		return 0, err
	}
	return int64(h), nil
}

// queryAll runs a non-waiting querySelectorAll, optionally rooted at a node.
func (s *Session) queryAll(ctx context.Context, selector string, root *cdptypes.Node) ([]*cdptypes.Node, error) {
	var nodes []*cdptypes.Node
	opts := []chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}
	if root != nil {
		opts = append(opts, chromedp.FromNode(root))
	}
	if err := s.run(ctx, chromedp.Nodes(selector, &nodes, opts...)); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (s *Session) Elements(ctx context.Context, shape browser.Shape) ([]browser.Element, error) {
	root := s.frame
	if root != nil && root.ContentDocument != nil {
		root = root.ContentDocument
	}
	nodes, err := s.queryAll(ctx, shape.CSS(), root)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate %s elements in %s: %w", shape, s.scope, err)
	}
	out := make([]browser.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &Element{s: s, node: n})
	}
	return out, nil
}

func (s *Session) SubDocuments(ctx context.Context) (int, error) {
	nodes, err := s.queryAll(ctx, browser.SubDocumentSelector, nil)
	if err != nil {
		return 0, err
	}
	return len(nodes), nil
}

func (s *Session) EnterScope(ctx context.Context, scope browser.Scope) error {
	if scope.IsTopLevel() {
		return s.ResetScope(ctx)
	}
	if !s.scope.IsTopLevel() {
		return fmt.Errorf("%w: %s entered from %s, nested scopes are not supported", browser.ErrScopeEntry, scope, s.scope)
	}
	frames, err := s.queryAll(ctx, browser.SubDocumentSelector, nil)
	if err != nil {
		if browser.IsFatal(err) {
			return err
		}
		return fmt.Errorf("%w: %s: %v", browser.ErrScopeEntry, scope, err)
	}
	if scope.Index() >= len(frames) {
		return fmt.Errorf("%w: %s does not exist (page has %d)", browser.ErrScopeEntry, scope, len(frames))
	}
	s.frame = frames[scope.Index()]
	s.scope = scope
	return nil
}

func (s *Session) ResetScope(context.Context) error {
	s.scope, s.frame = browser.TopLevel, nil
	return nil
}

func (s *Session) CurrentScope() browser.Scope { return s.scope }

// Close shuts the tab and the browser process down. It is idempotent.
func (s *Session) Close(context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		// chromedp.Cancel closes the browser gracefully before cancelling.
		if cErr := chromedp.Cancel(s.ctx); cErr != nil && !errors.Is(cErr, context.Canceled) {
			err = fmt.Errorf("failed to close browser: %w", cErr)
		}
		s.cancelTab()
		s.cancelAlloc()
		s.logger.Debug("Browser closed.")
	})
	return err
}

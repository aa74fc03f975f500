// Package rodriver implements the browser contract on top of go-rod.
package rodriver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/browser/stealth"
	"github.com/xkilldash9x/courier-cli/internal/config"
)

// Session drives one tab of a rod-launched browser.
type Session struct {
	logger   *zap.Logger
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page

	// doc is the page enumerations run against: the tab itself at top
	// level, or the frame of the entered sub-document.
	doc   *rod.Page
	scope browser.Scope

	closeOnce sync.Once
}

var _ browser.Session = (*Session)(nil)

// NewLauncher configures a launcher from cfg without starting anything.
func NewLauncher(cfg config.BrowserConfig) *launcher.Launcher {
	l := launcher.New().Headless(cfg.Headless)
	if cfg.ExecPath != "" {
		l = l.Bin(cfg.ExecPath)
	}
	if cfg.Stealth {
		l = l.Delete("enable-automation")
	}
	for _, f := range browser.LaunchFlags(cfg) {
		switch v := f.Value.(type) {
		case bool:
			if v {
				l = l.Set(flags.Flag(f.Name))
			} else {
				l = l.Delete(flags.Flag(f.Name))
			}
		case string:
			l = l.Set(flags.Flag(f.Name), v)
		default:
			l = l.Set(flags.Flag(f.Name), fmt.Sprint(v))
		}
	}
	return l
}

// New launches a browser and opens a blank tab. The browser outlives ctx.
func New(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	log := logger.Named("rod")
	l := NewLauncher(cfg)

	controlURL, err := launchWithin(ctx, l, cfg.LaunchTimeout)
	if err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	s := &Session{logger: log, launcher: l, browser: b, scope: browser.TopLevel}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = s.Close(context.Background())
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}
	s.page, s.doc = page, page

	if cfg.Stealth {
		if err := applyPersona(page, stealth.PersonaFor(cfg)); err != nil {
			_ = s.Close(context.Background())
			return nil, err
		}
	}

	log.Info("Browser launched.", zap.Bool("headless", cfg.Headless), zap.Bool("stealth", cfg.Stealth))
	return s, nil
}

func launchWithin(ctx context.Context, l *launcher.Launcher, timeout time.Duration) (string, error) {
	type result struct {
		url string
		err error
	}
	done := make(chan result, 1)
	go func() {
		u, err := l.Launch()
		done <- result{u, err}
	}()

	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}

	select {
	case r := <-done:
		return r.url, r.err
	case <-expired:
		return "", fmt.Errorf("browser did not start within %s", timeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func applyPersona(page *rod.Page, p stealth.Persona) error {
	if _, err := page.EvalOnNewDocument(stealth.Script(p)); err != nil {
		return fmt.Errorf("failed to inject evasions script: %w", err)
	}
	err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      p.UserAgent,
		AcceptLanguage: stealth.AcceptLanguage(p),
		Platform:       p.Platform,
	})
	if err != nil {
		return fmt.Errorf("failed to override user agent: %w", err)
	}
	return nil
}

func (s *Session) classify(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case browser.LooksFatal(s.browser.GetContext(), err):
		return fmt.Errorf("%w: %v", browser.ErrSessionLost, err)
	case ctx.Err() != nil:
		return ctx.Err()
	case browser.LooksStale(err):
		return fmt.Errorf("%w: %v", browser.ErrStaleElement, err)
	default:
		return err
	}
}

// eval runs a document-level expression in the top-level page.
func (s *Session) eval(ctx context.Context, expr string) (*proto.RuntimeRemoteObject, error) {
	res, err := s.page.Context(ctx).Eval("() => " + expr)
	return res, s.classify(ctx, err)
}

func (s *Session) Open(ctx context.Context, url string) error {
	s.doc, s.scope = s.page, browser.TopLevel
	if err := s.classify(ctx, s.page.Context(ctx).Navigate(url)); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	return nil
}

func (s *Session) ReadyState(ctx context.Context) (string, error) {
	res, err := s.eval(ctx, browser.ReadyStateJS)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (s *Session) ScrollToBottom(ctx context.Context) error {
	_, err := s.eval(ctx, browser.ScrollToBottomJS)
	return err
}

func (s *Session) ScrollHeight(ctx context.Context) (int64, error) {
	res, err := s.eval(ctx, browser.ScrollHeightJS)
	if err != nil {
		return 0, err
	}
	return int64(res.Value.Num()), nil
}

func (s *Session) Elements(ctx context.Context, shape browser.Shape) ([]browser.Element, error) {
	els, err := s.doc.Context(ctx).Elements(shape.CSS())
	if err = s.classify(ctx, err); err != nil {
		return nil, fmt.Errorf("failed to enumerate %s elements in %s: %w", shape, s.scope, err)
	}
	out := make([]browser.Element, 0, len(els))
	for _, el := range els {
		out = append(out, &Element{s: s, el: el})
	}
	return out, nil
}

func (s *Session) SubDocuments(ctx context.Context) (int, error) {
	frames, err := s.page.Context(ctx).Elements(browser.SubDocumentSelector)
	if err = s.classify(ctx, err); err != nil {
		return 0, err
	}
	return len(frames), nil
}

func (s *Session) EnterScope(ctx context.Context, scope browser.Scope) error {
	if scope.IsTopLevel() {
		return s.ResetScope(ctx)
	}
	if !s.scope.IsTopLevel() {
		return fmt.Errorf("%w: %s entered from %s, nested scopes are not supported", browser.ErrScopeEntry, scope, s.scope)
	}
	frames, err := s.page.Context(ctx).Elements(browser.SubDocumentSelector)
	if err = s.classify(ctx, err); err != nil {
		if browser.IsFatal(err) {
			return err
		}
		return fmt.Errorf("%w: %s: %v", browser.ErrScopeEntry, scope, err)
	}
	if scope.Index() >= len(frames) {
		return fmt.Errorf("%w: %s does not exist (page has %d)", browser.ErrScopeEntry, scope, len(frames))
	}
	doc, err := frames[scope.Index()].Context(ctx).Frame()
	if err = s.classify(ctx, err); err != nil {
		if browser.IsFatal(err) {
			return err
		}
		return fmt.Errorf("%w: %s: %v", browser.ErrScopeEntry, scope, err)
	}
	s.doc, s.scope = doc, scope
	return nil
}

func (s *Session) ResetScope(context.Context) error {
	s.doc, s.scope = s.page, browser.TopLevel
	return nil
}

func (s *Session) CurrentScope() browser.Scope { return s.scope }

// Close closes the browser and kills the process. It is idempotent.
func (s *Session) Close(context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		if cErr := s.browser.Close(); cErr != nil {
			err = fmt.Errorf("failed to close browser: %w", cErr)
		}
		s.launcher.Kill()
		s.launcher.Cleanup()
		s.logger.Debug("Browser closed.")
	})
	return err
}

// Package pwdriver implements the browser contract on top of playwright-go.
//
// Playwright calls do not take a context. Each operation checks the context
// before it starts and passes the remaining time as the Playwright timeout
// where the API accepts one.
package pwdriver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/browser/stealth"
	"github.com/xkilldash9x/courier-cli/internal/config"
)

// defaultTimeout bounds Playwright calls when the context has no deadline.
const defaultTimeout = 30 * time.Second

// Session drives one Playwright page.
type Session struct {
	logger  *zap.Logger
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page

	// frame is the entered sub-document, nil at top level.
	frame playwright.Frame
	scope browser.Scope

	closeOnce sync.Once
}

var _ browser.Session = (*Session)(nil)

// LaunchOptions maps cfg onto Chromium launch options.
func LaunchOptions(cfg config.BrowserConfig) playwright.BrowserTypeLaunchOptions {
	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		Args:     browser.Args(browser.LaunchFlags(cfg)),
	}
	if cfg.LaunchTimeout > 0 {
		opts.Timeout = playwright.Float(float64(cfg.LaunchTimeout.Milliseconds()))
	}
	if cfg.ExecPath != "" {
		opts.ExecutablePath = playwright.String(cfg.ExecPath)
	}
	if cfg.Stealth {
		opts.IgnoreDefaultArgs = []string{"--enable-automation"}
	}
	return opts
}

// PageOptions maps cfg onto the options of the single page the run uses.
func PageOptions(cfg config.BrowserConfig) playwright.BrowserNewPageOptions {
	opts := playwright.BrowserNewPageOptions{
		IgnoreHttpsErrors: playwright.Bool(cfg.IgnoreTLSErrors),
	}
	if w, h := cfg.Viewport["width"], cfg.Viewport["height"]; w > 0 && h > 0 {
		opts.Viewport = &playwright.Size{Width: w, Height: h}
	} else {
		// Let the maximized window decide the viewport.
		opts.NoViewport = playwright.Bool(true)
	}
	if cfg.Stealth {
		p := stealth.PersonaFor(cfg)
		opts.UserAgent = playwright.String(p.UserAgent)
		opts.Locale = playwright.String(p.Locale)
		opts.TimezoneId = playwright.String(p.Timezone)
		if lang := stealth.AcceptLanguage(p); lang != "" {
			opts.ExtraHttpHeaders = map[string]string{"Accept-Language": lang}
		}
	} else if cfg.UserAgent != "" {
		opts.UserAgent = playwright.String(cfg.UserAgent)
	}
	return opts
}

// New starts the Playwright driver, launches Chromium and opens a page.
func New(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	log := logger.Named("playwright")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright driver: %w", err)
	}

	b, err := pw.Chromium.Launch(LaunchOptions(cfg))
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	s := &Session{logger: log, pw: pw, browser: b, scope: browser.TopLevel}

	page, err := b.NewPage(PageOptions(cfg))
	if err != nil {
		_ = s.Close(context.Background())
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	s.page = page

	if cfg.Stealth {
		script := stealth.Script(stealth.PersonaFor(cfg))
		if err := page.AddInitScript(playwright.Script{Content: playwright.String(script)}); err != nil {
			_ = s.Close(context.Background())
			return nil, fmt.Errorf("failed to inject evasions script: %w", err)
		}
	}

	log.Info("Browser launched.", zap.String("version", b.Version()), zap.Bool("headless", cfg.Headless))
	return s, nil
}

// timeoutMs converts the time left on ctx into a Playwright timeout.
func timeoutMs(ctx context.Context) *float64 {
	d := defaultTimeout
	if dl, ok := ctx.Deadline(); ok {
		d = time.Until(dl)
		if d < time.Millisecond {
			d = time.Millisecond
		}
	}
	return playwright.Float(float64(d.Milliseconds()))
}

func (s *Session) classify(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case !s.browser.IsConnected(), browser.LooksFatal(nil, err):
		return fmt.Errorf("%w: %v", browser.ErrSessionLost, err)
	case ctx.Err() != nil:
		return ctx.Err()
	case browser.LooksStale(err):
		return fmt.Errorf("%w: %v", browser.ErrStaleElement, err)
	default:
		return err
	}
}

// evaluate runs a document-level expression in the top-level page.
func (s *Session) evaluate(ctx context.Context, expr string) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, err := s.page.Evaluate(expr)
	return v, s.classify(ctx, err)
}

func (s *Session) Open(ctx context.Context, url string) error {
	s.frame, s.scope = nil, browser.TopLevel
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   timeoutMs(ctx),
	})
	if err = s.classify(ctx, err); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	return nil
}

func (s *Session) ReadyState(ctx context.Context) (string, error) {
	v, err := s.evaluate(ctx, browser.ReadyStateJS)
	if err != nil {
		return "", err
	}
	state, _ := v.(string)
	return state, nil
}

func (s *Session) ScrollToBottom(ctx context.Context) error {
	_, err := s.evaluate(ctx, browser.ScrollToBottomJS)
	return err
}

func (s *Session) ScrollHeight(ctx context.Context) (int64, error) {
	v, err := s.evaluate(ctx, browser.ScrollHeightJS)
	if err != nil {
		return 0, err
	}
	return toInt64(v), nil
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func (s *Session) Elements(ctx context.Context, shape browser.Shape) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		handles []playwright.ElementHandle
		err     error
	)
	if s.frame != nil {
		handles, err = s.frame.QuerySelectorAll(shape.CSS())
	} else {
		handles, err = s.page.QuerySelectorAll(shape.CSS())
	}
	if err = s.classify(ctx, err); err != nil {
		return nil, fmt.Errorf("failed to enumerate %s elements in %s: %w", shape, s.scope, err)
	}
	out := make([]browser.Element, 0, len(handles))
	for i, h := range handles {
		out = append(out, &Element{s: s, h: h, shape: shape, index: i})
	}
	return out, nil
}

func (s *Session) iframes(ctx context.Context) ([]playwright.ElementHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	handles, err := s.page.QuerySelectorAll(browser.SubDocumentSelector)
	return handles, s.classify(ctx, err)
}

func (s *Session) SubDocuments(ctx context.Context) (int, error) {
	frames, err := s.iframes(ctx)
	if err != nil {
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
	frames, err := s.iframes(ctx)
	if err != nil {
		if browser.IsFatal(err) {
			return err
		}
		return fmt.Errorf("%w: %s: %v", browser.ErrScopeEntry, scope, err)
	}
	if scope.Index() >= len(frames) {
		return fmt.Errorf("%w: %s does not exist (page has %d)", browser.ErrScopeEntry, scope, len(frames))
	}
	frame, err := frames[scope.Index()].ContentFrame()
	if err = s.classify(ctx, err); err != nil {
		if browser.IsFatal(err) {
			return err
		}
		return fmt.Errorf("%w: %s: %v", browser.ErrScopeEntry, scope, err)
	}
	if frame == nil {
		return fmt.Errorf("%w: %s has no content frame", browser.ErrScopeEntry, scope)
	}
	s.frame, s.scope = frame, scope
	return nil
}

func (s *Session) ResetScope(context.Context) error {
	s.frame, s.scope = nil, browser.TopLevel
	return nil
}

func (s *Session) CurrentScope() browser.Scope { return s.scope }

// Close closes the browser and stops the driver. It is idempotent.
func (s *Session) Close(context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		if cErr := s.browser.Close(); cErr != nil {
			err = fmt.Errorf("failed to close browser: %w", cErr)
		}
		if sErr := s.pw.Stop(); sErr != nil && err == nil {
			err = fmt.Errorf("failed to stop playwright driver: %w", sErr)
		}
		s.logger.Debug("Browser closed.")
	})
	return err
}

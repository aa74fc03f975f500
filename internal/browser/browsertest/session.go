package browsertest

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/courier-cli/internal/browser"
)

// Document is the element population of one scope.
type Document struct {
	Triggers   []*Element
	TextFields []*Element
	Editables  []*Element
}

func (d *Document) shape(shape browser.Shape) []*Element {
	if d == nil {
		return nil
	}
	switch shape {
	case browser.ShapeTrigger:
		return d.Triggers
	case browser.ShapeTextField:
		return d.TextFields
	case browser.ShapeEditable:
		return d.Editables
	default:
		return nil
	}
}

// Page is what a URL serves.
type Page struct {
	Top *Document
	// Frames are the sub-documents in document order. A nil entry cannot be
	// entered and fails with browser.ErrScopeEntry.
	Frames []*Document

	// ReadyStates are returned by successive ReadyState calls; the last one
	// repeats. Empty means "complete".
	ReadyStates []string
	// Heights are returned by successive ScrollHeight calls; the last one
	// repeats. Empty means a constant height.
	Heights []int64

	// OpenErr is returned by Open. The page is still current afterwards, as a
	// browser still shows whatever it managed to load.
	OpenErr error
	// ElementsErr is returned by Elements in every scope of the page.
	ElementsErr error
}

// Session is a fake browser.Session. Unknown URLs serve an empty page.
type Session struct {
	Pages map[string]*Page

	// Journal records navigation, scope changes and element actions in order.
	Journal []string
	// Lost makes every call fail with browser.ErrSessionLost.
	Lost bool
	// Closed counts Close calls.
	Closed int

	page    *Page
	scope   browser.Scope
	ready   int
	heights int
}

var _ browser.Session = (*Session)(nil)

// NewSession returns a Session serving pages.
func NewSession(pages map[string]*Page) *Session {
	if pages == nil {
		pages = make(map[string]*Page)
	}
	return &Session{Pages: pages, page: &Page{}, scope: browser.TopLevel}
}

func (s *Session) logf(format string, args ...interface{}) {
	s.Journal = append(s.Journal, fmt.Sprintf(format, args...))
}

func (s *Session) alive() error {
	if s.Lost {
		return fmt.Errorf("%w: fake browser is gone", browser.ErrSessionLost)
	}
	return nil
}

func (s *Session) check(ctx context.Context) error {
	if err := s.alive(); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *Session) Open(ctx context.Context, url string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.logf("open %s", url)
	page, ok := s.Pages[url]
	if !ok {
		page = &Page{}
	}
	s.page, s.scope, s.ready, s.heights = page, browser.TopLevel, 0, 0
	return page.OpenErr
}

func (s *Session) ReadyState(ctx context.Context) (string, error) {
	if err := s.check(ctx); err != nil {
		return "", err
	}
	states := s.page.ReadyStates
	if len(states) == 0 {
		return "complete", nil
	}
	i := s.ready
	if i >= len(states) {
		i = len(states) - 1
	}
	s.ready++
	return states[i], nil
}

func (s *Session) ScrollToBottom(ctx context.Context) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.logf("scroll")
	return nil
}

func (s *Session) ScrollHeight(ctx context.Context) (int64, error) {
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	hs := s.page.Heights
	if len(hs) == 0 {
		return 1000, nil
	}
	i := s.heights
	if i >= len(hs) {
		i = len(hs) - 1
	}
	s.heights++
	return hs[i], nil
}

func (s *Session) document() *Document {
	if s.scope.IsTopLevel() {
		return s.page.Top
	}
	return s.page.Frames[s.scope.Index()]
}

func (s *Session) Elements(ctx context.Context, shape browser.Shape) ([]browser.Element, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	if s.page.ElementsErr != nil {
		return nil, s.page.ElementsErr
	}
	fakes := s.document().shape(shape)
	out := make([]browser.Element, 0, len(fakes))
	for _, el := range fakes {
		el.sess = s
		out = append(out, el)
	}
	return out, nil
}

func (s *Session) SubDocuments(ctx context.Context) (int, error) {
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	return len(s.page.Frames), nil
}

func (s *Session) EnterScope(ctx context.Context, scope browser.Scope) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if scope.IsTopLevel() {
		return s.ResetScope(ctx)
	}
	s.logf("enter %s", scope)
	if !s.scope.IsTopLevel() {
		return fmt.Errorf("%w: nested entry into %s from %s", browser.ErrScopeEntry, scope, s.scope)
	}
	if scope.Index() >= len(s.page.Frames) || s.page.Frames[scope.Index()] == nil {
		return fmt.Errorf("%w: %s is not accessible", browser.ErrScopeEntry, scope)
	}
	s.scope = scope
	return nil
}

func (s *Session) ResetScope(ctx context.Context) error {
	if err := s.alive(); err != nil {
		return err
	}
	s.scope = browser.TopLevel
	return nil
}

func (s *Session) CurrentScope() browser.Scope { return s.scope }

func (s *Session) Close(context.Context) error {
	s.Closed++
	return nil
}

// Package static implements the browser contract over a parsed HTML snapshot.
//
// It needs no browser: documents are loaded from disk or fetched over HTTP and
// queried with XPath. Scripts never run, so only markup that is present in the
// served HTML is visible to it. It backs the probe command and the end to end
// tests of the locators.
package static

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/courier-cli/internal/browser"
)

// defaultFetchTimeout bounds HTTP fetches made by a Session created without a client.
const defaultFetchTimeout = 30 * time.Second

// lineHeight is the notional pixel height of one element, used to estimate a
// scroll height for a snapshot that never grows.
const lineHeight = 20

// XPath expressions equivalent to the browser.Shape CSS selectors. Each is a
// single descendant axis step: the // abbreviation expands to
// descendant-or-self::node()/child::*, which htmlquery yields grouped by
// depth rather than in document order.
var shapeXPath = map[browser.Shape]string{
	browser.ShapeTrigger:     `/descendant::*[self::button or self::a or (self::input and (@type='button' or @type='submit'))]`,
	browser.ShapeTextField:   `/descendant::*[self::textarea or (self::input and (@type='text' or @type='search' or not(@type)))]`,
	browser.ShapeEditable:    `/descendant::*[@contenteditable='true' or @contenteditable='' or ((self::div or self::span) and @role='textbox')]`,
	browser.ShapeSubDocument: `//iframe`,
}

// ActionKind names an interaction recorded by the static driver.
type ActionKind string

const (
	ActionClick  ActionKind = "click"
	ActionType   ActionKind = "type"
	ActionSubmit ActionKind = "submit"
)

// Action is one recorded interaction. Text holds the typed text for
// ActionType and the field content at submission time for ActionSubmit.
type Action struct {
	Kind   ActionKind
	Target string
	Scope  browser.Scope
	Text   string
}

// Session is an offline browser.Session. It is not safe for concurrent use.
type Session struct {
	logger *zap.Logger
	client *http.Client

	doc   *html.Node
	base  *url.URL
	title string
	// gen is bumped by every Open; handles from an older generation are stale.
	gen int

	frames    []*html.Node
	frameDocs map[*html.Node]*html.Node
	root      *html.Node
	scope     browser.Scope

	values  map[*html.Node]string
	actions []Action
	scrolls int
	closed  bool
}

var _ browser.Session = (*Session)(nil)

// New returns a Session with no document loaded. A nil client gets a default
// one with a fetch timeout.
func New(logger *zap.Logger, client *http.Client) *Session {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	return &Session{
		logger: logger.Named("static"),
		client: client,
		scope:  browser.TopLevel,
		values: make(map[*html.Node]string),
	}
}

func (s *Session) alive() error {
	if s.closed {
		return fmt.Errorf("%w: static session closed", browser.ErrSessionLost)
	}
	return nil
}

// fileURL turns a local path into an absolute file URL.
func fileURL(path string) (*url.URL, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}, nil
}

// load resolves target to a document. Plain paths and file URLs are read from
// disk, http and https URLs are fetched, about:blank is an empty document.
func (s *Session) load(ctx context.Context, target *url.URL) (*html.Node, error) {
	switch target.Scheme {
	case "file":
		f, err := os.Open(filepath.FromSlash(target.Path))
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return htmlquery.Parse(f)
	case "http", "https":
		return s.fetch(ctx, target)
	case "about":
		return htmlquery.Parse(strings.NewReader(""))
	default:
		return nil, fmt.Errorf("unsupported URL scheme %q", target.Scheme)
	}
}

func (s *Session) fetch(ctx context.Context, target *url.URL) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		// Error pages still render in a browser, so they are parsed all the same.
		s.logger.Warn("Request resulted in error status code",
			zap.Int("status", resp.StatusCode), zap.String("url", target.String()))
	}
	return htmlquery.Parse(resp.Body)
}

func resolve(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" {
		return fileURL(raw)
	}
	return u, nil
}

// Open loads raw as the top-level document. A failed load leaves the session
// without a document, so ReadyState keeps reporting "loading".
func (s *Session) Open(ctx context.Context, raw string) error {
	if err := s.alive(); err != nil {
		return err
	}
	s.gen++
	s.doc, s.base, s.title, s.root = nil, nil, "", nil
	s.frames, s.frameDocs = nil, make(map[*html.Node]*html.Node)
	s.values = make(map[*html.Node]string)
	s.scope = browser.TopLevel

	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := resolve(raw)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", raw, err)
	}
	doc, err := s.load(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", raw, err)
	}

	s.doc, s.base, s.root = doc, target, doc
	s.frames = htmlquery.Find(doc, shapeXPath[browser.ShapeSubDocument])
	if t := htmlquery.FindOne(doc, "//title"); t != nil {
		s.title = strings.TrimSpace(htmlquery.InnerText(t))
	}
	s.logger.Debug("Document loaded.", zap.String("url", target.String()),
		zap.String("title", s.title), zap.Int("sub_documents", len(s.frames)))
	return nil
}

// Title returns the title of the top-level document.
func (s *Session) Title() string { return s.title }

func (s *Session) ReadyState(ctx context.Context) (string, error) {
	if err := s.alive(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.doc == nil {
		return "loading", nil
	}
	return "complete", nil
}

func (s *Session) ScrollToBottom(ctx context.Context) error {
	if err := s.alive(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.scrolls++
	return nil
}

// ScrollHeight estimates the page height from the number of elements in the
// body. The estimate is stable, so scrolling settles immediately.
func (s *Session) ScrollHeight(ctx context.Context) (int64, error) {
	if err := s.alive(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s.doc == nil {
		return 0, nil
	}
	body := htmlquery.FindOne(s.doc, "//body")
	if body == nil {
		return 0, nil
	}
	return int64(len(htmlquery.Find(body, ".//*"))+1) * lineHeight, nil
}

// Scrolls returns how many times ScrollToBottom ran since the session started.
func (s *Session) Scrolls() int { return s.scrolls }

func (s *Session) Elements(ctx context.Context, shape browser.Shape) ([]browser.Element, error) {
	if err := s.alive(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	expr, ok := shapeXPath[shape]
	if !ok {
		return nil, fmt.Errorf("%w: %s", browser.ErrUnsupported, shape)
	}
	if s.root == nil {
		return nil, nil
	}
	nodes, err := htmlquery.QueryAll(s.root, expr)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate %s elements in %s: %w", shape, s.scope, err)
	}
	out := make([]browser.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &Element{s: s, node: n, gen: s.gen, scope: s.scope})
	}
	return out, nil
}

func (s *Session) SubDocuments(ctx context.Context) (int, error) {
	if err := s.alive(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return len(s.frames), nil
}

// frameDocument returns the document embedded by an iframe: its srcdoc when
// present, otherwise its src resolved against the page URL. An iframe with
// neither holds an empty document, as in a browser.
func (s *Session) frameDocument(ctx context.Context, frame *html.Node) (*html.Node, error) {
	if doc, ok := s.frameDocs[frame]; ok {
		return doc, nil
	}
	var (
		doc *html.Node
		err error
	)
	if srcdoc, ok := attr(frame, "srcdoc"); ok {
		doc, err = htmlquery.Parse(strings.NewReader(srcdoc))
	} else if src, _ := attr(frame, "src"); strings.TrimSpace(src) != "" {
		var ref *url.URL
		if ref, err = url.Parse(strings.TrimSpace(src)); err == nil {
			doc, err = s.load(ctx, s.base.ResolveReference(ref))
		}
	} else {
		doc, err = htmlquery.Parse(strings.NewReader(""))
	}
	if err != nil {
		return nil, err
	}
	s.frameDocs[frame] = doc
	return doc, nil
}

func (s *Session) EnterScope(ctx context.Context, scope browser.Scope) error {
	if err := s.alive(); err != nil {
		return err
	}
	if scope.IsTopLevel() {
		return s.ResetScope(ctx)
	}
	if !s.scope.IsTopLevel() {
		return fmt.Errorf("%w: %s entered from %s, nested scopes are not supported", browser.ErrScopeEntry, scope, s.scope)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if scope.Index() >= len(s.frames) {
		return fmt.Errorf("%w: %s does not exist (page has %d)", browser.ErrScopeEntry, scope, len(s.frames))
	}
	doc, err := s.frameDocument(ctx, s.frames[scope.Index()])
	if err != nil {
		return fmt.Errorf("%w: %s: %v", browser.ErrScopeEntry, scope, err)
	}
	s.root, s.scope = doc, scope
	return nil
}

func (s *Session) ResetScope(context.Context) error {
	if err := s.alive(); err != nil {
		return err
	}
	s.root, s.scope = s.doc, browser.TopLevel
	return nil
}

func (s *Session) CurrentScope() browser.Scope { return s.scope }

// Actions returns a copy of the interactions recorded so far.
func (s *Session) Actions() []Action {
	return append([]Action(nil), s.actions...)
}

func (s *Session) record(a Action) {
	s.actions = append(s.actions, a)
	s.logger.Debug("Recorded interaction.", zap.String("kind", string(a.Kind)),
		zap.String("target", a.Target), zap.Stringer("scope", a.Scope))
}

// Close marks the session as gone. Every later call fails with
// browser.ErrSessionLost.
func (s *Session) Close(context.Context) error {
	s.closed = true
	return nil
}

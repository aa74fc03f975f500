// Package browsertest provides scriptable in-memory implementations of the
// browser contract for tests.
//
// A Session serves Pages keyed by URL. Each Page holds a top-level Document and
// the Documents of its sub-documents. Interactions are appended to a journal
// so tests can assert on ordering across scopes and links.
package browsertest

import (
	"context"

	"github.com/xkilldash9x/courier-cli/internal/browser"
)

// Element is a fake page element. Zero values describe a visible, enabled
// element with no text and no attributes. Content is what Text returns.
type Element struct {
	Name     string
	Content  string
	Attrs    map[string]string
	Hidden   bool
	Disabled bool

	// ProbeErr is returned by Visible, Enabled, Text and Attribute.
	ProbeErr error
	// ActionErr is returned by Click, Clear, Type, Submit and ScrollIntoView.
	ActionErr error

	// Value accumulates typed text since the last Clear.
	Value string

	sess *Session
}

var _ browser.Element = (*Element)(nil)

func (e *Element) probe(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.sess != nil {
		if err := e.sess.alive(); err != nil {
			return err
		}
	}
	return e.ProbeErr
}

func (e *Element) act(ctx context.Context, event string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.sess != nil {
		if err := e.sess.alive(); err != nil {
			return err
		}
		e.sess.logf("%s %s", event, e.Describe())
	}
	return e.ActionErr
}

func (e *Element) Visible(ctx context.Context) (bool, error) {
	if err := e.probe(ctx); err != nil {
		return false, err
	}
	return !e.Hidden, nil
}

func (e *Element) Enabled(ctx context.Context) (bool, error) {
	if err := e.probe(ctx); err != nil {
		return false, err
	}
	return !e.Disabled, nil
}

func (e *Element) Text(ctx context.Context) (string, error) {
	if err := e.probe(ctx); err != nil {
		return "", err
	}
	return e.Content, nil
}

func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := e.probe(ctx); err != nil {
		return "", false, err
	}
	v, ok := e.Attrs[name]
	return v, ok, nil
}

func (e *Element) Click(ctx context.Context) error { return e.act(ctx, "click") }

func (e *Element) Clear(ctx context.Context) error {
	if err := e.act(ctx, "clear"); err != nil {
		return err
	}
	e.Value = ""
	return nil
}

func (e *Element) Type(ctx context.Context, text string) error {
	if err := e.act(ctx, "type "+text+" into"); err != nil {
		return err
	}
	e.Value += text
	return nil
}

func (e *Element) Submit(ctx context.Context) error { return e.act(ctx, "submit") }

func (e *Element) ScrollIntoView(ctx context.Context) error { return e.act(ctx, "scroll-into-view") }

func (e *Element) Describe() string {
	if e.Name == "" {
		return "<fake>"
	}
	return "<" + e.Name + ">"
}

package rodriver

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/internal/browser"
)

// Element wraps a rod element handle.
type Element struct {
	s  *Session
	el *rod.Element
}

var _ browser.Element = (*Element)(nil)

func (e *Element) call(ctx context.Context, fn string, args ...interface{}) (*proto.RuntimeRemoteObject, error) {
	res, err := e.el.Context(ctx).Eval(fn, args...)
	return res, e.s.classify(ctx, err)
}

func (e *Element) Visible(ctx context.Context) (bool, error) {
	res, err := e.call(ctx, browser.VisibleJS)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

func (e *Element) Enabled(ctx context.Context) (bool, error) {
	res, err := e.call(ctx, browser.EnabledJS)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

func (e *Element) Text(ctx context.Context) (string, error) {
	res, err := e.call(ctx, browser.TextJS)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	res, err := e.call(ctx, browser.AttributeJS, name)
	if err != nil {
		return "", false, err
	}
	if res.Value.Nil() {
		return "", false, nil
	}
	return res.Value.Str(), true, nil
}

// Click performs a real left click and falls back to a DOM click when rod
// cannot find a clickable point.
func (e *Element) Click(ctx context.Context) error {
	err := e.s.classify(ctx, e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1))
	if err == nil || browser.IsFatal(err) || ctx.Err() != nil {
		return err
	}
	e.s.logger.Debug("Mouse click failed, falling back to DOM click.",
		zap.String("element", e.Describe()), zap.Error(err))
	_, err = e.call(ctx, browser.ClickJS)
	return err
}

func (e *Element) Clear(ctx context.Context) error {
	res, err := e.call(ctx, browser.ClearJS)
	if err != nil {
		return err
	}
	if !res.Value.Bool() {
		return fmt.Errorf("%w: %s cannot be cleared", browser.ErrUnsupported, e.Describe())
	}
	return nil
}

// Type focuses the element and inserts text as a single input event, which
// works for contenteditable regions as well as form fields.
func (e *Element) Type(ctx context.Context, text string) error {
	el := e.el.Context(ctx)
	if err := e.s.classify(ctx, el.Focus()); err != nil {
		return err
	}
	return e.s.classify(ctx, el.Page().InsertText(text))
}

func (e *Element) Submit(ctx context.Context) error {
	return e.s.classify(ctx, e.el.Context(ctx).Type(input.Enter))
}

func (e *Element) ScrollIntoView(ctx context.Context) error {
	_, err := e.call(ctx, browser.ScrollIntoViewJS)
	return err
}

// Describe uses the remote object description CDP attaches to node handles,
// e.g. "button#buy.btn".
func (e *Element) Describe() string {
	if e.el.Object != nil && e.el.Object.Description != "" {
		return "<" + e.el.Object.Description + ">"
	}
	return "<element>"
}

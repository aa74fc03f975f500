// internal/browser/cdp/element.go
package cdp

import (
	"context"
	"encoding/json"
	"fmt"

	cdptypes "github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/internal/browser"
)

// Element is a DOM node found by a Session query.
type Element struct {
	s    *Session
	node *cdptypes.Node
}

var _ browser.Element = (*Element)(nil)

// callOn resolves the node to a JS object and calls fn with `this` bound to
// it. The result, returned by value, is decoded into out when out is non-nil.
func (e *Element) callOn(ctx context.Context, fn string, out interface{}, args ...interface{}) error {
	return e.s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithBackendNodeID(e.node.BackendNodeID).Do(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(ctx) }()

		callArgs := make([]*runtime.CallArgument, 0, len(args))
		for _, a := range args {
			raw, err := json.Marshal(a)
			if err != nil {
				return fmt.Errorf("failed to encode script argument: %w", err)
			}
			callArgs = append(callArgs, &runtime.CallArgument{Value: raw})
		}

		res, exc, err := runtime.CallFunctionOn(fn).
			WithObjectID(obj.ObjectID).
			WithArguments(callArgs).
			WithReturnByValue(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("script exception: %s", exc.Text)
		}
		if out == nil || res == nil || len(res.Value) == 0 {
			return nil
		}
		return json.Unmarshal(res.Value, out)
	}))
}

func (e *Element) Visible(ctx context.Context) (bool, error) {
	var v bool
	err := e.callOn(ctx, browser.VisibleJS, &v)
	return v, err
}

func (e *Element) Enabled(ctx context.Context) (bool, error) {
	var v bool
	err := e.callOn(ctx, browser.EnabledJS, &v)
	return v, err
}

// Text reads innerText through JS. chromedp.Text would wait for the node to
// become visible, which a scan must never do.
func (e *Element) Text(ctx context.Context) (string, error) {
	var v string
	err := e.callOn(ctx, browser.TextJS, &v)
	return v, err
}

func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	var v *string
	if err := e.callOn(ctx, browser.AttributeJS, &v, name); err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

// Click dispatches a real mouse click at the node's centre and falls back to a
// DOM click when the node has no clickable box.
func (e *Element) Click(ctx context.Context) error {
	err := e.s.run(ctx, chromedp.MouseClickNode(e.node))
	if err == nil || browser.IsFatal(err) || ctx.Err() != nil {
		return err
	}
	e.s.logger.Debug("Mouse click failed, falling back to DOM click.",
		zap.String("element", e.Describe()), zap.Error(err))
	return e.callOn(ctx, browser.ClickJS, nil)
}

func (e *Element) Clear(ctx context.Context) error {
	var cleared bool
	if err := e.callOn(ctx, browser.ClearJS, &cleared); err != nil {
		return err
	}
	if !cleared {
		return fmt.Errorf("%w: %s cannot be cleared", browser.ErrUnsupported, e.Describe())
	}
	return nil
}

func (e *Element) Type(ctx context.Context, text string) error {
	return e.s.run(ctx, chromedp.KeyEventNode(e.node, text))
}

func (e *Element) Submit(ctx context.Context) error {
	return e.s.run(ctx, chromedp.KeyEventNode(e.node, kb.Enter))
}

func (e *Element) ScrollIntoView(ctx context.Context) error {
	return e.callOn(ctx, browser.ScrollIntoViewJS, nil)
}

func (e *Element) Describe() string {
	return browser.DescribeTag(e.node.LocalName,
		[2]string{"id", e.node.AttributeValue("id")},
		[2]string{"name", e.node.AttributeValue("name")},
		[2]string{"class", e.node.AttributeValue("class")},
	)
}

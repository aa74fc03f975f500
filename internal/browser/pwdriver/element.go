package pwdriver

import (
	"context"
	"fmt"
	"strconv"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/internal/browser"
)

// Element wraps a Playwright element handle.
type Element struct {
	s     *Session
	h     playwright.ElementHandle
	shape browser.Shape
	index int
}

var _ browser.Element = (*Element)(nil)

func (e *Element) call(ctx context.Context, fn string, arg interface{}) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, err := e.h.Evaluate(browser.BindThis(fn), arg)
	return v, e.s.classify(ctx, err)
}

func (e *Element) callBool(ctx context.Context, fn string) (bool, error) {
	v, err := e.call(ctx, fn, nil)
	if err != nil {
		return false, err
	}
	b, _ := v.(bool)
	return b, nil
}

func (e *Element) Visible(ctx context.Context) (bool, error) { return e.callBool(ctx, browser.VisibleJS) }

func (e *Element) Enabled(ctx context.Context) (bool, error) { return e.callBool(ctx, browser.EnabledJS) }

func (e *Element) Text(ctx context.Context) (string, error) {
	v, err := e.call(ctx, browser.TextJS, nil)
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, err := e.call(ctx, browser.AttributeJS, name)
	if err != nil {
		return "", false, err
	}
	s, ok := v.(string)
	return s, ok, nil
}

func (e *Element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := e.s.classify(ctx, e.h.Click(playwright.ElementHandleClickOptions{Timeout: timeoutMs(ctx)}))
	if err == nil || browser.IsFatal(err) || ctx.Err() != nil {
		return err
	}
	e.s.logger.Debug("Mouse click failed, falling back to DOM click.",
		zap.String("element", e.Describe()), zap.Error(err))
	_, err = e.call(ctx, browser.ClickJS, nil)
	return err
}

func (e *Element) Clear(ctx context.Context) error {
	cleared, err := e.callBool(ctx, browser.ClearJS)
	if err != nil {
		return err
	}
	if !cleared {
		return fmt.Errorf("%w: %s cannot be cleared", browser.ErrUnsupported, e.Describe())
	}
	return nil
}

func (e *Element) Type(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.s.classify(ctx, e.h.Type(text, playwright.ElementHandleTypeOptions{Timeout: timeoutMs(ctx)}))
}

func (e *Element) Submit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.s.classify(ctx, e.h.Press("Enter", playwright.ElementHandlePressOptions{Timeout: timeoutMs(ctx)}))
}

func (e *Element) ScrollIntoView(ctx context.Context) error {
	_, err := e.call(ctx, browser.ScrollIntoViewJS, nil)
	return err
}

func (e *Element) Describe() string {
	return browser.DescribeTag(e.shape.String(), [2]string{"index", strconv.Itoa(e.index)})
}

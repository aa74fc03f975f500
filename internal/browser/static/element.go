package static

import (
	"context"
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/courier-cli/internal/browser"
)

// Element is a node of a loaded snapshot.
type Element struct {
	s     *Session
	node  *html.Node
	gen   int
	scope browser.Scope
}

var _ browser.Element = (*Element)(nil)

func (e *Element) check(ctx context.Context) error {
	if err := e.s.alive(); err != nil {
		return err
	}
	if e.gen != e.s.gen {
		return fmt.Errorf("%w: %s", browser.ErrStaleElement, e.Describe())
	}
	return ctx.Err()
}

func (e *Element) Visible(ctx context.Context) (bool, error) {
	if err := e.check(ctx); err != nil {
		return false, err
	}
	return visible(e.node), nil
}

func (e *Element) Enabled(ctx context.Context) (bool, error) {
	if err := e.check(ctx); err != nil {
		return false, err
	}
	return !disabled(e.node), nil
}

func (e *Element) Text(ctx context.Context) (string, error) {
	if err := e.check(ctx); err != nil {
		return "", err
	}
	if isTag(e.node, "input") {
		return "", nil
	}
	if editable(e.node) {
		if v, ok := e.s.values[e.node]; ok {
			return v, nil
		}
	}
	return strings.Join(strings.Fields(htmlquery.InnerText(e.node)), " "), nil
}

func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := e.check(ctx); err != nil {
		return "", false, err
	}
	if name == "value" && (isTag(e.node, "input") || isTag(e.node, "textarea") || isTag(e.node, "button")) {
		return e.value(), true, nil
	}
	v, ok := attr(e.node, name)
	return v, ok, nil
}

// value is the live content of a form control or editable region.
func (e *Element) value() string {
	if v, ok := e.s.values[e.node]; ok {
		return v
	}
	if isTag(e.node, "textarea") || editable(e.node) {
		return htmlquery.InnerText(e.node)
	}
	v, _ := attr(e.node, "value")
	return v
}

func (e *Element) textLike() bool {
	return isTag(e.node, "input") || isTag(e.node, "textarea") || editable(e.node)
}

func (e *Element) Click(ctx context.Context) error {
	if err := e.check(ctx); err != nil {
		return err
	}
	e.s.record(Action{Kind: ActionClick, Target: e.Describe(), Scope: e.scope})
	return nil
}

func (e *Element) Clear(ctx context.Context) error {
	if err := e.check(ctx); err != nil {
		return err
	}
	if !e.textLike() {
		return fmt.Errorf("%w: %s cannot be cleared", browser.ErrUnsupported, e.Describe())
	}
	e.s.values[e.node] = ""
	return nil
}

func (e *Element) Type(ctx context.Context, text string) error {
	if err := e.check(ctx); err != nil {
		return err
	}
	if !e.textLike() {
		return fmt.Errorf("%w: %s does not accept text", browser.ErrUnsupported, e.Describe())
	}
	e.s.values[e.node] = e.value() + text
	e.s.record(Action{Kind: ActionType, Target: e.Describe(), Scope: e.scope, Text: text})
	return nil
}

func (e *Element) Submit(ctx context.Context) error {
	if err := e.check(ctx); err != nil {
		return err
	}
	e.s.record(Action{Kind: ActionSubmit, Target: e.Describe(), Scope: e.scope, Text: e.value()})
	return nil
}

func (e *Element) ScrollIntoView(ctx context.Context) error {
	return e.check(ctx)
}

func (e *Element) Describe() string {
	id, _ := attr(e.node, "id")
	name, _ := attr(e.node, "name")
	class, _ := attr(e.node, "class")
	return browser.DescribeTag(e.node.Data, [2]string{"id", id}, [2]string{"name", name}, [2]string{"class", class})
}

// attr reports an attribute's value and whether it is present at all.
// htmlquery.SelectAttr cannot tell <button disabled> from a missing attribute.
func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

func isTag(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && strings.EqualFold(n.Data, tag)
}

func editable(n *html.Node) bool {
	if v, ok := attr(n, "contenteditable"); ok {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || v == "true" {
			return true
		}
	}
	role, _ := attr(n, "role")
	return (isTag(n, "div") || isTag(n, "span")) && strings.EqualFold(role, "textbox")
}

// styleDecls parses an inline style attribute into lower-cased declarations.
func styleDecls(n *html.Node) map[string]string {
	raw, ok := attr(n, "style")
	if !ok {
		return nil
	}
	decls := make(map[string]string)
	for _, decl := range strings.Split(raw, ";") {
		k, v, found := strings.Cut(decl, ":")
		if !found {
			continue
		}
		v = strings.TrimSuffix(strings.TrimSpace(strings.ToLower(v)), "!important")
		decls[strings.TrimSpace(strings.ToLower(k))] = strings.TrimSpace(v)
	}
	return decls
}

// visible approximates rendering from markup alone: inline styles and the
// hidden attribute on the element or an ancestor, hidden inputs, and elements
// that are never rendered.
func visible(n *html.Node) bool {
	if t, _ := attr(n, "type"); isTag(n, "input") && strings.EqualFold(t, "hidden") {
		return false
	}
	for p := n; p != nil && p.Type == html.ElementNode; p = p.Parent {
		switch strings.ToLower(p.Data) {
		case "head", "script", "style", "template", "noscript":
			return false
		}
		if _, ok := attr(p, "hidden"); ok {
			return false
		}
		decls := styleDecls(p)
		if decls["display"] == "none" || decls["opacity"] == "0" {
			return false
		}
		if p == n && (decls["visibility"] == "hidden" || decls["visibility"] == "collapse") {
			return false
		}
	}
	return true
}

var formControls = map[string]bool{
	"button": true, "input": true, "select": true, "textarea": true,
	"optgroup": true, "option": true, "fieldset": true,
}

// disabled mirrors :disabled, including controls inside a disabled fieldset.
func disabled(n *html.Node) bool {
	if !formControls[strings.ToLower(n.Data)] {
		return false
	}
	if _, ok := attr(n, "disabled"); ok {
		return true
	}
	for p := n.Parent; p != nil && p.Type == html.ElementNode; p = p.Parent {
		if _, ok := attr(p, "disabled"); ok && isTag(p, "fieldset") {
			return true
		}
	}
	return false
}

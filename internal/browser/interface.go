// internal/browser/interface.go
package browser

import (
	"context"
	"fmt"
)

// Shape names a structural family of elements. Drivers translate a shape into
// their own query language; callers never see selectors.
type Shape int

const (
	// ShapeTrigger matches clickable controls: button, a, and input of type
	// button or submit.
	ShapeTrigger Shape = iota
	// ShapeTextField matches native text entry: textarea, input[type=text],
	// input[type=search] and input with no type attribute.
	ShapeTextField
	// ShapeEditable matches editable regions: contenteditable elements and
	// div/span with role=textbox.
	ShapeEditable
	// ShapeSubDocument matches embedded sub-documents (iframes).
	ShapeSubDocument
)

func (s Shape) String() string {
	switch s {
	case ShapeTrigger:
		return "trigger"
	case ShapeTextField:
		return "text-field"
	case ShapeEditable:
		return "editable"
	case ShapeSubDocument:
		return "sub-document"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// CSS selectors for each shape. Every selector is a single querySelectorAll
// group, so results come back in document order.
const (
	TriggerSelector     = `button, a, input[type='button'], input[type='submit']`
	TextFieldSelector   = `textarea, input[type='text'], input[type='search'], input:not([type])`
	EditableSelector    = `[contenteditable='true'], [contenteditable=''], div[role='textbox'], span[role='textbox']`
	SubDocumentSelector = `iframe`
)

// CSS returns the CSS selector for the shape.
func (s Shape) CSS() string {
	switch s {
	case ShapeTrigger:
		return TriggerSelector
	case ShapeTextField:
		return TextFieldSelector
	case ShapeEditable:
		return EditableSelector
	case ShapeSubDocument:
		return SubDocumentSelector
	default:
		return ""
	}
}

// Scope identifies the document an enumeration runs against: the top-level
// document, or the n-th embedded sub-document (0-based, document order at the
// time of the search).
type Scope struct {
	index int // -1 for the top-level document
}

// TopLevel is the top-level document scope.
var TopLevel = Scope{index: -1}

// SubDocument returns the scope of the n-th embedded sub-document.
func SubDocument(n int) Scope { return Scope{index: n} }

// IsTopLevel reports whether s is the top-level document.
func (s Scope) IsTopLevel() bool { return s.index < 0 }

// Index returns the sub-document index, or -1 for the top-level document.
func (s Scope) Index() int { return s.index }

func (s Scope) String() string {
	if s.IsTopLevel() {
		return "top-level"
	}
	return fmt.Sprintf("sub-document #%d", s.index+1)
}

// Element is a transient handle to a page element. Handles are owned by the
// Session that produced them and are only valid until the page changes.
//
// Attribute returns ok=false when the attribute is absent; that is a normal
// outcome, not an error.
type Element interface {
	Visible(ctx context.Context) (bool, error)
	Enabled(ctx context.Context) (bool, error)
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (value string, ok bool, err error)

	Click(ctx context.Context) error
	Clear(ctx context.Context) error
	Type(ctx context.Context, text string) error
	// Submit simulates the end-of-line key on the element.
	Submit(ctx context.Context) error
	ScrollIntoView(ctx context.Context) error

	// Describe returns a short human-readable description for logs.
	Describe() string
}

// Session is a single browser tab driven by one workflow. It is not safe for
// concurrent use; the workflow is single-threaded by design.
type Session interface {
	// Open navigates the top-level document to url and resets the scope.
	Open(ctx context.Context, url string) error
	// ReadyState returns document.readyState of the top-level document.
	ReadyState(ctx context.Context) (string, error)
	// ScrollToBottom scrolls the top-level window to the bottom of the page.
	ScrollToBottom(ctx context.Context) error
	// ScrollHeight returns document.body.scrollHeight of the top-level document.
	ScrollHeight(ctx context.Context) (int64, error)

	// Elements enumerates elements of the given shape in the current scope,
	// in document order. It never blocks waiting for elements to appear.
	Elements(ctx context.Context, shape Shape) ([]Element, error)
	// SubDocuments returns how many embedded sub-documents the top-level
	// document holds right now.
	SubDocuments(ctx context.Context) (int, error)
	// EnterScope switches the current scope. Entering a sub-document is only
	// defined from the top-level scope; failures wrap ErrScopeEntry.
	EnterScope(ctx context.Context, scope Scope) error
	// ResetScope returns to the top-level document.
	ResetScope(ctx context.Context) error
	// CurrentScope returns the scope enumerations currently run against.
	CurrentScope() Scope

	// Close releases the browser. It is safe to call more than once.
	Close(ctx context.Context) error
}

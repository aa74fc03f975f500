// Package locate holds the page heuristics: picking the call-to-action
// control, picking the best message-entry surface, and repeating the latter
// across embedded sub-documents.
//
// Every candidate is probed into an Outcome. A skipped candidate never stops
// a scan unless the reason is a lost session or a cancelled context; those end
// the scan and are returned to the caller.
package locate

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/hints"
)

// Locator runs the searches against a session. It keeps no state between
// searches; every call enumerates the page afresh.
type Locator struct {
	logger *zap.Logger
}

// New returns a Locator narrating through logger.
func New(logger *zap.Logger) *Locator {
	return &Locator{logger: logger.Named("locate")}
}

// abort returns the error that must end a scan, if reason is one.
func abort(ctx context.Context, reason error) error {
	if browser.IsFatal(reason) {
		return reason
	}
	return ctx.Err()
}

// Label derives the display label of a clickable candidate: the first
// non-empty of its text, value attribute and aria-label, trimmed and
// lower-cased. An empty label is a skip.
func Label(ctx context.Context, el browser.Element) Outcome[string] {
	text, err := el.Text(ctx)
	if err != nil {
		return Skip[string](err)
	}
	if label := normalize(text); label != "" {
		return Ok(label)
	}
	for _, name := range []string{"value", "aria-label"} {
		v, ok, err := el.Attribute(ctx, name)
		if err != nil {
			return Skip[string](err)
		}
		if label := normalize(v); ok && label != "" {
			return Ok(label)
		}
	}
	return Skip[string](ErrNoLabel)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// FindTriggerControl returns the first trigger-shaped element of the current
// scope, in document order, whose label contains a keyword. It returns nil
// and no error when nothing matches.
func (l *Locator) FindTriggerControl(ctx context.Context, sess browser.Session, kw hints.Keywords) (browser.Element, error) {
	log := l.logger.With(zap.Stringer("scope", sess.CurrentScope()))
	els, err := sess.Elements(ctx, browser.ShapeTrigger)
	if err != nil {
		if aErr := abort(ctx, err); aErr != nil {
			return nil, aErr
		}
		log.Warn("Could not enumerate trigger candidates.", zap.Error(err))
		return nil, nil
	}
	log.Debug("Scanning trigger candidates.", zap.Int("count", len(els)))

	for i, el := range els {
		o := Label(ctx, el)
		label, ok := o.Get()
		if !ok {
			if err := abort(ctx, o.Reason()); err != nil {
				return nil, err
			}
			log.Debug("Skipping trigger candidate.", zap.Int("index", i),
				zap.String("element", el.Describe()), zap.NamedError("reason", o.Reason()))
			continue
		}
		if hints.Matches(label, kw) {
			k, _ := kw.First(label)
			log.Debug("Trigger candidate matched.", zap.Int("index", i),
				zap.String("label", label), zap.String("keyword", k))
			return el, nil
		}
	}
	return nil, nil
}

// HintText builds the composite hint string of an input candidate from its
// placeholder, aria-label, title and text, lower-cased and space-joined.
// Absent attributes contribute nothing.
func HintText(ctx context.Context, el browser.Element) Outcome[string] {
	parts := make([]string, 0, 4)
	for _, name := range []string{"placeholder", "aria-label", "title"} {
		v, ok, err := el.Attribute(ctx, name)
		if err != nil {
			return Skip[string](err)
		}
		if ok && v != "" {
			parts = append(parts, v)
		}
	}
	text, err := el.Text(ctx)
	if err != nil {
		return Skip[string](err)
	}
	if text != "" {
		parts = append(parts, text)
	}
	return Ok(strings.ToLower(strings.Join(parts, " ")))
}

// usableInput probes a candidate for visibility and enablement and, when it
// survives, returns its hint string.
func usableInput(ctx context.Context, el browser.Element) Outcome[string] {
	visible, err := el.Visible(ctx)
	switch {
	case err != nil:
		return Skip[string](err)
	case !visible:
		return Skip[string](ErrNotVisible)
	}
	enabled, err := el.Enabled(ctx)
	switch {
	case err != nil:
		return Skip[string](err)
	case !enabled:
		return Skip[string](ErrNotEnabled)
	}
	return HintText(ctx, el)
}

// inputShapes are searched in this order; native fields come before editable
// regions.
var inputShapes = []browser.Shape{browser.ShapeTextField, browser.ShapeEditable}

// FindBestInput returns the first visible, enabled text-entry candidate of
// the current scope whose hint string contains a keyword. When none does, it
// falls back to the first visible, enabled candidate. It returns nil and no
// error only when no candidate survives the filter.
func (l *Locator) FindBestInput(ctx context.Context, sess browser.Session, kw hints.Keywords) (browser.Element, error) {
	log := l.logger.With(zap.Stringer("scope", sess.CurrentScope()))

	var candidates []browser.Element
	for _, shape := range inputShapes {
		els, err := sess.Elements(ctx, shape)
		if err != nil {
			if aErr := abort(ctx, err); aErr != nil {
				return nil, aErr
			}
			log.Warn("Could not enumerate input candidates.", zap.Stringer("shape", shape), zap.Error(err))
			continue
		}
		candidates = append(candidates, els...)
	}
	log.Debug("Scanning input candidates.", zap.Int("count", len(candidates)))

	var fallback browser.Element
	for i, el := range candidates {
		o := usableInput(ctx, el)
		hint, ok := o.Get()
		if !ok {
			if err := abort(ctx, o.Reason()); err != nil {
				return nil, err
			}
			log.Debug("Skipping input candidate.", zap.Int("index", i),
				zap.String("element", el.Describe()), zap.NamedError("reason", o.Reason()))
			continue
		}
		if fallback == nil {
			fallback = el
		}
		if hints.Matches(hint, kw) {
			log.Debug("Input candidate matched a hint.", zap.Int("index", i), zap.String("element", el.Describe()))
			return el, nil
		}
	}
	if fallback != nil {
		log.Debug("No input matched a hint, using the first usable candidate.", zap.String("element", fallback.Describe()))
	}
	return fallback, nil
}

// Match is the result of a search across scopes. Element is nil when nothing
// was found.
type Match struct {
	Element browser.Element
	Scope   browser.Scope
}

// Found reports whether the search produced an element.
func (m Match) Found() bool { return m.Element != nil }

// LocateAcrossScopes runs FindBestInput on the top-level document and then on
// each sub-document in document order, returning the first result. The scope
// is reset to the top-level document before every entry; a sub-document that
// cannot be entered is skipped. On success the session is left in the scope
// the element belongs to. Otherwise it is left at the top level.
func (l *Locator) LocateAcrossScopes(ctx context.Context, sess browser.Session, kw hints.Keywords) (Match, error) {
	if err := sess.ResetScope(ctx); err != nil {
		return Match{}, err
	}
	el, err := l.FindBestInput(ctx, sess, kw)
	if err != nil {
		return Match{}, err
	}
	if el != nil {
		return Match{Element: el, Scope: browser.TopLevel}, nil
	}

	n, err := sess.SubDocuments(ctx)
	if err != nil {
		if aErr := abort(ctx, err); aErr != nil {
			return Match{}, aErr
		}
		l.logger.Warn("Could not count sub-documents.", zap.Error(err))
		return Match{}, nil
	}

	for i := 0; i < n; i++ {
		scope := browser.SubDocument(i)
		if err := sess.ResetScope(ctx); err != nil {
			return Match{}, err
		}
		if err := sess.EnterScope(ctx, scope); err != nil {
			if aErr := abort(ctx, err); aErr != nil {
				return Match{}, aErr
			}
			l.logger.Warn("Skipping sub-document.", zap.Stringer("scope", scope), zap.Error(err))
			continue
		}
		el, err := l.FindBestInput(ctx, sess, kw)
		if err != nil {
			return Match{}, err
		}
		if el != nil {
			return Match{Element: el, Scope: scope}, nil
		}
	}

	if err := sess.ResetScope(ctx); err != nil {
		return Match{}, err
	}
	return Match{}, nil
}

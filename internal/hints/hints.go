// Package hints implements case-insensitive keyword containment, the single
// matching primitive shared by the control classifier and the input locator.
package hints

import "strings"

// Keywords is an ordered, case-normalised keyword set. The zero value is an
// empty set, which never matches.
type Keywords []string

// NewKeywords normalises raw keywords once: each entry is trimmed and
// lower-cased, and entries that end up empty are dropped. Order is preserved.
func NewKeywords(raw ...string) Keywords {
	kw := make(Keywords, 0, len(raw))
	for _, k := range raw {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		kw = append(kw, k)
	}
	return kw
}

// Matches reports whether any keyword is a substring of the lower-cased label.
// An empty label or an empty keyword set never matches.
func Matches(label string, kw Keywords) bool {
	if label == "" || len(kw) == 0 {
		return false
	}
	_, ok := kw.First(label)
	return ok
}

// First returns the first keyword contained in label, for narration.
func (kw Keywords) First(label string) (string, bool) {
	label = strings.ToLower(label)
	for _, k := range kw {
		// Folding again keeps literal Keywords{...} values working.
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" && strings.Contains(label, k) {
			return k, true
		}
	}
	return "", false
}

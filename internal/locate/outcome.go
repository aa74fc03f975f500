package locate

import "errors"

// Reasons a candidate is passed over without any driver failure.
var (
	ErrNoLabel    = errors.New("candidate has no label")
	ErrNotVisible = errors.New("candidate is not visible")
	ErrNotEnabled = errors.New("candidate is disabled")
)

// Outcome is the result of probing one candidate: either a value, or the
// reason the candidate is skipped.
type Outcome[T any] struct {
	value  T
	reason error
}

// Ok wraps a usable value.
func Ok[T any](v T) Outcome[T] { return Outcome[T]{value: v} }

// Skip records why a candidate is passed over. A nil reason is replaced so
// that a Skip can never be mistaken for an Ok.
func Skip[T any](reason error) Outcome[T] {
	if reason == nil {
		reason = errors.New("skipped")
	}
	return Outcome[T]{reason: reason}
}

// Get returns the value and whether the outcome is Ok.
func (o Outcome[T]) Get() (T, bool) { return o.value, o.reason == nil }

// Skipped reports whether the candidate was passed over.
func (o Outcome[T]) Skipped() bool { return o.reason != nil }

// Reason returns why the candidate was skipped, or nil.
func (o Outcome[T]) Reason() error { return o.reason }

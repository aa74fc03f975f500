// internal/browser/errors.go
package browser

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrSessionLost means the browser session itself is unusable. It is the
	// only failure allowed to abort a whole run.
	ErrSessionLost = errors.New("browser session lost")

	// ErrStaleElement indicates that an element handle is no longer attached
	// to the document, usually after navigation or a DOM rewrite.
	ErrStaleElement = errors.New("element is stale or detached from the document")

	// ErrScopeEntry indicates that a sub-document could not be entered
	// (cross-origin restriction, detached frame, index out of range).
	ErrScopeEntry = errors.New("cannot enter document scope")

	// ErrUnsupported is returned by drivers for operations they cannot perform.
	ErrUnsupported = errors.New("operation not supported by driver")
)

// IsFatal reports whether err means the session is gone.
func IsFatal(err error) bool {
	return errors.Is(err, ErrSessionLost)
}

// sessionGoneMarkers are substrings drivers surface once the browser process
// or its websocket has gone away.
var sessionGoneMarkers = []string{
	"invalid context",
	"websocket: close",
	"use of closed network connection",
	"target closed",
	"browser has been closed",
	"browser has disconnected",
	"context or browser has been closed",
	"playwright connection closed",
	"connection reset by peer",
	"broken pipe",
	"no such target",
}

// LooksFatal is a best-effort classifier for raw driver errors. sessionCtx is
// the long-lived session context; if it is done the session is gone no matter
// what the error says.
func LooksFatal(sessionCtx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSessionLost) {
		return true
	}
	if sessionCtx != nil && sessionCtx.Err() != nil {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range sessionGoneMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// staleMarkers are substrings CDP-based drivers report for detached nodes.
var staleMarkers = []string{
	"could not find node",
	"node with given id does not belong to the document",
	"no node with given id",
	"cannot find context with specified id",
	"element is not attached",
	"-32000",
}

// LooksStale reports whether a raw driver error describes a detached node.
func LooksStale(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrStaleElement) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range staleMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

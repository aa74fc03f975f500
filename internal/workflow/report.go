package workflow

import (
	"fmt"

	"go.uber.org/zap"
)

// State is a step of the per-link sequence.
type State int

const (
	StateOpening State = iota
	StateReady
	StateScrolled
	StateClicked
	StateMessaging
	StateDone
)

func (s State) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateReady:
		return "ready"
	case StateScrolled:
		return "scrolled"
	case StateClicked:
		return "clicked"
	case StateMessaging:
		return "messaging"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// LinkReport summarises what happened to one link.
type LinkReport struct {
	RunID string
	URL   string
	// State is the last state reached. Anything short of StateDone means the
	// run was aborted by a lost session or cancellation.
	State State

	OpenFailed    bool
	ReadyTimedOut bool
	ScrollRounds  int

	TriggerLabel string
	Clicked      bool

	InputFound bool
	InputScope string

	MessagesSent   int
	MessagesFailed int
}

// Fields renders the report as structured log fields.
func (r LinkReport) Fields() []zap.Field {
	fields := []zap.Field{
		zap.String("run_id", r.RunID),
		zap.String("url", r.URL),
		zap.Stringer("state", r.State),
		zap.Int("scroll_rounds", r.ScrollRounds),
		zap.Bool("clicked", r.Clicked),
		zap.Bool("input_found", r.InputFound),
		zap.Int("messages_sent", r.MessagesSent),
		zap.Int("messages_failed", r.MessagesFailed),
	}
	if r.OpenFailed {
		fields = append(fields, zap.Bool("open_failed", true))
	}
	if r.ReadyTimedOut {
		fields = append(fields, zap.Bool("ready_timed_out", true))
	}
	if r.TriggerLabel != "" {
		fields = append(fields, zap.String("trigger", r.TriggerLabel))
	}
	if r.InputScope != "" {
		fields = append(fields, zap.String("input_scope", r.InputScope))
	}
	return fields
}

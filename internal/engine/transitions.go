// Package engine runs the application pipeline and owns its state machine.
//
// Valid status graph:
//
//	discovered ──► scored ──► queued ──► applying ──► applied
//	    │            │  │                    │
//	    │            │  └──► skipped         └──► failed
//	    │            └─────► excluded
//	    └──────────────────► rejected
//
// applied, failed, skipped, excluded, and rejected are terminal states.
// A queued record that cannot proceed (daily limit, open breaker) simply
// stays queued; that is not a transition.
package engine

import "fmt"

// Status is a record's position in the application lifecycle. Stored as
// text in the applications table.
type Status string

const (
	StatusDiscovered Status = "discovered"
	StatusRejected   Status = "rejected"
	StatusScored     Status = "scored"
	StatusExcluded   Status = "excluded"
	StatusSkipped    Status = "skipped"
	StatusQueued     Status = "queued"
	StatusApplying   Status = "applying"
	StatusApplied    Status = "applied"
	StatusFailed     Status = "failed"
)

// ErrInvariant flags an illegal transition. It is a bug, never expected
// flow, so callers treat it as fatal rather than swallowing it.
type ErrInvariant struct {
	From Status
	To   Status
}

func (e *ErrInvariant) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// validTransitions lists every allowed (from → to) pair.
var validTransitions = map[Status][]Status{
	StatusDiscovered: {StatusRejected, StatusScored},
	StatusScored:     {StatusExcluded, StatusSkipped, StatusQueued},
	StatusQueued:     {StatusApplying},
	StatusApplying:   {StatusApplied, StatusFailed},
	// terminal states have no outgoing transitions
}

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusDiscovered, StatusRejected, StatusScored, StatusExcluded,
		StatusSkipped, StatusQueued, StatusApplying, StatusApplied, StatusFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown application status %q", s)
}

// IsTerminal reports whether the status has no outgoing transitions.
func IsTerminal(s Status) bool {
	return len(validTransitions[s]) == 0
}

// IsTransitionAllowed returns true when moving from → to is permitted by
// the state machine.
func IsTransitionAllowed(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CheckTransition returns an *ErrInvariant for an illegal move. Every
// status write in the engine goes through this guard.
func CheckTransition(from, to Status) error {
	if !IsTransitionAllowed(from, to) {
		return &ErrInvariant{From: from, To: to}
	}
	return nil
}

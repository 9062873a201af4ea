package engine

import (
	"errors"
	"testing"
)

func TestTransitionTable(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusDiscovered, StatusRejected},
		{StatusDiscovered, StatusScored},
		{StatusScored, StatusExcluded},
		{StatusScored, StatusSkipped},
		{StatusScored, StatusQueued},
		{StatusQueued, StatusApplying},
		{StatusApplying, StatusApplied},
		{StatusApplying, StatusFailed},
	}
	for _, tc := range allowed {
		if !IsTransitionAllowed(tc.from, tc.to) {
			t.Errorf("%s -> %s should be allowed", tc.from, tc.to)
		}
	}

	forbidden := []struct{ from, to Status }{
		{StatusDiscovered, StatusQueued},
		{StatusDiscovered, StatusApplied},
		{StatusScored, StatusApplied},
		{StatusQueued, StatusApplied},
		{StatusQueued, StatusScored},
		{StatusApplied, StatusQueued},
		{StatusApplied, StatusApplying},
		{StatusFailed, StatusQueued},
		{StatusRejected, StatusScored},
		{StatusSkipped, StatusQueued},
		{StatusExcluded, StatusQueued},
		{StatusApplying, StatusQueued},
	}
	for _, tc := range forbidden {
		if IsTransitionAllowed(tc.from, tc.to) {
			t.Errorf("%s -> %s should be forbidden", tc.from, tc.to)
		}
	}
}

func TestTerminalStates(t *testing.T) {
	for _, s := range []Status{StatusApplied, StatusFailed, StatusSkipped, StatusExcluded, StatusRejected} {
		if !IsTerminal(s) {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusDiscovered, StatusScored, StatusQueued, StatusApplying} {
		if IsTerminal(s) {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestCheckTransitionError(t *testing.T) {
	err := CheckTransition(StatusQueued, StatusApplied)
	if err == nil {
		t.Fatal("expected invariant error")
	}
	var inv *ErrInvariant
	if !errors.As(err, &inv) {
		t.Fatalf("err = %T, want *ErrInvariant", err)
	}
	if inv.From != StatusQueued || inv.To != StatusApplied {
		t.Errorf("invariant = %+v", inv)
	}
}

func TestParseStatus(t *testing.T) {
	if s, err := ParseStatus("queued"); err != nil || s != StatusQueued {
		t.Errorf("ParseStatus(queued) = %v, %v", s, err)
	}
	if _, err := ParseStatus("pending"); err == nil {
		t.Error("expected error for unknown status")
	}
}

package models

import (
	"testing"
	"time"
)

func TestNextDueWithoutRecurrence(t *testing.T) {
	due := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	check := StatusCheck{Due: due}

	if got := check.NextDue(); !got.Equal(due) {
		t.Errorf("NextDue() = %v, want %v", got, due)
	}
}

func TestNextDueWithRecurrence(t *testing.T) {
	rule := "FREQ=DAILY;COUNT=30"
	due := time.Now().Add(-time.Hour).Truncate(time.Second).UTC()
	check := StatusCheck{Due: due, RecurringInterval: &rule}

	next := check.NextDue()
	if !next.After(time.Now().Add(-time.Minute)) {
		t.Errorf("NextDue() = %v, want a time at or after now", next)
	}
}

func TestNextDueWithBadRule(t *testing.T) {
	rule := "not an rrule"
	due := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	check := StatusCheck{Due: due, RecurringInterval: &rule}

	if got := check.NextDue(); !got.Equal(due) {
		t.Errorf("NextDue() = %v, want fallback to %v", got, due)
	}
}

package streak

import (
	"fmt"
	"time"
)

// Rule is a habit's recurrence period. The set is closed; callers validate
// inbound strings with ParseRule before any eligibility math runs.
type Rule string

const (
	RuleDaily   Rule = "daily"
	RuleWeekly  Rule = "weekly"
	RuleMonthly Rule = "monthly"
)

func ParseRule(s string) (Rule, error) {
	switch Rule(s) {
	case RuleDaily, RuleWeekly, RuleMonthly:
		return Rule(s), nil
	}
	return "", fmt.Errorf("unknown recurrence rule %q", s)
}

// Eligibility reports whether a habit is locked and, whenever there is a
// prior completion, the UTC instant it unlocks (informational even when
// already unlocked).
type Eligibility struct {
	Locked    bool       `json:"locked"`
	UnlocksAt *time.Time `json:"unlocks_at,omitempty"`
}

// ComputeEligibility applies one recurrence period to the UTC midnight of
// the most recent completion day. A nil last means never completed.
//
// Monthly adds one calendar month keeping the day-of-month, clamped to the
// target month's last day: Jan 31 unlocks Feb 28 (29 in leap years), never
// rolling over into March.
func ComputeEligibility(rule Rule, last *Day, now time.Time) Eligibility {
	if last == nil {
		return Eligibility{}
	}

	base := last.Time()
	var unlocksAt time.Time
	switch rule {
	case RuleWeekly:
		unlocksAt = base.AddDate(0, 0, 7)
	case RuleMonthly:
		unlocksAt = addMonthClamped(base)
	default:
		unlocksAt = base.AddDate(0, 0, 1)
	}

	return Eligibility{
		Locked:    now.UTC().Before(unlocksAt),
		UnlocksAt: &unlocksAt,
	}
}

func addMonthClamped(t time.Time) time.Time {
	y, m, d := t.Date()
	// Day 0 of month+2 is the last day of month+1; time.Date normalizes
	// out-of-range months, so December wraps correctly.
	lastOfTarget := time.Date(y, m+2, 0, 0, 0, 0, 0, time.UTC).Day()
	if d > lastOfTarget {
		d = lastOfTarget
	}
	return time.Date(y, m+1, d, 0, 0, 0, 0, time.UTC)
}

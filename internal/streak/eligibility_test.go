package streak

import (
	"testing"
	"time"
)

func utc(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestComputeEligibilityNeverCompleted(t *testing.T) {
	got := ComputeEligibility(RuleDaily, nil, utc("2024-01-15T12:00:00Z"))
	if got.Locked {
		t.Fatal("never-completed habit must be unlocked")
	}
	if got.UnlocksAt != nil {
		t.Fatalf("never-completed habit must have no unlock instant, got %v", got.UnlocksAt)
	}
}

func TestComputeEligibilityDaily(t *testing.T) {
	last := dayAt("2024-01-15")

	cases := []struct {
		name       string
		now        time.Time
		wantLocked bool
	}{
		{"at_completion_midnight", utc("2024-01-15T00:00:00Z"), true},
		{"same_day_evening", utc("2024-01-15T23:59:59Z"), true},
		{"exactly_next_midnight", utc("2024-01-16T00:00:00Z"), false},
		{"after_next_midnight", utc("2024-01-16T08:30:00Z"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeEligibility(RuleDaily, &last, tc.now)
			if got.Locked != tc.wantLocked {
				t.Fatalf("locked=%v, want %v", got.Locked, tc.wantLocked)
			}
			if got.UnlocksAt == nil || !got.UnlocksAt.Equal(utc("2024-01-16T00:00:00Z")) {
				t.Fatalf("unlocksAt=%v, want 2024-01-16T00:00:00Z", got.UnlocksAt)
			}
		})
	}
}

func TestComputeEligibilityWeekly(t *testing.T) {
	last := dayAt("2024-01-15")
	got := ComputeEligibility(RuleWeekly, &last, utc("2024-01-20T10:00:00Z"))
	if !got.Locked {
		t.Fatal("expected locked inside the week window")
	}
	if !got.UnlocksAt.Equal(utc("2024-01-22T00:00:00Z")) {
		t.Fatalf("unlocksAt=%v, want 2024-01-22T00:00:00Z", got.UnlocksAt)
	}
}

func TestComputeEligibilityMonthly(t *testing.T) {
	cases := []struct {
		name string
		last string
		want string
	}{
		{"regular_day", "2024-03-10", "2024-04-10T00:00:00Z"},
		{"jan31_clamps_to_feb29_leap", "2024-01-31", "2024-02-29T00:00:00Z"},
		{"jan31_clamps_to_feb28", "2023-01-31", "2023-02-28T00:00:00Z"},
		{"mar31_clamps_to_apr30", "2024-03-31", "2024-04-30T00:00:00Z"},
		{"december_wraps_year", "2024-12-15", "2025-01-15T00:00:00Z"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			last := dayAt(tc.last)
			got := ComputeEligibility(RuleMonthly, &last, last.Time().Add(time.Hour))
			if !got.Locked {
				t.Fatal("expected locked an hour after completion")
			}
			if !got.UnlocksAt.Equal(utc(tc.want)) {
				t.Fatalf("unlocksAt=%v, want %s", got.UnlocksAt, tc.want)
			}
		})
	}
}

func TestParseRule(t *testing.T) {
	for _, valid := range []string{"daily", "weekly", "monthly"} {
		if _, err := ParseRule(valid); err != nil {
			t.Fatalf("ParseRule(%q) unexpected error: %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "hourly", "DAILY", "yearly"} {
		if _, err := ParseRule(invalid); err == nil {
			t.Fatalf("ParseRule(%q) expected error", invalid)
		}
	}
}

func TestDayOfNormalizesZones(t *testing.T) {
	// 23:30 in UTC-5 is already the next UTC day.
	loc := time.FixedZone("UTC-5", -5*60*60)
	local := time.Date(2024, 1, 15, 23, 30, 0, 0, loc)
	if got, want := DayOf(local), dayAt("2024-01-16"); got != want {
		t.Fatalf("DayOf(%v)=%v, want %v", local, got, want)
	}

	early := time.Date(2024, 1, 15, 0, 0, 1, 0, time.UTC)
	lateSameDay := time.Date(2024, 1, 15, 23, 59, 59, 0, time.UTC)
	if DayOf(early) != DayOf(lateSameDay) {
		t.Fatal("instants within one UTC day must map to the same Day")
	}

	d := dayAt("2024-01-16")
	if got := d.Sub(dayAt("2024-01-10")); got != 6 {
		t.Fatalf("Sub=%d, want 6", got)
	}
	if got := d.Time(); !got.Equal(utc("2024-01-16T00:00:00Z")) {
		t.Fatalf("Time()=%v, want UTC midnight", got)
	}
}

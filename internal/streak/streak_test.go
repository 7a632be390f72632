package streak

import (
	"testing"
	"time"
)

func dayAt(s string) Day {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return DayOf(t)
}

func TestCompute(t *testing.T) {
	today := dayAt("2024-01-03")

	cases := []struct {
		name  string
		days  []Day
		today Day
		want  State
	}{
		{
			name:  "empty_history",
			days:  nil,
			today: today,
			want:  State{},
		},
		{
			name:  "single_day_is_today",
			days:  []Day{today},
			today: today,
			want:  State{Current: 1, Longest: 1},
		},
		{
			name:  "single_day_not_today",
			days:  []Day{today.AddDays(-5)},
			today: today,
			want:  State{Current: 0, Longest: 1},
		},
		{
			name:  "consecutive_run_ending_today",
			days:  []Day{today, today.AddDays(-1), today.AddDays(-2)},
			today: today,
			want:  State{Current: 3, Longest: 3},
		},
		{
			name:  "broken_run",
			days:  []Day{today, today.AddDays(-2)},
			today: today,
			want:  State{Current: 1, Longest: 1},
		},
		{
			name:  "historical_longest_exceeds_current",
			days:  []Day{today.AddDays(-10), today.AddDays(-9), today.AddDays(-8), today},
			today: today,
			want:  State{Current: 1, Longest: 3},
		},
		{
			name:  "unsorted_input",
			days:  []Day{today.AddDays(-1), today, today.AddDays(-2)},
			today: today,
			want:  State{Current: 3, Longest: 3},
		},
		{
			name:  "duplicate_days_collapse",
			days:  []Day{today, today, today.AddDays(-1), today.AddDays(-1)},
			today: today,
			want:  State{Current: 2, Longest: 2},
		},
		{
			name:  "completed_yesterday_but_not_today",
			days:  []Day{dayAt("2024-01-01"), dayAt("2024-01-02")},
			today: dayAt("2024-01-05"),
			want:  State{Current: 0, Longest: 2},
		},
		{
			name:  "three_day_run_scenario",
			days:  []Day{dayAt("2024-01-01"), dayAt("2024-01-02"), dayAt("2024-01-03")},
			today: dayAt("2024-01-03"),
			want:  State{Current: 3, Longest: 3},
		},
		{
			name: "long_streak_beyond_a_year",
			days: func() []Day {
				out := make([]Day, 0, 400)
				for i := 0; i < 400; i++ {
					out = append(out, today.AddDays(-i))
				}
				return out
			}(),
			today: today,
			want:  State{Current: 400, Longest: 400},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Compute(tc.days, tc.today)
			if got != tc.want {
				t.Fatalf("Compute(%v, %v)=%+v, want %+v", tc.days, tc.today, got, tc.want)
			}
			if got.Longest < got.Current {
				t.Fatalf("invariant violated: longest %d < current %d", got.Longest, got.Current)
			}
		})
	}
}

func TestComputeOrderIndependence(t *testing.T) {
	today := dayAt("2024-06-10")
	days := []Day{today, today.AddDays(-3), today.AddDays(-1), today.AddDays(-2), today.AddDays(-7)}

	want := Compute(days, today)
	for i := 0; i < len(days); i++ {
		rotated := append(append([]Day{}, days[i:]...), days[:i]...)
		if got := Compute(rotated, today); got != want {
			t.Fatalf("rotation %d: got %+v, want %+v", i, got, want)
		}
	}
}

func TestComputeDedupIdempotence(t *testing.T) {
	today := dayAt("2024-06-10")
	days := []Day{today, today.AddDays(-1)}

	before := Compute(days, today)
	after := Compute(append(days, today.AddDays(-1)), today)
	if before != after {
		t.Fatalf("duplicate day changed result: %+v vs %+v", before, after)
	}
}

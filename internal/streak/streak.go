package streak

import "slices"

// State is derived from a set of completion days and never stored as the
// source of truth. Longest >= Current always holds.
type State struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

// Compute derives the streak state for one owner from its active days.
// today is injected by the caller so the function stays pure and testable.
//
// days may arrive unsorted and may contain duplicates; event count per day
// carries no meaning, only the set of distinct days does.
func Compute(days []Day, today Day) State {
	if len(days) == 0 {
		return State{}
	}

	uniq := make(map[Day]struct{}, len(days))
	for _, d := range days {
		uniq[d] = struct{}{}
	}
	sorted := make([]Day, 0, len(uniq))
	for d := range uniq {
		sorted = append(sorted, d)
	}
	slices.Sort(sorted)

	longest := 1
	run := 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Sub(sorted[i-1]) == 1 {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 1
		}
	}

	// Current streak: walk backward from today while each day is present.
	// The walk is bounded by the span of the data itself, not by an
	// arbitrary constant, so arbitrarily long streaks stay correct.
	current := 0
	if _, ok := uniq[today]; ok {
		current = 1
		span := today.Sub(sorted[0])
		for i := 1; i <= span; i++ {
			if _, ok := uniq[today.AddDays(-i)]; !ok {
				break
			}
			current++
		}
	}

	if current > longest {
		longest = current
	}
	return State{Current: current, Longest: longest}
}

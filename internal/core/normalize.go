package core

import "sort"

// NormalizeBalances classifies each balance as owes, owed, or settled and
// orders the list for display: largest creditor first, ties broken by member
// id ascending so repeated runs on identical input produce identical output.
// The ordering also feeds the settlement planner's greedy matching.
//
// The input is not mutated; callers may share the aggregation result.
func NormalizeBalances(raw []Balance) []Balance {
	out := make([]Balance, len(raw))
	copy(out, raw)

	for i := range out {
		switch {
		case out[i].Net.Cents < 0:
			out[i].Status = StatusOwes
		case out[i].Net.Cents > 0:
			out[i].Status = StatusOwed
		default:
			out[i].Status = StatusSettled
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Net.Cents != out[j].Net.Cents {
			return out[i].Net.Cents > out[j].Net.Cents
		}
		return out[i].MemberID < out[j].MemberID
	})

	return out
}

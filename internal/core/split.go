package core

// ValidateExpenseSplit checks that an expense's shares are a consistent split
// of its total: at least one share, every share amount positive, no member
// listed twice, and the share sum exactly equal to the expense amount.
// Amounts are integer cents, so equality is exact with no tolerance.
//
// The check runs as a gate at write time; the aggregator re-runs it
// defensively on read and excludes (never fixes) anything that fails.
func ValidateExpenseSplit(e Expense) error {
	if len(e.Shares) == 0 {
		return &SplitError{ExpenseID: e.ID, Rule: SplitRuleEmptyShares}
	}

	seen := make(map[string]struct{}, len(e.Shares))
	var sum int64
	for _, share := range e.Shares {
		if share.Amount.Cents <= 0 {
			return &SplitError{ExpenseID: e.ID, Rule: SplitRuleNonPositive, MemberID: share.MemberID}
		}
		if _, ok := seen[share.MemberID]; ok {
			return &SplitError{ExpenseID: e.ID, Rule: SplitRuleDuplicate, MemberID: share.MemberID}
		}
		seen[share.MemberID] = struct{}{}
		sum += share.Amount.Cents
	}

	if sum != e.Amount.Cents {
		return &SplitError{
			ExpenseID: e.ID,
			Rule:      SplitRuleSumMismatch,
			WantCents: e.Amount.Cents,
			GotCents:  sum,
		}
	}
	return nil
}

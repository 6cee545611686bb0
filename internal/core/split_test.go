package core

import (
	"errors"
	"testing"
)

func expense(id, payer string, total int64, shares ...ExpenseShare) Expense {
	return Expense{
		ID:       id,
		GroupID:  "g1",
		PayerID:  payer,
		Amount:   Money{Cents: total},
		Currency: "USD",
		Shares:   shares,
	}
}

func share(member string, cents int64) ExpenseShare {
	return ExpenseShare{MemberID: member, Amount: Money{Cents: cents}}
}

func TestValidateExpenseSplit(t *testing.T) {
	tests := []struct {
		name     string
		exp      Expense
		wantRule SplitRule
	}{
		{
			name: "exact equal split is valid",
			exp:  expense("e1", "alice", 12000, share("alice", 4000), share("bob", 4000), share("carol", 4000)),
		},
		{
			name: "uneven but exact split is valid",
			exp:  expense("e2", "alice", 1001, share("alice", 500), share("bob", 501)),
		},
		{
			name:     "share sum one cent short",
			exp:      expense("e3", "alice", 12000, share("alice", 4000), share("bob", 4000), share("carol", 3999)),
			wantRule: SplitRuleSumMismatch,
		},
		{
			name:     "share sum one cent over",
			exp:      expense("e4", "alice", 12000, share("alice", 4000), share("bob", 4000), share("carol", 4001)),
			wantRule: SplitRuleSumMismatch,
		},
		{
			name:     "zero share",
			exp:      expense("e5", "alice", 4000, share("alice", 4000), share("bob", 0)),
			wantRule: SplitRuleNonPositive,
		},
		{
			name:     "negative share",
			exp:      expense("e6", "alice", 3000, share("alice", 4000), share("bob", -1000)),
			wantRule: SplitRuleNonPositive,
		},
		{
			name:     "duplicate member",
			exp:      expense("e7", "alice", 8000, share("bob", 4000), share("bob", 4000)),
			wantRule: SplitRuleDuplicate,
		},
		{
			name:     "no shares",
			exp:      expense("e8", "alice", 8000),
			wantRule: SplitRuleEmptyShares,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateExpenseSplit(tt.exp)
			if tt.wantRule == "" {
				if err != nil {
					t.Fatalf("expected valid split, got %v", err)
				}
				return
			}
			var splitErr *SplitError
			if !errors.As(err, &splitErr) {
				t.Fatalf("expected *SplitError, got %T (%v)", err, err)
			}
			if splitErr.Rule != tt.wantRule {
				t.Errorf("rule = %s, want %s", splitErr.Rule, tt.wantRule)
			}
			if splitErr.ExpenseID != tt.exp.ID {
				t.Errorf("expense id = %s, want %s", splitErr.ExpenseID, tt.exp.ID)
			}
		})
	}
}

// Perturbing any single share of a valid split by one cent in either
// direction must make it invalid.
func TestValidateExpenseSplitPerturbation(t *testing.T) {
	base := expense("e1", "alice", 12000, share("alice", 4000), share("bob", 4000), share("carol", 4000))
	if err := ValidateExpenseSplit(base); err != nil {
		t.Fatalf("base expense must be valid: %v", err)
	}

	for i := range base.Shares {
		for _, delta := range []int64{-1, 1} {
			perturbed := expense(base.ID, base.PayerID, base.Amount.Cents)
			perturbed.Shares = make([]ExpenseShare, len(base.Shares))
			copy(perturbed.Shares, base.Shares)
			perturbed.Shares[i].Amount.Cents += delta

			if err := ValidateExpenseSplit(perturbed); err == nil {
				t.Errorf("share %d perturbed by %+d: expected invalid", i, delta)
			}
		}
	}
}

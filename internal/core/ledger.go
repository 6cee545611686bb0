package core

import "sort"

// LedgerResult is the outcome of folding one group's records into net
// balances. Balances are raw (unclassified) and ordered by member id;
// NormalizeBalances produces the display ordering.
type LedgerResult struct {
	Balances []Balance
	Currency string

	// Warnings lists expenses that failed the defensive split re-validation
	// and were excluded from aggregation. Their presence means the write-time
	// gate was bypassed; the caller decides how loudly to surface that.
	Warnings []*SplitError
}

// AggregateBalances folds all non-deleted expenses and payments of one group
// into one signed net balance per member. The payer of an expense is credited
// the full amount and every participant debited their share, so a payer who
// also participates nets to amount minus own share. A payment credits the
// payer and debits the recipient by the transferred amount and never creates
// new debt.
//
// Records are processed in the order given (insertion order), making repeated
// recomputation over the same snapshot reproducible bit for bit. The function
// allocates all working state per call and is safe for concurrent use.
//
// Every expense is re-validated and excluded (not fixed) on failure; mixed
// currencies abort with *CurrencyError; a non-zero balance sum is reported as
// *IntegrityError since valid inputs always cancel out exactly.
func AggregateBalances(groupID, currency string, members []Member, expenses []Expense, payments []Payment) (*LedgerResult, error) {
	net := make(map[string]int64, len(members))
	names := make(map[string]string, len(members))
	for _, m := range members {
		net[m.ID] = 0
		names[m.ID] = m.Name
	}

	touch := func(memberID string) {
		if _, ok := net[memberID]; !ok {
			net[memberID] = 0
		}
	}

	var warnings []*SplitError
	for _, e := range expenses {
		if e.Currency != currency {
			return nil, &CurrencyError{GroupID: groupID, Want: currency, Got: e.Currency}
		}
		if err := ValidateExpenseSplit(e); err != nil {
			warnings = append(warnings, err.(*SplitError))
			continue
		}
		touch(e.PayerID)
		net[e.PayerID] += e.Amount.Cents
		for _, share := range e.Shares {
			touch(share.MemberID)
			net[share.MemberID] -= share.Amount.Cents
		}
	}

	for _, p := range payments {
		if p.Currency != currency {
			return nil, &CurrencyError{GroupID: groupID, Want: currency, Got: p.Currency}
		}
		touch(p.PayerID)
		touch(p.RecipientID)
		net[p.PayerID] += p.Amount.Cents
		net[p.RecipientID] -= p.Amount.Cents
	}

	ids := make([]string, 0, len(net))
	var residual int64
	for id, cents := range net {
		ids = append(ids, id)
		residual += cents
	}
	if residual != 0 {
		return nil, &IntegrityError{GroupID: groupID, ResidualCents: residual}
	}
	sort.Strings(ids)

	balances := make([]Balance, 0, len(ids))
	for _, id := range ids {
		name := names[id]
		if name == "" {
			name = id
		}
		balances = append(balances, Balance{
			MemberID: id,
			Name:     name,
			Net:      Money{Cents: net[id]},
			Currency: currency,
		})
	}

	return &LedgerResult{Balances: balances, Currency: currency, Warnings: warnings}, nil
}

// PairwiseDebts builds the per-pair debt matrix: debts[debtor][creditor] is
// the positive amount in cents the debtor still owes that creditor. Opposite
// edges between the same two members are netted as they accumulate.
//
// Payments carry target-refund semantics: a payment reduces the payer's debt
// to the named recipient only. Paying more than the outstanding pairwise debt
// flips the direction of that pair's edge rather than spilling into other
// pairs.
func PairwiseDebts(expenses []Expense, payments []Payment) (map[string]map[string]int64, []*SplitError) {
	debts := make(map[string]map[string]int64)

	var warnings []*SplitError
	for _, e := range expenses {
		if err := ValidateExpenseSplit(e); err != nil {
			warnings = append(warnings, err.(*SplitError))
			continue
		}
		for _, share := range e.Shares {
			if share.MemberID == e.PayerID {
				continue
			}
			addDebt(debts, share.MemberID, e.PayerID, share.Amount.Cents)
		}
	}

	// Payer settling up owes less to the recipient, which is the same
	// arithmetic as the recipient taking on debt toward the payer.
	for _, p := range payments {
		addDebt(debts, p.RecipientID, p.PayerID, p.Amount.Cents)
	}

	return debts, warnings
}

func addDebt(debts map[string]map[string]int64, debtor, creditor string, cents int64) {
	if rev, ok := debts[creditor][debtor]; ok {
		switch {
		case rev > cents:
			debts[creditor][debtor] = rev - cents
			return
		case rev == cents:
			delete(debts[creditor], debtor)
			if len(debts[creditor]) == 0 {
				delete(debts, creditor)
			}
			return
		default:
			cents -= rev
			delete(debts[creditor], debtor)
			if len(debts[creditor]) == 0 {
				delete(debts, creditor)
			}
		}
	}
	if debts[debtor] == nil {
		debts[debtor] = make(map[string]int64)
	}
	debts[debtor][creditor] += cents
}

package core

import "sort"

// party is one side of the settlement matching: a member id and the positive
// magnitude still to be settled.
type party struct {
	id        string
	remaining int64
}

// PlanSettlements produces the ordered list of payer-to-recipient transfers
// that brings every balance to zero, using greedy largest-magnitude matching:
// repeatedly pair the largest creditor with the largest debtor and transfer
// the smaller of the two magnitudes. Each step fully zeroes at least one
// party, so the plan holds at most N-1 transfers for N imbalanced members.
//
// The greedy strategy trades exhaustive optimality for speed and simplicity:
// it does not always find the theoretical minimum transfer count (that search
// is NP-hard in general), and callers must not present the plan as globally
// optimal. Ties in magnitude break toward the lexicographically smaller
// member id, so identical input always yields an identical plan.
//
// Already-settled members are skipped; no members left imbalanced is an empty
// plan, not an error. Balances that do not cancel to zero mean corrupt input
// and abort with *IntegrityError.
func PlanSettlements(groupID string, balances []Balance) ([]Settlement, error) {
	var (
		creditors []party
		debtors   []party
		currency  string
		residual  int64
	)
	for _, b := range balances {
		if b.Net.Cents == 0 {
			continue
		}
		if currency == "" {
			currency = b.Currency
		} else if b.Currency != currency {
			return nil, &CurrencyError{GroupID: groupID, Want: currency, Got: b.Currency}
		}
		residual += b.Net.Cents
		if b.Net.Cents > 0 {
			creditors = append(creditors, party{id: b.MemberID, remaining: b.Net.Cents})
		} else {
			debtors = append(debtors, party{id: b.MemberID, remaining: -b.Net.Cents})
		}
	}
	if len(creditors) == 0 && len(debtors) == 0 {
		return []Settlement{}, nil
	}
	if residual != 0 {
		return nil, &IntegrityError{GroupID: groupID, ResidualCents: residual}
	}

	plan := make([]Settlement, 0, len(creditors)+len(debtors)-1)
	for len(creditors) > 0 && len(debtors) > 0 {
		sortByMagnitude(creditors)
		sortByMagnitude(debtors)

		creditor := &creditors[0]
		debtor := &debtors[0]

		transfer := creditor.remaining
		if debtor.remaining < transfer {
			transfer = debtor.remaining
		}

		plan = append(plan, Settlement{
			PayerID:     debtor.id,
			RecipientID: creditor.id,
			Amount:      Money{Cents: transfer},
			Currency:    currency,
		})

		creditor.remaining -= transfer
		debtor.remaining -= transfer
		if creditor.remaining == 0 {
			creditors = creditors[1:]
		}
		if debtor.remaining == 0 {
			debtors = debtors[1:]
		}
	}

	// Zero-sum input guarantees both sides drain together.
	if len(creditors) > 0 || len(debtors) > 0 {
		return nil, &IntegrityError{GroupID: groupID, ResidualCents: residual}
	}
	return plan, nil
}

func sortByMagnitude(parties []party) {
	sort.Slice(parties, func(i, j int) bool {
		if parties[i].remaining != parties[j].remaining {
			return parties[i].remaining > parties[j].remaining
		}
		return parties[i].id < parties[j].id
	})
}

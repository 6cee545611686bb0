package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyMemberID = errors.New("empty member id")
	ErrEmptyGroupID  = errors.New("empty group id")
	ErrEmptyCurrency = errors.New("empty currency code")
	ErrSelfPayment   = errors.New("payer and recipient are the same member")
)

// SplitRule identifies which split-validation rule an expense violated.
type SplitRule string

const (
	SplitRuleSumMismatch SplitRule = "sum_mismatch"
	SplitRuleNonPositive SplitRule = "non_positive_share"
	SplitRuleDuplicate   SplitRule = "duplicate_member"
	SplitRuleEmptyShares SplitRule = "empty_shares"
)

// SplitError reports a split-validation failure for one expense.
// It is returned by ValidateExpenseSplit at write time and collected as a
// warning by the aggregator when a malformed expense slips through.
type SplitError struct {
	ExpenseID string
	Rule      SplitRule
	MemberID  string // offending member for duplicate/non-positive rules
	WantCents int64  // expense total, for sum mismatch
	GotCents  int64  // share sum, for sum mismatch
}

func (e *SplitError) Error() string {
	switch e.Rule {
	case SplitRuleSumMismatch:
		return fmt.Sprintf("expense %s: shares sum to %d cents, expense total is %d cents", e.ExpenseID, e.GotCents, e.WantCents)
	case SplitRuleNonPositive:
		return fmt.Sprintf("expense %s: share for member %s must be positive", e.ExpenseID, e.MemberID)
	case SplitRuleDuplicate:
		return fmt.Sprintf("expense %s: member %s appears in more than one share", e.ExpenseID, e.MemberID)
	case SplitRuleEmptyShares:
		return fmt.Sprintf("expense %s: no shares", e.ExpenseID)
	}
	return fmt.Sprintf("expense %s: invalid split", e.ExpenseID)
}

// CurrencyError reports an attempt to aggregate records denominated in
// differing currencies within one group. The core refuses to produce a result.
type CurrencyError struct {
	GroupID string
	Want    string
	Got     string
}

func (e *CurrencyError) Error() string {
	return fmt.Sprintf("group %s: currency %s does not match group currency %s", e.GroupID, e.Got, e.Want)
}

// IntegrityError reports a violated aggregation post-condition: balances that
// do not sum to zero. It signals corrupt input (a validator bypass upstream)
// and must be surfaced, never retried.
type IntegrityError struct {
	GroupID       string
	ResidualCents int64
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("group %s: balances sum to %d cents instead of zero", e.GroupID, e.ResidualCents)
}

package core

import (
	"strings"
	"time"
)

type (
	// Member is a participant of a group.
	Member struct {
		ID   string
		Name string
	}

	// Expense is one shared expense paid by a single member and split among
	// participants. The core treats it as immutable input once read; Shares
	// arrive pre-joined with the expense.
	Expense struct {
		ID          string
		GroupID     string
		PayerID     string
		Description string
		Amount      Money
		Currency    string
		Shares      []ExpenseShare
		CreatedAt   time.Time
	}

	// ExpenseShare is one member's slice of an expense total.
	ExpenseShare struct {
		MemberID string
		Amount   Money
	}

	// Payment is a point-to-point transfer between two members. A payment
	// creates no new debt: it offsets the payer's existing debt to the named
	// recipient by exactly the amount transferred.
	Payment struct {
		ID          string
		GroupID     string
		PayerID     string
		RecipientID string
		Note        string
		Amount      Money
		Currency    string
		CreatedAt   time.Time
	}

	// Balance is one member's derived net position. Positive Net means the
	// member is owed money; negative means the member owes. Balances live for
	// one query and are recomputed from source records on demand.
	Balance struct {
		MemberID string
		Name     string
		Net      Money
		Currency string
		Status   BalanceStatus
	}

	// Settlement is a recommended transfer from a debtor to a creditor. It is
	// not itself debt; it becomes a Payment only if the caller records one.
	Settlement struct {
		PayerID     string
		RecipientID string
		Amount      Money
		Currency    string
	}
)

// BalanceStatus classifies a member's normalized net position.
type BalanceStatus string

const (
	StatusOwes    BalanceStatus = "owes"
	StatusOwed    BalanceStatus = "owed"
	StatusSettled BalanceStatus = "settled"
)

func (e Expense) Validate() error {
	if strings.TrimSpace(e.GroupID) == "" {
		return ErrEmptyGroupID
	}
	if strings.TrimSpace(e.PayerID) == "" {
		return ErrEmptyMemberID
	}
	if strings.TrimSpace(e.Currency) == "" {
		return ErrEmptyCurrency
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	return ValidateExpenseSplit(e)
}

func (p Payment) Validate() error {
	if strings.TrimSpace(p.GroupID) == "" {
		return ErrEmptyGroupID
	}
	if strings.TrimSpace(p.PayerID) == "" || strings.TrimSpace(p.RecipientID) == "" {
		return ErrEmptyMemberID
	}
	if p.PayerID == p.RecipientID {
		return ErrSelfPayment
	}
	if strings.TrimSpace(p.Currency) == "" {
		return ErrEmptyCurrency
	}
	return p.Amount.Validate()
}

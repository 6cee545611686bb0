package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"divvy/internal/core"
	"divvy/internal/storage"
)

func newTestService(t *testing.T) *LedgerService {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "divvy.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	svc := NewLedgerService(repo, nil)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func seedTrio(t *testing.T, svc *LedgerService) (storage.Group, map[string]core.Member) {
	t.Helper()
	ctx := context.Background()

	group, err := svc.CreateGroup(ctx, "ski trip", "EUR")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	members := make(map[string]core.Member)
	for _, name := range []string{"alice", "bob", "carol"} {
		m, err := svc.AddMember(ctx, group.ID, name)
		if err != nil {
			t.Fatalf("AddMember(%s): %v", name, err)
		}
		members[name] = m
	}
	return group, members
}

func evenExpense(group storage.Group, payer core.Member, total int64, participants ...core.Member) core.Expense {
	share := total / int64(len(participants))
	e := core.Expense{
		GroupID: group.ID,
		PayerID: payer.ID,
		Amount:  core.Money{Cents: total},
	}
	for _, p := range participants {
		e.Shares = append(e.Shares, core.ExpenseShare{MemberID: p.ID, Amount: core.Money{Cents: share}})
	}
	return e
}

func TestCreateGroupValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateGroup(ctx, "", "EUR"); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := svc.CreateGroup(ctx, "trip", ""); !errors.Is(err, core.ErrEmptyCurrency) {
		t.Errorf("got %v, want ErrEmptyCurrency", err)
	}
}

func TestCreateExpenseRejectsBadSplit(t *testing.T) {
	svc := newTestService(t)
	group, members := seedTrio(t, svc)
	ctx := context.Background()

	e := evenExpense(group, members["alice"], 3000, members["alice"], members["bob"], members["carol"])
	e.Shares[0].Amount.Cents++ // break the sum

	_, err := svc.CreateExpense(ctx, e)
	var splitErr *core.SplitError
	if !errors.As(err, &splitErr) {
		t.Fatalf("got %v, want SplitError", err)
	}
	if splitErr.Rule != core.SplitRuleSumMismatch {
		t.Errorf("rule = %v, want %v", splitErr.Rule, core.SplitRuleSumMismatch)
	}

	expenses, err := svc.ListExpenses(ctx, group.ID)
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if len(expenses) != 0 {
		t.Errorf("rejected expense was persisted: %d rows", len(expenses))
	}
}

func TestCreateExpenseRejectsForeignCurrency(t *testing.T) {
	svc := newTestService(t)
	group, members := seedTrio(t, svc)

	e := evenExpense(group, members["alice"], 3000, members["alice"], members["bob"], members["carol"])
	e.Currency = "USD"

	_, err := svc.CreateExpense(context.Background(), e)
	var currencyErr *core.CurrencyError
	if !errors.As(err, &currencyErr) {
		t.Fatalf("got %v, want CurrencyError", err)
	}
	if currencyErr.Want != "EUR" || currencyErr.Got != "USD" {
		t.Errorf("currency error = %+v", currencyErr)
	}
}

func TestCreateExpenseDefaultsGroupCurrency(t *testing.T) {
	svc := newTestService(t)
	group, members := seedTrio(t, svc)

	e := evenExpense(group, members["alice"], 3000, members["alice"], members["bob"], members["carol"])
	created, err := svc.CreateExpense(context.Background(), e)
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	if created.Currency != "EUR" {
		t.Errorf("currency = %q, want EUR", created.Currency)
	}
}

func TestComputeBalancesAndSettlements(t *testing.T) {
	svc := newTestService(t)
	group, members := seedTrio(t, svc)
	ctx := context.Background()

	// alice pays 120.00 split three ways
	if _, err := svc.CreateExpense(ctx, evenExpense(group, members["alice"], 12000,
		members["alice"], members["bob"], members["carol"])); err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	result, err := svc.ComputeBalances(ctx, group.ID)
	if err != nil {
		t.Fatalf("ComputeBalances: %v", err)
	}

	nets := make(map[string]int64)
	var residual int64
	for _, b := range result.Balances {
		nets[b.MemberID] = b.Net.Cents
		residual += b.Net.Cents
	}
	if residual != 0 {
		t.Errorf("residual = %d, want 0", residual)
	}
	if nets[members["alice"].ID] != 8000 {
		t.Errorf("alice net = %d, want 8000", nets[members["alice"].ID])
	}
	if nets[members["bob"].ID] != -4000 || nets[members["carol"].ID] != -4000 {
		t.Errorf("debtor nets = %d, %d, want -4000 each",
			nets[members["bob"].ID], nets[members["carol"].ID])
	}

	// Display order: largest creditor first, every balance classified.
	if result.Balances[0].MemberID != members["alice"].ID {
		t.Errorf("first balance = %s (net %d), want alice (largest creditor)",
			result.Balances[0].MemberID, result.Balances[0].Net.Cents)
	}
	if result.Balances[0].Status != core.StatusOwed {
		t.Errorf("alice status = %q, want %q", result.Balances[0].Status, core.StatusOwed)
	}
	for _, b := range result.Balances[1:] {
		if b.Status != core.StatusOwes {
			t.Errorf("%s status = %q, want %q", b.MemberID, b.Status, core.StatusOwes)
		}
	}

	plan, err := svc.ComputeSettlementPlan(ctx, group.ID)
	if err != nil {
		t.Fatalf("ComputeSettlementPlan: %v", err)
	}
	if len(plan) != 2 {
		t.Fatalf("plan has %d transfers, want 2", len(plan))
	}
	for _, s := range plan {
		if s.RecipientID != members["alice"].ID || s.Amount.Cents != 4000 {
			t.Errorf("unexpected transfer %+v", s)
		}
	}
}

func TestPaymentSettlesGroup(t *testing.T) {
	svc := newTestService(t)
	group, members := seedTrio(t, svc)
	ctx := context.Background()

	if _, err := svc.CreateExpense(ctx, evenExpense(group, members["alice"], 12000,
		members["alice"], members["bob"], members["carol"])); err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	for _, debtor := range []core.Member{members["bob"], members["carol"]} {
		_, err := svc.RecordPayment(ctx, core.Payment{
			GroupID:     group.ID,
			PayerID:     debtor.ID,
			RecipientID: members["alice"].ID,
			Amount:      core.Money{Cents: 4000},
		})
		if err != nil {
			t.Fatalf("RecordPayment: %v", err)
		}
	}

	plan, err := svc.ComputeSettlementPlan(ctx, group.ID)
	if err != nil {
		t.Fatalf("ComputeSettlementPlan: %v", err)
	}
	if len(plan) != 0 {
		t.Errorf("plan has %d transfers after full settlement, want 0", len(plan))
	}
}

func TestRecordPaymentRejectsSelfPayment(t *testing.T) {
	svc := newTestService(t)
	group, members := seedTrio(t, svc)

	_, err := svc.RecordPayment(context.Background(), core.Payment{
		GroupID:     group.ID,
		PayerID:     members["alice"].ID,
		RecipientID: members["alice"].ID,
		Amount:      core.Money{Cents: 100},
	})
	if !errors.Is(err, core.ErrSelfPayment) {
		t.Errorf("got %v, want ErrSelfPayment", err)
	}
}

func TestDeleteExpenseRestoresBalances(t *testing.T) {
	svc := newTestService(t)
	group, members := seedTrio(t, svc)
	ctx := context.Background()

	created, err := svc.CreateExpense(ctx, evenExpense(group, members["alice"], 9000,
		members["alice"], members["bob"], members["carol"]))
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	if err := svc.DeleteExpense(ctx, created.ID); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}

	result, err := svc.ComputeBalances(ctx, group.ID)
	if err != nil {
		t.Fatalf("ComputeBalances: %v", err)
	}
	for _, b := range result.Balances {
		if b.Net.Cents != 0 {
			t.Errorf("member %s net = %d after delete, want 0", b.MemberID, b.Net.Cents)
		}
	}
}

func TestDeleteUnknownExpense(t *testing.T) {
	svc := newTestService(t)

	err := svc.DeleteExpense(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

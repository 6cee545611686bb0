package worker

import (
	"context"
	"path/filepath"
	"testing"

	"divvy/internal/amqp"
	"divvy/internal/core"
	"divvy/internal/report/memory"
	"divvy/internal/storage"
)

func TestHandleGroupChangedExportsSnapshot(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "divvy.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	ctx := context.Background()

	group, err := repo.CreateGroup(ctx, "flatmates", "EUR")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	alice, err := repo.AddMember(ctx, group.ID, "alice")
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	bob, err := repo.AddMember(ctx, group.ID, "bob")
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	_, err = repo.CreateExpense(ctx, core.Expense{
		GroupID:  group.ID,
		PayerID:  alice.ID,
		Amount:   core.Money{Cents: 5000},
		Currency: "EUR",
		Shares: []core.ExpenseShare{
			{MemberID: alice.ID, Amount: core.Money{Cents: 2500}},
			{MemberID: bob.ID, Amount: core.Money{Cents: 2500}},
		},
	})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	sink := memory.New()
	notifier := NewNotifier(repo, sink)

	msg := amqp.NewGroupChangedMessage(group.ID, amqp.ChangeExpenseCreated)
	if err := notifier.HandleGroupChanged(ctx, msg); err != nil {
		t.Fatalf("HandleGroupChanged: %v", err)
	}

	snaps := sink.Snapshots()
	if len(snaps) != 1 {
		t.Fatalf("got %d snapshots, want 1", len(snaps))
	}
	if snaps[0].GroupName != "flatmates" {
		t.Errorf("group name = %q, want flatmates", snaps[0].GroupName)
	}

	// The exported rows carry the display contract: creditor first, each
	// balance classified.
	balances := snaps[0].Balances
	if len(balances) != 2 {
		t.Fatalf("got %d balances, want 2", len(balances))
	}
	if balances[0].MemberID != alice.ID || balances[0].Net.Cents != 2500 {
		t.Errorf("first balance = %+v, want alice at 2500", balances[0])
	}
	if balances[0].Status != core.StatusOwed {
		t.Errorf("alice status = %q, want %q", balances[0].Status, core.StatusOwed)
	}
	if balances[1].MemberID != bob.ID || balances[1].Net.Cents != -2500 {
		t.Errorf("second balance = %+v, want bob at -2500", balances[1])
	}
	if balances[1].Status != core.StatusOwes {
		t.Errorf("bob status = %q, want %q", balances[1].Status, core.StatusOwes)
	}
}

func TestHandleGroupChangedUnknownGroup(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "divvy.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	notifier := NewNotifier(repo, memory.New())
	msg := amqp.NewGroupChangedMessage("missing", amqp.ChangePaymentCreated)
	if err := notifier.HandleGroupChanged(context.Background(), msg); err == nil {
		t.Error("expected error for unknown group")
	}
}

func TestHandleGroupChangedNoSink(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "divvy.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	ctx := context.Background()

	group, err := repo.CreateGroup(ctx, "empty", "EUR")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	notifier := NewNotifier(repo, nil)
	msg := amqp.NewGroupChangedMessage(group.ID, amqp.ChangeExpenseDeleted)
	if err := notifier.HandleGroupChanged(ctx, msg); err != nil {
		t.Errorf("HandleGroupChanged without sink: %v", err)
	}
}

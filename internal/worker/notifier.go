// Package worker recomputes group balances in response to change messages
// and pushes the fresh snapshot to the configured report sink.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"divvy/internal/amqp"
	"divvy/internal/core"
	"divvy/internal/report"
	"divvy/internal/storage"
)

// Notifier handles group change messages from AMQP. Every message triggers a
// full recompute from the group's current snapshot; the message itself only
// says which group to look at.
type Notifier struct {
	storage *storage.SQLiteRepository
	sink    report.BalanceWriter
}

func NewNotifier(storage *storage.SQLiteRepository, sink report.BalanceWriter) *Notifier {
	return &Notifier{
		storage: storage,
		sink:    sink,
	}
}

// HandleGroupChanged recomputes the changed group's balances and exports
// them. Export failures are returned so the delivery is redelivered.
func (n *Notifier) HandleGroupChanged(ctx context.Context, msg *amqp.GroupChangedMessage) error {
	slog.InfoContext(ctx, "Processing group change",
		"group_id", msg.GroupID,
		"change", msg.Change)

	snap, err := n.storage.LoadSnapshot(ctx, msg.GroupID)
	if err != nil {
		return fmt.Errorf("load group snapshot: %w", err)
	}

	result, err := core.AggregateBalances(snap.Group.ID, snap.Group.Currency, snap.Members, snap.Expenses, snap.Payments)
	if err != nil {
		return fmt.Errorf("aggregate balances: %w", err)
	}
	for _, w := range result.Warnings {
		slog.WarnContext(ctx, "Excluded malformed expense from balances",
			"group_id", msg.GroupID,
			"expense_id", w.ExpenseID,
			"rule", w.Rule)
	}

	balances := core.NormalizeBalances(result.Balances)

	slog.InfoContext(ctx, "Recomputed group balances",
		"group_id", msg.GroupID,
		"members", len(balances))

	if n.sink == nil {
		return nil
	}
	if err := n.sink.AppendBalances(ctx, snap.Group.Name, balances); err != nil {
		return fmt.Errorf("export balances: %w", err)
	}

	slog.InfoContext(ctx, "Exported balance snapshot",
		"group_id", msg.GroupID,
		"group_name", snap.Group.Name)
	return nil
}

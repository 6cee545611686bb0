// Package report exports recomputed balance snapshots to external sinks.
package report

import (
	"context"

	"divvy/internal/core"
)

// BalanceWriter appends one group's balance snapshot to a report sink.
type BalanceWriter interface {
	AppendBalances(ctx context.Context, groupName string, balances []core.Balance) error
}

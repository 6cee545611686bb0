// Package services orchestrates ledger operations across SQLite storage and
// the AMQP change channel. Balances are never stored; every read recomputes
// them from the group's current snapshot.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"divvy/internal/amqp"
	"divvy/internal/core"
	"divvy/internal/storage"
)

// LedgerService is the write and compute surface for group ledgers.
type LedgerService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewLedgerService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *LedgerService {
	return &LedgerService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// Ping probes the storage connection, for readiness checks.
func (s *LedgerService) Ping(ctx context.Context) error {
	return s.storage.Ping(ctx)
}

func (s *LedgerService) CreateGroup(ctx context.Context, name, currency string) (storage.Group, error) {
	if name == "" {
		return storage.Group{}, fmt.Errorf("group name is required")
	}
	if currency == "" {
		return storage.Group{}, core.ErrEmptyCurrency
	}
	return s.storage.CreateGroup(ctx, name, currency)
}

func (s *LedgerService) GetGroup(ctx context.Context, groupID string) (storage.Group, error) {
	return s.storage.GetGroup(ctx, groupID)
}

func (s *LedgerService) AddMember(ctx context.Context, groupID, name string) (core.Member, error) {
	if name == "" {
		return core.Member{}, fmt.Errorf("member name is required")
	}
	return s.storage.AddMember(ctx, groupID, name)
}

func (s *LedgerService) ListMembers(ctx context.Context, groupID string) ([]core.Member, error) {
	return s.storage.ListMembers(ctx, groupID)
}

// CreateExpense validates the split, forces the expense onto the group's
// currency, persists it, and publishes a change notification. A publish
// failure never fails the request; the expense is already saved locally.
func (s *LedgerService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	group, err := s.storage.GetGroup(ctx, e.GroupID)
	if err != nil {
		return core.Expense{}, err
	}
	if e.Currency == "" {
		e.Currency = group.Currency
	}
	if e.Currency != group.Currency {
		return core.Expense{}, &core.CurrencyError{GroupID: group.ID, Want: group.Currency, Got: e.Currency}
	}

	if err := e.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("validate expense: %w", err)
	}

	created, err := s.storage.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.publishChange(ctx, created.GroupID, amqp.ChangeExpenseCreated)
	return created, nil
}

func (s *LedgerService) ListExpenses(ctx context.Context, groupID string) ([]core.Expense, error) {
	return s.storage.ListExpenses(ctx, groupID)
}

// DeleteExpense soft deletes an expense and publishes a change notification.
func (s *LedgerService) DeleteExpense(ctx context.Context, expenseID string) error {
	groupID, err := s.storage.SoftDeleteExpense(ctx, expenseID)
	if err != nil {
		return fmt.Errorf("soft delete expense: %w", err)
	}

	s.publishChange(ctx, groupID, amqp.ChangeExpenseDeleted)
	return nil
}

// RecordPayment validates and persists a settlement payment between two
// members and publishes a change notification.
func (s *LedgerService) RecordPayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	group, err := s.storage.GetGroup(ctx, p.GroupID)
	if err != nil {
		return core.Payment{}, err
	}
	if p.Currency == "" {
		p.Currency = group.Currency
	}
	if p.Currency != group.Currency {
		return core.Payment{}, &core.CurrencyError{GroupID: group.ID, Want: group.Currency, Got: p.Currency}
	}

	if err := p.Validate(); err != nil {
		return core.Payment{}, fmt.Errorf("validate payment: %w", err)
	}

	created, err := s.storage.CreatePayment(ctx, p)
	if err != nil {
		return core.Payment{}, fmt.Errorf("save payment: %w", err)
	}

	s.publishChange(ctx, created.GroupID, amqp.ChangePaymentCreated)
	return created, nil
}

func (s *LedgerService) ListPayments(ctx context.Context, groupID string) ([]core.Payment, error) {
	return s.storage.ListPayments(ctx, groupID)
}

func (s *LedgerService) DeletePayment(ctx context.Context, paymentID string) error {
	groupID, err := s.storage.SoftDeletePayment(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("soft delete payment: %w", err)
	}

	s.publishChange(ctx, groupID, amqp.ChangePaymentDeleted)
	return nil
}

// ComputeBalances loads the group snapshot and recomputes every member's net
// position, classified and in display order (largest creditor first).
// Malformed expenses are skipped and reported as warnings in the result
// rather than failing the whole computation.
func (s *LedgerService) ComputeBalances(ctx context.Context, groupID string) (*core.LedgerResult, error) {
	snap, err := s.storage.LoadSnapshot(ctx, groupID)
	if err != nil {
		return nil, err
	}

	result, err := core.AggregateBalances(snap.Group.ID, snap.Group.Currency, snap.Members, snap.Expenses, snap.Payments)
	if err != nil {
		return nil, fmt.Errorf("aggregate balances: %w", err)
	}
	for _, w := range result.Warnings {
		slog.WarnContext(ctx, "Excluded malformed expense from balances",
			"group_id", groupID,
			"expense_id", w.ExpenseID,
			"rule", w.Rule)
	}

	result.Balances = core.NormalizeBalances(result.Balances)
	return result, nil
}

// ComputeSettlementPlan recomputes balances and derives a minimal-transfer
// settlement plan from them.
func (s *LedgerService) ComputeSettlementPlan(ctx context.Context, groupID string) ([]core.Settlement, error) {
	result, err := s.ComputeBalances(ctx, groupID)
	if err != nil {
		return nil, err
	}

	plan, err := core.PlanSettlements(groupID, result.Balances)
	if err != nil {
		return nil, fmt.Errorf("plan settlements: %w", err)
	}
	return plan, nil
}

func (s *LedgerService) publishChange(ctx context.Context, groupID string, change amqp.ChangeKind) {
	if s.amqpClient == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping change message", "group_id", groupID)
		return
	}
	if err := s.amqpClient.PublishGroupChanged(ctx, groupID, change); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change message",
			"group_id", groupID,
			"change", change,
			"error", err)
	}
}

// Close closes both storage and AMQP connections.
func (s *LedgerService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}

	return nil
}

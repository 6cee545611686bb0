// Package storage persists groups, members, expenses, and payments in SQLite
// and serves the record snapshots the ledger computation consumes. Amounts
// are stored as integer cents alongside an explicit currency code; deletion
// is always soft so balances stay recomputable from history.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"divvy/internal/core"
)

// ErrNotFound is returned when a requested row does not exist or is deleted.
var ErrNotFound = errors.New("not found")

// Group is a shared-expense group. All records in a group are denominated in
// the group's single currency.
type Group struct {
	ID        string
	Name      string
	Currency  string
	CreatedAt time.Time
}

// Snapshot is one group's complete non-deleted record set, read in a single
// transaction so the ledger never observes a half-applied write.
type Snapshot struct {
	Group    Group
	Members  []core.Member
	Expenses []core.Expense
	Payments []core.Payment
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Ping probes the database connection, for readiness checks.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) CreateGroup(ctx context.Context, name, currency string) (Group, error) {
	g := Group{
		ID:        uuid.New().String(),
		Name:      name,
		Currency:  currency,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO groups (id, name, currency, created_at) VALUES (?, ?, ?, ?)",
		g.ID, g.Name, g.Currency, g.CreatedAt.Unix(),
	)
	if err != nil {
		return Group{}, fmt.Errorf("insert group: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) GetGroup(ctx context.Context, groupID string) (Group, error) {
	return getGroup(ctx, r.db, groupID)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func getGroup(ctx context.Context, q querier, groupID string) (Group, error) {
	var (
		g       Group
		created int64
	)
	err := q.QueryRowContext(ctx,
		"SELECT id, name, currency, created_at FROM groups WHERE id = ?",
		groupID,
	).Scan(&g.ID, &g.Name, &g.Currency, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Group{}, fmt.Errorf("group %s: %w", groupID, ErrNotFound)
	}
	if err != nil {
		return Group{}, fmt.Errorf("get group: %w", err)
	}
	g.CreatedAt = time.Unix(created, 0).UTC()
	return g, nil
}

func (r *SQLiteRepository) AddMember(ctx context.Context, groupID, name string) (core.Member, error) {
	if _, err := r.GetGroup(ctx, groupID); err != nil {
		return core.Member{}, err
	}
	m := core.Member{ID: uuid.New().String(), Name: name}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO members (id, group_id, name, created_at) VALUES (?, ?, ?, ?)",
		m.ID, groupID, m.Name, time.Now().Unix(),
	)
	if err != nil {
		return core.Member{}, fmt.Errorf("insert member: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) ListMembers(ctx context.Context, groupID string) ([]core.Member, error) {
	return listMembers(ctx, r.db, groupID)
}

func listMembers(ctx context.Context, q querier, groupID string) ([]core.Member, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, name FROM members WHERE group_id = ? ORDER BY created_at, id",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []core.Member
	for rows.Next() {
		var m core.Member
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// CreateExpense persists an expense and its shares atomically. The caller is
// expected to have validated the split already; the insert does not re-check.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Expense{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO expenses (id, group_id, payer_id, description, amount_cents, currency, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		e.ID, e.GroupID, e.PayerID, e.Description, e.Amount.Cents, e.Currency, e.CreatedAt.Unix(),
	)
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}

	for _, share := range e.Shares {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO expense_shares (expense_id, member_id, amount_cents) VALUES (?, ?, ?)",
			e.ID, share.MemberID, share.Amount.Cents,
		)
		if err != nil {
			return core.Expense{}, fmt.Errorf("insert expense share: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return core.Expense{}, fmt.Errorf("commit transaction: %w", err)
	}
	return e, nil
}

// SoftDeleteExpense marks an expense deleted and returns its group id so the
// caller can publish a change event. Already-deleted rows report ErrNotFound.
func (r *SQLiteRepository) SoftDeleteExpense(ctx context.Context, expenseID string) (string, error) {
	var groupID string
	err := r.db.QueryRowContext(ctx,
		"SELECT group_id FROM expenses WHERE id = ? AND deleted_at IS NULL",
		expenseID,
	).Scan(&groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("expense %s: %w", expenseID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("find expense: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		"UPDATE expenses SET deleted_at = ? WHERE id = ?",
		time.Now().Unix(), expenseID,
	)
	if err != nil {
		return "", fmt.Errorf("soft delete expense: %w", err)
	}
	return groupID, nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, groupID string) ([]core.Expense, error) {
	return listExpenses(ctx, r.db, groupID)
}

func listExpenses(ctx context.Context, q querier, groupID string) ([]core.Expense, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, group_id, payer_id, description, amount_cents, currency, created_at
		 FROM expenses WHERE group_id = ? AND deleted_at IS NULL
		 ORDER BY created_at, id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var (
			e       core.Expense
			created int64
		)
		if err := rows.Scan(&e.ID, &e.GroupID, &e.PayerID, &e.Description, &e.Amount.Cents, &e.Currency, &created); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.CreatedAt = time.Unix(created, 0).UTC()
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range expenses {
		shares, err := listShares(ctx, q, expenses[i].ID)
		if err != nil {
			return nil, err
		}
		expenses[i].Shares = shares
	}
	return expenses, nil
}

func listShares(ctx context.Context, q querier, expenseID string) ([]core.ExpenseShare, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT member_id, amount_cents FROM expense_shares WHERE expense_id = ? ORDER BY member_id",
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("list expense shares: %w", err)
	}
	defer rows.Close()

	var shares []core.ExpenseShare
	for rows.Next() {
		var s core.ExpenseShare
		if err := rows.Scan(&s.MemberID, &s.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan expense share: %w", err)
		}
		shares = append(shares, s)
	}
	return shares, rows.Err()
}

func (r *SQLiteRepository) CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO payments (id, group_id, payer_id, recipient_id, note, amount_cents, currency, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		p.ID, p.GroupID, p.PayerID, p.RecipientID, p.Note, p.Amount.Cents, p.Currency, p.CreatedAt.Unix(),
	)
	if err != nil {
		return core.Payment{}, fmt.Errorf("insert payment: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) SoftDeletePayment(ctx context.Context, paymentID string) (string, error) {
	var groupID string
	err := r.db.QueryRowContext(ctx,
		"SELECT group_id FROM payments WHERE id = ? AND deleted_at IS NULL",
		paymentID,
	).Scan(&groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("payment %s: %w", paymentID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("find payment: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		"UPDATE payments SET deleted_at = ? WHERE id = ?",
		time.Now().Unix(), paymentID,
	)
	if err != nil {
		return "", fmt.Errorf("soft delete payment: %w", err)
	}
	return groupID, nil
}

func (r *SQLiteRepository) ListPayments(ctx context.Context, groupID string) ([]core.Payment, error) {
	return listPayments(ctx, r.db, groupID)
}

func listPayments(ctx context.Context, q querier, groupID string) ([]core.Payment, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, group_id, payer_id, recipient_id, note, amount_cents, currency, created_at
		 FROM payments WHERE group_id = ? AND deleted_at IS NULL
		 ORDER BY created_at, id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []core.Payment
	for rows.Next() {
		var (
			p       core.Payment
			created int64
		)
		if err := rows.Scan(&p.ID, &p.GroupID, &p.PayerID, &p.RecipientID, &p.Note, &p.Amount.Cents, &p.Currency, &created); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		p.CreatedAt = time.Unix(created, 0).UTC()
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// LoadSnapshot reads one group's members, expenses, and payments inside a
// single read transaction, giving the ledger a consistent point-in-time view.
func (r *SQLiteRepository) LoadSnapshot(ctx context.Context, groupID string) (*Snapshot, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	group, err := getGroup(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}
	members, err := listMembers(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}
	expenses, err := listExpenses(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}
	payments, err := listPayments(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit snapshot transaction: %w", err)
	}
	return &Snapshot{Group: group, Members: members, Expenses: expenses, Payments: payments}, nil
}

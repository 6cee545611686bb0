package core

import (
	"errors"
	"reflect"
	"testing"
)

var groupMembers = []Member{
	{ID: "alice", Name: "Alice"},
	{ID: "bob", Name: "Bob"},
	{ID: "carol", Name: "Carol"},
}

func payment(id, payer, recipient string, cents int64) Payment {
	return Payment{
		ID:          id,
		GroupID:     "g1",
		PayerID:     payer,
		RecipientID: recipient,
		Amount:      Money{Cents: cents},
		Currency:    "USD",
	}
}

func netOf(t *testing.T, res *LedgerResult, memberID string) int64 {
	t.Helper()
	for _, b := range res.Balances {
		if b.MemberID == memberID {
			return b.Net.Cents
		}
	}
	t.Fatalf("no balance for member %s", memberID)
	return 0
}

// One $120.00 expense paid by Alice, split equally three ways: Alice nets
// +80.00 (paid full, owes own share), Bob and Carol -40.00 each.
func TestAggregateBalancesSingleExpense(t *testing.T) {
	expenses := []Expense{
		expense("e1", "alice", 12000, share("alice", 4000), share("bob", 4000), share("carol", 4000)),
	}

	res, err := AggregateBalances("g1", "USD", groupMembers, expenses, nil)
	if err != nil {
		t.Fatalf("AggregateBalances: %v", err)
	}

	if got := netOf(t, res, "alice"); got != 8000 {
		t.Errorf("alice net = %d, want 8000", got)
	}
	if got := netOf(t, res, "bob"); got != -4000 {
		t.Errorf("bob net = %d, want -4000", got)
	}
	if got := netOf(t, res, "carol"); got != -4000 {
		t.Errorf("carol net = %d, want -4000", got)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}
}

// A owes B 25.50 and C owes B 15.75 from two expenses paid by B.
func TestAggregateBalancesTwoExpenses(t *testing.T) {
	expenses := []Expense{
		expense("e1", "bob", 2550, share("alice", 2550)),
		expense("e2", "bob", 1575, share("carol", 1575)),
	}

	res, err := AggregateBalances("g1", "USD", groupMembers, expenses, nil)
	if err != nil {
		t.Fatalf("AggregateBalances: %v", err)
	}

	if got := netOf(t, res, "alice"); got != -2550 {
		t.Errorf("alice net = %d, want -2550", got)
	}
	if got := netOf(t, res, "bob"); got != 4125 {
		t.Errorf("bob net = %d, want 4125", got)
	}
	if got := netOf(t, res, "carol"); got != -1575 {
		t.Errorf("carol net = %d, want -1575", got)
	}
}

// Payments recorded after settling up bring every balance to exactly zero.
func TestAggregateBalancesPaymentsSettle(t *testing.T) {
	expenses := []Expense{
		expense("e1", "alice", 12000, share("alice", 4000), share("bob", 4000), share("carol", 4000)),
	}
	payments := []Payment{
		payment("p1", "bob", "alice", 4000),
		payment("p2", "carol", "alice", 4000),
	}

	res, err := AggregateBalances("g1", "USD", groupMembers, expenses, payments)
	if err != nil {
		t.Fatalf("AggregateBalances: %v", err)
	}
	for _, b := range res.Balances {
		if b.Net.Cents != 0 {
			t.Errorf("%s net = %d, want 0", b.MemberID, b.Net.Cents)
		}
	}
}

func TestAggregateBalancesZeroSum(t *testing.T) {
	expenses := []Expense{
		expense("e1", "alice", 12000, share("alice", 4000), share("bob", 4000), share("carol", 4000)),
		expense("e2", "bob", 999, share("alice", 333), share("bob", 333), share("carol", 333)),
		expense("e3", "carol", 1575, share("alice", 800), share("bob", 775)),
	}
	payments := []Payment{
		payment("p1", "bob", "alice", 1200),
	}

	res, err := AggregateBalances("g1", "USD", groupMembers, expenses, payments)
	if err != nil {
		t.Fatalf("AggregateBalances: %v", err)
	}
	var sum int64
	for _, b := range res.Balances {
		sum += b.Net.Cents
	}
	if sum != 0 {
		t.Fatalf("balances sum to %d, want 0", sum)
	}
}

// The same snapshot aggregated twice must yield identical results, order
// included.
func TestAggregateBalancesIdempotent(t *testing.T) {
	expenses := []Expense{
		expense("e1", "alice", 12000, share("alice", 4000), share("bob", 4000), share("carol", 4000)),
		expense("e2", "carol", 1575, share("alice", 800), share("bob", 775)),
	}
	payments := []Payment{
		payment("p1", "bob", "alice", 500),
	}

	first, err := AggregateBalances("g1", "USD", groupMembers, expenses, payments)
	if err != nil {
		t.Fatalf("first aggregation: %v", err)
	}
	second, err := AggregateBalances("g1", "USD", groupMembers, expenses, payments)
	if err != nil {
		t.Fatalf("second aggregation: %v", err)
	}
	if !reflect.DeepEqual(first.Balances, second.Balances) {
		t.Errorf("recomputation differs:\nfirst:  %+v\nsecond: %+v", first.Balances, second.Balances)
	}
}

// Members with no records still appear, settled at zero.
func TestAggregateBalancesIdleMember(t *testing.T) {
	expenses := []Expense{
		expense("e1", "alice", 1000, share("bob", 1000)),
	}

	res, err := AggregateBalances("g1", "USD", groupMembers, expenses, nil)
	if err != nil {
		t.Fatalf("AggregateBalances: %v", err)
	}
	if len(res.Balances) != 3 {
		t.Fatalf("got %d balances, want 3", len(res.Balances))
	}
	if got := netOf(t, res, "carol"); got != 0 {
		t.Errorf("carol net = %d, want 0", got)
	}
}

func TestAggregateBalancesEmptyInput(t *testing.T) {
	res, err := AggregateBalances("g1", "USD", nil, nil, nil)
	if err != nil {
		t.Fatalf("empty input must not error: %v", err)
	}
	if len(res.Balances) != 0 {
		t.Errorf("got %d balances, want 0", len(res.Balances))
	}
}

func TestAggregateBalancesCurrencyMismatch(t *testing.T) {
	exp := expense("e1", "alice", 1000, share("bob", 1000))
	exp.Currency = "EUR"

	_, err := AggregateBalances("g1", "USD", groupMembers, []Expense{exp}, nil)
	var currErr *CurrencyError
	if !errors.As(err, &currErr) {
		t.Fatalf("expected *CurrencyError, got %v", err)
	}
	if currErr.Got != "EUR" || currErr.Want != "USD" {
		t.Errorf("got %s/%s, want EUR/USD", currErr.Got, currErr.Want)
	}

	pay := payment("p1", "bob", "alice", 500)
	pay.Currency = "EUR"
	_, err = AggregateBalances("g1", "USD", groupMembers, nil, []Payment{pay})
	if !errors.As(err, &currErr) {
		t.Fatalf("expected *CurrencyError for payment, got %v", err)
	}
}

// A malformed expense that slipped past the write gate is excluded from the
// aggregation and reported as a warning, never silently fixed.
func TestAggregateBalancesExcludesMalformed(t *testing.T) {
	expenses := []Expense{
		expense("good", "alice", 1000, share("bob", 1000)),
		expense("bad", "alice", 1000, share("bob", 999)),
	}

	res, err := AggregateBalances("g1", "USD", groupMembers, expenses, nil)
	if err != nil {
		t.Fatalf("AggregateBalances: %v", err)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("got %d warnings, want 1", len(res.Warnings))
	}
	if res.Warnings[0].ExpenseID != "bad" {
		t.Errorf("warning for %s, want bad", res.Warnings[0].ExpenseID)
	}
	if got := netOf(t, res, "alice"); got != 1000 {
		t.Errorf("alice net = %d, want 1000 (malformed expense must not count)", got)
	}
}

// Target-refund semantics: a payment reduces the payer's debt to the named
// recipient only; other pairs stay untouched.
func TestPairwiseDebts(t *testing.T) {
	expenses := []Expense{
		// Bob owes Alice 40.00, Carol owes Alice 40.00.
		expense("e1", "alice", 12000, share("alice", 4000), share("bob", 4000), share("carol", 4000)),
		// Alice owes Bob 10.00.
		expense("e2", "bob", 1000, share("alice", 1000)),
	}
	payments := []Payment{
		// Carol pays Alice 15.00 of her 40.00 debt.
		payment("p1", "carol", "alice", 1500),
	}

	debts, warnings := PairwiseDebts(expenses, payments)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	// Bob->Alice netted against Alice->Bob: 40.00 - 10.00 = 30.00.
	if got := debts["bob"]["alice"]; got != 3000 {
		t.Errorf("bob owes alice %d, want 3000", got)
	}
	if _, ok := debts["alice"]; ok {
		t.Errorf("alice must owe nobody after netting, got %v", debts["alice"])
	}
	if got := debts["carol"]["alice"]; got != 2500 {
		t.Errorf("carol owes alice %d, want 2500", got)
	}
}

// Overpaying a pairwise debt flips the edge direction instead of leaking into
// unrelated pairs.
func TestPairwiseDebtsOverpaymentFlips(t *testing.T) {
	expenses := []Expense{
		expense("e1", "alice", 1000, share("bob", 1000)),
	}
	payments := []Payment{
		payment("p1", "bob", "alice", 1500),
	}

	debts, _ := PairwiseDebts(expenses, payments)
	if _, ok := debts["bob"]; ok {
		t.Errorf("bob must owe nobody, got %v", debts["bob"])
	}
	if got := debts["alice"]["bob"]; got != 500 {
		t.Errorf("alice owes bob %d, want 500", got)
	}
}

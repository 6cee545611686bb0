package http

import (
	"errors"
	"log/slog"
	"net/http"

	"divvy/internal/core"
	"divvy/internal/storage"
)

type CreateGroupRequest struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

type GroupResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Currency  string `json:"currency"`
	CreatedAt string `json:"created_at"`
}

type AddMemberRequest struct {
	Name string `json:"name"`
}

type MemberResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ShareRequest struct {
	MemberID string `json:"member_id"`
	Amount   string `json:"amount"`
}

type CreateExpenseRequest struct {
	PayerID     string         `json:"payer_id"`
	Description string         `json:"description"`
	Amount      string         `json:"amount"`
	Shares      []ShareRequest `json:"shares"`
}

type ShareResponse struct {
	MemberID    string `json:"member_id"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
}

type ExpenseResponse struct {
	ID          string          `json:"id"`
	GroupID     string          `json:"group_id"`
	PayerID     string          `json:"payer_id"`
	Description string          `json:"description,omitempty"`
	Amount      string          `json:"amount"`
	AmountCents int64           `json:"amount_cents"`
	Currency    string          `json:"currency"`
	Shares      []ShareResponse `json:"shares"`
	CreatedAt   string          `json:"created_at"`
}

type CreatePaymentRequest struct {
	PayerID     string `json:"payer_id"`
	RecipientID string `json:"recipient_id"`
	Note        string `json:"note"`
	Amount      string `json:"amount"`
}

type PaymentResponse struct {
	ID          string `json:"id"`
	GroupID     string `json:"group_id"`
	PayerID     string `json:"payer_id"`
	RecipientID string `json:"recipient_id"`
	Note        string `json:"note,omitempty"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	CreatedAt   string `json:"created_at"`
}

type BalanceResponse struct {
	MemberID string `json:"member_id"`
	Name     string `json:"name"`
	Net      string `json:"net"`
	NetCents int64  `json:"net_cents"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

type BalancesResponse struct {
	GroupID  string            `json:"group_id"`
	Currency string            `json:"currency"`
	Balances []BalanceResponse `json:"balances"`
	Warnings []string          `json:"warnings,omitempty"`
}

type TransferResponse struct {
	PayerID     string `json:"payer_id"`
	RecipientID string `json:"recipient_id"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

type SettlementsResponse struct {
	GroupID   string             `json:"group_id"`
	Transfers []TransferResponse `json:"transfers"`
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	group, err := s.ledger.CreateGroup(r.Context(), req.Name, req.Currency)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, groupResponse(group))
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := s.ledger.GetGroup(r.Context(), r.PathValue("groupID"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groupResponse(group))
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req AddMemberRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	groupID := r.PathValue("groupID")
	member, err := s.ledger.AddMember(r.Context(), groupID, req.Name)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.invalidateGroup(groupID)
	writeJSON(w, http.StatusCreated, MemberResponse{ID: member.ID, Name: member.Name})
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("groupID")
	if _, err := s.ledger.GetGroup(r.Context(), groupID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	members, err := s.ledger.ListMembers(r.Context(), groupID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	out := make([]MemberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, MemberResponse{ID: m.ID, Name: m.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req CreateExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	groupID := r.PathValue("groupID")
	expense, ok := s.buildExpense(w, groupID, req)
	if !ok {
		return
	}

	created, err := s.ledger.CreateExpense(r.Context(), expense)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	expensesCreated.Inc()
	s.invalidateGroup(groupID)
	writeJSON(w, http.StatusCreated, expenseResponse(created))
}

func (s *Server) buildExpense(w http.ResponseWriter, groupID string, req CreateExpenseRequest) (core.Expense, bool) {
	total, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_amount", "amount must be a positive decimal like 12.50")
		return core.Expense{}, false
	}

	expense := core.Expense{
		GroupID:     groupID,
		PayerID:     req.PayerID,
		Description: req.Description,
		Amount:      core.Money{Cents: total},
	}
	for _, share := range req.Shares {
		cents, err := core.ParseDecimalToCents(share.Amount)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid_share_amount",
				"share amount for member "+share.MemberID+" must be a positive decimal")
			return core.Expense{}, false
		}
		expense.Shares = append(expense.Shares, core.ExpenseShare{
			MemberID: share.MemberID,
			Amount:   core.Money{Cents: cents},
		})
	}
	return expense, true
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("groupID")
	if _, err := s.ledger.GetGroup(r.Context(), groupID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	expenses, err := s.ledger.ListExpenses(r.Context(), groupID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	out := make([]ExpenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, expenseResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteExpense(r.Context(), r.PathValue("expenseID")); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	// The group id is not in the URL, so drop all cached balances rather
	// than tracking the expense-to-group mapping here.
	s.dropAllCached()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_amount", "amount must be a positive decimal like 12.50")
		return
	}

	groupID := r.PathValue("groupID")
	created, err := s.ledger.RecordPayment(r.Context(), core.Payment{
		GroupID:     groupID,
		PayerID:     req.PayerID,
		RecipientID: req.RecipientID,
		Note:        req.Note,
		Amount:      core.Money{Cents: cents},
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	paymentsRecorded.Inc()
	s.invalidateGroup(groupID)
	writeJSON(w, http.StatusCreated, paymentResponse(created))
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("groupID")
	if _, err := s.ledger.GetGroup(r.Context(), groupID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	payments, err := s.ledger.ListPayments(r.Context(), groupID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	out := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, paymentResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeletePayment(r.Context(), r.PathValue("paymentID")); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.dropAllCached()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetBalances(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("groupID")

	if cached, ok := s.balancesCache.Get(groupID); ok {
		balancesCacheHits.Inc()
		writeJSON(w, http.StatusOK, cached)
		return
	}

	result, err := s.ledger.ComputeBalances(r.Context(), groupID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	resp := BalancesResponse{
		GroupID:  groupID,
		Currency: result.Currency,
	}
	for _, b := range result.Balances {
		resp.Balances = append(resp.Balances, BalanceResponse{
			MemberID: b.MemberID,
			Name:     b.Name,
			Net:      b.Net.String(),
			NetCents: b.Net.Cents,
			Currency: b.Currency,
			Status:   string(b.Status),
		})
	}
	for _, warn := range result.Warnings {
		resp.Warnings = append(resp.Warnings, warn.Error())
	}

	s.balancesCache.Set(groupID, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSettlements(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("groupID")

	if cached, ok := s.settlementsCache.Get(groupID); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	plan, err := s.ledger.ComputeSettlementPlan(r.Context(), groupID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	resp := SettlementsResponse{
		GroupID:   groupID,
		Transfers: make([]TransferResponse, 0, len(plan)),
	}
	for _, t := range plan {
		resp.Transfers = append(resp.Transfers, TransferResponse{
			PayerID:     t.PayerID,
			RecipientID: t.RecipientID,
			Amount:      t.Amount.String(),
			AmountCents: t.Amount.Cents,
			Currency:    t.Currency,
		})
	}

	s.settlementsCache.Set(groupID, resp)
	writeJSON(w, http.StatusOK, resp)
}

// writeDomainError maps service errors onto HTTP statuses. Validation
// problems are the caller's fault; integrity violations are ours and show a
// generic body.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		splitErr     *core.SplitError
		currencyErr  *core.CurrencyError
		integrityErr *core.IntegrityError
	)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "the requested resource does not exist")
	case errors.As(err, &splitErr):
		splitRejections.Inc()
		writeError(w, http.StatusUnprocessableEntity, "invalid_split", splitErr.Error())
	case errors.As(err, &currencyErr):
		writeError(w, http.StatusUnprocessableEntity, "currency_mismatch", currencyErr.Error())
	case errors.Is(err, core.ErrSelfPayment):
		writeError(w, http.StatusUnprocessableEntity, "self_payment", "payer and recipient must be different members")
	case errors.Is(err, core.ErrInvalidAmount):
		writeError(w, http.StatusUnprocessableEntity, "invalid_amount", "amount must be positive")
	case errors.Is(err, core.ErrEmptyMemberID), errors.Is(err, core.ErrEmptyGroupID), errors.Is(err, core.ErrEmptyCurrency):
		writeError(w, http.StatusUnprocessableEntity, "missing_field", err.Error())
	case errors.As(err, &integrityErr):
		integrityFailures.Inc()
		slog.ErrorContext(r.Context(), "Ledger integrity violation",
			"group_id", integrityErr.GroupID,
			"residual_cents", integrityErr.ResidualCents)
		writeError(w, http.StatusInternalServerError, "integrity_error", "balances could not be calculated")
	default:
		slog.ErrorContext(r.Context(), "Request failed", "error", err, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal_error", "something went wrong")
	}
}

func groupResponse(g storage.Group) GroupResponse {
	return GroupResponse{
		ID:        g.ID,
		Name:      g.Name,
		Currency:  g.Currency,
		CreatedAt: g.CreatedAt.Format(timeFormat),
	}
}

func expenseResponse(e core.Expense) ExpenseResponse {
	resp := ExpenseResponse{
		ID:          e.ID,
		GroupID:     e.GroupID,
		PayerID:     e.PayerID,
		Description: e.Description,
		Amount:      e.Amount.String(),
		AmountCents: e.Amount.Cents,
		Currency:    e.Currency,
		CreatedAt:   e.CreatedAt.Format(timeFormat),
	}
	for _, share := range e.Shares {
		resp.Shares = append(resp.Shares, ShareResponse{
			MemberID:    share.MemberID,
			Amount:      share.Amount.String(),
			AmountCents: share.Amount.Cents,
		})
	}
	return resp
}

func paymentResponse(p core.Payment) PaymentResponse {
	return PaymentResponse{
		ID:          p.ID,
		GroupID:     p.GroupID,
		PayerID:     p.PayerID,
		RecipientID: p.RecipientID,
		Note:        p.Note,
		Amount:      p.Amount.String(),
		AmountCents: p.Amount.Cents,
		Currency:    p.Currency,
		CreatedAt:   p.CreatedAt.Format(timeFormat),
	}
}

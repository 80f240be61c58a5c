package http

import (
	"net/http"
	"strings"

	"bajeti/internal/api"
	"bajeti/internal/core"
	"bajeti/internal/services"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request, user core.User) {
	q, err := parseExpenseQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, "list expenses", err)
		return
	}
	expenses, err := s.svc.Expenses.List(r.Context(), user.ID, q)
	if err != nil {
		s.writeError(w, r, "list expenses", err)
		return
	}
	writeJSON(w, http.StatusOK, api.Map(expenses, api.FromExpense))
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request, user core.User) {
	id, err := pathID(r, "expense_id")
	if err != nil {
		s.writeError(w, r, "get expense", err)
		return
	}
	e, err := s.svc.Expenses.Get(r.Context(), user.ID, id)
	if err != nil {
		s.writeError(w, r, "get expense", err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromExpense(e))
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request, user core.User) {
	var req api.ExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, "create expense", err)
		return
	}
	if req.CategoryID == nil || req.Amount == nil {
		s.writeError(w, r, "create expense", core.Invalid("category_id and amount are required"))
		return
	}
	in := services.NewExpense{CategoryID: *req.CategoryID, Amount: *req.Amount}
	if req.Description != nil {
		in.Description = sanitizeInput(*req.Description)
	}
	if req.Month != nil {
		in.Month = strings.TrimSpace(*req.Month)
	}
	if req.Type != nil {
		in.Type = core.ExpenseType(strings.TrimSpace(*req.Type))
	}
	e, err := s.svc.Expenses.Create(r.Context(), user.ID, in)
	if err != nil {
		s.writeError(w, r, "create expense", err)
		return
	}
	s.countWrite()
	writeJSON(w, http.StatusCreated, api.FromExpense(e))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request, user core.User) {
	id, err := pathID(r, "expense_id")
	if err != nil {
		s.writeError(w, r, "update expense", err)
		return
	}
	var req api.ExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, "update expense", err)
		return
	}
	upd := services.ExpenseUpdate{CategoryID: req.CategoryID, Amount: req.Amount}
	if req.Description != nil {
		desc := sanitizeInput(*req.Description)
		upd.Description = &desc
	}
	if req.Month != nil {
		month := strings.TrimSpace(*req.Month)
		upd.Month = &month
	}
	if req.Type != nil {
		typ := core.ExpenseType(strings.TrimSpace(*req.Type))
		upd.Type = &typ
	}
	e, err := s.svc.Expenses.Update(r.Context(), user.ID, id, upd)
	if err != nil {
		s.writeError(w, r, "update expense", err)
		return
	}
	s.countWrite()
	writeJSON(w, http.StatusOK, api.FromExpense(e))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request, user core.User) {
	id, err := pathID(r, "expense_id")
	if err != nil {
		s.writeError(w, r, "delete expense", err)
		return
	}
	if err := s.svc.Expenses.Delete(r.Context(), user.ID, id); err != nil {
		s.writeError(w, r, "delete expense", err)
		return
	}
	s.countWrite()
	NewResponse().NoContent().Write(w)
}

func (s *Server) handleListTransfers(w http.ResponseWriter, r *http.Request, user core.User) {
	month := strings.TrimSpace(r.URL.Query().Get("month"))
	transfers, err := s.svc.Transfers.List(r.Context(), user.ID, month)
	if err != nil {
		s.writeError(w, r, "list transfers", err)
		return
	}
	writeJSON(w, http.StatusOK, api.Map(transfers, api.FromTransfer))
}

func (s *Server) handleGetTransfer(w http.ResponseWriter, r *http.Request, user core.User) {
	id, err := pathID(r, "transfer_id")
	if err != nil {
		s.writeError(w, r, "get transfer", err)
		return
	}
	t, err := s.svc.Transfers.Get(r.Context(), user.ID, id)
	if err != nil {
		s.writeError(w, r, "get transfer", err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromTransfer(t))
}

func (s *Server) handleCreateTransfer(w http.ResponseWriter, r *http.Request, user core.User) {
	var req api.TransferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, "create transfer", err)
		return
	}
	t, err := s.svc.Transfers.Create(r.Context(), user.ID, services.NewTransfer{
		FromCategoryID: req.FromCategoryID,
		ToCategoryID:   req.ToCategoryID,
		Amount:         req.Amount,
		Description:    sanitizeInput(req.Description),
		Month:          strings.TrimSpace(req.Month),
	})
	if err != nil {
		s.writeError(w, r, "create transfer", err)
		return
	}
	s.countWrite()
	writeJSON(w, http.StatusCreated, api.FromTransfer(t))
}

func (s *Server) handleDeleteTransfer(w http.ResponseWriter, r *http.Request, user core.User) {
	id, err := pathID(r, "transfer_id")
	if err != nil {
		s.writeError(w, r, "delete transfer", err)
		return
	}
	if err := s.svc.Transfers.Delete(r.Context(), user.ID, id); err != nil {
		s.writeError(w, r, "delete transfer", err)
		return
	}
	s.countWrite()
	NewResponse().NoContent().Write(w)
}

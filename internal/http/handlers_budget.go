package http

import (
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"bajeti/internal/api"
	"bajeti/internal/core"
	"bajeti/internal/log"
	"bajeti/internal/services"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request, user core.User) {
	budgets, err := s.svc.Budgets.List(r.Context(), user.ID)
	if err != nil {
		s.writeError(w, r, "list budgets", err)
		return
	}
	writeJSON(w, http.StatusOK, api.Map(budgets, api.FromBudget))
}

func (s *Server) handleCurrentBudget(w http.ResponseWriter, r *http.Request, user core.User) {
	b, err := s.svc.Budgets.Current(r.Context(), user.ID)
	if err != nil {
		s.writeError(w, r, "current budget", err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromBudget(b))
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request, user core.User) {
	id, err := pathID(r, "budget_id")
	if err != nil {
		s.writeError(w, r, "get budget", err)
		return
	}
	b, err := s.svc.Budgets.Get(r.Context(), user.ID, id)
	if err != nil {
		s.writeError(w, r, "get budget", err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromBudget(b))
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request, user core.User) {
	var req api.BudgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, "create budget", err)
		return
	}
	name, amount := core.DefaultBudgetName, decimal.Zero
	if req.Name != nil {
		name = sanitizeInput(*req.Name)
	}
	if req.Amount != nil {
		amount = *req.Amount
	}
	b, err := s.svc.Budgets.Create(r.Context(), user.ID, name, amount)
	if err != nil {
		s.writeError(w, r, "create budget", err)
		return
	}
	s.countWrite()
	writeJSON(w, http.StatusCreated, api.FromBudget(b))
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request, user core.User) {
	id, err := pathID(r, "budget_id")
	if err != nil {
		s.writeError(w, r, "update budget", err)
		return
	}
	var req api.BudgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, "update budget", err)
		return
	}
	upd := services.BudgetUpdate{Amount: req.Amount}
	if req.Name != nil {
		name := sanitizeInput(*req.Name)
		upd.Name = &name
	}
	b, err := s.svc.Budgets.Update(r.Context(), user.ID, id, upd)
	if err != nil {
		s.writeError(w, r, "update budget", err)
		return
	}
	s.countWrite()
	writeJSON(w, http.StatusOK, api.FromBudget(b))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request, user core.User) {
	id, err := pathID(r, "budget_id")
	if err != nil {
		s.writeError(w, r, "delete budget", err)
		return
	}
	if err := s.svc.Budgets.Delete(r.Context(), user.ID, id); err != nil {
		s.writeError(w, r, "delete budget", err)
		return
	}
	s.countWrite()
	NewResponse().NoContent().Write(w)
}

// handleBudgetOverview serves the allocation overview of one budget for the
// month in ?month= (current month when absent).
func (s *Server) handleBudgetOverview(w http.ResponseWriter, r *http.Request, user core.User) {
	id, err := pathID(r, "budget_id")
	if err != nil {
		s.writeError(w, r, "budget overview", err)
		return
	}
	month := strings.TrimSpace(r.URL.Query().Get("month"))

	ov, err := s.svc.Reports.BudgetOverview(r.Context(), user.ID, id, month)
	if err != nil {
		s.writeError(w, r, "budget overview", err)
		return
	}
	atomic.AddInt64(&s.appMetrics.overviews, 1)
	log.FromContext(r.Context()).DebugContext(r.Context(), "Budget overview computed",
		log.FieldBudgetID, id,
		log.FieldMonth, ov.Budget.Month,
		"allocations", len(ov.Allocations))
	writeJSON(w, http.StatusOK, api.FromOverview(ov))
}

func (s *Server) handleListAllocations(w http.ResponseWriter, r *http.Request, user core.User) {
	budgetID, err := pathID(r, "budget_id")
	if err != nil {
		s.writeError(w, r, "list allocations", err)
		return
	}
	allocs, err := s.svc.Allocations.List(r.Context(), user.ID, budgetID)
	if err != nil {
		s.writeError(w, r, "list allocations", err)
		return
	}
	writeJSON(w, http.StatusOK, api.Map(allocs, api.FromAllocation))
}

func (s *Server) handleGetAllocation(w http.ResponseWriter, r *http.Request, user core.User) {
	budgetID, allocID, err := allocationPath(r)
	if err != nil {
		s.writeError(w, r, "get allocation", err)
		return
	}
	a, err := s.svc.Allocations.Get(r.Context(), user.ID, budgetID, allocID)
	if err != nil {
		s.writeError(w, r, "get allocation", err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromAllocation(a))
}

func (s *Server) handleCreateAllocation(w http.ResponseWriter, r *http.Request, user core.User) {
	budgetID, err := pathID(r, "budget_id")
	if err != nil {
		s.writeError(w, r, "create allocation", err)
		return
	}
	var req api.AllocationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, "create allocation", err)
		return
	}
	a, err := s.svc.Allocations.Create(r.Context(), user.ID, budgetID, req.CategoryID, req.AllocatedAmount)
	if err != nil {
		s.writeError(w, r, "create allocation", err)
		return
	}
	s.countWrite()
	writeJSON(w, http.StatusCreated, api.FromAllocation(a))
}

func (s *Server) handleUpdateAllocation(w http.ResponseWriter, r *http.Request, user core.User) {
	budgetID, allocID, err := allocationPath(r)
	if err != nil {
		s.writeError(w, r, "update allocation", err)
		return
	}
	var req api.AllocationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, "update allocation", err)
		return
	}
	a, err := s.svc.Allocations.Update(r.Context(), user.ID, budgetID, allocID, req.AllocatedAmount)
	if err != nil {
		s.writeError(w, r, "update allocation", err)
		return
	}
	s.countWrite()
	writeJSON(w, http.StatusOK, api.FromAllocation(a))
}

func (s *Server) handleDeleteAllocation(w http.ResponseWriter, r *http.Request, user core.User) {
	budgetID, allocID, err := allocationPath(r)
	if err != nil {
		s.writeError(w, r, "delete allocation", err)
		return
	}
	if err := s.svc.Allocations.Delete(r.Context(), user.ID, budgetID, allocID); err != nil {
		s.writeError(w, r, "delete allocation", err)
		return
	}
	s.countWrite()
	NewResponse().NoContent().Write(w)
}

func allocationPath(r *http.Request) (budgetID, allocationID int64, err error) {
	if budgetID, err = pathID(r, "budget_id"); err != nil {
		return 0, 0, err
	}
	if allocationID, err = pathID(r, "allocation_id"); err != nil {
		return 0, 0, err
	}
	return budgetID, allocationID, nil
}

package http

import (
	"net/http"
	"strings"

	"bajeti/internal/api"
	"bajeti/internal/core"
	"bajeti/internal/services"
)

// handleCategoryStats serves the current month's usage of every expense
// category of the user.
func (s *Server) handleCategoryStats(w http.ResponseWriter, r *http.Request, user core.User) {
	stats, err := s.svc.Reports.CategoriesWithStats(r.Context(), user.ID)
	if err != nil {
		s.writeError(w, r, "category stats", err)
		return
	}
	writeJSON(w, http.StatusOK, api.Map(stats, api.FromCategoryStats))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request, user core.User) {
	typ := core.CategoryType(strings.TrimSpace(r.URL.Query().Get("type")))
	cats, err := s.svc.Categories.List(r.Context(), user.ID, typ)
	if err != nil {
		s.writeError(w, r, "list categories", err)
		return
	}
	writeJSON(w, http.StatusOK, api.Map(cats, api.FromCategory))
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request, user core.User) {
	id, err := pathID(r, "category_id")
	if err != nil {
		s.writeError(w, r, "get category", err)
		return
	}
	c, err := s.svc.Categories.Get(r.Context(), user.ID, id)
	if err != nil {
		s.writeError(w, r, "get category", err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromCategory(c))
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request, user core.User) {
	var req api.CategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, "create category", err)
		return
	}
	var name string
	var typ core.CategoryType
	if req.Name != nil {
		name = sanitizeInput(*req.Name)
	}
	if req.Type != nil {
		typ = core.CategoryType(strings.TrimSpace(*req.Type))
	}
	c, err := s.svc.Categories.Create(r.Context(), user.ID, name, typ)
	if err != nil {
		s.writeError(w, r, "create category", err)
		return
	}
	s.countWrite()
	writeJSON(w, http.StatusCreated, api.FromCategory(c))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request, user core.User) {
	id, err := pathID(r, "category_id")
	if err != nil {
		s.writeError(w, r, "update category", err)
		return
	}
	var req api.CategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, "update category", err)
		return
	}
	var upd services.CategoryUpdate
	if req.Name != nil {
		name := sanitizeInput(*req.Name)
		upd.Name = &name
	}
	if req.Type != nil {
		typ := core.CategoryType(strings.TrimSpace(*req.Type))
		upd.Type = &typ
	}
	c, err := s.svc.Categories.Update(r.Context(), user.ID, id, upd)
	if err != nil {
		s.writeError(w, r, "update category", err)
		return
	}
	s.countWrite()
	writeJSON(w, http.StatusOK, api.FromCategory(c))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request, user core.User) {
	id, err := pathID(r, "category_id")
	if err != nil {
		s.writeError(w, r, "delete category", err)
		return
	}
	if err := s.svc.Categories.Delete(r.Context(), user.ID, id); err != nil {
		s.writeError(w, r, "delete category", err)
		return
	}
	s.countWrite()
	NewResponse().NoContent().Write(w)
}

package web

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"bajeti/internal/api"
	"bajeti/internal/apiclient"
	"bajeti/internal/core"
	"bajeti/internal/log"
)

const (
	toastSuccess = "success"
	toastError   = "error"
)

// redirect sends the browser to path carrying a toast message.
func redirect(w http.ResponseWriter, r *http.Request, path, toast, kind string) {
	if toast != "" {
		u, _ := url.Parse(path)
		q := u.Query()
		q.Set("toast", toast)
		q.Set("kind", kind)
		u.RawQuery = q.Encode()
		path = u.String()
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// detail is the message shown to the user for an API failure.
func detail(err error) string {
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return "Service unavailable, please try again"
}

func (s *Server) setToken(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// session passes the access token to next, sending anonymous visitors to the
// login page.
func (s *Server) session(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(cookieName)
		if err != nil || c.Value == "" {
			redirect(w, r, "/login", "", "")
			return
		}
		next(w, r, c.Value)
	}
}

// fail redirects after an API error. A rejected token ends the session.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, back string, err error) {
	if errors.Is(err, core.ErrUnauthorized) {
		s.setToken(w, "", -1)
		redirect(w, r, "/login", "Session expired, please log in again", toastError)
		return
	}
	if !errors.Is(err, core.ErrValidation) && !errors.Is(err, core.ErrNotFound) && !errors.Is(err, core.ErrConflict) {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "API call failed",
			log.FieldPath, r.URL.Path,
			log.FieldError, err.Error())
	}
	redirect(w, r, back, detail(err), toastError)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		redirect(w, r, "/dashboard", "", "")
		return
	}
	redirect(w, r, "/login", "", "")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	email, password := strings.TrimSpace(r.PostFormValue("email")), r.PostFormValue("password")
	tok, err := s.api.Login(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, core.ErrUnauthorized) || errors.Is(err, core.ErrValidation) {
			s.renderPage(w, r, http.StatusUnauthorized, "login", pageData{
				Toast: detail(err), Kind: toastError, Values: map[string]string{"email": email},
			})
			return
		}
		s.fail(w, r, "/login", err)
		return
	}
	s.setToken(w, tok.AccessToken, cookieMaxAge)
	redirect(w, r, "/dashboard", "Welcome back", toastSuccess)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	in := api.RegisterRequest{
		FirstName:      strings.TrimSpace(r.PostFormValue("first_name")),
		LastName:       strings.TrimSpace(r.PostFormValue("last_name")),
		Email:          strings.TrimSpace(r.PostFormValue("email")),
		Password:       r.PostFormValue("password"),
		SecurityAnswer: r.PostFormValue("security_answer"),
	}
	if in.Password != r.PostFormValue("confirm_password") {
		redirect(w, r, "/register", "Passwords do not match", toastError)
		return
	}
	if _, err := s.api.Register(r.Context(), in); err != nil {
		s.fail(w, r, "/register", err)
		return
	}
	redirect(w, r, "/login", "Registration successful, please log in", toastSuccess)
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	err := s.api.ResetPassword(r.Context(), api.ResetPasswordRequest{
		Email:          strings.TrimSpace(r.PostFormValue("email")),
		SecurityAnswer: r.PostFormValue("security_answer"),
		NewPassword:    r.PostFormValue("new_password"),
	})
	if err != nil {
		s.fail(w, r, "/forgot-password", err)
		return
	}
	redirect(w, r, "/login", "Password updated, please log in", toastSuccess)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.setToken(w, "", -1)
	redirect(w, r, "/login", "You have been logged out", toastSuccess)
}

type dashboardData struct {
	Month      string
	Budget     *api.Budget
	Overview   *api.BudgetOverview
	Stats      []api.CategoryStats
	Categories []api.Category
}

// handleDashboard loads the user, the category stats, the category list and
// the current budget concurrently, then the overview of that budget.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, token string) {
	month := r.URL.Query().Get("month")
	if !core.ValidMonth(month) {
		month = ""
	}

	var (
		user     api.User
		data     dashboardData
		budget   api.Budget
		noBudget bool
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		user, err = s.api.Me(ctx, token)
		return err
	})
	g.Go(func() (err error) {
		data.Stats, err = s.api.CategoryStats(ctx, token)
		return err
	})
	g.Go(func() (err error) {
		data.Categories, err = s.api.ListCategories(ctx, token, "")
		return err
	})
	g.Go(func() error {
		var err error
		budget, err = s.api.CurrentBudget(ctx, token)
		if errors.Is(err, core.ErrNotFound) {
			noBudget = true
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		s.fail(w, r, "/login", err)
		return
	}

	if !noBudget {
		ov, err := s.api.BudgetOverview(r.Context(), token, budget.ID, month)
		if err != nil {
			s.fail(w, r, "/login", err)
			return
		}
		data.Budget, data.Overview = &budget, &ov
		month = ov.Budget.Month
	}
	data.Month = month
	s.renderPage(w, r, http.StatusOK, "dashboard", pageData{Title: "Dashboard", User: &user, Page: data})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request, token string) {
	user, err := s.api.Me(r.Context(), token)
	if err != nil {
		s.fail(w, r, "/dashboard", err)
		return
	}
	s.renderPage(w, r, http.StatusOK, "profile", pageData{Title: "Profile", User: &user})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request, token string) {
	_, err := s.api.UpdateProfile(r.Context(), token, api.ProfileRequest{
		FirstName:      strings.TrimSpace(r.PostFormValue("first_name")),
		LastName:       strings.TrimSpace(r.PostFormValue("last_name")),
		Email:          strings.TrimSpace(r.PostFormValue("email")),
		SecurityAnswer: r.PostFormValue("security_answer"),
	})
	if err != nil {
		s.fail(w, r, "/profile", err)
		return
	}
	redirect(w, r, "/profile", "Profile updated", toastSuccess)
}

// back returns the dashboard URL for the month the form was posted from.
func back(r *http.Request) string {
	if m := r.PostFormValue("month"); core.ValidMonth(m) {
		return "/dashboard?month=" + m
	}
	return "/dashboard"
}

func formAmount(r *http.Request, field string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(r.PostFormValue(field)))
	return d, err == nil
}

func formID(r *http.Request, field string) (*int64, bool) {
	raw := strings.TrimSpace(r.PostFormValue(field))
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, false
	}
	return &id, true
}

// submitted is like optional but keeps an empty value when the field was
// present in the form, so it can clear text.
func submitted(r *http.Request, field string) *string {
	v := strings.TrimSpace(r.PostFormValue(field))
	if _, ok := r.PostForm[field]; !ok {
		return nil
	}
	return &v
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

func optional(r *http.Request, field string) *string {
	v := strings.TrimSpace(r.PostFormValue(field))
	if v == "" {
		return nil
	}
	return &v
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request, token string) {
	categoryID, ok := formID(r, "category_id")
	if !ok || categoryID == nil {
		redirect(w, r, back(r), "Choose a category", toastError)
		return
	}
	amount, ok := formAmount(r, "amount")
	if !ok {
		redirect(w, r, back(r), "Invalid amount", toastError)
		return
	}
	_, err := s.api.CreateExpense(r.Context(), token, api.ExpenseRequest{
		CategoryID:  categoryID,
		Amount:      &amount,
		Description: optional(r, "description"),
		Month:       optional(r, "month"),
		Type:        optional(r, "type"),
	})
	if err != nil {
		s.fail(w, r, back(r), err)
		return
	}
	redirect(w, r, back(r), "Expense added", toastSuccess)
}

// handleUpdateExpense applies the submitted fields. A blank amount or category
// leaves that field unchanged; a submitted description replaces the old one.
func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request, token string) {
	id, ok := pathID(r)
	if !ok {
		redirect(w, r, back(r), "Expense not found", toastError)
		return
	}
	categoryID, ok := formID(r, "category_id")
	if !ok {
		redirect(w, r, back(r), "Choose a category", toastError)
		return
	}
	in := api.ExpenseRequest{CategoryID: categoryID, Description: submitted(r, "description"), Type: optional(r, "type")}
	if strings.TrimSpace(r.PostFormValue("amount")) != "" {
		amount, ok := formAmount(r, "amount")
		if !ok {
			redirect(w, r, back(r), "Invalid amount", toastError)
			return
		}
		in.Amount = &amount
	}
	if _, err := s.api.UpdateExpense(r.Context(), token, id, in); err != nil {
		s.fail(w, r, back(r), err)
		return
	}
	redirect(w, r, back(r), "Expense updated", toastSuccess)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request, token string) {
	id, ok := pathID(r)
	if !ok {
		redirect(w, r, back(r), "Expense not found", toastError)
		return
	}
	if err := s.api.DeleteExpense(r.Context(), token, id); err != nil {
		s.fail(w, r, back(r), err)
		return
	}
	redirect(w, r, back(r), "Expense deleted", toastSuccess)
}

func (s *Server) handleCreateTransfer(w http.ResponseWriter, r *http.Request, token string) {
	from, okFrom := formID(r, "from_category_id")
	to, okTo := formID(r, "to_category_id")
	amount, okAmount := formAmount(r, "amount")
	if !okFrom || !okTo || !okAmount {
		redirect(w, r, back(r), "Invalid transfer", toastError)
		return
	}
	_, err := s.api.CreateTransfer(r.Context(), token, api.TransferRequest{
		FromCategoryID: from,
		ToCategoryID:   to,
		Amount:         amount,
		Description:    strings.TrimSpace(r.PostFormValue("description")),
		Month:          strings.TrimSpace(r.PostFormValue("month")),
	})
	if err != nil {
		s.fail(w, r, back(r), err)
		return
	}
	redirect(w, r, back(r), "Transfer recorded", toastSuccess)
}

func (s *Server) handleUndoTransfer(w http.ResponseWriter, r *http.Request, token string) {
	id, ok := pathID(r)
	if !ok {
		redirect(w, r, back(r), "Transfer not found", toastError)
		return
	}
	if err := s.api.DeleteTransfer(r.Context(), token, id); err != nil {
		s.fail(w, r, back(r), err)
		return
	}
	redirect(w, r, back(r), "Transfer undone", toastSuccess)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request, token string) {
	_, err := s.api.CreateCategory(r.Context(), token, api.CategoryRequest{
		Name: optional(r, "name"),
		Type: optional(r, "type"),
	})
	if err != nil {
		s.fail(w, r, back(r), err)
		return
	}
	redirect(w, r, back(r), "Category created", toastSuccess)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request, token string) {
	id, ok := pathID(r)
	if !ok {
		redirect(w, r, back(r), "Category not found", toastError)
		return
	}
	_, err := s.api.UpdateCategory(r.Context(), token, id, api.CategoryRequest{
		Name: optional(r, "name"),
		Type: optional(r, "type"),
	})
	if err != nil {
		s.fail(w, r, back(r), err)
		return
	}
	redirect(w, r, back(r), "Category updated", toastSuccess)
}

// handleDeleteCategory removes the category along with its allocations and
// expenses.
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request, token string) {
	id, ok := pathID(r)
	if !ok {
		redirect(w, r, back(r), "Category not found", toastError)
		return
	}
	if err := s.api.DeleteCategory(r.Context(), token, id); err != nil {
		s.fail(w, r, back(r), err)
		return
	}
	redirect(w, r, back(r), "Category deleted", toastSuccess)
}

// handleUpdateBudget sets the budget amount, or the allocation of a category
// when the form names one.
func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request, token string) {
	budgetID, ok := formID(r, "budget_id")
	if !ok || budgetID == nil {
		redirect(w, r, back(r), "Budget not found", toastError)
		return
	}
	amount, ok := formAmount(r, "amount")
	if !ok {
		redirect(w, r, back(r), "Invalid amount", toastError)
		return
	}

	var err error
	msg := "Budget updated"
	if categoryID, _ := formID(r, "category_id"); categoryID != nil {
		err = s.saveAllocation(r.Context(), token, *budgetID, *categoryID, amount)
		msg = "Allocation saved"
	} else {
		_, err = s.api.UpdateBudget(r.Context(), token, *budgetID, api.BudgetRequest{Amount: &amount})
	}
	if err != nil {
		s.fail(w, r, back(r), err)
		return
	}
	redirect(w, r, back(r), msg, toastSuccess)
}

// saveAllocation updates the allocation of categoryID in the budget, creating
// it when the category has none yet.
func (s *Server) saveAllocation(ctx context.Context, token string, budgetID, categoryID int64, amount decimal.Decimal) error {
	allocs, err := s.api.ListAllocations(ctx, token, budgetID)
	if err != nil {
		return err
	}
	for _, a := range allocs {
		if a.CategoryID == categoryID {
			_, err = s.api.UpdateAllocation(ctx, token, budgetID, a.ID, amount)
			return err
		}
	}
	_, err = s.api.CreateAllocation(ctx, token, budgetID, api.AllocationRequest{
		CategoryID: categoryID, AllocatedAmount: amount,
	})
	return err
}

package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"bajeti/internal/api"
	"bajeti/internal/apiclient"
	"bajeti/internal/auth"
	apihttp "bajeti/internal/http"
	"bajeti/internal/services"
	"bajeti/internal/storage/memory"
)

func newFrontend(t *testing.T) *Server {
	t.Helper()
	store := memory.New()
	backend := apihttp.NewServer(apihttp.Options{
		Services: services.New(services.Deps{Store: store}),
		Auth:     auth.NewService(store, auth.NewTokens("secret", time.Hour)).WithCost(bcrypt.MinCost),
		Store:    store,
	})
	ts := httptest.NewServer(backend.Handler)
	t.Cleanup(func() {
		ts.Close()
		_ = backend.Shutdown(context.Background())
	})

	srv, err := NewServer(Options{API: apiclient.New(ts.URL, ts.Client())})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

func serve(s *Server, method, target string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	s.Handler.ServeHTTP(rr, req)
	return rr
}

func sessionCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	return nil
}

func assertRedirect(t *testing.T, rr *httptest.ResponseRecorder, path string) url.Values {
	t.Helper()
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303; body=%s", rr.Code, rr.Body.String())
	}
	loc, err := url.Parse(rr.Header().Get("Location"))
	if err != nil || loc.Path != path {
		t.Fatalf("Location = %q, want path %s", rr.Header().Get("Location"), path)
	}
	return loc.Query()
}

func TestAnonymousVisitorsGoToLogin(t *testing.T) {
	s := newFrontend(t)
	for _, path := range []string{"/", "/dashboard", "/profile"} {
		assertRedirect(t, serve(s, http.MethodGet, path, nil, nil), "/login")
	}
	rr := serve(s, http.MethodGet, "/login?toast=%3Cb%3Ehi%3C%2Fb%3E&kind=error", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("login page status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "&lt;b&gt;hi&lt;/b&gt;") {
		t.Error("toast must be rendered escaped")
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := newFrontend(t)

	rr := serve(s, http.MethodPost, "/register", url.Values{
		"first_name": {"Ada"}, "last_name": {"Lovelace"}, "email": {"ada@example.com"},
		"password": {"engine-42"}, "confirm_password": {"engine-42"}, "security_answer": {"blue"},
	}, nil)
	if q := assertRedirect(t, rr, "/login"); q.Get("kind") != toastSuccess {
		t.Fatalf("register toast = %v", q)
	}

	rr = serve(s, http.MethodPost, "/login", url.Values{"email": {"ada@example.com"}, "password": {"wrong-one"}}, nil)
	if rr.Code != http.StatusUnauthorized || sessionCookie(rr) != nil {
		t.Fatalf("bad login status = %d", rr.Code)
	}

	rr = serve(s, http.MethodPost, "/login", url.Values{"email": {"ada@example.com"}, "password": {"engine-42"}}, nil)
	assertRedirect(t, rr, "/dashboard")
	cookie := sessionCookie(rr)
	if cookie == nil || !cookie.HttpOnly || cookie.MaxAge != cookieMaxAge || cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("session cookie = %+v", cookie)
	}

	rr = serve(s, http.MethodPost, "/categories", url.Values{"name": {"Food"}, "type": {"expense"}}, cookie)
	assertRedirect(t, rr, "/dashboard")

	rr = serve(s, http.MethodPost, "/expenses", url.Values{"category_id": {"1"}, "amount": {"abc"}}, cookie)
	if q := assertRedirect(t, rr, "/dashboard"); q.Get("toast") != "Invalid amount" {
		t.Errorf("toast = %q", q.Get("toast"))
	}

	rr = serve(s, http.MethodGet, "/dashboard", nil, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d body=%s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{"Monthly", "Food", "Ada"} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}

	rr = serve(s, http.MethodGet, "/logout", nil, cookie)
	assertRedirect(t, rr, "/login")
	if c := sessionCookie(rr); c == nil || c.MaxAge >= 0 {
		t.Errorf("logout must expire the cookie, got %+v", c)
	}
}

func TestRejectedTokenEndsSession(t *testing.T) {
	s := newFrontend(t)
	rr := serve(s, http.MethodGet, "/dashboard", nil, &http.Cookie{Name: cookieName, Value: "forged"})
	q := assertRedirect(t, rr, "/login")
	if q.Get("kind") != toastError {
		t.Errorf("toast kind = %q", q.Get("kind"))
	}
	if c := sessionCookie(rr); c == nil || c.MaxAge >= 0 {
		t.Errorf("cookie not cleared: %+v", c)
	}
}

func TestParseTemplates(t *testing.T) {
	s := newFrontend(t)
	for _, page := range pages {
		if s.templates[page] == nil {
			t.Errorf("page %s not parsed", page)
		}
	}
}

// login registers Ada through the frontend and returns the session cookie.
func login(t *testing.T, s *Server) *http.Cookie {
	t.Helper()
	serve(s, http.MethodPost, "/register", url.Values{
		"first_name": {"Ada"}, "last_name": {"Lovelace"}, "email": {"ada@example.com"},
		"password": {"engine-42"}, "confirm_password": {"engine-42"}, "security_answer": {"blue"},
	}, nil)
	rr := serve(s, http.MethodPost, "/login", url.Values{"email": {"ada@example.com"}, "password": {"engine-42"}}, nil)
	assertRedirect(t, rr, "/dashboard")
	cookie := sessionCookie(rr)
	if cookie == nil {
		t.Fatal("no session cookie")
	}
	return cookie
}

func assertToast(t *testing.T, rr *httptest.ResponseRecorder, toast, kind string) {
	t.Helper()
	q := assertRedirect(t, rr, "/dashboard")
	if q.Get("toast") != toast || q.Get("kind") != kind {
		t.Errorf("toast = %q (%s), want %q (%s)", q.Get("toast"), q.Get("kind"), toast, kind)
	}
}

func TestDashboardEditing(t *testing.T) {
	s := newFrontend(t)
	cookie := login(t, s)
	ctx, token := context.Background(), cookie.Value

	assertToast(t, serve(s, http.MethodPost, "/categories", url.Values{"name": {"Food"}, "type": {"expense"}}, cookie),
		"Category created", toastSuccess)
	cats, err := s.api.ListCategories(ctx, token, "")
	if err != nil || len(cats) != 1 {
		t.Fatalf("categories = %+v, err = %v", cats, err)
	}
	catID := strconv.FormatInt(cats[0].ID, 10)

	assertToast(t, serve(s, http.MethodPost, "/dashboard/categories/"+catID+"/edit",
		url.Values{"name": {"Groceries"}, "type": {"expense"}}, cookie), "Category updated", toastSuccess)
	if cats, _ = s.api.ListCategories(ctx, token, ""); cats[0].Name != "Groceries" {
		t.Errorf("category name = %q", cats[0].Name)
	}

	assertToast(t, serve(s, http.MethodPost, "/expenses",
		url.Values{"category_id": {catID}, "amount": {"10"}, "description": {"market"}}, cookie), "Expense added", toastSuccess)
	stats, err := s.api.CategoryStats(ctx, token)
	if err != nil || len(stats) != 1 || len(stats[0].Expenses) != 1 {
		t.Fatalf("stats = %+v, err = %v", stats, err)
	}
	expID := strconv.FormatInt(stats[0].Expenses[0].ID, 10)

	assertToast(t, serve(s, http.MethodPost, "/dashboard/expenses/"+expID+"/edit",
		url.Values{"amount": {"nope"}}, cookie), "Invalid amount", toastError)
	assertToast(t, serve(s, http.MethodPost, "/dashboard/expenses/"+expID+"/edit",
		url.Values{"category_id": {catID}, "amount": {"12.50"}, "description": {"weekly shop"}}, cookie), "Expense updated", toastSuccess)
	stats, _ = s.api.CategoryStats(ctx, token)
	if e := stats[0].Expenses[0]; !api.Decimal(e.Amount).Equal(decimal.RequireFromString("12.50")) || e.Description != "weekly shop" {
		t.Errorf("expense after edit = %+v", e)
	}

	budget, err := s.api.CurrentBudget(ctx, token)
	if err != nil {
		t.Fatalf("current budget: %v", err)
	}
	budgetID := strconv.FormatInt(budget.ID, 10)
	for _, amount := range []string{"100", "150"} {
		assertToast(t, serve(s, http.MethodPost, "/budget",
			url.Values{"budget_id": {budgetID}, "category_id": {catID}, "amount": {amount}}, cookie), "Allocation saved", toastSuccess)
	}
	allocs, err := s.api.ListAllocations(ctx, token, budget.ID)
	if err != nil || len(allocs) != 1 || !api.Decimal(allocs[0].AllocatedAmount).Equal(decimal.NewFromInt(150)) {
		t.Errorf("allocations = %+v, err = %v", allocs, err)
	}

	assertToast(t, serve(s, http.MethodPost, "/transfers",
		url.Values{"to_category_id": {catID}, "amount": {"5"}}, cookie), "Transfer recorded", toastSuccess)
	stats, _ = s.api.CategoryStats(ctx, token)
	if len(stats[0].TransfersIn) != 1 {
		t.Fatalf("transfers in = %+v", stats[0].TransfersIn)
	}
	trID := strconv.FormatInt(stats[0].TransfersIn[0].ID, 10)

	rr := serve(s, http.MethodGet, "/dashboard", nil, cookie)
	for _, action := range []string{
		"/dashboard/categories/" + catID + "/edit",
		"/dashboard/categories/" + catID + "/delete",
		"/dashboard/expenses/" + expID + "/edit",
		"/dashboard/transfers/" + trID + "/undo",
	} {
		if !strings.Contains(rr.Body.String(), action) {
			t.Errorf("dashboard has no form for %s", action)
		}
	}

	assertToast(t, serve(s, http.MethodPost, "/dashboard/transfers/"+trID+"/undo", url.Values{}, cookie), "Transfer undone", toastSuccess)
	rr = serve(s, http.MethodPost, "/dashboard/transfers/"+trID+"/undo", url.Values{}, cookie)
	if q := assertRedirect(t, rr, "/dashboard"); q.Get("kind") != toastError {
		t.Errorf("second undo toast = %v", q)
	}

	assertToast(t, serve(s, http.MethodPost, "/dashboard/categories/"+catID+"/delete", url.Values{}, cookie), "Category deleted", toastSuccess)
	if cats, _ = s.api.ListCategories(ctx, token, ""); len(cats) != 0 {
		t.Errorf("categories after delete = %+v", cats)
	}
}

func TestDashboardEditingRejectsBadIDs(t *testing.T) {
	s := newFrontend(t)
	cookie := login(t, s)

	tests := []struct {
		path  string
		toast string
	}{
		{"/dashboard/categories/abc/edit", "Category not found"},
		{"/dashboard/categories/0/delete", "Category not found"},
		{"/dashboard/expenses/-3/edit", "Expense not found"},
		{"/dashboard/transfers/x/undo", "Transfer not found"},
	}
	for _, tt := range tests {
		assertToast(t, serve(s, http.MethodPost, tt.path, url.Values{"name": {"Rent"}}, cookie), tt.toast, toastError)
	}

	assertRedirect(t, serve(s, http.MethodPost, "/dashboard/transfers/1/undo", url.Values{}, nil), "/login")
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"bajeti/internal/api"
	"bajeti/internal/auth"
	"bajeti/internal/cache"
	"bajeti/internal/core"
	"bajeti/internal/log"
	"bajeti/internal/services"
	"bajeti/internal/storage"
	"bajeti/internal/storage/memory"
	"bajeti/internal/storage/storagetest"
)

var fixedNow = time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC)

// countingStore records how many read scopes were opened. A non-nil viewErr
// fails every read.
type countingStore struct {
	storage.Store
	views   int64
	viewErr error
}

func (c *countingStore) View(ctx context.Context, fn func(storage.Reader) error) error {
	atomic.AddInt64(&c.views, 1)
	if c.viewErr != nil {
		return c.viewErr
	}
	return c.Store.View(ctx, fn)
}

type testEnv struct {
	srv    *Server
	store  *countingStore
	tokens *auth.Tokens
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newLoggedTestEnv(t, nil)
}

func newLoggedTestEnv(t *testing.T, logger *log.Logger) *testEnv {
	t.Helper()
	store := &countingStore{Store: memory.New()}
	overviews := cache.NewOverviews(100, time.Minute)
	svc := services.New(services.Deps{Store: store, Cache: overviews, Now: func() time.Time { return fixedNow }})
	svc.Reports.WithOverviewCache(overviews)
	tokens := auth.NewTokens("test-secret", 30*time.Minute)
	srv := NewServer(Options{
		Addr:      ":0",
		Services:  svc,
		Auth:      auth.NewService(store, tokens).WithCost(bcrypt.MinCost),
		Store:     store,
		Overviews: overviews,
		Logger:    logger,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testEnv{srv: srv, store: store, tokens: tokens}
}

func (e *testEnv) token(t *testing.T, u core.User) string {
	t.Helper()
	tok, err := e.tokens.Issue(u.ID, u.Email)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func (e *testEnv) do(t *testing.T, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func assertAmount(t *testing.T, name string, got json.Number, want string) {
	t.Helper()
	if !api.Decimal(got).Equal(decimal.RequireFromString(want)) {
		t.Errorf("%s = %s, want %s", name, got, want)
	}
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := env.do(t, http.MethodGet, path, "", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s missing request id", path)
		}
	}

	rr := env.do(t, http.MethodGet, "/metrics", "", "")
	if !strings.Contains(rr.Body.String(), "http_requests_total") {
		t.Errorf("metrics body missing counters: %s", rr.Body.String())
	}
}

func TestAggregatorsRequireCredentials(t *testing.T) {
	env := newTestEnv(t)
	u, b := storagetest.MustUser(t, env.store, "ada@example.com")

	bogus, err := auth.NewTokens("other-secret", time.Minute).Issue(u.ID, u.Email)
	if err != nil {
		t.Fatal(err)
	}
	targets := []string{
		"/api/budgets/" + strconv.FormatInt(b.ID, 10) + "/overview?month=2025-03",
		"/api/categories/stats",
	}
	for _, target := range targets {
		for _, token := range []string{"", "garbage", bogus} {
			rr := env.do(t, http.MethodGet, target, token, "")
			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("%s with %q: status=%d", target, token, rr.Code)
			}
			if rr.Header().Get("WWW-Authenticate") != "Bearer" {
				t.Errorf("missing WWW-Authenticate header")
			}
			if got := decodeBody[api.ErrorResponse](t, rr).Detail; got != auth.MsgInvalidCredentials {
				t.Errorf("detail = %q", got)
			}
		}
	}
	if views := atomic.LoadInt64(&env.store.views); views != 0 {
		t.Errorf("aggregation ran %d times for unauthenticated requests", views)
	}
}

func TestBudgetOverviewEndpoint(t *testing.T) {
	env := newTestEnv(t)
	u, b := storagetest.MustUser(t, env.store, "ada@example.com")
	tok := env.token(t, u)
	budgetPath := "/api/budgets/" + strconv.FormatInt(b.ID, 10)

	if rr := env.do(t, http.MethodPut, budgetPath, tok, `{"amount": 3000}`); rr.Code != http.StatusOK {
		t.Fatalf("update budget status=%d body=%s", rr.Code, rr.Body.String())
	}
	rent := storagetest.MustCategory(t, env.store, u.ID, "Rent", core.CategoryExpense)
	storagetest.MustAllocation(t, env.store, b.ID, rent.ID, "1000")
	storagetest.MustExpense(t, env.store, u.ID, rent.ID, "250", "2025-03", core.ExpenseSpend)

	rr := env.do(t, http.MethodGet, budgetPath+"/overview?month=2025-03", tok, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	ov := decodeBody[api.BudgetOverview](t, rr)
	if ov.Budget.Month != "2025-03" || len(ov.Allocations) != 1 {
		t.Fatalf("unexpected overview: %+v", ov)
	}
	assertAmount(t, "total_allocated", ov.Summary.TotalAllocated, "1000")
	assertAmount(t, "unallocated", ov.Summary.Unallocated, "2000")
	assertAmount(t, "total_spent", ov.Summary.TotalSpent, "250")
	assertAmount(t, "utilization_percent", ov.Summary.UtilizationPercent, "8.33")
	assertAmount(t, "remaining_amount", ov.Allocations[0].RemainingAmount, "750")

	// no month falls back to the current one
	rr = env.do(t, http.MethodGet, budgetPath+"/overview", tok, "")
	if got := decodeBody[api.BudgetOverview](t, rr).Budget.Month; got != "2025-03" {
		t.Errorf("default month = %q", got)
	}
}

func TestBudgetOverviewErrors(t *testing.T) {
	env := newTestEnv(t)
	u, b := storagetest.MustUser(t, env.store, "ada@example.com")
	other, otherBudget := storagetest.MustUser(t, env.store, "bob@example.com")
	tok := env.token(t, u)

	tests := []struct {
		name   string
		token  string
		target string
		want   int
	}{
		{"bad month", tok, "/api/budgets/" + strconv.FormatInt(b.ID, 10) + "/overview?month=2025-13", http.StatusBadRequest},
		{"bad id", tok, "/api/budgets/abc/overview", http.StatusBadRequest},
		{"missing budget", tok, "/api/budgets/9999/overview?month=2025-03", http.StatusNotFound},
		{"other user's budget", tok, "/api/budgets/" + strconv.FormatInt(otherBudget.ID, 10) + "/overview", http.StatusNotFound},
		{"owner sees it", env.token(t, other), "/api/budgets/" + strconv.FormatInt(otherBudget.ID, 10) + "/overview", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodGet, tt.target, tt.token, "")
			if rr.Code != tt.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.want, rr.Body.String())
			}
			if tt.want == http.StatusNotFound {
				if got := decodeBody[api.ErrorResponse](t, rr).Detail; got != "Budget not found" {
					t.Errorf("detail = %q", got)
				}
			}
		})
	}
}

func TestCategoryStatsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	u, b := storagetest.MustUser(t, env.store, "ada@example.com")
	tok := env.token(t, u)

	rr := env.do(t, http.MethodGet, "/api/categories/stats", tok, "")
	if rr.Code != http.StatusOK || strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("empty stats: status=%d body=%s", rr.Code, rr.Body.String())
	}

	food := storagetest.MustCategory(t, env.store, u.ID, "Food", core.CategoryExpense)
	fun := storagetest.MustCategory(t, env.store, u.ID, "Fun", core.CategoryExpense)
	storagetest.MustCategory(t, env.store, u.ID, "Rainy day", core.CategorySavings)
	storagetest.MustAllocation(t, env.store, b.ID, food.ID, "400")
	storagetest.MustExpense(t, env.store, u.ID, food.ID, "120.50", "2025-03", core.ExpenseSpend)
	storagetest.MustTransfer(t, env.store, u.ID, &fun.ID, &food.ID, "30", "2025-03")

	rr = env.do(t, http.MethodGet, "/api/categories/stats", tok, "")
	stats := decodeBody[[]api.CategoryStats](t, rr)
	if len(stats) != 2 || stats[0].Name != "Food" || stats[1].Name != "Fun" {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	assertAmount(t, "food used", stats[0].Used, "120.50")
	assertAmount(t, "food balance", stats[0].Balance, "309.50")
	if len(stats[0].TransfersIn) != 1 || stats[0].TransfersIn[0].FromCategoryName == nil || *stats[0].TransfersIn[0].FromCategoryName != "Fun" {
		t.Errorf("transfer line not enriched: %+v", stats[0].TransfersIn)
	}
	assertAmount(t, "fun balance", stats[1].Balance, "-30")
}

func TestCRUDFlow(t *testing.T) {
	env := newTestEnv(t)
	u, b := storagetest.MustUser(t, env.store, "ada@example.com")
	tok := env.token(t, u)

	rr := env.do(t, http.MethodPost, "/api/categories", tok, `{"name":"Groceries"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create category status=%d body=%s", rr.Code, rr.Body.String())
	}
	cat := decodeBody[api.Category](t, rr)
	if cat.Type != "expense" {
		t.Errorf("default type = %q", cat.Type)
	}
	if rr := env.do(t, http.MethodPost, "/api/categories", tok, `{"name":"Groceries"}`); rr.Code != http.StatusConflict {
		t.Errorf("duplicate category status=%d", rr.Code)
	}

	allocBody := `{"category_id":` + strconv.FormatInt(cat.ID, 10) + `,"allocated_amount":"200.00"}`
	allocPath := "/api/budgets/" + strconv.FormatInt(b.ID, 10) + "/allocations"
	if rr := env.do(t, http.MethodPost, allocPath, tok, allocBody); rr.Code != http.StatusCreated {
		t.Fatalf("create allocation status=%d body=%s", rr.Code, rr.Body.String())
	}
	if rr := env.do(t, http.MethodPost, allocPath, tok, allocBody); rr.Code != http.StatusConflict {
		t.Errorf("duplicate allocation status=%d", rr.Code)
	}

	rr = env.do(t, http.MethodPost, "/api/expenses", tok,
		`{"category_id":`+strconv.FormatInt(cat.ID, 10)+`,"amount":"42.10","description":"market"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create expense status=%d body=%s", rr.Code, rr.Body.String())
	}
	exp := decodeBody[api.Expense](t, rr)
	if exp.Month != "2025-03" || exp.Type != "spend" {
		t.Errorf("expense defaults not applied: %+v", exp)
	}

	rr = env.do(t, http.MethodGet, "/api/expenses?month=2025-03&category_id="+strconv.FormatInt(cat.ID, 10), tok, "")
	if got := decodeBody[[]api.Expense](t, rr); len(got) != 1 {
		t.Errorf("listed %d expenses", len(got))
	}

	expensePath := "/api/expenses/" + strconv.FormatInt(exp.ID, 10)
	if rr := env.do(t, http.MethodDelete, expensePath, tok, ""); rr.Code != http.StatusNoContent {
		t.Errorf("delete status=%d", rr.Code)
	}
	if rr := env.do(t, http.MethodGet, expensePath, tok, ""); rr.Code != http.StatusNotFound {
		t.Errorf("get deleted status=%d", rr.Code)
	}

	rr = env.do(t, http.MethodPost, "/api/transfers", tok,
		`{"to_category_id":`+strconv.FormatInt(cat.ID, 10)+`,"amount":"15","description":"gift"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create transfer status=%d body=%s", rr.Code, rr.Body.String())
	}
	if rr := env.do(t, http.MethodPost, "/api/transfers", tok, `{"amount":"15"}`); rr.Code != http.StatusBadRequest {
		t.Errorf("sideless transfer status=%d", rr.Code)
	}
}

func TestRequestBodyRules(t *testing.T) {
	env := newTestEnv(t)
	u, _ := storagetest.MustUser(t, env.store, "ada@example.com")
	tok := env.token(t, u)

	tests := []struct {
		name string
		body string
	}{
		{"unknown field", `{"name":"x","colour":"red"}`},
		{"malformed", `{"name":`},
		{"empty", ``},
		{"two objects", `{"name":"a"}{"name":"b"}`},
		{"too large", `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/api/categories", tok, tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status=%d body=%s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestRegisterLoginAndMe(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/auth/register", "",
		`{"first_name":"Ada","last_name":"Lovelace","email":"Ada@Example.com","password":"engine-42","security_answer":" Blue "}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("register status=%d body=%s", rr.Code, rr.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/token", strings.NewReader("username=ada@example.com&password=wrong-pass"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	bad := httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(bad, req)
	if bad.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status=%d", bad.Code)
	}
	if got := decodeBody[api.ErrorResponse](t, bad).Detail; got != auth.MsgBadLogin {
		t.Errorf("detail = %q", got)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/auth/token", strings.NewReader("username=ada@example.com&password=engine-42"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	ok := httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(ok, req)
	if ok.Code != http.StatusOK {
		t.Fatalf("login status=%d body=%s", ok.Code, ok.Body.String())
	}
	token := decodeBody[api.TokenResponse](t, ok)
	if token.TokenType != "bearer" || token.AccessToken == "" {
		t.Fatalf("unexpected token response: %+v", token)
	}

	rr = env.do(t, http.MethodGet, "/api/auth/users/me", token.AccessToken, "")
	if me := decodeBody[api.User](t, rr); me.Email != "ada@example.com" {
		t.Errorf("me = %+v", me)
	}

	// registration seeds the default budget
	rr = env.do(t, http.MethodGet, "/api/budgets/current", token.AccessToken, "")
	if got := decodeBody[api.Budget](t, rr); got.Name != core.DefaultBudgetName {
		t.Errorf("current budget = %+v", got)
	}

	rr = env.do(t, http.MethodPost, "/api/users/reset-password", "",
		`{"email":"ada@example.com","security_answer":"green","new_password":"engine-43"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("wrong answer status=%d", rr.Code)
	}
	rr = env.do(t, http.MethodPost, "/api/users/reset-password", "",
		`{"email":"ada@example.com","security_answer":"BLUE","new_password":"engine-43"}`)
	if rr.Code != http.StatusNoContent {
		t.Errorf("reset status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/api/nope", "", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status=%d", rr.Code)
	}
	if rr.Header().Get("Content-Security-Policy") == "" {
		t.Error("security headers missing")
	}
}

func TestServerErrorsAreLoggedNotLeaked(t *testing.T) {
	var buf bytes.Buffer
	env := newLoggedTestEnv(t, log.New(log.Config{Format: "json", Component: log.ComponentHTTP, Output: &buf}))
	u, b := storagetest.MustUser(t, env.store, "ada@example.com")
	env.store.viewErr = errors.New("disk on fire")

	rr := env.do(t, http.MethodGet, "/api/budgets/"+strconv.FormatInt(b.ID, 10)+"/overview", env.token(t, u), "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "disk on fire") {
		t.Errorf("internal error leaked: %s", rr.Body.String())
	}

	var entry map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var e map[string]any
		if json.Unmarshal([]byte(line), &e) == nil && e["msg"] == "Request failed" {
			entry = e
		}
	}
	if entry == nil {
		t.Fatalf("no failure logged in %q", buf.String())
	}
	if !strings.Contains(entry[log.FieldError].(string), "disk on fire") ||
		entry[log.FieldComponent] != log.ComponentHTTP ||
		entry[log.FieldOperation] == nil ||
		entry[log.FieldPath] != "/api/budgets/"+strconv.FormatInt(b.ID, 10)+"/overview" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestAuthRoutesLogUnderAuthComponent(t *testing.T) {
	var buf bytes.Buffer
	env := newLoggedTestEnv(t, log.New(log.Config{Format: "text", Component: log.ComponentHTTP, Output: &buf}))

	rr := env.do(t, http.MethodPost, "/api/auth/register", "",
		`{"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com","password":"engine-42","security_answer":"blue"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("register status=%d body=%s", rr.Code, rr.Body.String())
	}
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, "User registered") {
			if !strings.Contains(line, "component=auth") {
				t.Errorf("register logged as %q", line)
			}
			return
		}
	}
	t.Fatalf("registration not logged: %q", buf.String())
}

// Package apiclient is a typed client for the bajeti JSON API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bajeti/internal/api"
	"bajeti/internal/core"
)

// Error is a non-2xx answer of the API. It unwraps to the core error kind
// matching its status so callers can use errors.Is.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Detail)
}

func (e *Error) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return core.ErrValidation
	case http.StatusUnauthorized:
		return core.ErrUnauthorized
	case http.StatusNotFound:
		return core.ErrNotFound
	case http.StatusConflict:
		return core.ErrConflict
	default:
		return nil
	}
}

type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the API rooted at baseURL. A nil httpClient gets
// a 10 second timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, token, out)
}

func (c *Client) send(req *http.Request, token string, out any) error {
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e api.ErrorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &e) != nil || e.Detail == "" {
			e.Detail = http.StatusText(resp.StatusCode)
		}
		return &Error{Status: resp.StatusCode, Detail: e.Detail}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// Login exchanges credentials for an access token using the password form.
func (c *Client) Login(ctx context.Context, email, password string) (api.TokenResponse, error) {
	form := url.Values{"username": {email}, "password": {password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return api.TokenResponse{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	var tok api.TokenResponse
	return tok, c.send(req, "", &tok)
}

func (c *Client) Register(ctx context.Context, in api.RegisterRequest) (api.User, error) {
	var u api.User
	return u, c.do(ctx, http.MethodPost, "/api/auth/register", "", in, &u)
}

func (c *Client) ResetPassword(ctx context.Context, in api.ResetPasswordRequest) error {
	return c.do(ctx, http.MethodPost, "/api/users/reset-password", "", in, nil)
}

func (c *Client) Me(ctx context.Context, token string) (api.User, error) {
	var u api.User
	return u, c.do(ctx, http.MethodGet, "/api/auth/users/me", token, nil, &u)
}

func (c *Client) UpdateProfile(ctx context.Context, token string, in api.ProfileRequest) (api.User, error) {
	var u api.User
	return u, c.do(ctx, http.MethodPut, "/api/users/me", token, in, &u)
}

func (c *Client) CurrentBudget(ctx context.Context, token string) (api.Budget, error) {
	var b api.Budget
	return b, c.do(ctx, http.MethodGet, "/api/budgets/current", token, nil, &b)
}

func (c *Client) UpdateBudget(ctx context.Context, token string, budgetID int64, in api.BudgetRequest) (api.Budget, error) {
	var b api.Budget
	return b, c.do(ctx, http.MethodPut, "/api/budgets/"+id(budgetID), token, in, &b)
}

// BudgetOverview fetches the overview of budgetID for month; an empty month
// means the current one.
func (c *Client) BudgetOverview(ctx context.Context, token string, budgetID int64, month string) (api.BudgetOverview, error) {
	path := "/api/budgets/" + id(budgetID) + "/overview"
	if month != "" {
		path += "?" + url.Values{"month": {month}}.Encode()
	}
	var ov api.BudgetOverview
	return ov, c.do(ctx, http.MethodGet, path, token, nil, &ov)
}

func (c *Client) CreateAllocation(ctx context.Context, token string, budgetID int64, in api.AllocationRequest) (api.Allocation, error) {
	var a api.Allocation
	return a, c.do(ctx, http.MethodPost, "/api/budgets/"+id(budgetID)+"/allocations", token, in, &a)
}

func (c *Client) ListAllocations(ctx context.Context, token string, budgetID int64) ([]api.Allocation, error) {
	var as []api.Allocation
	return as, c.do(ctx, http.MethodGet, "/api/budgets/"+id(budgetID)+"/allocations", token, nil, &as)
}

// UpdateAllocation changes the allocated amount. The category of an existing
// allocation cannot be moved.
func (c *Client) UpdateAllocation(ctx context.Context, token string, budgetID, allocationID int64, amount decimal.Decimal) (api.Allocation, error) {
	var a api.Allocation
	in := api.AllocationRequest{AllocatedAmount: amount}
	return a, c.do(ctx, http.MethodPut, "/api/budgets/"+id(budgetID)+"/allocations/"+id(allocationID), token, in, &a)
}

func (c *Client) CategoryStats(ctx context.Context, token string) ([]api.CategoryStats, error) {
	var stats []api.CategoryStats
	return stats, c.do(ctx, http.MethodGet, "/api/categories/stats", token, nil, &stats)
}

func (c *Client) ListCategories(ctx context.Context, token, typ string) ([]api.Category, error) {
	path := "/api/categories"
	if typ != "" {
		path += "?" + url.Values{"type": {typ}}.Encode()
	}
	var cats []api.Category
	return cats, c.do(ctx, http.MethodGet, path, token, nil, &cats)
}

func (c *Client) CreateCategory(ctx context.Context, token string, in api.CategoryRequest) (api.Category, error) {
	var cat api.Category
	return cat, c.do(ctx, http.MethodPost, "/api/categories", token, in, &cat)
}

func (c *Client) UpdateCategory(ctx context.Context, token string, categoryID int64, in api.CategoryRequest) (api.Category, error) {
	var cat api.Category
	return cat, c.do(ctx, http.MethodPut, "/api/categories/"+id(categoryID), token, in, &cat)
}

func (c *Client) DeleteCategory(ctx context.Context, token string, categoryID int64) error {
	return c.do(ctx, http.MethodDelete, "/api/categories/"+id(categoryID), token, nil, nil)
}

func (c *Client) CreateExpense(ctx context.Context, token string, in api.ExpenseRequest) (api.Expense, error) {
	var e api.Expense
	return e, c.do(ctx, http.MethodPost, "/api/expenses", token, in, &e)
}

func (c *Client) UpdateExpense(ctx context.Context, token string, expenseID int64, in api.ExpenseRequest) (api.Expense, error) {
	var e api.Expense
	return e, c.do(ctx, http.MethodPut, "/api/expenses/"+id(expenseID), token, in, &e)
}

func (c *Client) DeleteExpense(ctx context.Context, token string, expenseID int64) error {
	return c.do(ctx, http.MethodDelete, "/api/expenses/"+id(expenseID), token, nil, nil)
}

func (c *Client) CreateTransfer(ctx context.Context, token string, in api.TransferRequest) (api.Transfer, error) {
	var t api.Transfer
	return t, c.do(ctx, http.MethodPost, "/api/transfers", token, in, &t)
}

// DeleteTransfer undoes a transfer, restoring both sides' balances.
func (c *Client) DeleteTransfer(ctx context.Context, token string, transferID int64) error {
	return c.do(ctx, http.MethodDelete, "/api/transfers/"+id(transferID), token, nil, nil)
}

func id(v int64) string { return strconv.FormatInt(v, 10) }

package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bajeti/internal/core"
)

func TestResponseBuilder(t *testing.T) {
	rr := httptest.NewRecorder()
	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/budgets/1").
		JSON(map[string]int{"id": 1}).
		Write(rr)

	if rr.Code != http.StatusCreated {
		t.Errorf("status = %d", rr.Code)
	}
	if rr.Header().Get("Content-Type") != "application/json" {
		t.Errorf("content type = %q", rr.Header().Get("Content-Type"))
	}
	if rr.Header().Get("Location") != "/api/budgets/1" {
		t.Error("custom header missing")
	}
	if strings.TrimSpace(rr.Body.String()) != `{"id":1}` {
		t.Errorf("body = %q", rr.Body.String())
	}
}

func TestResponseBuilder_NoContent(t *testing.T) {
	rr := httptest.NewRecorder()
	NewResponse().JSON("ignored").NoContent().Write(rr)
	if rr.Code != http.StatusNoContent || rr.Body.Len() != 0 {
		t.Errorf("status = %d body = %q", rr.Code, rr.Body.String())
	}
}

func TestResponseBuilder_EncodeFailure(t *testing.T) {
	rr := httptest.NewRecorder()
	NewResponse().JSON(make(chan int)).Write(rr)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rr.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrInvalidMonth, http.StatusBadRequest},
		{fmt.Errorf("budget overview 3: %w", core.NotFound("Budget not found")), http.StatusNotFound},
		{core.Conflict("Email already registered"), http.StatusConflict},
		{core.Unauthorized("nope"), http.StatusUnauthorized},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

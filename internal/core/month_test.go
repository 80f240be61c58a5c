package core

import (
	"errors"
	"testing"
	"time"
)

func TestValidMonth(t *testing.T) {
	cases := map[string]bool{
		"2025-01":    true,
		"2025-12":    true,
		"1999-09":    true,
		"2025-00":    false,
		"2025-13":    false,
		"2025-1":     false,
		"25-01":      false,
		"2025/01":    false,
		"2025-01-01": false,
		"":           false,
	}
	for in, want := range cases {
		if got := ValidMonth(in); got != want {
			t.Errorf("ValidMonth(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestResolveMonth(t *testing.T) {
	// 23:30 on Jan 31st in UTC-5 is already February in UTC.
	loc := time.FixedZone("EST", -5*3600)
	now := time.Date(2025, 1, 31, 23, 30, 0, 0, loc)

	got, err := ResolveMonth("", now)
	if err != nil || got != "2025-02" {
		t.Fatalf("expected 2025-02, got %q (err=%v)", got, err)
	}

	got, err = ResolveMonth("2024-11", now)
	if err != nil || got != "2024-11" {
		t.Fatalf("expected passthrough, got %q (err=%v)", got, err)
	}

	if _, err := ResolveMonth("2024-13", now); !errors.Is(err, ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
}

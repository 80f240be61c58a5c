//go:build integration

package google

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

// Integration tests require a real spreadsheet shared with the service account.
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_LedgerExport(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	cfg := Config{
		SpreadsheetID:   spreadsheetID,
		SheetName:       os.Getenv("GOOGLE_SHEET_NAME"),
		CredentialsJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		CredentialsFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
	}
	if cfg.CredentialsJSON == "" && cfg.CredentialsFile == "" {
		t.Skip("service account credentials not configured, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	client, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	e := sampleEvent()
	e.ID = fmt.Sprintf("it-%d", time.Now().UnixNano())
	e.OccurredAt = time.Now().UTC().Truncate(time.Second)
	e.Month = e.OccurredAt.Format("2006-01")

	ref, err := client.AppendEvent(ctx, e)
	if err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}
	t.Logf("appended %s at %s", e.ID, ref)

	again, err := client.AppendEvent(ctx, e)
	if err != nil {
		t.Fatalf("AppendEvent redelivery: %v", err)
	}
	t.Logf("redelivery resolved to %s", again)

	events, err := client.ListEvents(ctx, e.OccurredAt.Year())
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	count := 0
	for _, got := range events {
		if got.ID == e.ID {
			count++
		}
	}
	if count != 1 {
		t.Errorf("event %s exported %d times, want 1", e.ID, count)
	}
}

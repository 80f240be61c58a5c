package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

// Runs against BAJETI_TEST_REDIS_ADDR when set.
func testStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("BAJETI_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("BAJETI_TEST_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := New(ctx, Config{Addr: addr, Prefix: "bajeti-test:" + uuid.NewString() + ":"})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNew_MissingAddr(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestStore_Generations(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	gen, err := s.Generation(ctx, 7)
	if err != nil || gen != 0 {
		t.Fatalf("Generation = %d, %v", gen, err)
	}
	for range 2 {
		if err := s.Bump(ctx, 7); err != nil {
			t.Fatal(err)
		}
	}
	if gen, _ := s.Generation(ctx, 7); gen != 2 {
		t.Fatalf("Generation = %d, want 2", gen)
	}
	if gen, _ := s.Generation(ctx, 8); gen != 0 {
		t.Fatalf("other user generation = %d", gen)
	}
}

func TestStore_GetSet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("Get(missing) = %v, %v", ok, err)
	}
	if err := s.Set(ctx, "k", []byte(`{"a":1}`), time.Minute); err != nil {
		t.Fatal(err)
	}
	data, ok, err := s.Get(ctx, "k")
	if err != nil || !ok || string(data) != `{"a":1}` {
		t.Fatalf("Get(k) = %q, %v, %v", data, ok, err)
	}
}

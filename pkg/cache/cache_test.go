package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type point struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	if err := mc.Set(ctx, "s", "raw", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var s string
	if err := mc.Get(ctx, "s", &s); err != nil || s != "raw" {
		t.Fatalf("get string = %q, %v", s, err)
	}

	if err := mc.Set(ctx, "p", point{Date: "2024-01-01", Value: 1.5}, time.Minute); err != nil {
		t.Fatalf("set struct: %v", err)
	}
	got, err := GetJSON[point](ctx, mc, "p")
	if err != nil || got.Value != 1.5 {
		t.Fatalf("GetJSON = %+v, %v", got, err)
	}

	if err := mc.Get(ctx, "missing", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	_ = mc.Set(ctx, "k", "v", time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	var s string
	if err := mc.Get(ctx, "k", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expired entry to miss, got %v", err)
	}
}

func TestMemoryEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	_ = mc.Set(ctx, "a", "1", time.Minute)
	time.Sleep(time.Millisecond)
	_ = mc.Set(ctx, "b", "2", time.Minute)
	time.Sleep(time.Millisecond)
	var s string
	_ = mc.Get(ctx, "a", &s) // a is now fresher than b
	time.Sleep(time.Millisecond)
	_ = mc.Set(ctx, "c", "3", time.Minute)

	if ok, _ := mc.Exists(ctx, "b"); ok {
		t.Fatalf("b should have been evicted")
	}
	if ok, _ := mc.Exists(ctx, "a", "c"); !ok {
		t.Fatalf("a and c should remain")
	}
	if mc.Len() != 2 {
		t.Fatalf("len = %d", mc.Len())
	}
}

func TestMemoryDeleteByPattern(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	_ = mc.Set(ctx, GenerateKey("payload", "AAPL", 7), "x", time.Minute)
	_ = mc.Set(ctx, GenerateKey("payload", "AAPL", 30), "x", time.Minute)
	_ = mc.Set(ctx, GenerateKey("payload", "MSFT", 7), "x", time.Minute)

	if err := mc.DeleteByPattern(ctx, "payload:AAPL:*"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := mc.Exists(ctx, "payload:AAPL:7", "payload:AAPL:30"); ok {
		t.Fatalf("AAPL keys should be gone")
	}
	if ok, _ := mc.Exists(ctx, "payload:MSFT:7"); !ok {
		t.Fatalf("MSFT key should remain")
	}
}

func TestMemoryTryLock(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	if ok, _ := mc.TryLock(ctx, "lock", time.Minute); !ok {
		t.Fatalf("first lock should succeed")
	}
	if ok, _ := mc.TryLock(ctx, "lock", time.Minute); ok {
		t.Fatalf("second lock should fail")
	}
	_ = mc.Unlock(ctx, "lock")
	if ok, _ := mc.TryLock(ctx, "lock", time.Minute); !ok {
		t.Fatalf("lock after unlock should succeed")
	}
}

func TestLayeredPromotesFromL2(t *testing.T) {
	ctx := context.Background()
	l2 := NewMemoryCache()
	lc := NewLayeredCache(l2, WithLayeredMemoryTTL(time.Minute))
	defer lc.Close()

	_ = l2.Set(ctx, "k", `{"date":"2024-01-02","value":2}`, time.Minute)
	var p point
	if err := lc.Get(ctx, "k", &p); err != nil || p.Value != 2 {
		t.Fatalf("get through L2 = %+v, %v", p, err)
	}
	if ok, _ := lc.l1.Exists(ctx, "k"); !ok {
		t.Fatalf("value should be promoted to L1")
	}

	_ = lc.Delete(ctx, "k")
	if err := lc.Get(ctx, "k", &p); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after delete, got %v", err)
	}
}

func TestGenerateKey(t *testing.T) {
	if got := GenerateKey("payload", "AAPL", 7); got != "payload:AAPL:7" {
		t.Fatalf("key = %q", got)
	}
}
